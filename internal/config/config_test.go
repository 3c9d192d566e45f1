package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for name := range envKeys {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.TEI.BaseURL != DefaultTEIBaseURL {
			t.Errorf("TEI.BaseURL = %q, want %q", cfg.TEI.BaseURL, DefaultTEIBaseURL)
		}
		if cfg.Volcengine.BaseURL != DefaultVolcengineBaseURL {
			t.Errorf("Volcengine.BaseURL = %q, want %q", cfg.Volcengine.BaseURL, DefaultVolcengineBaseURL)
		}
		if cfg.Bailian.BaseURL != DefaultBailianBaseURL {
			t.Errorf("Bailian.BaseURL = %q, want %q", cfg.Bailian.BaseURL, DefaultBailianBaseURL)
		}
		if cfg.Bailian.RerankURL != DefaultBailianRerankURL {
			t.Errorf("Bailian.RerankURL = %q, want %q", cfg.Bailian.RerankURL, DefaultBailianRerankURL)
		}
		if cfg.Volcengine.APIKey != "" {
			t.Errorf("Volcengine.APIKey = %q, want empty", cfg.Volcengine.APIKey)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvTEIBaseURL, "http://tei.internal:3000")
		t.Setenv(EnvTEIRerankEndpoint, "http://reranker:9000/rerank")
		t.Setenv(EnvVolcengineAPIKey, "ark-key")
		t.Setenv(EnvBailianBaseURL, "http://bailian.test/v1")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.TEI.BaseURL != "http://tei.internal:3000" {
			t.Errorf("TEI.BaseURL = %q", cfg.TEI.BaseURL)
		}
		if cfg.TEI.RerankEndpoint != "http://reranker:9000/rerank" {
			t.Errorf("TEI.RerankEndpoint = %q", cfg.TEI.RerankEndpoint)
		}
		if cfg.TEI.EmbedEndpoint != "" {
			t.Errorf("TEI.EmbedEndpoint = %q, want empty", cfg.TEI.EmbedEndpoint)
		}
		if cfg.Volcengine.APIKey != "ark-key" {
			t.Errorf("Volcengine.APIKey = %q", cfg.Volcengine.APIKey)
		}
		if cfg.Bailian.BaseURL != "http://bailian.test/v1" {
			t.Errorf("Bailian.BaseURL = %q", cfg.Bailian.BaseURL)
		}
	})

	t.Run("yaml file with env substitution", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MY_DASHSCOPE_KEY", "sk-from-env")

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
log_level: debug
tei:
  base_url: http://file-tei:8080
bailian:
  api_key: ${MY_DASHSCOPE_KEY}
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.TEI.BaseURL != "http://file-tei:8080" {
			t.Errorf("TEI.BaseURL = %q", cfg.TEI.BaseURL)
		}
		if cfg.Bailian.APIKey != "sk-from-env" {
			t.Errorf("Bailian.APIKey = %q, want substituted value", cfg.Bailian.APIKey)
		}
		if cfg.SlogLevel() != slog.LevelDebug {
			t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
		}
	})

	t.Run("env beats file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvTEIBaseURL, "http://env-tei:8080")

		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("tei:\n  base_url: http://file-tei:8080\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.TEI.BaseURL != "http://env-tei:8080" {
			t.Errorf("TEI.BaseURL = %q, want env value", cfg.TEI.BaseURL)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR_FOR_TEST}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
