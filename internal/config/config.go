// Package config loads provider settings from an optional YAML file and the
// environment. The result is a plain value handed to provider constructors.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"regexp"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default base URLs.
const (
	DefaultTEIBaseURL        = "http://127.0.0.1:8080"
	DefaultVolcengineBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	DefaultBailianBaseURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultBailianRerankURL  = "https://dashscope.aliyuncs.com/api/v1/services/rerank/text-rerank/text-rerank/"
)

// Recognised environment variables.
const (
	EnvTEIBaseURL         = "TEI_BASE_URL"
	EnvTEIEmbedEndpoint   = "TEI_EMBED_ENDPOINT"
	EnvTEIRerankEndpoint  = "TEI_RERANK_ENDPOINT"
	EnvTEIPredictEndpoint = "TEI_PREDICT_ENDPOINT"
	EnvVolcengineAPIKey   = "VOLCENGINE_API_KEY"
	EnvVolcengineBaseURL  = "VOLCENGINE_BASE_URL"
	EnvBailianAPIKey      = "BAILIAN_API_KEY"
	EnvBailianBaseURL     = "BAILIAN_BASE_URL"
	EnvBailianRerankURL   = "BAILIAN_RERANK_URL"
	EnvLogLevel           = "POLYGLOT_LOG_LEVEL"
)

// envKeys maps environment variables onto config paths.
var envKeys = map[string]string{
	EnvTEIBaseURL:         "tei.base_url",
	EnvTEIEmbedEndpoint:   "tei.embed_endpoint",
	EnvTEIRerankEndpoint:  "tei.rerank_endpoint",
	EnvTEIPredictEndpoint: "tei.predict_endpoint",
	EnvVolcengineAPIKey:   "volcengine.api_key",
	EnvVolcengineBaseURL:  "volcengine.base_url",
	EnvBailianAPIKey:      "bailian.api_key",
	EnvBailianBaseURL:     "bailian.base_url",
	EnvBailianRerankURL:   "bailian.rerank_url",
	EnvLogLevel:           "log_level",
}

type Config struct {
	LogLevel   string           `koanf:"log_level"`
	TEI        TEIConfig        `koanf:"tei"`
	Volcengine VolcengineConfig `koanf:"volcengine"`
	Bailian    BailianConfig    `koanf:"bailian"`
}

type TEIConfig struct {
	BaseURL string `koanf:"base_url"`
	// Endpoint overrides are used verbatim when set.
	EmbedEndpoint   string `koanf:"embed_endpoint"`
	RerankEndpoint  string `koanf:"rerank_endpoint"`
	PredictEndpoint string `koanf:"predict_endpoint"`
}

type VolcengineConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type BailianConfig struct {
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	RerankURL string `koanf:"rerank_url"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (when non-empty and present), then the environment, which
// overrides the file. Unset base URLs get their defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return Config{}, err
	}

	defaults := map[string]string{
		"log_level":           "info",
		"tei.base_url":        DefaultTEIBaseURL,
		"volcengine.base_url": DefaultVolcengineBaseURL,
		"bailian.base_url":    DefaultBailianBaseURL,
		"bailian.rerank_url":  DefaultBailianRerankURL,
	}
	for key, value := range defaults {
		if !k.Exists(key) || k.String(key) == "" {
			if err := k.Set(key, value); err != nil {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}

	cfg.Volcengine.APIKey = substituteEnvVars(cfg.Volcengine.APIKey)
	cfg.Bailian.APIKey = substituteEnvVars(cfg.Bailian.APIKey)

	return cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// SlogLevel parses LogLevel, falling back to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
