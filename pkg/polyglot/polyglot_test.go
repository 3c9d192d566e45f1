package polyglot

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/tjfontaine/polyglot-providers/internal/config"
	"github.com/tjfontaine/polyglot-providers/internal/testutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantProviders []string
	}{
		{
			name:          "tei only",
			cfg:           Config{TEI: config.TEIConfig{BaseURL: "http://tei.local"}},
			wantProviders: []string{"tei"},
		},
		{
			name: "all providers",
			cfg: Config{
				Volcengine: config.VolcengineConfig{APIKey: "ark"},
				Bailian:    config.BailianConfig{APIKey: "sk"},
			},
			wantProviders: []string{"tei", "volcengine", "bailian"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifiers := New(tt.cfg, nil).Verifiers()
			if len(verifiers) != len(tt.wantProviders) {
				t.Fatalf("Verifiers() = %v, want %v", verifiers, tt.wantProviders)
			}
			for _, p := range tt.wantProviders {
				if verifiers[p] == nil {
					t.Errorf("missing verifier %q", p)
				}
			}
		})
	}
}

func TestFacadeRerank(t *testing.T) {
	mock := testutil.NewMockProvider(t)
	mock.Respond(http.MethodPost, "/rerank", http.StatusOK, `[{"index":1,"score":0.8},{"index":0,"score":0.2}]`)

	var m RerankModel = NewTEIClient(TEIWithBaseURL(mock.URL()), TEIWithHTTPClient(mock.Client()))
	got, err := m.Rerank(context.Background(), "q", []string{"a", "b"}, 1)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(got) != 1 || got[0].Index != 1 {
		t.Errorf("Rerank() = %+v", got)
	}

	if _, err := m.Rerank(context.Background(), "", []string{"a"}, 0); !IsValidation(err) {
		t.Errorf("Rerank(empty query) error = %v, want validation", err)
	}
}

func TestNew_HostedOptions(t *testing.T) {
	mock := testutil.NewMockProvider(t)
	mock.Respond(http.MethodGet, "/v1/models", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)

	cfg := Config{Bailian: config.BailianConfig{APIKey: "sk", BaseURL: mock.URL() + "/v1"}}
	clients := New(cfg, nil, WithHTTPClient(mock.Client()))
	err := clients.Bailian.Verify(context.Background())
	if !errors.Is(err, ErrInvalidAuthentication) || !IsHTTPStatus(err) {
		t.Errorf("Verify() error = %v, want ErrInvalidAuthentication as an HTTP status error", err)
	}

	public := New(cfg, nil, WithHTTPClient(PublicHTTPClient()))
	if err := public.Bailian.Verify(context.Background()); !IsTransport(err) {
		t.Errorf("Verify() through public-only client error = %v, want transport error", err)
	}
}
