// Package polyglot is the public API for the provider adapters.
// This is the stable surface for external consumers.
package polyglot

import (
	"log/slog"

	"github.com/tjfontaine/polyglot-providers/internal/config"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
	"github.com/tjfontaine/polyglot-providers/internal/provider/bailian"
	"github.com/tjfontaine/polyglot-providers/internal/provider/openaicompat"
	"github.com/tjfontaine/polyglot-providers/internal/provider/tei"
	"github.com/tjfontaine/polyglot-providers/internal/provider/volcengine"
	"github.com/tjfontaine/polyglot-providers/internal/transport"
)

// Canonical request and result types.
type (
	CompletionRequest  = domain.CompletionRequest
	CompletionResponse = domain.CompletionResponse
	Message            = domain.Message
	Document           = domain.Document
	ToolDefinition     = domain.ToolDefinition
	ToolCall           = domain.ToolCall
	ToolChoice         = domain.ToolChoice
	StreamEvent        = domain.StreamEvent
	Usage              = domain.Usage
	Embedding          = domain.Embedding
	RerankResult       = domain.RerankResult
	PredictResponse    = domain.PredictResponse
	LabelScore         = domain.LabelScore
	Error              = domain.Error
	ErrorKind          = domain.ErrorKind
)

// Model interfaces.
type (
	CompletionModel = domain.CompletionModel
	EmbeddingModel  = domain.EmbeddingModel
	RerankModel     = domain.RerankModel
	PredictModel    = domain.PredictModel
	Verifier        = domain.Verifier
)

// Clients and configuration.
type (
	Config           = config.Config
	TEIClient        = tei.Client
	VolcengineClient = volcengine.Client
	BailianClient    = bailian.Client
	ClientOption     = openaicompat.ClientOption
	TEIOption        = tei.ClientOption
)

// LoadConfig reads an optional YAML file and then the environment.
var LoadConfig = config.Load

// Constructors. TEI options are prefixed with TEI; the rest apply to the
// Volcengine and Bailian clients.
var (
	NewTEIClient        = tei.NewClient
	NewVolcengineClient = volcengine.NewClient
	NewBailianClient    = bailian.NewClient

	WithBaseURL      = openaicompat.WithBaseURL
	WithHTTPClient   = openaicompat.WithHTTPClient
	WithLogger       = openaicompat.WithLogger
	WithUserAgent    = openaicompat.WithUserAgent
	WithTokenCounter = openaicompat.WithTokenCounter

	// PublicHTTPClient refuses private and loopback addresses; pass it to
	// WithHTTPClient for hosted providers.
	PublicHTTPClient = transport.PublicHTTPClient

	TEIWithBaseURL         = tei.WithBaseURL
	TEIWithEmbedEndpoint   = tei.WithEmbedEndpoint
	TEIWithRerankEndpoint  = tei.WithRerankEndpoint
	TEIWithPredictEndpoint = tei.WithPredictEndpoint
	TEIWithReturnText      = tei.WithReturnText
	TEIWithHTTPClient      = tei.WithHTTPClient
	TEIWithLogger          = tei.WithLogger

	BailianWithRerankURL       = bailian.WithRerankURL
	BailianWithReturnDocuments = bailian.WithReturnDocuments
)

// Error classification.
var (
	ErrInvalidAuthentication = domain.ErrInvalidAuthentication

	IsValidation = domain.IsValidation
	IsTransport  = domain.IsTransport
	IsHTTPStatus = domain.IsHTTPStatus
	IsProvider   = domain.IsProvider
	IsDecode     = domain.IsDecode
)

// Tool choices and roles.
const (
	ToolChoiceNone     = domain.ToolChoiceNone
	ToolChoiceAuto     = domain.ToolChoiceAuto
	ToolChoiceRequired = domain.ToolChoiceRequired

	RoleSystem    = domain.RoleSystem
	RoleUser      = domain.RoleUser
	RoleAssistant = domain.RoleAssistant
	RoleTool      = domain.RoleTool
)

// Clients holds one client per configured provider. Volcengine and Bailian
// are nil when their API key is not set.
type Clients struct {
	TEI        *tei.Client
	Volcengine *volcengine.Client
	Bailian    *bailian.Client
}

// New builds clients from cfg. A nil logger uses slog.Default(). hosted
// options apply to the Volcengine and Bailian clients only.
func New(cfg Config, logger *slog.Logger, hosted ...ClientOption) *Clients {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Clients{TEI: tei.FromConfig(cfg.TEI, tei.WithLogger(logger))}
	opts := append([]ClientOption{openaicompat.WithLogger(logger)}, hosted...)
	if cfg.Volcengine.APIKey != "" {
		c.Volcengine = volcengine.FromConfig(cfg.Volcengine, opts...)
	}
	if cfg.Bailian.APIKey != "" {
		c.Bailian = bailian.FromConfig(cfg.Bailian, opts...)
	}
	return c
}

// Verifiers returns the configured clients keyed by provider name.
func (c *Clients) Verifiers() map[string]Verifier {
	out := map[string]Verifier{tei.ProviderName: c.TEI}
	if c.Volcengine != nil {
		out[volcengine.ProviderName] = c.Volcengine
	}
	if c.Bailian != nil {
		out[bailian.ProviderName] = c.Bailian
	}
	return out
}
