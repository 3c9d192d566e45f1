// Package tokens estimates token usage when a provider response omits it.
package tokens

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

// Per-message overhead, following OpenAI's chat accounting.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	tokensPerTool    = 7
	tokensPerCall    = 3
	assistantPriming = 3
)

// Counter counts tokens with tiktoken. When no codec can be loaded it falls
// back to a characters-per-token estimate. It is safe for concurrent use.
type Counter struct {
	// CharsPerToken is used by the fallback estimate (default 4).
	CharsPerToken float64

	codecCache map[tokenizer.Encoding]tokenizer.Codec
	cacheMu    sync.RWMutex
}

// NewCounter creates a counter.
func NewCounter() *Counter {
	return &Counter{
		CharsPerToken: 4.0,
		codecCache:    make(map[tokenizer.Encoding]tokenizer.Codec),
	}
}

var defaultCounter = NewCounter()

// Default returns the process-wide counter.
func Default() *Counter {
	return defaultCounter
}

func (c *Counter) getCodec(model string) (tokenizer.Codec, error) {
	encoding := modelToEncoding(model)

	c.cacheMu.RLock()
	if cached, ok := c.codecCache[encoding]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.codecCache[encoding] = codec
	c.cacheMu.Unlock()

	return codec, nil
}

// modelToEncoding picks a tiktoken encoding. Doubao and Qwen ship their own
// tokenizers; o200k_base is the closest public approximation for both.
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"), strings.HasPrefix(model, "gpt-5"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"), strings.HasPrefix(model, "text-embedding-ada"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}

// CountText counts tokens in text for model.
func (c *Counter) CountText(model, text string) int {
	if text == "" {
		return 0
	}
	codec, err := c.getCodec(model)
	if err == nil {
		if ids, _, err := codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return c.estimate(text)
}

func (c *Counter) estimate(text string) int {
	perToken := c.CharsPerToken
	if perToken <= 0 {
		perToken = 4.0
	}
	n := int(float64(len(text))/perToken + 0.5)
	if n == 0 {
		n = 1
	}
	return n
}

// CountPrompt counts the prompt side of a completion request: preamble,
// documents, history and tool definitions.
func (c *Counter) CountPrompt(model string, req *domain.CompletionRequest) int {
	total := 0

	if req.Preamble != "" {
		total += tokensPerMessage + tokensPerRole
		total += c.CountText(model, req.Preamble)
	}

	if len(req.Documents) > 0 {
		total += tokensPerMessage + tokensPerRole
		for _, doc := range req.Documents {
			total += c.CountText(model, doc.ID) + c.CountText(model, doc.Text)
		}
	}

	for _, msg := range req.ChatHistory {
		total += tokensPerMessage + tokensPerRole
		total += c.CountText(model, msg.Content)
		for _, tc := range msg.ToolCalls {
			total += c.CountText(model, tc.Name)
			total += c.CountText(model, tc.Arguments)
			total += tokensPerCall
		}
	}

	for _, tool := range req.Tools {
		total += c.CountText(model, tool.Name)
		total += c.CountText(model, tool.Description)
		if tool.Parameters != nil {
			paramBytes, _ := json.Marshal(tool.Parameters)
			total += c.CountText(model, string(paramBytes))
		}
		total += tokensPerTool
	}

	return total + assistantPriming
}

// EstimateUsage builds an estimated Usage for a completion whose response had
// no usage block.
func (c *Counter) EstimateUsage(model string, req *domain.CompletionRequest, completion string, calls []domain.ToolCall) domain.Usage {
	input := c.CountPrompt(model, req)
	output := c.CountText(model, completion)
	for _, tc := range calls {
		output += c.CountText(model, tc.Name) + c.CountText(model, tc.Arguments) + tokensPerCall
	}
	return domain.Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  input + output,
		Estimated:    true,
	}
}

// EstimateInputs estimates the tokens consumed by embedding inputs.
func (c *Counter) EstimateInputs(model string, inputs []string) int {
	total := 0
	for _, in := range inputs {
		total += c.CountText(model, in)
	}
	return total
}
