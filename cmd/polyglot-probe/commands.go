package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/polyglot-providers/internal/provider/bailian"
	"github.com/tjfontaine/polyglot-providers/internal/provider/tei"
	"github.com/tjfontaine/polyglot-providers/internal/provider/volcengine"
	"github.com/tjfontaine/polyglot-providers/pkg/polyglot"
)

var errNotConfigured = errors.New("provider not configured")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check credentials for every configured provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		results := make(map[string]string)
		var failed bool
		for name, v := range app.clients.Verifiers() {
			if err := v.Verify(cmd.Context()); err != nil {
				results[name] = err.Error()
				failed = true
				continue
			}
			results[name] = "ok"
		}
		if err := app.print(results); err != nil {
			return err
		}
		if failed {
			return errors.New("verification failed")
		}
		return nil
	},
}

var chatOpts struct {
	provider    string
	model       string
	system      string
	temperature float64
	maxTokens   int
	stream      bool
}

var chatCmd = &cobra.Command{
	Use:   "chat <prompt>",
	Short: "Send one user message to a chat model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := completionModel(chatOpts.provider, chatOpts.model)
		if err != nil {
			return err
		}

		req := &polyglot.CompletionRequest{
			Preamble:    chatOpts.system,
			ChatHistory: []polyglot.Message{{Role: polyglot.RoleUser, Content: args[0]}},
		}
		if cmd.Flags().Changed("temperature") {
			req.Temperature = &chatOpts.temperature
		}
		if chatOpts.maxTokens > 0 {
			req.MaxTokens = &chatOpts.maxTokens
		}

		if !chatOpts.stream {
			resp, err := model.Complete(cmd.Context(), req)
			if err != nil {
				return err
			}
			return app.print(resp)
		}

		events, err := model.Stream(cmd.Context(), req)
		if err != nil {
			return err
		}
		var text strings.Builder
		var usage *polyglot.Usage
		for ev := range events {
			if ev.Err != nil {
				return ev.Err
			}
			text.WriteString(ev.ContentDelta)
			fmt.Fprint(app.out, ev.ContentDelta)
			if ev.Usage != nil {
				usage = ev.Usage
			}
		}
		fmt.Fprintln(app.out)
		if usage != nil {
			app.logger.Info("stream finished",
				"characters", text.Len(),
				"input_tokens", usage.InputTokens,
				"output_tokens", usage.OutputTokens,
				"estimated", usage.Estimated,
			)
		}
		return nil
	},
}

var embedOpts struct {
	provider string
	model    string
	dims     int
}

var embedCmd = &cobra.Command{
	Use:   "embed <document>...",
	Short: "Embed one or more documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := embeddingModel(embedOpts.provider, embedOpts.model, embedOpts.dims)
		if err != nil {
			return err
		}
		out, err := model.Embed(cmd.Context(), args)
		if err != nil {
			return err
		}
		return app.print(out)
	},
}

var rerankOpts struct {
	provider        string
	model           string
	query           string
	topN            int
	returnDocuments bool
}

var rerankCmd = &cobra.Command{
	Use:   "rerank --query <q> <document>...",
	Short: "Rerank documents against a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := rerankModel(rerankOpts.provider, rerankOpts.model, rerankOpts.returnDocuments)
		if err != nil {
			return err
		}
		out, err := model.Rerank(cmd.Context(), rerankOpts.query, args, rerankOpts.topN)
		if err != nil {
			return err
		}
		return app.print(out)
	},
}

var predictCmd = &cobra.Command{
	Use:   "predict <input>...",
	Short: "Classify inputs with the TEI predict endpoint",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := app.clients.TEI.PredictInputs(cmd.Context(), args)
		if err != nil {
			return err
		}
		return app.print(out)
	},
}

func init() {
	f := chatCmd.Flags()
	f.StringVarP(&chatOpts.provider, "provider", "p", "volcengine", "volcengine or bailian")
	f.StringVarP(&chatOpts.model, "model", "m", "", "model name (provider default when empty)")
	f.StringVar(&chatOpts.system, "system", "", "system preamble")
	f.Float64Var(&chatOpts.temperature, "temperature", 0, "sampling temperature")
	f.IntVar(&chatOpts.maxTokens, "max-tokens", 0, "completion token limit")
	f.BoolVar(&chatOpts.stream, "stream", false, "stream the response")

	f = embedCmd.Flags()
	f.StringVarP(&embedOpts.provider, "provider", "p", "tei", "tei, volcengine or bailian")
	f.StringVarP(&embedOpts.model, "model", "m", "", "model name (provider default when empty)")
	f.IntVar(&embedOpts.dims, "dims", 0, "requested vector dimensions")

	f = rerankCmd.Flags()
	f.StringVarP(&rerankOpts.provider, "provider", "p", "tei", "tei or bailian")
	f.StringVarP(&rerankOpts.model, "model", "m", "", "model name (bailian only)")
	f.StringVarP(&rerankOpts.query, "query", "q", "", "query to rank against")
	f.IntVarP(&rerankOpts.topN, "top-n", "n", 0, "keep only the first n results")
	f.BoolVar(&rerankOpts.returnDocuments, "return-documents", false, "echo document text in results")

	rootCmd.AddCommand(verifyCmd, chatCmd, embedCmd, rerankCmd, predictCmd)
}

func completionModel(provider, model string) (polyglot.CompletionModel, error) {
	switch provider {
	case volcengine.ProviderName:
		if app.clients.Volcengine == nil {
			return nil, fmt.Errorf("%s: %w", provider, errNotConfigured)
		}
		return app.clients.Volcengine.CompletionModel(orDefault(model, volcengine.DoubaoSeed)), nil
	case bailian.ProviderName:
		if app.clients.Bailian == nil {
			return nil, fmt.Errorf("%s: %w", provider, errNotConfigured)
		}
		return app.clients.Bailian.CompletionModel(orDefault(model, bailian.Qwen3Max)), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", provider)
	}
}

func embeddingModel(provider, model string, dims int) (polyglot.EmbeddingModel, error) {
	switch provider {
	case tei.ProviderName:
		return app.clients.TEI.EmbeddingModel(model, dims), nil
	case volcengine.ProviderName:
		if app.clients.Volcengine == nil {
			return nil, fmt.Errorf("%s: %w", provider, errNotConfigured)
		}
		return app.clients.Volcengine.EmbeddingModel(orDefault(model, volcengine.TextDoubaoEmbedding), dims), nil
	case bailian.ProviderName:
		if app.clients.Bailian == nil {
			return nil, fmt.Errorf("%s: %w", provider, errNotConfigured)
		}
		return app.clients.Bailian.EmbeddingModel(orDefault(model, bailian.TextEmbeddingV4), dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

func rerankModel(provider, model string, returnDocuments bool) (polyglot.RerankModel, error) {
	switch provider {
	case tei.ProviderName:
		if returnDocuments {
			return tei.FromConfig(app.cfg.TEI, tei.WithReturnText(true), tei.WithLogger(app.logger)), nil
		}
		return app.clients.TEI, nil
	case bailian.ProviderName:
		if app.clients.Bailian == nil {
			return nil, fmt.Errorf("%s: %w", provider, errNotConfigured)
		}
		return app.clients.Bailian.RerankModel(orDefault(model, bailian.GteRerankV2),
			bailian.WithReturnDocuments(returnDocuments)), nil
	default:
		return nil, fmt.Errorf("unknown rerank provider %q", provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
