package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/polyglot-providers/internal/telemetry"
	"github.com/tjfontaine/polyglot-providers/pkg/polyglot"
)

// probe holds state shared by every subcommand for one invocation.
type probe struct {
	configPath  string
	envFile     string
	logLevel    string
	trace       bool
	dumpMetrics bool
	publicOnly  bool

	cfg      polyglot.Config
	logger   *slog.Logger
	clients  *polyglot.Clients
	shutdown func(context.Context) error
	out      io.Writer
}

var app = &probe{out: os.Stdout}

var rootCmd = &cobra.Command{
	Use:   "polyglot-probe",
	Short: "Exercise TEI, Volcengine and Bailian model endpoints",
	Long: "polyglot-probe loads provider settings from a .env file, an optional YAML file and the\n" +
		"environment, then runs one operation against the selected provider and prints JSON.",
	SilenceUsage:       true,
	PersistentPreRunE:  func(cmd *cobra.Command, _ []string) error { return app.setup() },
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error { return app.teardown(cmd.Context()) },
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "YAML config file (optional)")
	flags.StringVar(&app.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.StringVar(&app.logLevel, "log-level", "", "override POLYGLOT_LOG_LEVEL (debug, info, warn, error)")
	flags.BoolVar(&app.trace, "trace", false, "write OpenTelemetry spans to stderr")
	flags.BoolVar(&app.dumpMetrics, "metrics", false, "print Prometheus metrics to stderr on exit")
	flags.BoolVar(&app.publicOnly, "public-only", false, "refuse private and loopback addresses for hosted providers")
}

func (p *probe) setup() error {
	// A missing .env file is normal outside development.
	_ = godotenv.Load(p.envFile)

	cfg, err := polyglot.LoadConfig(p.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if p.logLevel != "" {
		cfg.LogLevel = p.logLevel
	}

	p.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(p.logger)

	if p.trace {
		shutdown, err := telemetry.InitTracer("polyglot-probe", os.Stderr, p.logger)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		p.shutdown = shutdown
	}

	p.cfg = cfg
	var hosted []polyglot.ClientOption
	if p.publicOnly {
		hosted = append(hosted, polyglot.WithHTTPClient(polyglot.PublicHTTPClient()))
	}
	p.clients = polyglot.New(cfg, p.logger, hosted...)
	return nil
}

func (p *probe) teardown(ctx context.Context) error {
	if p.shutdown != nil {
		if err := p.shutdown(ctx); err != nil {
			p.logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}
	if p.dumpMetrics {
		return writeMetrics(os.Stderr, prometheus.DefaultGatherer)
	}
	return nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (p *probe) print(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
