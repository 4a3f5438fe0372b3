package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/FranksOps/adblast/internal/adcopy"
	"github.com/FranksOps/adblast/internal/config"
	"github.com/FranksOps/adblast/internal/fingerprint"
	"github.com/FranksOps/adblast/internal/harvest"
	"github.com/FranksOps/adblast/internal/llm"
	"github.com/FranksOps/adblast/internal/pipeline"
	"github.com/FranksOps/adblast/internal/predict"
	"github.com/FranksOps/adblast/internal/suggest"
	"github.com/FranksOps/adblast/internal/sweep"
	"github.com/FranksOps/adblast/pkg/proxy"
	"github.com/FranksOps/adblast/pkg/ratelimit"
	"github.com/FranksOps/adblast/pkg/useragent"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "adblast",
	Short: "AdBlast - local keyword harvesting and ad copy generation",
	Long: `AdBlast harvests the phrases people actually search for around a
business and a city, then writes short ad variations grounded in them.

Keywords come from the public autocomplete oracle first; when it has nothing,
a generative model predicts them, and as a last resort static templates fill
in. Every result says which source produced it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		logger = newLogger(cmd.ErrOrStderr(), cfg.Log, verbose)
		slog.SetDefault(logger)
		return nil
	},
}

func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// stack is everything a command needs, plus what must be released after.
type stack struct {
	pipeline *pipeline.Pipeline
	limiter  *ratelimit.Limiter
}

func (s *stack) Close() {
	s.limiter.Stop()
}

// buildStack wires oracle, sweep, predictor, cascade and ad writer from cfg.
// Without a provider key the cascade skips the AI tier and Writer stays nil.
func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	profile, err := fingerprint.ParseProfile(cfg.Oracle.Fingerprint)
	if err != nil {
		return nil, err
	}

	proxies, err := proxy.NewPool()
	if err != nil {
		return nil, err
	}
	if cfg.Oracle.ProxiesFile != "" {
		proxies, err = proxy.LoadFile(cfg.Oracle.ProxiesFile)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded proxies", "count", proxies.Len(), "file", cfg.Oracle.ProxiesFile)
	}

	limiter := ratelimit.NewLimiter(cfg.Oracle.RPS, cfg.Oracle.Jitter)

	oracle, err := suggest.New(suggest.Config{
		BaseURL:     cfg.Oracle.URL,
		ClientID:    cfg.Oracle.Client,
		Language:    cfg.Oracle.Language,
		Timeout:     cfg.Oracle.Timeout,
		UAPool:      useragent.NewPool(cfg.Oracle.UserAgents),
		ProxyPool:   proxies,
		Limiter:     limiter,
		Fingerprint: profile,
	}, logger)
	if err != nil {
		limiter.Stop()
		return nil, err
	}

	sweeper := sweep.New(oracle, sweep.Config{Concurrency: cfg.Sweep.Concurrency}, logger)

	var gen llm.Generator
	if cfg.LLM.Enabled() {
		gen, err = llm.New(ctx, cfg.LLM.Generator())
		if err != nil {
			limiter.Stop()
			return nil, err
		}
	} else {
		logger.Warn("no llm api key configured; ai tier and ad copy are disabled")
	}

	h := harvest.New(sweeper, predict.New(gen, cfg.LLM.PredictCount, logger),
		harvest.Config{SampleSize: cfg.Harvest.SampleSize}, logger)

	p := &pipeline.Pipeline{Harvester: h}
	if gen != nil {
		p.Writer = adcopy.NewWriter(gen, logger)
	}
	return &stack{pipeline: p, limiter: limiter}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./adblast.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
