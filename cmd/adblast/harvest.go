package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/FranksOps/adblast/internal/adcopy"
	"github.com/FranksOps/adblast/internal/harvest"
	"github.com/FranksOps/adblast/internal/metrics"
	"github.com/FranksOps/adblast/internal/pipeline"
	"github.com/FranksOps/adblast/internal/report"
	"github.com/spf13/cobra"
)

var harvestFlags struct {
	location string
	offer    string
	audience string
	client   string
	niche    string
	format   string
}

var harvestCmd = &cobra.Command{
	Use:   "harvest <vertical>",
	Short: "Harvest search phrases for a business type, optionally writing ads",
	Long: `Harvest runs the keyword cascade for a vertical (and optional city) and
prints a report. Passing --client and --niche also generates ad variations
for the offer.`,
	Example: `  adblast harvest pizzaria --location Curitiba
  adblast harvest "pet shop" --offer "banho e tosa" --client "Pet Feliz" --niche tutores --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHarvest,
}

func init() {
	f := harvestCmd.Flags()
	f.StringVarP(&harvestFlags.location, "location", "l", "", "City or region; empty means nationwide")
	f.StringVar(&harvestFlags.offer, "offer", "", "What is being sold")
	f.StringVar(&harvestFlags.audience, "audience", "", "Target audience")
	f.StringVar(&harvestFlags.client, "client", "", "Client name; enables ad copy")
	f.StringVar(&harvestFlags.niche, "niche", "", "Client niche; enables ad copy")
	f.StringVarP(&harvestFlags.format, "format", "f", "text", "Output format: text, json or csv")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	write, err := reportWriter(harvestFlags.format)
	if err != nil {
		return err
	}

	in := pipeline.Input{Request: harvest.Request{
		Vertical: strings.Join(args, " "),
		Location: harvestFlags.location,
		Offer:    harvestFlags.offer,
		Audience: harvestFlags.audience,
	}}
	if harvestFlags.client != "" || harvestFlags.niche != "" {
		brief := adcopy.Brief{
			Client: strings.TrimSpace(harvestFlags.client),
			Offer:  strings.TrimSpace(harvestFlags.offer),
			Niche:  strings.TrimSpace(harvestFlags.niche),
		}
		if err := brief.Validate(); err != nil {
			return err
		}
		in.Brief = &brief
	}

	if cfg.Metrics.Port > 0 {
		ms := metrics.Start(cfg.Metrics.Port)
		defer ms.Stop(context.Background())
		logger.Info("metrics listening", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Harvest.RequestTimeout)
	defer cancel()

	st, err := buildStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if in.Brief != nil && st.pipeline.Writer == nil {
		return errors.New("ad copy needs an llm api key (set OPENAI_API_KEY or GEMINI_API_KEY)")
	}

	res, err := st.pipeline.Run(ctx, in)
	if res == nil {
		return err
	}
	if err != nil {
		// Keywords are still worth printing when only ad copy failed.
		logger.Error("ad generation failed", "err", err)
	}

	if werr := write(cmd.OutOrStdout(), report.GenerateSummary(res.Outcome, res.Ads)); werr != nil {
		return werr
	}
	return err
}

func reportWriter(format string) (func(io.Writer, report.Summary) error, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return report.WriteText, nil
	case "json":
		return report.WriteJSON, nil
	case "csv":
		return report.WriteCSV, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, json or csv)", format)
	}
}
