package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/FranksOps/adblast/internal/adcopy"
	"github.com/FranksOps/adblast/internal/harvest"
)

// Harvester is the keyword cascade.
type Harvester interface {
	Harvest(ctx context.Context, req harvest.Request) (*harvest.Outcome, error)
}

// AdWriter turns an outcome into ad variations.
type AdWriter interface {
	Generate(ctx context.Context, brief adcopy.Brief, outcome *harvest.Outcome) ([]adcopy.Ad, error)
}

// Pipeline runs the two stages of a request: keyword harvest, then ad copy.
// The writer runs at most once, after the keyword set is final.
type Pipeline struct {
	Harvester Harvester
	Writer    AdWriter
}

// Input is one pipeline request. A nil Brief skips ad copy.
type Input struct {
	Request harvest.Request
	Brief   *adcopy.Brief
}

// Result holds whatever stages completed.
type Result struct {
	Outcome *harvest.Outcome `json:"outcome"`
	Ads     []adcopy.Ad      `json:"ads,omitempty"`
}

// Run executes the pipeline. When ad copy fails the harvest outcome is still
// returned alongside the error.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if p.Harvester == nil {
		return nil, errors.New("pipeline: harvester is nil")
	}

	outcome, err := p.Harvester.Harvest(ctx, in.Request)
	if err != nil {
		return nil, fmt.Errorf("pipeline: harvest failed: %w", err)
	}
	res := &Result{Outcome: outcome}

	if in.Brief == nil {
		return res, nil
	}
	if p.Writer == nil {
		return res, errors.New("pipeline: ad writer not configured")
	}

	ads, err := p.Writer.Generate(ctx, *in.Brief, outcome)
	if err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}
	res.Ads = ads
	return res, nil
}
