// Package enrich provides the optional semantic second opinion on a
// warning set. Everything here is best effort: the deterministic pipeline
// is complete without it, and a provider that fails or times out degrades
// to nothing.
package enrich

import (
	"context"

	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/detect"
)

// Assessment is a provider's judgement of a warning set in the context of
// the surrounding session activity.
type Assessment struct {
	// Confirmed reports whether the provider agrees the warnings describe
	// a real problem rather than benign activity.
	Confirmed bool `json:"confirmed"`
	// Confidence in the judgement, 0.0 to 1.0.
	Confidence float64 `json:"confidence"`
	// Reasoning is a short human-readable explanation.
	Reasoning string `json:"reasoning"`
}

// Enricher produces a semantic assessment of fired warnings. Implementations
// must honor ctx cancellation; the caller enforces its own timeout.
type Enricher interface {
	Assess(ctx context.Context, warnings []detect.Warning, snap action.Snapshot) (*Assessment, error)
}

// Noop is the enricher used when semantic analysis is disabled. It returns
// no assessment and no error.
type Noop struct{}

func (Noop) Assess(context.Context, []detect.Warning, action.Snapshot) (*Assessment, error) {
	return nil, nil
}
