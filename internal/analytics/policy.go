package analytics

import (
	"time"

	"threadcraft/internal/domain"
)

// FallbackExpectedCompletion is used for workflow types without an expected duration
// when the analyzer is not strict.
const FallbackExpectedCompletion = 7 * 24 * time.Hour

// Policy holds every threshold and lookup table the analyzer applies. None of it is
// learned from data.
type Policy struct {
	// StuckThreshold is how long an instance may sit in a non-terminal step before it
	// counts as stuck.
	StuckThreshold time.Duration

	HighDwell   time.Duration
	MediumDwell time.Duration
	HighStuck   int
	MediumStuck int

	// BackwardRatio flags a step when more than this share of its outgoing transitions
	// move backwards in the canonical order.
	BackwardRatio float64

	TopExitPoints int
	TopPaths      int

	ForecastWindow time.Duration
	// TrendBand is the relative change treated as stable.
	TrendBand float64

	// LowSuccessRate is the percentage below which a low-success insight is raised.
	LowSuccessRate float64

	// ExpectedCompletion overrides the duration carried by definitions.
	ExpectedCompletion map[string]time.Duration
	// Strict rejects workflow types with no expected duration instead of falling back.
	Strict bool

	StepRecommendations map[domain.StepID][]string
}

func DefaultPolicy() Policy {
	return Policy{
		StuckThreshold: 24 * time.Hour,
		HighDwell:      72 * time.Hour,
		MediumDwell:    24 * time.Hour,
		HighStuck:      5,
		MediumStuck:    2,
		BackwardRatio:  0.2,
		TopExitPoints:  3,
		TopPaths:       10,
		ForecastWindow: 30 * 24 * time.Hour,
		TrendBand:      0.10,
		LowSuccessRate: 80,
		StepRecommendations: map[domain.StepID][]string{
			"pending": {
				"Contact customers within one business day of order submission",
			},
			"design_requested": {
				"Auto-assign incoming design requests to the least loaded designer",
			},
			"design_in_progress": {
				"Offer design templates to shorten first drafts",
				"Track designer workload and rebalance assignments",
			},
			"design_review": {
				"Send customers automatic reminders after 24 hours without feedback",
				"Set a 48 hour approval window with escalation to the salesperson",
			},
			"review": {
				"Send customers automatic reminders after 24 hours without feedback",
			},
			"revision_requested": {
				"Capture revision notes in a structured checklist to avoid repeat rounds",
			},
			"payment_pending": {
				"Send automated payment reminders and offer additional payment methods",
			},
			"payment_received": {
				"Release paid orders to manufacturers automatically",
			},
			"in_production": {
				"Review manufacturer capacity and redistribute large orders",
				"Ask manufacturers for daily production updates",
			},
			"quality_check": {
				"Add a pre-production proof check to reduce rework",
			},
			"on_hold": {
				"Require a reason and owner for every hold",
			},
			"cutting": {
				"Batch orders sharing the same garment blanks",
			},
			"printing": {
				"Schedule print runs by ink setup to reduce changeovers",
			},
			"sewing": {
				"Balance sewing lines across shifts",
			},
			"shipped": {
				"Follow up with carriers on shipments without tracking updates",
			},
		},
	}
}

// expectedCompletion resolves the expected duration for a workflow type.
func (p Policy) expectedCompletion(def domain.Definition) (time.Duration, error) {
	if d, ok := p.ExpectedCompletion[def.Name]; ok && d > 0 {
		return d, nil
	}
	if def.ExpectedCompletion > 0 {
		return def.ExpectedCompletion, nil
	}
	if p.Strict {
		return 0, &NoExpectedDurationError{WorkflowType: def.Name}
	}
	return FallbackExpectedCompletion, nil
}

// classify maps dwell time and stuck count to an impact level. A step with any stuck
// instance is at least medium. Worse inputs never produce a lower level.
func (p Policy) classify(avgDwell time.Duration, stuck int) Level {
	switch {
	case avgDwell > p.HighDwell || stuck > p.HighStuck:
		return LevelHigh
	case avgDwell > p.MediumDwell || stuck > p.MediumStuck || stuck > 0:
		return LevelMedium
	default:
		return LevelLow
	}
}
