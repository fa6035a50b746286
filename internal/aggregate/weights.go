package aggregate

import (
	"fmt"
	"math"

	"shomokh-report-engine/internal/model"
	"shomokh-report-engine/pkg/errors"
)

// Weights maps each category to its share of the overall percentage. The
// shares of a valid table sum to 100.
type Weights map[model.Category]float64

const weightTolerance = 0.01

// DefaultWeights returns the canonical weight table.
func DefaultWeights() Weights {
	return Weights{
		model.CategoryDaily:          35,
		model.CategoryWeekly:         15,
		model.CategoryMonthly:        20,
		model.CategoryBehaviorPoints: 10,
		model.CategoryFinalExam:      20,
	}
}

// WeightsFromConfig builds a table from configured category names. An empty
// map yields the default table.
func WeightsFromConfig(cfg map[string]float64) (Weights, error) {
	if len(cfg) == 0 {
		return DefaultWeights(), nil
	}

	known := make(map[model.Category]bool, len(model.Categories))
	for _, c := range model.Categories {
		known[c] = true
	}

	w := make(Weights, len(cfg))
	for name, share := range cfg {
		c := model.Category(name)
		if !known[c] {
			return nil, fmt.Errorf("unknown grade category %q: %w", name, errors.ErrInvalidWeights)
		}
		w[c] = share
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks that every share is non-negative and that the shares sum
// to 100.
func (w Weights) Validate() error {
	var sum float64
	for c, share := range w {
		if share < 0 || math.IsNaN(share) || math.IsInf(share, 0) {
			return fmt.Errorf("weight for %s is %v: %w", c, share, errors.ErrInvalidWeights)
		}
		sum += share
	}
	if math.Abs(sum-100) > weightTolerance {
		return fmt.Errorf("weights sum to %v: %w", sum, errors.ErrInvalidWeights)
	}
	return nil
}

// Redistribute spreads the weight of absent categories over the present ones
// in proportion to their own weight, so the result always sums to 100 over
// present. When every present category weighs zero they share equally. No
// present categories yields an empty table.
func Redistribute(w Weights, present []model.Category) Weights {
	out := make(Weights, len(present))
	if len(present) == 0 {
		return out
	}

	var sum float64
	for _, c := range present {
		sum += w[c]
	}

	for _, c := range present {
		if sum == 0 {
			out[c] = 100 / float64(len(present))
			continue
		}
		out[c] = w[c] / sum * 100
	}
	return out
}
