package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shomokh-report-engine/internal/model"
	pkgerrors "shomokh-report-engine/pkg/errors"
)

func TestRedistributeSumsToHundred(t *testing.T) {
	cats := model.Categories
	w := DefaultWeights()

	// every non-empty subset of categories
	for mask := 1; mask < 1<<len(cats); mask++ {
		var present []model.Category
		for i, c := range cats {
			if mask&(1<<i) != 0 {
				present = append(present, c)
			}
		}

		got := Redistribute(w, present)
		require.Len(t, got, len(present))

		var sum float64
		for _, share := range got {
			sum += share
		}
		assert.InDelta(t, 100, sum, 0.01, "subset %v", present)
	}
}

func TestRedistributeIsProportional(t *testing.T) {
	got := Redistribute(DefaultWeights(), []model.Category{model.CategoryDaily, model.CategoryWeekly})

	assert.InDelta(t, 70, got[model.CategoryDaily], 1e-9)
	assert.InDelta(t, 30, got[model.CategoryWeekly], 1e-9)
	assert.Empty(t, Redistribute(DefaultWeights(), nil))
}

func TestRedistributeZeroWeightsShareEqually(t *testing.T) {
	w := Weights{model.CategoryDaily: 100}
	got := Redistribute(w, []model.Category{model.CategoryWeekly, model.CategoryFinalExam})

	assert.Equal(t, 50.0, got[model.CategoryWeekly])
	assert.Equal(t, 50.0, got[model.CategoryFinalExam])
}

func TestWeightsFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     map[string]float64
		want    Weights
		wantErr bool
	}{
		{name: "empty keeps defaults", cfg: nil, want: DefaultWeights()},
		{
			name: "custom table",
			cfg:  map[string]float64{"daily": 50, "weekly": 10, "monthly": 10, "behavior_points": 10, "final_exam": 20},
			want: Weights{
				model.CategoryDaily: 50, model.CategoryWeekly: 10, model.CategoryMonthly: 10,
				model.CategoryBehaviorPoints: 10, model.CategoryFinalExam: 20,
			},
		},
		{name: "unknown category", cfg: map[string]float64{"homework": 100}, wantErr: true},
		{name: "does not sum to hundred", cfg: map[string]float64{"daily": 60, "weekly": 30}, wantErr: true},
		{name: "negative share", cfg: map[string]float64{"daily": 110, "weekly": -10}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WeightsFromConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, pkgerrors.ErrInvalidWeights))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
