// Package grading defines the legal value set of every gradable field.
// Grades move in quarter-point steps between zero and a per-field maximum.
package grading

import (
	"math"
)

// Step is the quantum every grade value is a multiple of.
const Step = 0.25

const tolerance = 1e-6

// maxSteps caps the length of a generated value list.
const maxSteps = 1 << 16

// Field is one gradable field and its inclusive maximum. Every field's
// minimum is zero.
type Field struct {
	Name string
	Max  float64
}

var (
	Memorization       = Field{Name: "memorization", Max: 5}
	Review             = Field{Name: "review", Max: 5}
	DailyScore         = Field{Name: "daily_score", Max: 1}
	Weekly             = Field{Name: "grade", Max: 5}
	QuranForgetfulness = Field{Name: "quran_forgetfulness", Max: 5}
	QuranMajorMistakes = Field{Name: "quran_major_mistakes", Max: 5}
	QuranMinorMistakes = Field{Name: "quran_minor_mistakes", Max: 5}
	TajweedTheory      = Field{Name: "tajweed_theory", Max: 15}
	QuranTest          = Field{Name: "quran_test", Max: 40}
	TajweedTest        = Field{Name: "tajweed_test", Max: 20}
)

// Fields lists every gradable field.
var Fields = []Field{
	Memorization, Review, DailyScore, Weekly,
	QuranForgetfulness, QuranMajorMistakes, QuranMinorMistakes, TajweedTheory,
	QuranTest, TajweedTest,
}

// Values returns the field's legal values in ascending order.
func (f Field) Values() []float64 {
	return QuarterStepValues(f.Max, Step)
}

// MaxValue returns the largest maximum of any gradable field.
func MaxValue() float64 {
	var max float64
	for _, f := range Fields {
		if f.Max > max {
			max = f.Max
		}
	}
	return max
}

// Valid reports whether v is a legal value for the field.
func (f Field) Valid(v float64) bool {
	return Validate(v, 0, f.Max)
}

// QuarterStepValues returns 0, step, 2*step, ..., max. Each value is rounded
// to two decimals so repeated addition never leaks drift such as 4.9999999.
// A max that is not a whole number of steps, or that would need more than
// maxSteps values, yields an empty list.
func QuarterStepValues(max, step float64) []float64 {
	if step <= 0 || max < 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		return []float64{}
	}

	q := max / step
	if q > maxSteps || math.Abs(q-math.Round(q)) >= tolerance {
		return []float64{}
	}

	n := int(math.Round(q))
	values := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		values = append(values, Round2(float64(i)*step))
	}
	return values
}

// Validate reports whether value lies in [min, max] and is a whole number of
// quarter points.
func Validate(value, min, max float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	if value < min-tolerance || value > max+tolerance {
		return false
	}
	q := value / Step
	return math.Abs(q-math.Round(q)) < tolerance
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
