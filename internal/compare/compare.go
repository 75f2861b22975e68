// Package compare reconciles a set of nutrition estimates into a
// variance/consensus verdict and decides whether a debate is needed.
package compare

import (
	"fmt"
	"math"
	"strings"

	"github.com/alienxp03/mealjury/internal/core"
)

// DefaultThreshold is the coefficient-of-variation threshold above which
// the estimates disagree enough to warrant a debate.
const DefaultThreshold = 0.30

// DefaultWeights returns the default per-source reliability weights.
// Reference data is trusted twice as much as a single vision guess.
func DefaultWeights() map[core.Source]float64 {
	return map[core.Source]float64{
		core.SourceReferenceDB: 2.0,
		core.SourceValidator:   1.5,
		core.SourceVisionModel: 1.0,
		core.SourceTextParser:  1.0,
	}
}

// Compare computes the spread and weighted consensus of the given
// estimates. It is a pure function: identical inputs always produce
// identical output. A non-positive threshold selects DefaultThreshold
// and nil weights select DefaultWeights.
func Compare(estimates []core.Estimate, threshold float64, weights map[core.Source]float64) (*core.ComparisonResult, error) {
	if len(estimates) == 0 {
		return nil, fmt.Errorf("no estimates to compare")
	}
	for _, est := range estimates {
		if !est.Source.Known() {
			return nil, fmt.Errorf("unknown estimate source: %q", est.Source)
		}
	}

	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if weights == nil {
		weights = DefaultWeights()
	}

	calories := make([]int, len(estimates))
	for i, est := range estimates {
		calories[i] = est.Calories
	}
	variance := CoefficientOfVariation(calories)

	consensus := WeightedMean(estimates, weights)
	confidence := confidenceForVariance(variance, len(estimates))

	result := &core.ComparisonResult{
		Variance:          variance,
		ConsensusCalories: consensus,
		Confidence:        confidence,
		RequiresDebate:    variance > threshold,
		Reasoning:         buildReasoning(estimates, variance, consensus, threshold),
	}
	return result, nil
}

// CoefficientOfVariation returns the sample standard deviation of the
// values divided by their mean. With fewer than two values there is no
// disagreement to measure, and a zero mean yields zero by definition.
func CoefficientOfVariation(values []int) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}

	var sumSq float64
	for _, v := range values {
		d := float64(v) - mean
		sumSq += d * d
	}
	stdev := math.Sqrt(sumSq / float64(len(values)-1))
	return stdev / mean
}

// WeightedMean computes the weighted arithmetic mean of the estimates'
// calorie values, rounded to the nearest integer. Sources missing from
// the weight map get weight 1.0.
func WeightedMean(estimates []core.Estimate, weights map[core.Source]float64) int {
	var weightedSum, totalWeight float64
	for _, est := range estimates {
		w, ok := weights[est.Source]
		if !ok {
			w = 1.0
		}
		weightedSum += float64(est.Calories) * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(weightedSum / totalWeight))
}

// confidenceForVariance buckets confidence by how much the estimates
// spread, with a small bonus for having three or more opinions.
func confidenceForVariance(variance float64, count int) float64 {
	var confidence float64
	switch {
	case variance <= 0.10:
		confidence = 0.95
	case variance <= 0.20:
		confidence = 0.85
	case variance <= 0.30:
		confidence = 0.70
	case variance <= 0.50:
		confidence = 0.50
	default:
		confidence = 0.30
	}
	if count >= 3 {
		confidence = math.Min(1.0, confidence+0.05)
	}
	return confidence
}

func buildReasoning(estimates []core.Estimate, variance float64, consensus int, threshold float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Compared %d estimates (", len(estimates))
	for i, est := range estimates {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d kcal", est.Source, est.Calories)
	}
	fmt.Fprintf(&sb, "). Variance %.1f%% with weighted consensus %d kcal. ", variance*100, consensus)

	switch {
	case variance <= 0.10:
		sb.WriteString("Sources closely agree.")
	case variance <= threshold:
		sb.WriteString("Sources broadly agree.")
	default:
		fmt.Fprintf(&sb, "Disagreement exceeds the %.0f%% threshold; debate required.", threshold*100)
	}
	return sb.String()
}
