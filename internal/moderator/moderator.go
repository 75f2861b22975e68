// Package moderator synthesizes a final consensus estimate from the
// original estimates, the debate transcript, and the comparison verdict.
package moderator

import (
	"fmt"
	"math"
	"strings"

	"github.com/alienxp03/mealjury/internal/compare"
	"github.com/alienxp03/mealjury/internal/core"
)

// Synthesize produces the final ConsensusEstimate. It never panics: a
// single estimate degenerates to that estimate with its own confidence,
// and an empty debate log falls back to the original confidences.
func Synthesize(estimates []core.Estimate, log *core.DebateLog, comparison *core.ComparisonResult) (*core.ConsensusEstimate, error) {
	if len(estimates) == 0 {
		return nil, fmt.Errorf("no estimates to synthesize")
	}
	if comparison == nil {
		return nil, fmt.Errorf("comparison result is required")
	}

	if len(estimates) == 1 {
		only := estimates[0]
		return &core.ConsensusEstimate{
			Calories:    only.Calories,
			Macros:      only.Macros,
			Confidence:  only.Confidence,
			SourceLabel: core.LabelSingleSource,
			Reasoning:   fmt.Sprintf("Only one estimate was available (%s: %d kcal); returning it as-is.", only.Source, only.Calories),
		}, nil
	}

	finalCalories, finalConfidences := finalRoundValues(estimates, log)
	weights := effectiveWeights(estimates, finalConfidences)

	consensus := weightedRound(finalCalories, weights)
	macros := synthesizeMacros(estimates)
	confidence := finalConfidence(comparison, finalCalories)
	label := sourceLabel(estimates, log)

	result := &core.ConsensusEstimate{
		Calories:    consensus,
		Macros:      macros,
		Confidence:  confidence,
		SourceLabel: label,
		Reasoning:   buildNarrative(estimates, log, comparison, finalCalories, consensus),
	}
	if !log.Empty() {
		result.DebateLog = log
	}
	return result, nil
}

// finalRoundValues returns each estimate's calorie value and effective
// confidence after the last debate round. Without a debate the original
// values stand.
func finalRoundValues(estimates []core.Estimate, log *core.DebateLog) ([]int, []float64) {
	calories := make([]int, len(estimates))
	confidences := make([]float64, len(estimates))
	for i, est := range estimates {
		calories[i] = est.Calories
		confidences[i] = est.Confidence
	}
	if log.Empty() {
		return calories, confidences
	}

	for _, entry := range log.FinalEntries() {
		for i, est := range estimates {
			if est.Source != entry.Source {
				continue
			}
			calories[i] = entry.Calories
			if entry.Kind == core.EntryRebuttal {
				confidences[i] = entry.AdjustedConfidence
			}
			break
		}
	}
	return calories, confidences
}

// effectiveWeights multiplies each source's base reliability weight by
// its effective confidence. A degenerate all-zero weighting falls back
// to equal weights.
func effectiveWeights(estimates []core.Estimate, confidences []float64) []float64 {
	base := compare.DefaultWeights()
	weights := make([]float64, len(estimates))
	var total float64
	for i, est := range estimates {
		b, ok := base[est.Source]
		if !ok {
			b = 1.0
		}
		weights[i] = b * confidences[i]
		total += weights[i]
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1.0
		}
	}
	return weights
}

func weightedRound(calories []int, weights []float64) int {
	var weightedSum, totalWeight float64
	for i, c := range calories {
		weightedSum += float64(c) * weights[i]
		totalWeight += weights[i]
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(weightedSum / totalWeight))
}

// synthesizeMacros trusts reference-database macros verbatim when
// present (lab data over blended estimates); otherwise it averages all
// estimates without weighting.
func synthesizeMacros(estimates []core.Estimate) core.Macros {
	for _, est := range estimates {
		if est.Source == core.SourceReferenceDB {
			return est.Macros
		}
	}

	var sum core.Macros
	for _, est := range estimates {
		sum.Protein += est.Macros.Protein
		sum.Carbs += est.Macros.Carbs
		sum.Fat += est.Macros.Fat
	}
	n := float64(len(estimates))
	return core.Macros{Protein: sum.Protein / n, Carbs: sum.Carbs / n, Fat: sum.Fat / n}
}

// finalConfidence starts from the comparator's confidence and adds a
// convergence boost: +0.1 when a wildly divergent debate actually pulled
// the values together, +0.05 when there was little to converge, nothing
// when the spread held or grew. Clamped to [0, 1].
func finalConfidence(comparison *core.ComparisonResult, finalCalories []int) float64 {
	confidence := comparison.Confidence
	if comparison.Variance > 0.50 {
		finalVariance := compare.CoefficientOfVariation(finalCalories)
		if finalVariance < comparison.Variance {
			confidence += 0.1
		}
	} else {
		confidence += 0.05
	}
	return math.Max(0, math.Min(1, confidence))
}

func sourceLabel(estimates []core.Estimate, log *core.DebateLog) string {
	if !log.Empty() {
		return core.LabelDebateConsensus
	}
	base := compare.DefaultWeights()
	first, ok := base[estimates[0].Source]
	if !ok {
		first = 1.0
	}
	for _, est := range estimates[1:] {
		w, ok := base[est.Source]
		if !ok {
			w = 1.0
		}
		if w != first {
			return core.LabelWeightedConsensus
		}
	}
	return core.LabelConsensusAverage
}

// buildNarrative renders the templated reasoning: spread, rounds, the
// closest original agent, the reference-data note, and the final number.
func buildNarrative(estimates []core.Estimate, log *core.DebateLog, comparison *core.ComparisonResult, finalCalories []int, consensus int) string {
	var sb strings.Builder

	switch {
	case comparison.Variance <= 0.10:
		sb.WriteString("Sources closely agreed. ")
	case comparison.Variance <= 0.30:
		sb.WriteString("Sources showed moderate disagreement. ")
	case comparison.Variance <= 0.50:
		sb.WriteString("Sources diverged substantially. ")
	default:
		fmt.Fprintf(&sb, "Sources diverged widely (%.0f%% spread). ", comparison.Variance*100)
	}

	if log.Empty() {
		sb.WriteString("No debate was needed. ")
	} else {
		fmt.Fprintf(&sb, "Resolved over %d debate rounds. ", log.Rounds)
	}

	closest := closestSource(estimates, consensus)
	fmt.Fprintf(&sb, "The %s estimate landed closest to the consensus. ", closest)

	for _, est := range estimates {
		if est.Source == core.SourceReferenceDB {
			sb.WriteString("Reference-database data present and weighted higher. ")
			break
		}
	}

	fmt.Fprintf(&sb, "Final estimate: %d kcal.", consensus)
	return sb.String()
}

// closestSource returns the source whose original value is nearest the
// consensus, preferring the earlier estimate on ties.
func closestSource(estimates []core.Estimate, consensus int) core.Source {
	best := estimates[0].Source
	bestDist := math.Abs(float64(estimates[0].Calories - consensus))
	for _, est := range estimates[1:] {
		d := math.Abs(float64(est.Calories - consensus))
		if d < bestDist {
			best = est.Source
			bestDist = d
		}
	}
	return best
}
