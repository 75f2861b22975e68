// Package debate orchestrates a bounded, deterministic debate between
// estimate sources. Round 1 collects templated arguments; later rounds
// collect pairwise rebuttals. No external calls and no randomness: the
// transcript is pure text/number synthesis over the inputs.
package debate

import (
	"fmt"
	"math"

	"github.com/alienxp03/mealjury/internal/core"
)

// DefaultMaxRounds is one argument round plus one rebuttal round.
const DefaultMaxRounds = 2

// Run executes up to maxRounds debate rounds over the estimates and
// returns the append-only transcript. With a single estimate there is
// nothing to debate and the log comes back empty.
func Run(estimates []core.Estimate, comparison *core.ComparisonResult, maxRounds int) (*core.DebateLog, error) {
	if len(estimates) == 0 {
		return nil, fmt.Errorf("no estimates to debate")
	}
	if comparison == nil {
		return nil, fmt.Errorf("comparison result is required")
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	log := &core.DebateLog{}
	if len(estimates) < 2 {
		return log, nil
	}

	runArgumentRound(log, estimates, comparison)
	// stated tracks each agent's currently argued calorie value; it
	// starts at the round-1 value and may move toward the consensus in
	// rebuttal rounds. The original estimates are never touched.
	stated := make([]int, len(estimates))
	for i, est := range estimates {
		stated[i] = est.Calories
	}

	for round := 2; round <= maxRounds; round++ {
		runRebuttalRound(log, estimates, comparison, stated, round)
	}
	return log, nil
}

// runArgumentRound emits one templated argument per estimate, in input
// order, each closing with a context sentence quoting the variance.
func runArgumentRound(log *core.DebateLog, estimates []core.Estimate, comparison *core.ComparisonResult) {
	context := fmt.Sprintf(" Current disagreement across sources is %.1f%%.", comparison.Variance*100)
	for _, est := range estimates {
		prof, ok := sourceProfiles[est.Source]
		if !ok {
			prof = profile{summary: "Source estimated %d kcal."}
		}
		log.Append(core.DebateEntry{
			Round:      1,
			Source:     est.Source,
			Kind:       core.EntryArgument,
			Calories:   est.Calories,
			Summary:    fmt.Sprintf(prof.summary, est.Calories) + context,
			Strengths:  prof.strengths,
			Weaknesses: prof.weaknesses,
		})
	}
}

// runRebuttalRound compares every agent against every other agent's
// round-1 value and emits the matching rebuttal sentences. Agents far
// from the weighted consensus concede ground by moving their stated
// value a quarter of the way toward it.
func runRebuttalRound(log *core.DebateLog, estimates []core.Estimate, comparison *core.ComparisonResult, stated []int, round int) {
	round1 := make([]int, len(estimates))
	for i, est := range estimates {
		round1[i] = est.Calories
	}

	next := make([]int, len(estimates))
	for i, est := range estimates {
		var rebuttals []string
		for j, other := range estimates {
			if i == j {
				continue
			}
			diff := percentDiff(est.Calories, round1[j])
			switch {
			case diff > 0.50:
				rebuttals = append(rebuttals, issueSentence(est.Source, other.Source, round1[j]))
			case diff >= 0.20:
				rebuttals = append(rebuttals, likelyCauseSentence(est.Source, other.Source, round1[j]))
			}
		}

		next[i] = concede(stated[i], comparison.ConsensusCalories)
		log.Append(core.DebateEntry{
			Round:              round,
			Source:             est.Source,
			Kind:               core.EntryRebuttal,
			Calories:           next[i],
			Summary:            rebuttalSummary(est.Source, stated[i], next[i], len(rebuttals)),
			Rebuttals:          rebuttals,
			AdjustedConfidence: adjustConfidence(est.Confidence, comparison.Variance),
		})
	}
	copy(stated, next)
}

// concede moves a stated value 25% toward the weighted consensus when it
// deviates from the consensus by more than 50%, otherwise leaves it.
func concede(calories, consensus int) int {
	if consensus <= 0 {
		return calories
	}
	deviation := math.Abs(float64(calories-consensus)) / float64(consensus)
	if deviation <= 0.50 {
		return calories
	}
	return calories + int(math.Round(0.25*float64(consensus-calories)))
}

// adjustConfidence nudges an agent's confidence based on the overall
// variance: tight agreement earns a bonus, wild spread a penalty.
func adjustConfidence(confidence, variance float64) float64 {
	switch {
	case variance < 0.15:
		return math.Min(1.0, confidence+0.1)
	case variance > 0.50:
		return math.Max(0.3, confidence-0.2)
	default:
		return confidence
	}
}

// percentDiff is the absolute difference relative to the other value.
func percentDiff(a, b int) float64 {
	if b == 0 {
		if a == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(float64(a-b)) / math.Abs(float64(b))
}

func rebuttalSummary(source core.Source, before, after, disputes int) string {
	if after != before {
		return fmt.Sprintf("%s concedes ground, revising from %d to %d kcal after %d disputed comparisons.", source, before, after, disputes)
	}
	if disputes == 0 {
		return fmt.Sprintf("%s holds at %d kcal; no other source diverges enough to dispute.", source, before)
	}
	return fmt.Sprintf("%s holds at %d kcal while disputing %d other estimates.", source, before, disputes)
}
