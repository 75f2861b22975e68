// Package core contains the core domain types for mealjury.
package core

import (
	"fmt"
	"time"
)

// Source identifies which kind of estimator produced an estimate.
type Source string

const (
	SourceVisionModel Source = "vision_model"
	SourceTextParser  Source = "text_parser"
	SourceReferenceDB Source = "reference_db"
	SourceValidator   Source = "validator"
)

// KnownSources returns every recognized estimate source.
func KnownSources() []Source {
	return []Source{SourceVisionModel, SourceTextParser, SourceReferenceDB, SourceValidator}
}

// Known reports whether the source is one of the recognized tags.
// Unknown sources are rejected at the comparator boundary instead of
// silently receiving a default weight.
func (s Source) Known() bool {
	switch s {
	case SourceVisionModel, SourceTextParser, SourceReferenceDB, SourceValidator:
		return true
	}
	return false
}

// Macros holds macronutrient grams for a food item.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// Calories returns the caloric value implied by the macros (4/4/9 rule).
func (m Macros) Calories() float64 {
	return m.Protein*4 + m.Carbs*4 + m.Fat*9
}

// Estimate is one source's opinion on a food's nutrition. Estimates are
// immutable once created; downstream components only read them.
type Estimate struct {
	Source     Source  `json:"source"`
	Calories   int     `json:"calories"`
	Macros     Macros  `json:"macros"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ComparisonResult is the comparator's verdict on a set of estimates.
// Variance is the coefficient of variation (sample stdev / mean) of the
// calorie values, so 0.30 means the estimates spread 30% around the mean.
type ComparisonResult struct {
	Variance          float64 `json:"variance"`
	ConsensusCalories int     `json:"consensus_calories"`
	Confidence        float64 `json:"confidence"`
	RequiresDebate    bool    `json:"requires_debate"`
	Reasoning         string  `json:"reasoning"`
}

// EntryKind distinguishes opening arguments from rebuttals.
type EntryKind string

const (
	EntryArgument EntryKind = "argument"
	EntryRebuttal EntryKind = "rebuttal"
)

// DebateEntry is one agent's contribution in one round. Round 1 entries
// carry strengths/weaknesses; later rounds carry rebuttals and an
// adjusted confidence.
type DebateEntry struct {
	Round              int       `json:"round"`
	Source             Source    `json:"source"`
	Kind               EntryKind `json:"kind"`
	Calories           int       `json:"calories"`
	Summary            string    `json:"summary"`
	Strengths          []string  `json:"strengths,omitempty"`
	Weaknesses         []string  `json:"weaknesses,omitempty"`
	Rebuttals          []string  `json:"rebuttals,omitempty"`
	AdjustedConfidence float64   `json:"adjusted_confidence,omitempty"`
}

// DebateLog is the append-only transcript of a debate. Entries are kept
// in emission order and never reordered or deduplicated.
type DebateLog struct {
	Entries []DebateEntry `json:"entries"`
	Rounds  int           `json:"rounds"`
}

// Append adds an entry to the log, tracking the highest round seen.
func (l *DebateLog) Append(entry DebateEntry) {
	l.Entries = append(l.Entries, entry)
	if entry.Round > l.Rounds {
		l.Rounds = entry.Round
	}
}

// Empty reports whether any debate actually took place.
func (l *DebateLog) Empty() bool {
	return l == nil || len(l.Entries) == 0
}

// FinalEntries returns the entries of the last round, in emission order.
func (l *DebateLog) FinalEntries() []DebateEntry {
	if l.Empty() {
		return nil
	}
	var final []DebateEntry
	for _, e := range l.Entries {
		if e.Round == l.Rounds {
			final = append(final, e)
		}
	}
	return final
}

// Source labels for a ConsensusEstimate.
const (
	LabelWeightedConsensus = "weighted_consensus"
	LabelDebateConsensus   = "debate_consensus"
	LabelConsensusAverage  = "consensus_average"
	LabelSingleSource      = "single_source"
)

// ConsensusEstimate is the final reconciled answer for one estimation
// request. It is created once and never mutated; corrections produce a
// new estimate plus a learning event.
type ConsensusEstimate struct {
	Calories            int        `json:"calories"`
	Macros              Macros     `json:"macros"`
	Confidence          float64    `json:"confidence"`
	SourceLabel         string     `json:"source_label"`
	Reasoning           string     `json:"reasoning"`
	DebateLog           *DebateLog `json:"debate_log,omitempty"`
	Warnings            []string   `json:"warnings,omitempty"`
	NeedsClarification  bool       `json:"needs_clarification,omitempty"`
	ClarifyingQuestions []string   `json:"clarifying_questions,omitempty"`
}

// FoodItem is the tuple handed to validation and calibration.
type FoodItem struct {
	Name       string  `json:"name"`
	Quantity   string  `json:"quantity"`
	Calories   int     `json:"calories"`
	Macros     Macros  `json:"macros"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence,omitempty"`
}

// CorrectionPattern is the learned per-category correction state. The
// average factor is a running mean of corrected/original ratios and the
// confidence grows with the number of observed corrections.
type CorrectionPattern struct {
	Category            string    `json:"category"`
	AvgCorrectionFactor float64   `json:"avg_correction_factor"`
	CorrectionCount     int       `json:"correction_count"`
	Confidence          float64   `json:"confidence"`
	LastUpdated         time.Time `json:"last_updated"`
}

// UserCorrection is one user's recorded correction of an estimate.
type UserCorrection struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	FoodName          string    `json:"food_name"`
	OriginalCalories  int       `json:"original_calories"`
	CorrectedCalories int       `json:"corrected_calories"`
	CorrectionFactor  float64   `json:"correction_factor"`
	CreatedAt         time.Time `json:"created_at"`
}

// EstimateRecord is a persisted estimation result with its inputs.
type EstimateRecord struct {
	ID        string            `json:"id"`
	FoodName  string            `json:"food_name"`
	Quantity  string            `json:"quantity,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Estimates []Estimate        `json:"estimates"`
	Consensus ConsensusEstimate `json:"consensus"`
	CreatedAt time.Time         `json:"created_at"`
}

// Summary returns a short human-readable description of the record.
func (r *EstimateRecord) Summary() string {
	return fmt.Sprintf("%s: %d kcal (%.0f%% confidence, %s)",
		r.FoodName, r.Consensus.Calories, r.Consensus.Confidence*100, r.Consensus.SourceLabel)
}
