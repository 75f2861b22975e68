// Package calibrate learns multiplicative correction factors from user
// corrections and applies them to future estimates, so repeat errors in
// a food category shrink over time.
package calibrate

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alienxp03/mealjury/internal/core"
	"github.com/alienxp03/mealjury/internal/storage"
	"github.com/alienxp03/mealjury/internal/validate"
)

const (
	// DefaultMinCount is how many corrections a category needs before
	// its factor is trusted.
	DefaultMinCount = 3
	// DefaultMinConfidence gates application of a learned factor.
	DefaultMinConfidence = 0.3
	// minUserCorrections gates the user-specific fallback path.
	minUserCorrections = 2

	calibratedTag     = "+calibrated"
	userCalibratedTag = "+user_calibrated"
)

// Prior seeds a correction pattern at startup without real corrections,
// encoding a known systematic estimator bias.
type Prior struct {
	Category string
	Factor   float64
	Count    int
}

// DefaultPriors returns the seeded biases: AI estimators systematically
// overrate salads and underrate restaurant food.
func DefaultPriors() []Prior {
	return []Prior{
		{Category: "salad_greens", Factor: 0.6, Count: 5},
		{Category: "restaurant_fast_food", Factor: 1.15, Count: 5},
	}
}

// Learner holds the mutable calibration state: global per-category
// patterns and per-user correction history. All access goes through the
// mutex so concurrent corrections for the same category cannot lose
// updates.
type Learner struct {
	mu       sync.Mutex
	patterns map[string]*core.CorrectionPattern
	history  map[string][]core.UserCorrection

	store         storage.Storage // optional write-through, may be nil
	minCount      int
	minConfidence float64
}

// Option configures a Learner.
type Option func(*Learner)

// WithStore enables write-through persistence of corrections and
// patterns.
func WithStore(store storage.Storage) Option {
	return func(l *Learner) { l.store = store }
}

// WithGates overrides the application gates for learned patterns.
func WithGates(minCount int, minConfidence float64) Option {
	return func(l *Learner) {
		if minCount > 0 {
			l.minCount = minCount
		}
		if minConfidence > 0 {
			l.minConfidence = minConfidence
		}
	}
}

// WithPriors replaces the default seeded priors.
func WithPriors(priors []Prior) Option {
	return func(l *Learner) {
		l.patterns = make(map[string]*core.CorrectionPattern)
		l.seed(priors)
	}
}

// NewLearner creates a Learner seeded with the default priors.
func NewLearner(opts ...Option) *Learner {
	l := &Learner{
		patterns:      make(map[string]*core.CorrectionPattern),
		history:       make(map[string][]core.UserCorrection),
		minCount:      DefaultMinCount,
		minConfidence: DefaultMinConfidence,
	}
	l.seed(DefaultPriors())
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Learner) seed(priors []Prior) {
	now := time.Now()
	for _, p := range priors {
		l.patterns[p.Category] = &core.CorrectionPattern{
			Category:            p.Category,
			AvgCorrectionFactor: p.Factor,
			CorrectionCount:     p.Count,
			Confidence:          patternConfidence(p.Count),
			LastUpdated:         now,
		}
	}
}

// LoadFromStore replays persisted patterns and corrections into memory.
// Persisted patterns win over seeded priors for the same category.
func (l *Learner) LoadFromStore() error {
	if l.store == nil {
		return nil
	}

	patterns, err := l.store.ListPatterns()
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}
	corrections, err := l.store.AllCorrections()
	if err != nil {
		return fmt.Errorf("failed to load corrections: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range patterns {
		cp := *p
		l.patterns[p.Category] = &cp
	}
	for _, c := range corrections {
		l.history[c.UserID] = append(l.history[c.UserID], *c)
	}
	return nil
}

// SaveCorrection records that a user corrected an estimate, appends it
// to the user's history, and folds the corrected/original ratio into the
// category's running mean.
func (l *Learner) SaveCorrection(userID, foodName string, original, corrected int) (*core.UserCorrection, error) {
	if original <= 0 {
		return nil, fmt.Errorf("original calories must be positive, got %d", original)
	}
	if corrected <= 0 {
		return nil, fmt.Errorf("corrected calories must be positive, got %d", corrected)
	}

	correction := core.UserCorrection{
		ID:                uuid.NewString(),
		UserID:            userID,
		FoodName:          foodName,
		OriginalCalories:  original,
		CorrectedCalories: corrected,
		CorrectionFactor:  float64(corrected) / float64(original),
		CreatedAt:         time.Now(),
	}

	category, known := validate.Categorize(foodName)

	l.mu.Lock()
	l.history[userID] = append(l.history[userID], correction)

	var updated *core.CorrectionPattern
	if known {
		pattern, ok := l.patterns[category]
		if !ok {
			pattern = &core.CorrectionPattern{Category: category}
			l.patterns[category] = pattern
		}
		// Incremental running mean of corrected/original ratios.
		total := pattern.AvgCorrectionFactor*float64(pattern.CorrectionCount) + correction.CorrectionFactor
		pattern.CorrectionCount++
		pattern.AvgCorrectionFactor = total / float64(pattern.CorrectionCount)
		pattern.Confidence = patternConfidence(pattern.CorrectionCount)
		pattern.LastUpdated = correction.CreatedAt
		snapshot := *pattern
		updated = &snapshot
	}
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.SaveCorrection(&correction); err != nil {
			return nil, fmt.Errorf("failed to persist correction: %w", err)
		}
		if updated != nil {
			if err := l.store.UpsertPattern(updated); err != nil {
				return nil, fmt.Errorf("failed to persist pattern: %w", err)
			}
		}
	}

	return &correction, nil
}

// ApplyCalibration rescales an item's calories and macros using learned
// factors. Global category patterns win; a user's own correction history
// is the fallback. Items already tagged as calibrated pass through
// untouched, so calibration never compounds within a request.
func (l *Learner) ApplyCalibration(item core.FoodItem, userID string) core.FoodItem {
	if strings.Contains(item.Source, calibratedTag) || strings.Contains(item.Source, userCalibratedTag) {
		return item
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if category, known := validate.Categorize(item.Name); known {
		if pattern, ok := l.patterns[category]; ok {
			if pattern.CorrectionCount >= l.minCount && pattern.Confidence >= l.minConfidence {
				return scaleItem(item, pattern.AvgCorrectionFactor, calibratedTag)
			}
		}
	}

	if factor, ok := l.userFactor(item.Name, userID); ok {
		return scaleItem(item, factor, userCalibratedTag)
	}

	return item
}

// userFactor averages the user's correction factors for foods whose
// names substring-match the item. Requires at least two prior matches.
// Caller must hold the mutex.
func (l *Learner) userFactor(foodName, userID string) (float64, bool) {
	if userID == "" {
		return 0, false
	}

	name := strings.ToLower(foodName)
	var sum float64
	var count int
	for _, c := range l.history[userID] {
		prior := strings.ToLower(c.FoodName)
		if strings.Contains(name, prior) || strings.Contains(prior, name) {
			sum += c.CorrectionFactor
			count++
		}
	}
	if count < minUserCorrections {
		return 0, false
	}
	return sum / float64(count), true
}

// Pattern returns a copy of the learned pattern for a category.
func (l *Learner) Pattern(category string) (core.CorrectionPattern, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.patterns[category]
	if !ok {
		return core.CorrectionPattern{}, false
	}
	return *p, true
}

// Patterns returns copies of all learned patterns, sorted by category.
func (l *Learner) Patterns() []core.CorrectionPattern {
	l.mu.Lock()
	defer l.mu.Unlock()
	patterns := make([]core.CorrectionPattern, 0, len(l.patterns))
	for _, p := range l.patterns {
		patterns = append(patterns, *p)
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Category < patterns[j].Category })
	return patterns
}

// Corrections returns a copy of a user's correction history.
func (l *Learner) Corrections(userID string) []core.UserCorrection {
	l.mu.Lock()
	defer l.mu.Unlock()
	history := l.history[userID]
	out := make([]core.UserCorrection, len(history))
	copy(out, history)
	return out
}

func scaleItem(item core.FoodItem, factor float64, tag string) core.FoodItem {
	item.Calories = int(math.Round(float64(item.Calories) * factor))
	item.Macros.Protein *= factor
	item.Macros.Carbs *= factor
	item.Macros.Fat *= factor
	item.Source += tag
	return item
}

func patternConfidence(count int) float64 {
	return math.Min(float64(count)/10, 1.0)
}
