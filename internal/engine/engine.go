// Package engine runs the estimation pipeline: compare the sources,
// debate when they disagree, synthesize a consensus, validate it against
// domain knowledge, apply learned calibration, and persist the result.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alienxp03/mealjury/internal/calibrate"
	"github.com/alienxp03/mealjury/internal/compare"
	"github.com/alienxp03/mealjury/internal/core"
	"github.com/alienxp03/mealjury/internal/debate"
	"github.com/alienxp03/mealjury/internal/moderator"
	"github.com/alienxp03/mealjury/internal/storage"
	"github.com/alienxp03/mealjury/internal/validate"
)

// Engine wires the pipeline stages together. Storage and the learner are
// optional; without them the engine still reconciles but neither
// persists nor calibrates.
type Engine struct {
	threshold float64
	maxRounds int
	weights   map[core.Source]float64
	learner   *calibrate.Learner
	store     storage.Storage
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold overrides the variance threshold that triggers a debate.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) { e.threshold = threshold }
}

// WithMaxRounds overrides the debate round limit.
func WithMaxRounds(rounds int) Option {
	return func(e *Engine) {
		if rounds > 0 {
			e.maxRounds = rounds
		}
	}
}

// WithWeights overrides the per-source reliability weights.
func WithWeights(weights map[core.Source]float64) Option {
	return func(e *Engine) { e.weights = weights }
}

// WithLearner replaces the default calibration learner. Pass nil to
// disable calibration entirely.
func WithLearner(learner *calibrate.Learner) Option {
	return func(e *Engine) { e.learner = learner }
}

// WithStorage enables persistence of estimate records.
func WithStorage(store storage.Storage) Option {
	return func(e *Engine) { e.store = store }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine with default thresholds, weights, and a learner
// seeded with the default priors.
func New(opts ...Option) *Engine {
	e := &Engine{
		threshold: compare.DefaultThreshold,
		maxRounds: debate.DefaultMaxRounds,
		weights:   compare.DefaultWeights(),
		learner:   calibrate.NewLearner(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one estimation job: the food being estimated and the
// independent source opinions to reconcile.
type Request struct {
	FoodName  string          `json:"food_name"`
	Quantity  string          `json:"quantity,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Estimates []core.Estimate `json:"estimates"`
}

// Estimate runs the full pipeline for one request and returns the
// persisted record. Pipeline-internal failures degrade to a low-trust
// fallback instead of failing the request; only bad input and storage
// errors surface.
func (e *Engine) Estimate(req Request) (*core.EstimateRecord, error) {
	if req.FoodName == "" {
		return nil, fmt.Errorf("food name is required")
	}
	if len(req.Estimates) == 0 {
		return nil, fmt.Errorf("at least one estimate is required")
	}

	comparison, err := compare.Compare(req.Estimates, e.threshold, e.weights)
	if err != nil {
		return nil, fmt.Errorf("comparison failed: %w", err)
	}

	log := &core.DebateLog{}
	if comparison.RequiresDebate && len(req.Estimates) > 1 {
		log, err = debate.Run(req.Estimates, comparison, e.maxRounds)
		if err != nil {
			e.logger.Warn("debate failed, continuing without transcript", "food", req.FoodName, "error", err)
			log = &core.DebateLog{}
		}
	}

	var consensus core.ConsensusEstimate
	if synthesized, err := moderator.Synthesize(req.Estimates, log, comparison); err != nil {
		e.logger.Warn("synthesis failed, falling back to first estimate", "food", req.FoodName, "error", err)
		consensus = fallbackConsensus(req.Estimates, req.FoodName)
	} else {
		consensus = *synthesized
	}

	applyValidation(&consensus, req.FoodName, req.Quantity)
	e.applyCalibration(&consensus, req.FoodName, req.Quantity, req.UserID)

	record := &core.EstimateRecord{
		ID:        core.GenerateID(),
		FoodName:  req.FoodName,
		Quantity:  req.Quantity,
		UserID:    req.UserID,
		Estimates: req.Estimates,
		Consensus: consensus,
		CreatedAt: time.Now().UTC(),
	}

	if e.store != nil {
		if err := e.store.SaveEstimate(record); err != nil {
			return nil, fmt.Errorf("failed to persist estimate: %w", err)
		}
	}

	e.logger.Info("estimate reconciled",
		"id", record.ID,
		"food", req.FoodName,
		"calories", consensus.Calories,
		"confidence", consensus.Confidence,
		"label", consensus.SourceLabel)
	return record, nil
}

// applyValidation folds the structured validation verdict into the
// consensus: warnings always carry over, and an invalid verdict marks
// the estimate as needing clarification and caps its confidence.
func applyValidation(consensus *core.ConsensusEstimate, foodName, quantity string) {
	result := validate.Validate(foodName, quantity, consensus.Calories, consensus.Macros)
	consensus.Warnings = append(consensus.Warnings, result.Warnings...)
	if result.IsValid {
		return
	}

	consensus.NeedsClarification = true
	consensus.ClarifyingQuestions = append(consensus.ClarifyingQuestions,
		fmt.Sprintf("How large was the portion of %s, ideally in grams?", foodName),
		"Did it include added oil, dressing, or sauce?")
	if result.Confidence < consensus.Confidence {
		consensus.Confidence = result.Confidence
	}
}

func (e *Engine) applyCalibration(consensus *core.ConsensusEstimate, foodName, quantity, userID string) {
	if e.learner == nil {
		return
	}
	item := core.FoodItem{
		Name:       foodName,
		Quantity:   quantity,
		Calories:   consensus.Calories,
		Macros:     consensus.Macros,
		Source:     consensus.SourceLabel,
		Confidence: consensus.Confidence,
	}
	calibrated := e.learner.ApplyCalibration(item, userID)
	if calibrated == item {
		return
	}
	consensus.Calories = calibrated.Calories
	consensus.Macros = calibrated.Macros
	consensus.SourceLabel = calibrated.Source
}

// fallbackConsensus is the degraded answer when synthesis cannot run:
// the first estimate as-is, at half confidence, flagged for
// clarification.
func fallbackConsensus(estimates []core.Estimate, foodName string) core.ConsensusEstimate {
	first := estimates[0]
	return core.ConsensusEstimate{
		Calories:           first.Calories,
		Macros:             first.Macros,
		Confidence:         0.5,
		SourceLabel:        core.LabelSingleSource,
		Reasoning:          fmt.Sprintf("Reconciliation could not complete; using the %s estimate of %d kcal as-is.", first.Source, first.Calories),
		NeedsClarification: true,
		ClarifyingQuestions: []string{
			fmt.Sprintf("Can you describe %s in more detail so the estimate can be cross-checked?", foodName),
		},
	}
}

// SaveCorrection records a user correction and folds it into the
// calibration patterns.
func (e *Engine) SaveCorrection(userID, foodName string, original, corrected int) (*core.UserCorrection, error) {
	if e.learner == nil {
		return nil, fmt.Errorf("calibration is not configured")
	}
	correction, err := e.learner.SaveCorrection(userID, foodName, original, corrected)
	if err != nil {
		return nil, err
	}
	e.logger.Info("correction recorded",
		"user", userID,
		"food", foodName,
		"original", original,
		"corrected", corrected)
	return correction, nil
}

// CorrectionFromMessage interprets a free-text user message as a
// correction of an earlier estimate. It errors when the message carries
// no correction intent or no usable calorie value.
func (e *Engine) CorrectionFromMessage(userID string, record *core.EstimateRecord, message string) (*core.UserCorrection, error) {
	if record == nil {
		return nil, fmt.Errorf("estimate record is required")
	}
	if !calibrate.DetectCorrectionIntent(message) {
		return nil, fmt.Errorf("message does not look like a correction")
	}
	corrected, ok := calibrate.ExtractCorrectedCalories(message)
	if !ok {
		return nil, fmt.Errorf("no corrected calorie value found in message")
	}
	return e.SaveCorrection(userID, record.FoodName, record.Consensus.Calories, corrected)
}

// Patterns returns the current calibration patterns.
func (e *Engine) Patterns() []core.CorrectionPattern {
	if e.learner == nil {
		return nil
	}
	return e.learner.Patterns()
}

// Corrections returns a user's correction history.
func (e *Engine) Corrections(userID string) []core.UserCorrection {
	if e.learner == nil {
		return nil
	}
	return e.learner.Corrections(userID)
}

// GetRecord fetches a persisted estimate record, nil when absent.
func (e *Engine) GetRecord(id string) (*core.EstimateRecord, error) {
	if e.store == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return e.store.GetEstimate(id)
}

// ListRecords lists persisted estimate records, newest first.
func (e *Engine) ListRecords(limit, offset int) ([]*core.EstimateRecord, error) {
	if e.store == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return e.store.ListEstimates(limit, offset)
}

// DeleteRecord removes a persisted estimate record.
func (e *Engine) DeleteRecord(id string) error {
	if e.store == nil {
		return fmt.Errorf("storage is not configured")
	}
	return e.store.DeleteEstimate(id)
}
