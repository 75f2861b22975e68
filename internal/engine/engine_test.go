package engine

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alienxp03/mealjury/internal/core"
	"github.com/alienxp03/mealjury/internal/storage"
)

func TestEstimateInputErrors(t *testing.T) {
	e := New()

	if _, err := e.Estimate(Request{Estimates: []core.Estimate{{Source: core.SourceVisionModel, Calories: 100}}}); err == nil {
		t.Error("expected error for missing food name")
	}
	if _, err := e.Estimate(Request{FoodName: "toast"}); err == nil {
		t.Error("expected error for empty estimate set")
	}
	req := Request{
		FoodName:  "toast",
		Estimates: []core.Estimate{{Source: core.Source("oracle"), Calories: 100, Confidence: 0.9}},
	}
	if _, err := e.Estimate(req); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestEstimateAgreementPath(t *testing.T) {
	e := New()

	record, err := e.Estimate(Request{
		FoodName: "white rice",
		Quantity: "200g",
		UserID:   "u1",
		Estimates: []core.Estimate{
			{Source: core.SourceVisionModel, Calories: 260, Confidence: 0.7},
			{Source: core.SourceReferenceDB, Calories: 270, Confidence: 0.9, Macros: core.Macros{Protein: 5, Carbs: 56, Fat: 0.5}},
			{Source: core.SourceTextParser, Calories: 250, Confidence: 0.6},
		},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	consensus := record.Consensus
	if consensus.Calories < 262 || consensus.Calories > 266 {
		t.Errorf("unexpected consensus: got %d kcal", consensus.Calories)
	}
	if consensus.SourceLabel != core.LabelWeightedConsensus {
		t.Errorf("wrong label: got %s", consensus.SourceLabel)
	}
	if consensus.DebateLog != nil {
		t.Error("agreeing sources must not debate")
	}
	if len(consensus.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", consensus.Warnings)
	}
	if consensus.NeedsClarification {
		t.Error("plausible estimate should not need clarification")
	}
	// Reference macros are carried verbatim.
	if consensus.Macros.Carbs != 56 {
		t.Errorf("reference macros lost: got %f carbs", consensus.Macros.Carbs)
	}
}

func TestEstimateDebateAndCalibration(t *testing.T) {
	e := New()

	record, err := e.Estimate(Request{
		FoodName: "garden salad",
		Quantity: "1 bowl",
		Estimates: []core.Estimate{
			{Source: core.SourceVisionModel, Calories: 450, Confidence: 0.7},
			{Source: core.SourceReferenceDB, Calories: 120, Confidence: 0.9, Macros: core.Macros{Protein: 3, Carbs: 6, Fat: 12}},
			{Source: core.SourceValidator, Calories: 50, Confidence: 0.6},
		},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	consensus := record.Consensus
	if consensus.DebateLog == nil {
		t.Fatal("divergent sources must debate")
	}
	if consensus.DebateLog.Rounds != 2 {
		t.Errorf("wrong round count: got %d", consensus.DebateLog.Rounds)
	}
	if len(consensus.DebateLog.Entries) != 6 {
		t.Errorf("wrong entry count: got %d", len(consensus.DebateLog.Entries))
	}

	// Salad prior (0.6) applies on top of the ~162 kcal debate consensus.
	if consensus.Calories < 95 || consensus.Calories > 99 {
		t.Errorf("expected ~97 kcal after calibration, got %d", consensus.Calories)
	}
	if consensus.SourceLabel != core.LabelDebateConsensus+"+calibrated" {
		t.Errorf("wrong label: got %s", consensus.SourceLabel)
	}
	if math.Abs(consensus.Confidence-0.45) > 1e-9 {
		t.Errorf("wrong confidence: got %f, want 0.45", consensus.Confidence)
	}
	if len(consensus.Warnings) == 0 {
		t.Error("pre-calibration consensus sits above the salad range; expected a warning")
	}
}

func TestEstimateImplausibleNeedsClarification(t *testing.T) {
	e := New()

	record, err := e.Estimate(Request{
		FoodName: "grilled chicken breast",
		Quantity: "170g",
		Estimates: []core.Estimate{
			{Source: core.SourceVisionModel, Calories: 650, Confidence: 0.8},
		},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	consensus := record.Consensus
	if consensus.SourceLabel != core.LabelSingleSource {
		t.Errorf("wrong label: got %s", consensus.SourceLabel)
	}
	if !consensus.NeedsClarification {
		t.Error("650 kcal for 170g of chicken breast must need clarification")
	}
	if len(consensus.ClarifyingQuestions) == 0 {
		t.Error("clarifying questions missing")
	}
	if math.Abs(consensus.Confidence-0.3) > 1e-9 {
		t.Errorf("confidence not capped: got %f", consensus.Confidence)
	}
	found := false
	for _, w := range consensus.Warnings {
		if strings.Contains(w, "far outside") {
			found = true
		}
	}
	if !found {
		t.Errorf("range warning missing: %v", consensus.Warnings)
	}
}

func TestEstimatePersistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "mealjury-engine-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	store, err := storage.NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to initialize storage: %v", err)
	}
	defer store.Close()

	e := New(WithStorage(store))

	record, err := e.Estimate(Request{
		FoodName: "banana",
		Quantity: "1 medium",
		Estimates: []core.Estimate{
			{Source: core.SourceReferenceDB, Calories: 105, Confidence: 0.95},
		},
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	got, err := e.GetRecord(record.ID)
	if err != nil {
		t.Fatalf("failed to fetch record: %v", err)
	}
	if got == nil || got.FoodName != "banana" {
		t.Fatalf("record not persisted: %+v", got)
	}

	records, err := e.ListRecords(10, 0)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("wrong record count: got %d", len(records))
	}

	if err := e.DeleteRecord(record.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if got, _ := e.GetRecord(record.ID); got != nil {
		t.Error("record still present after delete")
	}
}

func TestStorageNotConfigured(t *testing.T) {
	e := New()
	if _, err := e.GetRecord("x"); err == nil {
		t.Error("expected error without storage")
	}
	if _, err := e.ListRecords(10, 0); err == nil {
		t.Error("expected error without storage")
	}
	if err := e.DeleteRecord("x"); err == nil {
		t.Error("expected error without storage")
	}
}

func TestCorrectionFromMessage(t *testing.T) {
	e := New()
	record := &core.EstimateRecord{
		ID:       core.GenerateID(),
		FoodName: "caesar salad",
		Consensus: core.ConsensusEstimate{
			Calories:    450,
			SourceLabel: core.LabelWeightedConsensus,
		},
	}

	t.Run("ValidCorrection", func(t *testing.T) {
		correction, err := e.CorrectionFromMessage("u1", record, "that's wrong, more like 300 calories")
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if correction.CorrectedCalories != 300 {
			t.Errorf("wrong corrected value: got %d", correction.CorrectedCalories)
		}
		if math.Abs(correction.CorrectionFactor-300.0/450.0) > 1e-9 {
			t.Errorf("wrong factor: got %f", correction.CorrectionFactor)
		}
		if got := e.Corrections("u1"); len(got) != 1 {
			t.Errorf("correction not recorded: got %d", len(got))
		}
	})

	t.Run("NoIntent", func(t *testing.T) {
		if _, err := e.CorrectionFromMessage("u1", record, "thanks, looks right"); err == nil {
			t.Error("expected error for non-correction message")
		}
	})

	t.Run("NoValue", func(t *testing.T) {
		if _, err := e.CorrectionFromMessage("u1", record, "way too high"); err == nil {
			t.Error("expected error when no calorie value is present")
		}
	})

	t.Run("NilRecord", func(t *testing.T) {
		if _, err := e.CorrectionFromMessage("u1", nil, "should be 300 calories"); err == nil {
			t.Error("expected error for nil record")
		}
	})
}

func TestPatternsExposed(t *testing.T) {
	e := New()
	patterns := e.Patterns()
	if len(patterns) < 2 {
		t.Fatalf("seeded priors missing: got %d patterns", len(patterns))
	}
}

func TestFallbackConsensus(t *testing.T) {
	estimates := []core.Estimate{
		{Source: core.SourceTextParser, Calories: 320, Confidence: 0.9},
		{Source: core.SourceVisionModel, Calories: 500, Confidence: 0.7},
	}
	consensus := fallbackConsensus(estimates, "mystery stew")

	if consensus.Calories != 320 {
		t.Errorf("fallback must use the first estimate: got %d", consensus.Calories)
	}
	if consensus.Confidence != 0.5 {
		t.Errorf("fallback confidence must be 0.5: got %f", consensus.Confidence)
	}
	if !consensus.NeedsClarification || len(consensus.ClarifyingQuestions) == 0 {
		t.Error("fallback must request clarification")
	}
	if consensus.SourceLabel != core.LabelSingleSource {
		t.Errorf("wrong label: got %s", consensus.SourceLabel)
	}
}
