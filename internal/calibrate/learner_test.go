package calibrate

import (
	"math"
	"sync"
	"testing"

	"github.com/alienxp03/mealjury/internal/core"
)

func TestSaveCorrection(t *testing.T) {
	t.Run("InvalidInput", func(t *testing.T) {
		learner := NewLearner()
		if _, err := learner.SaveCorrection("u1", "rice bowl", 0, 300); err == nil {
			t.Error("expected error for zero original calories")
		}
		if _, err := learner.SaveCorrection("u1", "rice bowl", 300, -10); err == nil {
			t.Error("expected error for negative corrected calories")
		}
	})

	t.Run("RunningMean", func(t *testing.T) {
		learner := NewLearner(WithPriors(nil))

		factors := []struct{ original, corrected int }{
			{500, 400}, // 0.8
			{300, 240}, // 0.8
			{250, 200}, // 0.8
		}
		for _, f := range factors {
			if _, err := learner.SaveCorrection("u1", "white rice", f.original, f.corrected); err != nil {
				t.Fatalf("failed: %v", err)
			}
		}

		pattern, ok := learner.Pattern("rice")
		if !ok {
			t.Fatal("pattern not created")
		}
		if pattern.CorrectionCount != 3 {
			t.Errorf("wrong count: got %d", pattern.CorrectionCount)
		}
		if math.Abs(pattern.AvgCorrectionFactor-0.8) > 1e-9 {
			t.Errorf("wrong average factor: got %f", pattern.AvgCorrectionFactor)
		}
		if math.Abs(pattern.Confidence-0.3) > 1e-9 {
			t.Errorf("wrong confidence: got %f, want 0.3", pattern.Confidence)
		}
	})

	t.Run("UnknownCategoryStillRecorded", func(t *testing.T) {
		learner := NewLearner()
		if _, err := learner.SaveCorrection("u1", "mystery paste", 400, 300); err != nil {
			t.Fatalf("failed: %v", err)
		}
		if got := learner.Corrections("u1"); len(got) != 1 {
			t.Errorf("correction history missing: got %d entries", len(got))
		}
	})
}

func TestApplyCalibration(t *testing.T) {
	t.Run("ConvergenceScenario", func(t *testing.T) {
		learner := NewLearner(WithPriors(nil))
		for _, f := range []struct{ original, corrected int }{{500, 400}, {300, 240}, {250, 200}} {
			if _, err := learner.SaveCorrection("u1", "white rice", f.original, f.corrected); err != nil {
				t.Fatalf("failed: %v", err)
			}
		}

		item := core.FoodItem{Name: "rice bowl", Calories: 300, Source: "weighted_consensus",
			Macros: core.Macros{Protein: 10, Carbs: 60, Fat: 2}}
		calibrated := learner.ApplyCalibration(item, "u2")

		if calibrated.Calories < 238 || calibrated.Calories > 242 {
			t.Errorf("expected ~240 kcal, got %d", calibrated.Calories)
		}
		if calibrated.Source != "weighted_consensus+calibrated" {
			t.Errorf("wrong source tag: got %s", calibrated.Source)
		}
		if math.Abs(calibrated.Macros.Carbs-48) > 0.5 {
			t.Errorf("macros not rescaled: got %f", calibrated.Macros.Carbs)
		}
	})

	t.Run("SeededSaladPrior", func(t *testing.T) {
		learner := NewLearner()
		item := core.FoodItem{Name: "caesar salad", Calories: 450, Source: "debate_consensus"}
		calibrated := learner.ApplyCalibration(item, "")
		if calibrated.Calories != 270 {
			t.Errorf("salad prior (0.6) not applied: got %d", calibrated.Calories)
		}
		if calibrated.Source != "debate_consensus+calibrated" {
			t.Errorf("wrong tag: got %s", calibrated.Source)
		}
	})

	t.Run("SeededFastFoodPrior", func(t *testing.T) {
		learner := NewLearner()
		item := core.FoodItem{Name: "double cheeseburger", Calories: 600, Source: "weighted_consensus"}
		calibrated := learner.ApplyCalibration(item, "")
		if calibrated.Calories != 690 {
			t.Errorf("fast food prior (1.15) not applied: got %d", calibrated.Calories)
		}
	})

	t.Run("NoDoubleApplication", func(t *testing.T) {
		learner := NewLearner()
		item := core.FoodItem{Name: "caesar salad", Calories: 450, Source: "debate_consensus"}
		once := learner.ApplyCalibration(item, "")
		twice := learner.ApplyCalibration(once, "")
		if twice != once {
			t.Errorf("calibration applied twice: %+v vs %+v", twice, once)
		}
	})

	t.Run("BelowGatesUnchanged", func(t *testing.T) {
		learner := NewLearner(WithPriors(nil))
		// Two corrections only: below the count gate of 3.
		learner.SaveCorrection("u1", "white rice", 500, 400)
		learner.SaveCorrection("u2", "white rice", 300, 240)

		item := core.FoodItem{Name: "rice bowl", Calories: 300, Source: "weighted_consensus"}
		calibrated := learner.ApplyCalibration(item, "u3")
		if calibrated != item {
			t.Errorf("item should be unchanged below gates: %+v", calibrated)
		}
	})

	t.Run("UserSpecificFallback", func(t *testing.T) {
		learner := NewLearner(WithPriors(nil))
		// Food with no category, so only the user path can match.
		learner.SaveCorrection("u1", "protein shake", 400, 200) // 0.5
		learner.SaveCorrection("u1", "protein shake", 300, 180) // 0.6

		item := core.FoodItem{Name: "chocolate protein shake", Calories: 400, Source: "weighted_consensus"}
		calibrated := learner.ApplyCalibration(item, "u1")
		// Mean factor 0.55: 400 -> 220.
		if calibrated.Calories != 220 {
			t.Errorf("expected 220 kcal, got %d", calibrated.Calories)
		}
		if calibrated.Source != "weighted_consensus+user_calibrated" {
			t.Errorf("wrong tag: got %s", calibrated.Source)
		}

		// A different user gets nothing.
		other := learner.ApplyCalibration(item, "u2")
		if other != item {
			t.Error("another user's history leaked into calibration")
		}
	})

	t.Run("SingleUserCorrectionNotEnough", func(t *testing.T) {
		learner := NewLearner(WithPriors(nil))
		learner.SaveCorrection("u1", "protein shake", 400, 200)

		item := core.FoodItem{Name: "protein shake", Calories: 400, Source: "weighted_consensus"}
		if calibrated := learner.ApplyCalibration(item, "u1"); calibrated != item {
			t.Error("one correction must not trigger user calibration")
		}
	})
}

func TestConcurrentSaves(t *testing.T) {
	learner := NewLearner(WithPriors(nil))

	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(n int) {
			defer wg.Done()
			learner.SaveCorrection("user", "white rice", 400, 320)
		}(i)
	}
	wg.Wait()

	pattern, ok := learner.Pattern("rice")
	if !ok {
		t.Fatal("pattern not created")
	}
	if pattern.CorrectionCount != goroutines {
		t.Errorf("lost updates: count %d, want %d", pattern.CorrectionCount, goroutines)
	}
	if math.Abs(pattern.AvgCorrectionFactor-0.8) > 1e-9 {
		t.Errorf("running mean corrupted: got %f", pattern.AvgCorrectionFactor)
	}
}

func TestDetectCorrectionIntent(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"that should be 300 calories", true},
		{"way too high", true},
		{"it was actually 250 kcal", true},
		{"please update the calories to 400", true},
		{"more like 500", true},
		{"thanks, looks right", false},
		{"what did I eat yesterday?", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := DetectCorrectionIntent(tt.message); got != tt.want {
				t.Errorf("DetectCorrectionIntent(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractCorrectedCalories(t *testing.T) {
	tests := []struct {
		message string
		value   int
		ok      bool
	}{
		{"should be 250 calories", 250, true},
		{"more like 300 kcal", 300, true},
		{"calories: 420", 420, true},
		{"make it 180 cal", 180, true},
		{"way too high", 0, false},
		{"ate 2 apples", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			value, ok := ExtractCorrectedCalories(tt.message)
			if ok != tt.ok || value != tt.value {
				t.Errorf("ExtractCorrectedCalories(%q) = (%d, %v), want (%d, %v)", tt.message, value, ok, tt.value, tt.ok)
			}
		})
	}
}
