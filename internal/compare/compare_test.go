package compare

import (
	"math"
	"reflect"
	"testing"

	"github.com/alienxp03/mealjury/internal/core"
)

func est(source core.Source, calories int, confidence float64) core.Estimate {
	return core.Estimate{Source: source, Calories: calories, Confidence: confidence}
}

func TestCompare(t *testing.T) {
	t.Run("NoEstimates", func(t *testing.T) {
		_, err := Compare(nil, 0, nil)
		if err == nil {
			t.Fatal("expected error for empty estimate set")
		}
	})

	t.Run("UnknownSource", func(t *testing.T) {
		_, err := Compare([]core.Estimate{{Source: "crystal_ball", Calories: 100}}, 0, nil)
		if err == nil {
			t.Fatal("expected error for unknown source")
		}
	})

	t.Run("SingleEstimate", func(t *testing.T) {
		result, err := Compare([]core.Estimate{est(core.SourceVisionModel, 300, 0.8)}, 0, nil)
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if result.Variance != 0 {
			t.Errorf("variance should be 0 for one estimate, got %f", result.Variance)
		}
		if result.RequiresDebate {
			t.Error("single estimate should not require debate")
		}
		if result.ConsensusCalories != 300 {
			t.Errorf("wrong consensus: got %d, want 300", result.ConsensusCalories)
		}
	})

	t.Run("AllEqual", func(t *testing.T) {
		estimates := []core.Estimate{
			est(core.SourceVisionModel, 250, 0.8),
			est(core.SourceReferenceDB, 250, 0.9),
			est(core.SourceValidator, 250, 0.7),
		}
		result, err := Compare(estimates, 0, nil)
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if result.Variance != 0 {
			t.Errorf("variance should be 0 when all agree, got %f", result.Variance)
		}
		if result.RequiresDebate {
			t.Error("agreement should not require debate")
		}
		if math.Abs(result.Confidence-1.0) > 1e-9 {
			t.Errorf("wrong confidence: got %f, want 1.0", result.Confidence)
		}
		if result.ConsensusCalories != 250 {
			t.Errorf("wrong consensus: got %d, want 250", result.ConsensusCalories)
		}
	})

	t.Run("LowVariancePassThrough", func(t *testing.T) {
		estimates := []core.Estimate{
			est(core.SourceVisionModel, 280, 0.8),
			est(core.SourceReferenceDB, 275, 0.9),
			est(core.SourceTextParser, 285, 0.7),
		}
		result, err := Compare(estimates, 0, nil)
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if result.Variance >= 0.10 {
			t.Errorf("variance too high: got %f", result.Variance)
		}
		if result.RequiresDebate {
			t.Error("should not require debate")
		}
		if result.Confidence <= 0.8 {
			t.Errorf("confidence too low: got %f", result.Confidence)
		}
	})

	t.Run("HighVarianceSalad", func(t *testing.T) {
		estimates := []core.Estimate{
			est(core.SourceVisionModel, 450, 0.7),
			est(core.SourceReferenceDB, 120, 0.9),
			est(core.SourceValidator, 50, 0.6),
		}
		result, err := Compare(estimates, 0, nil)
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if math.Abs(result.Variance-1.034) > 0.01 {
			t.Errorf("wrong variance: got %f, want ~1.034", result.Variance)
		}
		if !result.RequiresDebate {
			t.Error("high variance must require debate")
		}
		// (450*1.0 + 120*2.0 + 50*1.5) / 4.5 = 170
		if result.ConsensusCalories != 170 {
			t.Errorf("wrong weighted consensus: got %d, want 170", result.ConsensusCalories)
		}
		if math.Abs(result.Confidence-0.35) > 1e-9 {
			t.Errorf("wrong confidence: got %f, want 0.35", result.Confidence)
		}
	})

	t.Run("ConsensusWithinBounds", func(t *testing.T) {
		cases := [][]core.Estimate{
			{est(core.SourceVisionModel, 100, 0.5), est(core.SourceReferenceDB, 900, 0.9)},
			{est(core.SourceTextParser, 42, 0.5), est(core.SourceValidator, 58, 0.5), est(core.SourceVisionModel, 51, 0.5)},
			{est(core.SourceReferenceDB, 333, 0.9), est(core.SourceVisionModel, 333, 0.6)},
		}
		for _, estimates := range cases {
			result, err := Compare(estimates, 0, nil)
			if err != nil {
				t.Fatalf("failed: %v", err)
			}
			lo, hi := estimates[0].Calories, estimates[0].Calories
			for _, e := range estimates {
				if e.Calories < lo {
					lo = e.Calories
				}
				if e.Calories > hi {
					hi = e.Calories
				}
			}
			if result.ConsensusCalories < lo || result.ConsensusCalories > hi {
				t.Errorf("consensus %d outside [%d, %d]", result.ConsensusCalories, lo, hi)
			}
		}
	})

	t.Run("CustomThresholdAndWeights", func(t *testing.T) {
		estimates := []core.Estimate{
			est(core.SourceVisionModel, 200, 0.8),
			est(core.SourceTextParser, 300, 0.8),
		}
		weights := map[core.Source]float64{core.SourceVisionModel: 3.0, core.SourceTextParser: 1.0}
		result, err := Compare(estimates, 0.60, weights)
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		// (200*3 + 300*1) / 4 = 225
		if result.ConsensusCalories != 225 {
			t.Errorf("wrong consensus: got %d, want 225", result.ConsensusCalories)
		}
		if result.RequiresDebate {
			t.Errorf("variance %f should be under the raised threshold", result.Variance)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		estimates := []core.Estimate{
			est(core.SourceVisionModel, 450, 0.7),
			est(core.SourceReferenceDB, 120, 0.9),
			est(core.SourceValidator, 50, 0.6),
		}
		first, err := Compare(estimates, 0, nil)
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		second, err := Compare(estimates, 0, nil)
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Error("identical inputs produced different results")
		}
	})
}

func TestCoefficientOfVariation(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   float64
	}{
		{"Empty", nil, 0},
		{"Single", []int{500}, 0},
		{"ZeroMean", []int{0, 0}, 0},
		{"Identical", []int{100, 100, 100}, 0},
		{"SaladScenario", []int{450, 120, 50}, 1.034},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoefficientOfVariation(tt.values)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}
