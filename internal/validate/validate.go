// Package validate checks estimated nutrition values against static
// domain knowledge. All checks are pure and never fail hard: they return
// structured results with warnings and let callers decide how to react.
package validate

import (
	"fmt"
	"math"

	"github.com/alienxp03/mealjury/internal/core"
)

// Validation confidence levels per spec'd bands.
const (
	confidenceInRange      = 0.9
	confidenceMildMiss     = 0.7
	confidenceGrossMiss    = 0.3
	confidenceUnknowable   = 0.5
	macroMismatchTolerance = 0.25
)

// Result is the structured outcome of validating one food item.
type Result struct {
	IsValid           bool     `json:"is_valid"`
	Confidence        float64  `json:"confidence"`
	SuggestedCalories int      `json:"suggested_calories,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Validate runs the structured per-food validation: the item's calories
// are checked against the fine-grained food range, scaled to the parsed
// quantity. Calories below 70% of the range minimum or above 150% of the
// maximum are invalid; merely outside the band is valid with reduced
// confidence. When neither the quantity nor the food can be interpreted
// the item passes with a neutral 0.5 confidence.
func Validate(foodName, quantity string, calories int, macros core.Macros) Result {
	result := Result{IsValid: true, Confidence: confidenceUnknowable}

	grams, parsedQty := ParseQuantity(quantity)
	fr, knownFood := FoodRangeFor(foodName)

	if parsedQty && knownFood && grams > 0 {
		scale := grams / 100
		minTotal := fr.MinCalPer100g * scale
		maxTotal := fr.MaxCalPer100g * scale
		result.SuggestedCalories = int(math.Round(fr.TypicalCalPer100g * scale))

		c := float64(calories)
		switch {
		case c < 0.7*minTotal || c > 1.5*maxTotal:
			result.IsValid = false
			result.Confidence = confidenceGrossMiss
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%d kcal is far outside the plausible range %.0f-%.0f kcal for %s (%s)",
				calories, minTotal, maxTotal, foodName, quantity))
		case c < minTotal || c > maxTotal:
			result.Confidence = confidenceMildMiss
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"%d kcal is slightly outside the expected range %.0f-%.0f kcal for %s",
				calories, minTotal, maxTotal, foodName))
		default:
			result.Confidence = confidenceInRange
		}
	}

	if warning, ok := macroMismatch(calories, macros); ok {
		result.Warnings = append(result.Warnings, warning)
		result.Confidence = math.Max(confidenceGrossMiss, result.Confidence-0.1)
	}

	return result
}

// CheckReasonableness runs the coarse category-range check on an item.
// It returns false plus warnings when the calorie density falls outside
// the category band; unknown categories pass silently since there is
// nothing to validate against.
func CheckReasonableness(item core.FoodItem) (bool, []string) {
	var warnings []string
	ok := true

	category, known := Categorize(item.Name)
	grams, parsedQty := ParseQuantity(item.Quantity)

	if known && parsedQty && grams > 0 {
		if r, found := CategoryRange(category); found {
			per100 := float64(item.Calories) / grams * 100
			if per100 < r.MinCalPer100g || per100 > r.MaxCalPer100g {
				ok = false
				warnings = append(warnings, fmt.Sprintf(
					"%s: %.0f kcal/100g is outside the %s range %.0f-%.0f (typical %.0f)",
					item.Name, per100, category, r.MinCalPer100g, r.MaxCalPer100g, r.TypicalCalPer100g))
			}
			if r.MinProteinPer100g > 0 || r.MaxProteinPer100g > 0 {
				proteinPer100 := item.Macros.Protein / grams * 100
				if proteinPer100 > 0 && (proteinPer100 < r.MinProteinPer100g || proteinPer100 > r.MaxProteinPer100g) {
					ok = false
					warnings = append(warnings, fmt.Sprintf(
						"%s: %.1fg protein/100g is outside the %s range %.0f-%.0f",
						item.Name, proteinPer100, category, r.MinProteinPer100g, r.MaxProteinPer100g))
				}
			}
		}
	}

	if warning, mismatch := macroMismatch(item.Calories, item.Macros); mismatch {
		ok = false
		warnings = append(warnings, warning)
	}

	return ok, warnings
}

// macroMismatch applies the 4/4/9 rule: the calories implied by the
// macros must be within 25% of the stated total.
func macroMismatch(calories int, macros core.Macros) (string, bool) {
	if calories <= 0 {
		return "", false
	}
	implied := macros.Calories()
	if implied == 0 {
		return "", false
	}
	deviation := math.Abs(implied-float64(calories)) / float64(calories)
	if deviation <= macroMismatchTolerance {
		return "", false
	}
	return fmt.Sprintf(
		"macros imply %.0f kcal but %d kcal stated (%.0f%% mismatch)",
		implied, calories, deviation*100), true
}
