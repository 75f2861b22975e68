package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var quantityPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([a-zA-Z]*)`)

// gramsPerUnit converts direct measurement units to grams. Milliliters
// are treated as grams, which is close enough for food.
var gramsPerUnit = map[string]float64{
	"g": 1, "gr": 1, "gram": 1, "grams": 1,
	"kg": 1000, "kilo": 1000, "kilos": 1000, "kilogram": 1000, "kilograms": 1000,
	"mg": 0.001,
	"ml": 1, "milliliter": 1, "milliliters": 1,
	"l": 1000, "liter": 1000, "liters": 1000,
	"oz": 28.35, "ounce": 28.35, "ounces": 28.35,
	"lb": 453.6, "lbs": 453.6, "pound": 453.6, "pounds": 453.6,
	"cup": 240, "cups": 240,
	"tbsp": 15, "tablespoon": 15, "tablespoons": 15,
	"tsp": 5, "teaspoon": 5, "teaspoons": 5,
}

// gramsPerItem gives heuristic weights for countable or sized portions.
var gramsPerItem = map[string]float64{
	"small": 100, "medium": 150, "large": 200,
	"slice": 30, "slices": 30,
	"piece": 50, "pieces": 50,
	"item": 150, "items": 150,
	"serving": 150, "servings": 150, "portion": 150, "portions": 150,
	"bowl": 300, "bowls": 300,
	"plate": 350, "plates": 350,
	"handful": 30, "handfuls": 30,
	"scoop": 60, "scoops": 60,
	"can": 330, "cans": 330,
	"glass": 250, "glasses": 250,
	"bottle": 500, "bottles": 500,
	"whole": 150,
}

// ParseQuantity converts a free-form quantity string ("150g", "2 cups",
// "1 medium", "half a plate") to grams. The second return is false when
// the string cannot be interpreted at all.
func ParseQuantity(quantity string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(quantity))
	if s == "" {
		return 0, false
	}

	count := 1.0
	if strings.Contains(s, "half") {
		count = 0.5
	} else if strings.Contains(s, "quarter") {
		count = 0.25
	}

	if m := quantityPattern.FindStringSubmatch(s); m != nil {
		num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil && num > 0 {
			unit := m[2]
			if factor, ok := gramsPerUnit[unit]; ok {
				return num * factor, true
			}
			if weight, ok := gramsPerItem[unit]; ok {
				return num * weight, true
			}
			if weight, ok := sizedWordWeight(s); ok {
				return num * weight, true
			}
			if unit == "" {
				// A bare number: large values read as grams, small ones
				// as a count of generic items ("2" of something).
				if num >= 10 {
					return num, true
				}
				return num * gramsPerItem["item"], true
			}
			// Unknown unit word ("2 bananas"): count of generic items.
			return num * gramsPerItem["item"], true
		}
	}

	if weight, ok := sizedWordWeight(s); ok {
		return count * weight, true
	}
	return 0, false
}

// sizedWordWeight finds the first size/item word in the string.
func sizedWordWeight(s string) (float64, bool) {
	for _, f := range strings.Fields(s) {
		f = strings.Trim(f, ".,")
		if w, ok := gramsPerItem[f]; ok {
			return w, true
		}
	}
	return 0, false
}
