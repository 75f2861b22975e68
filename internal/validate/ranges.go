package validate

import "strings"

// ReasonablenessRange is a static per-category band of plausible calorie
// density, loaded once at process start and read-only thereafter.
type ReasonablenessRange struct {
	Category          string
	MinCalPer100g     float64
	MaxCalPer100g     float64
	TypicalCalPer100g float64
	// Optional protein band; both zero means no protein rule.
	MinProteinPer100g float64
	MaxProteinPer100g float64
}

// categoryRanges is the coarse category-level table used for warnings.
var categoryRanges = map[string]ReasonablenessRange{
	"chicken_breast":       {Category: "chicken_breast", MinCalPer100g: 100, MaxCalPer100g: 220, TypicalCalPer100g: 165, MinProteinPer100g: 25, MaxProteinPer100g: 35},
	"salad_greens":         {Category: "salad_greens", MinCalPer100g: 5, MaxCalPer100g: 60, TypicalCalPer100g: 20},
	"restaurant_fast_food": {Category: "restaurant_fast_food", MinCalPer100g: 150, MaxCalPer100g: 350, TypicalCalPer100g: 270},
	"chicken":              {Category: "chicken", MinCalPer100g: 100, MaxCalPer100g: 300, TypicalCalPer100g: 190, MinProteinPer100g: 20, MaxProteinPer100g: 32},
	"beef":                 {Category: "beef", MinCalPer100g: 120, MaxCalPer100g: 350, TypicalCalPer100g: 250, MinProteinPer100g: 18, MaxProteinPer100g: 30},
	"pork":                 {Category: "pork", MinCalPer100g: 120, MaxCalPer100g: 450, TypicalCalPer100g: 270},
	"fish":                 {Category: "fish", MinCalPer100g: 70, MaxCalPer100g: 250, TypicalCalPer100g: 150, MinProteinPer100g: 16, MaxProteinPer100g: 28},
	"egg":                  {Category: "egg", MinCalPer100g: 120, MaxCalPer100g: 180, TypicalCalPer100g: 155, MinProteinPer100g: 11, MaxProteinPer100g: 14},
	"rice":                 {Category: "rice", MinCalPer100g: 90, MaxCalPer100g: 160, TypicalCalPer100g: 130},
	"pasta":                {Category: "pasta", MinCalPer100g: 120, MaxCalPer100g: 200, TypicalCalPer100g: 160},
	"bread":                {Category: "bread", MinCalPer100g: 220, MaxCalPer100g: 320, TypicalCalPer100g: 265},
	"potato":               {Category: "potato", MinCalPer100g: 70, MaxCalPer100g: 160, TypicalCalPer100g: 90},
	"fruit":                {Category: "fruit", MinCalPer100g: 30, MaxCalPer100g: 110, TypicalCalPer100g: 60},
	"vegetable":            {Category: "vegetable", MinCalPer100g: 15, MaxCalPer100g: 90, TypicalCalPer100g: 40},
	"dairy":                {Category: "dairy", MinCalPer100g: 40, MaxCalPer100g: 120, TypicalCalPer100g: 65},
	"cheese":               {Category: "cheese", MinCalPer100g: 250, MaxCalPer100g: 450, TypicalCalPer100g: 350},
	"nuts":                 {Category: "nuts", MinCalPer100g: 500, MaxCalPer100g: 700, TypicalCalPer100g: 600},
	"chocolate_sweets":     {Category: "chocolate_sweets", MinCalPer100g: 300, MaxCalPer100g: 600, TypicalCalPer100g: 450},
	"soup":                 {Category: "soup", MinCalPer100g: 25, MaxCalPer100g: 120, TypicalCalPer100g: 60},
	"oil_dressing":         {Category: "oil_dressing", MinCalPer100g: 400, MaxCalPer100g: 900, TypicalCalPer100g: 720},
}

// CategoryRange looks up the coarse range for a category.
func CategoryRange(category string) (ReasonablenessRange, bool) {
	r, ok := categoryRanges[category]
	return r, ok
}

// FoodRange is the finer per-food band used by structured validation.
type FoodRange struct {
	Keyword           string
	MinCalPer100g     float64
	MaxCalPer100g     float64
	TypicalCalPer100g float64
}

// foodRanges is checked in order so multi-word foods match before their
// generic parent ("chicken breast" before "chicken"). Each band sits
// inside the span of the food's category above; a test enforces that the
// two tables never contradict each other.
var foodRanges = []FoodRange{
	{"chicken breast", 120, 200, 165},
	{"fried chicken", 220, 320, 280},
	{"chicken", 110, 280, 190},
	{"white rice", 110, 150, 130},
	{"rice", 100, 150, 130},
	{"banana", 80, 105, 89},
	{"apple", 45, 60, 52},
	{"salad", 10, 50, 20},
	{"pizza", 220, 300, 266},
	{"burger", 230, 300, 260},
	{"salmon", 180, 230, 208},
	{"tuna", 100, 180, 132},
	{"egg", 140, 160, 155},
	{"spaghetti", 130, 180, 158},
	{"pasta", 130, 180, 160},
	{"bread", 240, 290, 265},
	{"potato", 75, 110, 87},
	{"broccoli", 30, 40, 34},
	{"almond", 550, 620, 579},
	{"peanut", 520, 620, 567},
	{"chocolate", 500, 580, 546},
	{"yogurt", 50, 110, 61},
	{"steak", 180, 290, 252},
	{"oatmeal", 60, 120, 71},
}

// FoodRangeFor returns the most specific per-food range matching the
// normalized name, if any.
func FoodRangeFor(name string) (FoodRange, bool) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return FoodRange{}, false
	}
	for _, fr := range foodRanges {
		if strings.Contains(normalized, fr.Keyword) {
			return fr, true
		}
	}
	return FoodRange{}, false
}
