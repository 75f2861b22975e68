package validate

import (
	"strings"
)

// qualifierWords are stripped from food names before category matching.
// "grilled organic chicken breast" and "chicken breast" must categorize
// identically. "fried" is not a qualifier: frying changes the calorie
// density, and "fried chicken" is its own food.
var qualifierWords = map[string]bool{
	"organic": true, "fresh": true, "frozen": true, "raw": true,
	"cooked": true, "grilled": true, "baked": true, "roasted": true,
	"steamed": true, "boiled": true, "homemade": true,
	"large": true, "small": true, "medium": true, "big": true,
	"plain": true, "whole": true, "lean": true, "skinless": true,
}

// NormalizeName lowercases a food name and strips preparation and size
// qualifiers, keeping the words that identify the food itself.
func NormalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	var kept []string
	for _, f := range fields {
		f = strings.Trim(f, ".,!?()")
		if f == "" || qualifierWords[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// categoryRule binds a category to its trigger keywords. Rules are
// checked in order, so specific categories (chicken_breast) must appear
// before generic ones (chicken).
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"chicken_breast", []string{"chicken breast", "breast fillet"}},
	{"salad_greens", []string{"salad", "lettuce", "spinach", "arugula", "kale", "greens"}},
	{"restaurant_fast_food", []string{"burger", "fries", "pizza", "taco", "fried chicken", "nuggets", "hot dog", "kebab"}},
	{"chicken", []string{"chicken", "turkey", "poultry"}},
	{"beef", []string{"beef", "steak", "ground meat", "meatball"}},
	{"pork", []string{"pork", "bacon", "ham", "sausage"}},
	{"fish", []string{"salmon", "tuna", "fish", "cod", "shrimp", "prawn"}},
	{"egg", []string{"egg", "omelet", "omelette"}},
	{"rice", []string{"rice", "risotto"}},
	{"pasta", []string{"pasta", "spaghetti", "noodle", "macaroni", "lasagna"}},
	{"bread", []string{"bread", "toast", "bagel", "bun", "roll", "croissant"}},
	{"potato", []string{"potato", "mash"}},
	{"fruit", []string{"apple", "banana", "orange", "berry", "berries", "grape", "melon", "pear", "peach", "mango", "fruit"}},
	{"vegetable", []string{"broccoli", "carrot", "tomato", "cucumber", "pepper", "zucchini", "cauliflower", "vegetable", "beans", "peas"}},
	{"dairy", []string{"milk", "yogurt", "yoghurt", "cottage cheese"}},
	{"cheese", []string{"cheese", "cheddar", "mozzarella", "parmesan"}},
	{"nuts", []string{"almond", "peanut", "walnut", "cashew", "nut", "nuts"}},
	{"chocolate_sweets", []string{"chocolate", "candy", "cookie", "cake", "dessert", "ice cream", "donut", "doughnut"}},
	{"soup", []string{"soup", "broth", "stew"}},
	{"oil_dressing", []string{"oil", "butter", "mayonnaise", "dressing", "margarine"}},
}

// Categorize maps a food name to a category via keyword lookup, checked
// in rule priority order. The second return is false when nothing
// matches.
func Categorize(name string) (string, bool) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return "", false
	}
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.category, true
			}
		}
	}
	return "", false
}
