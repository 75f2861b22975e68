package calibrate

import (
	"regexp"
	"strconv"
	"strings"
)

// correctionPhrases are the literal phrases that signal a user is
// correcting a previous estimate.
var correctionPhrases = []string{
	"should be",
	"too high",
	"too low",
	"actually",
	"more like",
	"closer to",
	"that's wrong",
	"thats wrong",
	"not right",
	"way off",
	"overestimate",
	"underestimate",
}

var updateCaloriesPattern = regexp.MustCompile(`(?i)\b(update|change|correct|fix)\b.*\b(calorie|calories|kcal)\b`)

// DetectCorrectionIntent reports whether a free-text message looks like
// the user correcting an earlier calorie estimate.
func DetectCorrectionIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range correctionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return updateCaloriesPattern.MatchString(message)
}

// Number directly followed by a calorie token ("250 kcal", "250 calories"),
// and a calorie token followed by a number ("calories: 250").
var (
	caloriesAfterNumber  = regexp.MustCompile(`(?i)\b(\d+)\s*(?:k?cals?|kcal|calories?)\b`)
	caloriesBeforeNumber = regexp.MustCompile(`(?i)\b(?:k?cals?|kcal|calories?)\b\D{0,12}?(\d+)`)
)

// ExtractCorrectedCalories pulls the corrected calorie value out of a
// message: the first integer adjacent to a calorie-like token. The
// second return is false when no such value exists.
func ExtractCorrectedCalories(message string) (int, bool) {
	for _, pattern := range []*regexp.Regexp{caloriesAfterNumber, caloriesBeforeNumber} {
		if m := pattern.FindStringSubmatch(message); m != nil {
			value, err := strconv.Atoi(m[1])
			if err == nil && value > 0 {
				return value, true
			}
		}
	}
	return 0, false
}
