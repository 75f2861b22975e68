package debate

import (
	"fmt"

	"github.com/alienxp03/mealjury/internal/core"
)

// profile holds the fixed argument material for one source type.
type profile struct {
	summary    string
	strengths  []string
	weaknesses []string
}

// sourceProfiles is the per-source argument material used in round 1.
// The text is fixed so that debate generation stays deterministic.
var sourceProfiles = map[core.Source]profile{
	core.SourceVisionModel: {
		summary: "The vision model estimated %d kcal from direct visual analysis of the plate.",
		strengths: []string{
			"Direct visual analysis of the actual portion served",
			"Accounts for visible preparation (oil, sauces, toppings)",
		},
		weaknesses: []string{
			"Prone to overestimating portion size from camera angle",
			"Cannot see hidden ingredients or cooking fat",
		},
	},
	core.SourceTextParser: {
		summary: "The text parser estimated %d kcal from the user's own description.",
		strengths: []string{
			"Grounded in the user's explicit description of the meal",
			"Captures quantities the user stated directly",
		},
		weaknesses: []string{
			"Depends entirely on how precisely the user described the food",
			"Ambiguous portions default to generic serving sizes",
		},
	},
	core.SourceReferenceDB: {
		summary: "The reference database reports %d kcal for the matched food entry.",
		strengths: []string{
			"Backed by laboratory nutrition data for the matched food",
			"Consistent per-100g values independent of guesswork",
		},
		weaknesses: []string{
			"Accuracy hinges on matching the right database entry",
			"Assumes a standard preparation that may not match the plate",
		},
	},
	core.SourceValidator: {
		summary: "The rule validator derived %d kcal from category-typical ranges.",
		strengths: []string{
			"Anchored in domain knowledge of plausible calorie density",
			"Immune to portion-size hallucination",
		},
		weaknesses: []string{
			"Coarse category ranges ignore the specific recipe",
			"Falls back to typical values when the food is unusual",
		},
	},
}

// rebuttalIssues maps a (source, other source) pair to the sentence used
// when the two values differ grossly (over 50%).
var rebuttalIssues = map[[2]core.Source]string{
	{core.SourceVisionModel, core.SourceReferenceDB}: "The reference entry likely describes a smaller standard portion than what is visible on the plate.",
	{core.SourceVisionModel, core.SourceValidator}:   "Category-typical ranges underrate dishes with visible added fat or dressing.",
	{core.SourceVisionModel, core.SourceTextParser}:  "The description may omit items that are visible in the image.",
	{core.SourceReferenceDB, core.SourceVisionModel}: "The vision estimate likely overstates the portion; the matched entry reflects measured data.",
	{core.SourceReferenceDB, core.SourceValidator}:   "The category range is broader than the matched entry's measured value.",
	{core.SourceReferenceDB, core.SourceTextParser}:  "The described quantity disagrees with the standard serving in the database.",
	{core.SourceValidator, core.SourceVisionModel}:   "The vision value falls outside the plausible range for this food category.",
	{core.SourceValidator, core.SourceReferenceDB}:   "The matched database entry may be the wrong food variant for this category.",
	{core.SourceValidator, core.SourceTextParser}:    "The described portion implies a calorie density outside the category range.",
	{core.SourceTextParser, core.SourceVisionModel}:  "The image may show a garnish or side that the user did not eat.",
	{core.SourceTextParser, core.SourceReferenceDB}:  "The database match may not be the preparation the user described.",
	{core.SourceTextParser, core.SourceValidator}:    "Typical-range reasoning discards the specific quantities the user gave.",
}

// issueSentence returns the gross-disagreement sentence for a source pair.
func issueSentence(self, other core.Source, otherCalories int) string {
	if s, ok := rebuttalIssues[[2]core.Source{self, other}]; ok {
		return fmt.Sprintf("Major gap vs %s (%d kcal): %s", other, otherCalories, s)
	}
	return fmt.Sprintf("Major gap vs %s (%d kcal): the two methods disagree on portion or density.", other, otherCalories)
}

// likelyCauseSentence returns the softer sentence for moderate (20-50%)
// disagreement between two sources.
func likelyCauseSentence(self, other core.Source, otherCalories int) string {
	return fmt.Sprintf("Moderate gap vs %s (%d kcal): likely caused by differing portion-size assumptions.", other, otherCalories)
}
