package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/alienxp03/mealjury/internal/core"
)

// MarkdownExporter exports estimate records to Markdown format.
type MarkdownExporter struct{}

// Export writes the estimate record as Markdown.
func (e *MarkdownExporter) Export(record *core.EstimateRecord, w io.Writer) error {
	var sb strings.Builder

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", record.FoodName))

	// Metadata
	sb.WriteString("## Estimate Information\n\n")
	sb.WriteString(fmt.Sprintf("- **ID:** `%s`\n", record.ID))
	if record.Quantity != "" {
		sb.WriteString(fmt.Sprintf("- **Quantity:** %s\n", record.Quantity))
	}
	sb.WriteString(fmt.Sprintf("- **Created:** %s\n", record.CreatedAt.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("\n")

	// Consensus
	consensus := record.Consensus
	sb.WriteString("## Consensus\n\n")
	sb.WriteString(fmt.Sprintf("- **Calories:** %d kcal\n", consensus.Calories))
	sb.WriteString(fmt.Sprintf("- **Macros:** %s\n", formatMacros(consensus.Macros)))
	sb.WriteString(fmt.Sprintf("- **Confidence:** %s\n", formatConfidence(consensus.Confidence)))
	sb.WriteString(fmt.Sprintf("- **Source:** %s\n", consensus.SourceLabel))
	sb.WriteString("\n")
	if consensus.Reasoning != "" {
		sb.WriteString(consensus.Reasoning)
		sb.WriteString("\n\n")
	}

	// Source estimates
	sb.WriteString("## Source Estimates\n\n")
	sb.WriteString("| Source | Calories | Macros | Confidence |\n")
	sb.WriteString("|--------|----------|--------|------------|\n")
	for _, est := range record.Estimates {
		sb.WriteString(fmt.Sprintf("| %s | %d kcal | %s | %s |\n",
			est.Source, est.Calories, formatMacros(est.Macros), formatConfidence(est.Confidence)))
	}
	sb.WriteString("\n")

	// Debate transcript
	if !consensus.DebateLog.Empty() {
		sb.WriteString("## Debate\n\n")

		for round := 1; round <= consensus.DebateLog.Rounds; round++ {
			sb.WriteString(fmt.Sprintf("### Round %d\n\n", round))
			for _, entry := range consensus.DebateLog.Entries {
				if entry.Round != round {
					continue
				}

				sb.WriteString(fmt.Sprintf("#### %s (%d kcal)\n\n", entry.Source, entry.Calories))
				sb.WriteString(entry.Summary)
				sb.WriteString("\n\n")
				for _, s := range entry.Strengths {
					sb.WriteString(fmt.Sprintf("- Strength: %s\n", s))
				}
				for _, wk := range entry.Weaknesses {
					sb.WriteString(fmt.Sprintf("- Weakness: %s\n", wk))
				}
				for _, r := range entry.Rebuttals {
					sb.WriteString(fmt.Sprintf("- Rebuttal: %s\n", r))
				}
				if entry.Kind == core.EntryRebuttal {
					sb.WriteString(fmt.Sprintf("- Adjusted confidence: %s\n", formatConfidence(entry.AdjustedConfidence)))
				}
				sb.WriteString("\n---\n\n")
			}
		}
	}

	// Warnings and clarification
	if len(consensus.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, warning := range consensus.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", warning))
		}
		sb.WriteString("\n")
	}
	if consensus.NeedsClarification {
		sb.WriteString("## Clarification Needed\n\n")
		for _, q := range consensus.ClarifyingQuestions {
			sb.WriteString(fmt.Sprintf("- %s\n", q))
		}
		sb.WriteString("\n")
	}

	// Footer
	sb.WriteString("---\n\n")
	sb.WriteString("*Exported from mealjury*\n")

	_, err := w.Write([]byte(sb.String()))
	return err
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return "md"
}
