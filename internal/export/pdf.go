package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/alienxp03/mealjury/internal/core"
)

// PDFExporter exports estimate records to PDF format.
type PDFExporter struct{}

// Export writes the estimate record as PDF.
func (e *PDFExporter) Export(record *core.EstimateRecord, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	// Add first page
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 10, e.sanitizeText(record.FoodName), "", "C", false)
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Estimate Information")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	e.addMetadataRow(pdf, "ID:", record.ID)
	if record.Quantity != "" {
		e.addMetadataRow(pdf, "Quantity:", record.Quantity)
	}
	e.addMetadataRow(pdf, "Created:", record.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	pdf.Ln(5)

	// Consensus section
	consensus := record.Consensus
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Consensus")
	pdf.Ln(8)

	pdf.SetFillColor(200, 255, 200) // Light green
	pdf.SetFont("Arial", "B", 10)
	headline := fmt.Sprintf("%d kcal (%s confidence, %s)",
		consensus.Calories, formatConfidence(consensus.Confidence), consensus.SourceLabel)
	pdf.CellFormat(0, 7, headline, "", 1, "", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(255, 255, 255)
	e.addMetadataRow(pdf, "Macros:", formatMacros(consensus.Macros))
	if consensus.Reasoning != "" {
		pdf.MultiCell(0, 5, e.sanitizeText(consensus.Reasoning), "", "", false)
	}
	pdf.Ln(5)

	// Source estimates
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Source Estimates")
	pdf.Ln(8)

	for _, est := range record.Estimates {
		e.addEstimateBox(pdf, est)
		pdf.Ln(3)
	}
	pdf.Ln(5)

	// Debate transcript
	if !consensus.DebateLog.Empty() {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Debate")
		pdf.Ln(8)

		for _, entry := range consensus.DebateLog.Entries {
			// Check if we need a new page
			if pdf.GetY() > 250 {
				pdf.AddPage()
			}

			// Entry header with colored background
			if entry.Kind == core.EntryArgument {
				pdf.SetFillColor(200, 230, 255) // Light blue
			} else {
				pdf.SetFillColor(255, 235, 200) // Light orange
			}

			pdf.SetFont("Arial", "B", 10)
			header := fmt.Sprintf("Round %d - %s (%d kcal)", entry.Round, entry.Source, entry.Calories)
			pdf.CellFormat(0, 7, header, "", 1, "", true, 0, "")

			pdf.SetFont("Arial", "", 9)
			pdf.SetFillColor(255, 255, 255)
			pdf.MultiCell(0, 5, e.sanitizeText(entry.Summary), "", "", false)
			for _, r := range entry.Rebuttals {
				pdf.MultiCell(0, 5, e.sanitizeText("- "+r), "", "", false)
			}
			pdf.Ln(3)
		}
	}

	// Warnings
	if len(consensus.Warnings) > 0 {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Warnings")
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 9)
		for _, warning := range consensus.Warnings {
			pdf.MultiCell(0, 5, e.sanitizeText("- "+warning), "", "", false)
		}
		pdf.Ln(3)
	}

	// Clarification
	if consensus.NeedsClarification {
		pdf.SetFillColor(255, 200, 200) // Light red
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, "Clarification Needed", "", 1, "", true, 0, "")

		pdf.SetFont("Arial", "", 9)
		pdf.SetFillColor(255, 255, 255)
		for _, q := range consensus.ClarifyingQuestions {
			pdf.MultiCell(0, 5, e.sanitizeText("- "+q), "", "", false)
		}
		pdf.Ln(3)
	}

	// Footer
	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 10, "Exported from mealjury", "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return "pdf"
}

// Helper to add a metadata row
func (e *PDFExporter) addMetadataRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(30, 5, label)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 5, value)
	pdf.Ln(5)
}

// Helper to add a source estimate box
func (e *PDFExporter) addEstimateBox(pdf *gofpdf.Fpdf, est core.Estimate) {
	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Arial", "B", 10)
	title := fmt.Sprintf("%s - %d kcal (%s)", est.Source, est.Calories, formatConfidence(est.Confidence))
	pdf.CellFormat(0, 6, title, "", 1, "", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetFillColor(255, 255, 255)
	pdf.Cell(25, 5, "Macros:")
	pdf.Cell(0, 5, formatMacros(est.Macros))
	pdf.Ln(5)
	if est.Reasoning != "" {
		pdf.MultiCell(0, 5, e.sanitizeText(est.Reasoning), "", "", false)
	}
}

// Sanitize text for PDF (remove problematic characters)
func (e *PDFExporter) sanitizeText(text string) string {
	// gofpdf uses Windows-1252 encoding by default
	// Replace common Unicode characters that might cause issues
	replacer := strings.NewReplacer(
		"\u2018", "'",  // Left single quote
		"\u2019", "'",  // Right single quote
		"\u201C", "\"", // Left double quote
		"\u201D", "\"", // Right double quote
		"\u2013", "-",  // En dash
		"\u2014", "--", // Em dash
		"\u2026", "...", // Ellipsis
		"\u2022", "*",  // Bullet
		"\u00A0", " ",  // Non-breaking space
	)
	return replacer.Replace(text)
}
