// Package export handles exporting estimate records to various formats.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/alienxp03/mealjury/internal/core"
)

// Format represents an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
)

// Exporter defines the interface for exporting estimate records.
type Exporter interface {
	Export(record *core.EstimateRecord, w io.Writer) error
	FileExtension() string
}

// GetExporter returns an exporter for the given format.
func GetExporter(format Format) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return &MarkdownExporter{}, nil
	case FormatPDF:
		return &PDFExporter{}, nil
	case FormatJSON:
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// GenerateFilename creates a filename for the export.
func GenerateFilename(record *core.EstimateRecord, ext string) string {
	// Sanitize food name for filename
	name := record.FoodName
	if len(name) > 50 {
		name = name[:50]
	}

	// Replace unsafe characters
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
	)
	name = replacer.Replace(name)

	timestamp := record.CreatedAt.Format("20060102")
	return fmt.Sprintf("estimate_%s_%s.%s", timestamp, name, ext)
}

// Helper to format a macro breakdown
func formatMacros(m core.Macros) string {
	return fmt.Sprintf("%.1fg protein / %.1fg carbs / %.1fg fat", m.Protein, m.Carbs, m.Fat)
}

// Helper to format a confidence value as a percentage
func formatConfidence(c float64) string {
	return fmt.Sprintf("%.0f%%", c*100)
}
