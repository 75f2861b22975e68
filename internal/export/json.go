package export

import (
	"encoding/json"
	"io"

	"github.com/alienxp03/mealjury/internal/core"
)

// JSONExporter exports estimate records to JSON format.
type JSONExporter struct{}

// Export writes the estimate record as JSON.
func (e *JSONExporter) Export(record *core.EstimateRecord, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return "json"
}
