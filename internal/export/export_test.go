package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alienxp03/mealjury/internal/core"
)

func sampleRecord() *core.EstimateRecord {
	return &core.EstimateRecord{
		ID:       "abc123defg",
		FoodName: "caesar salad",
		Quantity: "1 bowl",
		Estimates: []core.Estimate{
			{Source: core.SourceVisionModel, Calories: 450, Confidence: 0.7, Macros: core.Macros{Protein: 10, Carbs: 20, Fat: 35}},
			{Source: core.SourceReferenceDB, Calories: 120, Confidence: 0.9, Macros: core.Macros{Protein: 3, Carbs: 6, Fat: 12}},
		},
		Consensus: core.ConsensusEstimate{
			Calories:    170,
			Macros:      core.Macros{Protein: 3, Carbs: 6, Fat: 12},
			Confidence:  0.45,
			SourceLabel: core.LabelDebateConsensus,
			Reasoning:   "Sources diverged widely. Final estimate: 170 kcal.",
			Warnings:    []string{"170 kcal is slightly outside the expected range"},
			DebateLog: &core.DebateLog{
				Rounds: 2,
				Entries: []core.DebateEntry{
					{Round: 1, Source: core.SourceVisionModel, Kind: core.EntryArgument, Calories: 450, Summary: "Visual analysis suggests 450 kcal."},
					{Round: 2, Source: core.SourceVisionModel, Kind: core.EntryRebuttal, Calories: 380, Summary: "Conceding toward consensus.", AdjustedConfidence: 0.5,
						Rebuttals: []string{"Portion size may have been overestimated."}},
				},
			},
		},
		CreatedAt: time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC),
	}
}

func TestGetExporter(t *testing.T) {
	for _, format := range []Format{FormatMarkdown, FormatPDF, FormatJSON} {
		if _, err := GetExporter(format); err != nil {
			t.Errorf("no exporter for %s: %v", format, err)
		}
	}
	if _, err := GetExporter(Format("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestGenerateFilename(t *testing.T) {
	record := sampleRecord()
	name := GenerateFilename(record, "md")
	if name != "estimate_20260315_caesar_salad.md" {
		t.Errorf("unexpected filename: %s", name)
	}

	record.FoodName = "fish/chips: \"extra\" large?"
	name = GenerateFilename(record, "pdf")
	if strings.ContainsAny(name, "/:*?\"<>|") {
		t.Errorf("unsafe characters in filename: %s", name)
	}
}

func TestMarkdownExport(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(sampleRecord(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# caesar salad",
		"## Consensus",
		"**Calories:** 170 kcal",
		"| vision_model | 450 kcal |",
		"### Round 2",
		"Rebuttal: Portion size may have been overestimated.",
		"## Warnings",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(sampleRecord(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var decoded core.EstimateRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Consensus.Calories != 170 {
		t.Errorf("consensus lost in export: got %d", decoded.Consensus.Calories)
	}
	if decoded.Consensus.DebateLog == nil || len(decoded.Consensus.DebateLog.Entries) != 2 {
		t.Error("debate log lost in export")
	}
}

func TestPDFExport(t *testing.T) {
	var buf bytes.Buffer
	if err := (&PDFExporter{}).Export(sampleRecord(), &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output does not look like a PDF")
	}
}
