package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alienxp03/mealjury/internal/core"
)

func setupTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	tmpDir, err := os.MkdirTemp("", "mealjury-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	store, err := NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to create storage: %v", err)
	}

	if err := store.Initialize(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to initialize storage: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func sampleRecord() *core.EstimateRecord {
	return &core.EstimateRecord{
		ID:       core.GenerateID(),
		FoodName: "caesar salad",
		Quantity: "1 bowl",
		UserID:   "user-1",
		Estimates: []core.Estimate{
			{Source: core.SourceVisionModel, Calories: 450, Confidence: 0.7},
			{Source: core.SourceReferenceDB, Calories: 120, Confidence: 0.9},
		},
		Consensus: core.ConsensusEstimate{
			Calories:    170,
			Confidence:  0.45,
			SourceLabel: core.LabelDebateConsensus,
			Reasoning:   "Sources diverged widely.",
			DebateLog: &core.DebateLog{
				Rounds: 2,
				Entries: []core.DebateEntry{
					{Round: 1, Source: core.SourceVisionModel, Kind: core.EntryArgument, Calories: 450, Summary: "opening"},
				},
			},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestEstimateRoundTrip(t *testing.T) {
	store, cleanup := setupTestStorage(t)
	defer cleanup()

	record := sampleRecord()
	if err := store.SaveEstimate(record); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		got, err := store.GetEstimate(record.ID)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if got == nil {
			t.Fatal("estimate not found")
		}
		if got.FoodName != record.FoodName {
			t.Errorf("wrong food name: got %s", got.FoodName)
		}
		if len(got.Estimates) != 2 {
			t.Errorf("wrong estimate count: got %d", len(got.Estimates))
		}
		if got.Consensus.Calories != 170 {
			t.Errorf("wrong consensus calories: got %d", got.Consensus.Calories)
		}
		if got.Consensus.DebateLog == nil || got.Consensus.DebateLog.Rounds != 2 {
			t.Error("debate log lost in round trip")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		got, err := store.GetEstimate("nonexistent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("expected nil for missing estimate")
		}
	})

	t.Run("List", func(t *testing.T) {
		records, err := store.ListEstimates(10, 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("wrong count: got %d", len(records))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.DeleteEstimate(record.ID); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		got, _ := store.GetEstimate(record.ID)
		if got != nil {
			t.Error("estimate still exists after deletion")
		}
	})
}

func TestCorrections(t *testing.T) {
	store, cleanup := setupTestStorage(t)
	defer cleanup()

	base := time.Now().UTC().Truncate(time.Second)
	for i, user := range []string{"alice", "alice", "bob"} {
		correction := &core.UserCorrection{
			ID:                core.GenerateID(),
			UserID:            user,
			FoodName:          "caesar salad",
			OriginalCalories:  450,
			CorrectedCalories: 300,
			CorrectionFactor:  300.0 / 450.0,
			CreatedAt:         base.Add(time.Duration(i) * time.Second),
		}
		if err := store.SaveCorrection(correction); err != nil {
			t.Fatalf("failed to save correction: %v", err)
		}
	}

	t.Run("PerUser", func(t *testing.T) {
		corrections, err := store.ListCorrections("alice")
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if len(corrections) != 2 {
			t.Errorf("wrong count for alice: got %d", len(corrections))
		}
	})

	t.Run("All", func(t *testing.T) {
		corrections, err := store.AllCorrections()
		if err != nil {
			t.Fatalf("failed: %v", err)
		}
		if len(corrections) != 3 {
			t.Errorf("wrong total count: got %d", len(corrections))
		}
	})
}

func TestPatternUpsert(t *testing.T) {
	store, cleanup := setupTestStorage(t)
	defer cleanup()

	pattern := &core.CorrectionPattern{
		Category:            "salad_greens",
		AvgCorrectionFactor: 0.6,
		CorrectionCount:     5,
		Confidence:          0.5,
		LastUpdated:         time.Now().UTC().Truncate(time.Second),
	}
	if err := store.UpsertPattern(pattern); err != nil {
		t.Fatalf("failed to insert pattern: %v", err)
	}

	// Update the same category
	pattern.AvgCorrectionFactor = 0.65
	pattern.CorrectionCount = 6
	if err := store.UpsertPattern(pattern); err != nil {
		t.Fatalf("failed to update pattern: %v", err)
	}

	patterns, err := store.ListPatterns()
	if err != nil {
		t.Fatalf("failed to list patterns: %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("wrong pattern count: got %d", len(patterns))
	}
	if patterns[0].CorrectionCount != 6 {
		t.Errorf("update lost: got count %d", patterns[0].CorrectionCount)
	}
}
