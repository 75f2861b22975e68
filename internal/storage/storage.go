// Package storage provides persistence for estimation results,
// user corrections, and learned correction patterns.
package storage

import (
	"github.com/alienxp03/mealjury/internal/core"
)

// Storage defines the interface for mealjury persistence.
type Storage interface {
	// Initialize sets up the storage (creates tables, etc.)
	Initialize() error

	// Close closes the storage connection.
	Close() error

	// Estimate history operations
	SaveEstimate(record *core.EstimateRecord) error
	GetEstimate(id string) (*core.EstimateRecord, error)
	ListEstimates(limit, offset int) ([]*core.EstimateRecord, error)
	DeleteEstimate(id string) error

	// Correction operations
	SaveCorrection(correction *core.UserCorrection) error
	ListCorrections(userID string) ([]*core.UserCorrection, error)
	AllCorrections() ([]*core.UserCorrection, error)

	// Pattern operations
	UpsertPattern(pattern *core.CorrectionPattern) error
	ListPatterns() ([]*core.CorrectionPattern, error)
}
