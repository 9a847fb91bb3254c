package store

import (
	"context"
	"time"
)

// Store defines the persistence boundary for the experiment engine.
// Any backend with point get/set, append-only insert and equality-filtered
// scans can satisfy it.
type Store interface {
	// Experiment operations
	CreateExperiment(ctx context.Context, exp *Experiment) error
	GetExperiment(ctx context.Context, id string) (*Experiment, error)
	ListExperiments(ctx context.Context) ([]*Experiment, error)
	UpdateExperimentStatus(ctx context.Context, id string, status ExperimentStatus, endAt *time.Time) error
	DeleteExperiment(ctx context.Context, id string) error

	// Assignment operations. PutAssignment must treat a duplicate write
	// for an existing (experimentID, userID) pair as a no-op.
	PutAssignment(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, experimentID, userID string) (*Assignment, error)
	ListAssignments(ctx context.Context, experimentID string) ([]*Assignment, error)
	ListUserAssignments(ctx context.Context, userID string) ([]*Assignment, error)

	// Conversion operations
	AppendConversion(ctx context.Context, ev *ConversionEvent) error
	ListConversions(ctx context.Context, experimentID string) ([]*ConversionEvent, error)

	// Lifecycle
	Close() error
}
