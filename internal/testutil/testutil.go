package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/splitkit/splitkit/internal/store"
)

// SetupTestStore creates a temp-dir SQLite store that is closed and
// removed when the test completes.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := t.TempDir() + "/test.db"

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// SeedExperiment writes an active 50/50 control/treatment experiment with
// the given id directly to the store, bypassing engine validation.
func SeedExperiment(t *testing.T, s *store.SQLiteStore, id string) *store.Experiment {
	t.Helper()

	now := time.Now()
	exp := &store.Experiment{
		ID:     id,
		Name:   id,
		Status: store.StatusActive,
		Variants: []store.Variant{
			{ID: "control", Name: "Control", Weight: 50},
			{ID: "treatment", Name: "Treatment", Weight: 50},
		},
		StartAt:   now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.CreateExperiment(context.Background(), exp); err != nil {
		t.Fatalf("failed to seed experiment: %v", err)
	}

	return exp
}
