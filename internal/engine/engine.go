package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/splitkit/splitkit/internal/stats"
	"github.com/splitkit/splitkit/internal/store"
)

// Engine orchestrates experiment assignment, conversion recording and
// results analysis on top of an injected store. It holds no mutable state
// of its own; every call is an independent request/response round trip to
// the store.
type Engine struct {
	store store.Store
	log   *zap.SugaredLogger
}

func New(s store.Store, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{store: s, log: log}
}

// CreateExperiment validates and persists a new experiment. Validation
// happens here, at creation time, so a bad definition never reaches live
// traffic: at least 2 variants, weights in [0,100] summing to exactly 100.
func (e *Engine) CreateExperiment(ctx context.Context, exp *store.Experiment) error {
	if exp.ID == "" {
		return fmt.Errorf("%w: experiment id is required", ErrInvalidDefinition)
	}
	if len(exp.Variants) < 2 {
		return fmt.Errorf("%w: need at least 2 variants, got %d", ErrInvalidDefinition, len(exp.Variants))
	}

	seen := make(map[string]bool, len(exp.Variants))
	total := 0
	for _, v := range exp.Variants {
		if v.ID == "" {
			return fmt.Errorf("%w: variant id is required", ErrInvalidDefinition)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate variant id %q", ErrInvalidDefinition, v.ID)
		}
		seen[v.ID] = true
		if v.Weight < 0 || v.Weight > 100 {
			return fmt.Errorf("%w: variant %q weight %d out of range [0,100]", ErrInvalidDefinition, v.ID, v.Weight)
		}
		total += v.Weight
	}
	if total != 100 {
		return fmt.Errorf("%w: variant weights sum to %d, want 100", ErrInvalidDefinition, total)
	}

	now := time.Now()
	if exp.Status == "" {
		exp.Status = store.StatusDraft
	}
	if exp.StartAt.IsZero() {
		exp.StartAt = now
	}
	exp.CreatedAt = now
	exp.UpdatedAt = now

	if err := e.store.CreateExperiment(ctx, exp); err != nil {
		return err
	}

	e.log.Infow("experiment created", "experiment_id", exp.ID, "variants", len(exp.Variants), "status", exp.Status)
	return nil
}

// UpdateStatus transitions an experiment's status. Completing an
// experiment stamps its end timestamp.
func (e *Engine) UpdateStatus(ctx context.Context, experimentID string, status store.ExperimentStatus) error {
	var endAt *time.Time
	if status == store.StatusCompleted {
		now := time.Now()
		endAt = &now
	}

	err := e.store.UpdateExperimentStatus(ctx, experimentID, status, endAt)
	if errors.Is(err, store.ErrNotFound) {
		return ErrExperimentNotFound
	}
	if err != nil {
		return err
	}

	e.log.Infow("experiment status updated", "experiment_id", experimentID, "status", status)
	return nil
}

// Assign returns the user's variant for an experiment, creating the
// assignment on first eligible call. The call is idempotent: an existing
// assignment is returned unchanged, so a user's variant never moves even
// if weights or targeting rules are edited later.
//
// Two first-time calls for the same user may race; both compute the same
// variant (bucketing is deterministic) and the duplicate write is a no-op
// at the store, so no locking is needed.
func (e *Engine) Assign(ctx context.Context, userID, experimentID string, userCtx map[string]any) (*store.Assignment, error) {
	existing, err := e.store.GetAssignment(ctx, experimentID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	exp, err := e.store.GetExperiment(ctx, experimentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExperimentNotFound
	}
	if err != nil {
		return nil, err
	}

	if exp.Status != store.StatusActive {
		return nil, ErrExperimentNotActive
	}

	if !Eligible(userCtx, exp.Targeting) {
		return nil, ErrTargetingRejected
	}

	variant := SelectVariant(userID, exp)

	assignment := &store.Assignment{
		ExperimentID: experimentID,
		UserID:       userID,
		VariantID:    variant.ID,
		AssignedAt:   time.Now(),
	}

	if err := e.store.PutAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	e.log.Debugw("user assigned",
		"experiment_id", experimentID,
		"user_id", userID,
		"variant_id", variant.ID,
		"bucket", Bucket(userID, experimentID),
	)

	return assignment, nil
}

// RecordConversion appends a conversion event for a user's existing
// assignment. The variant is copied from the assignment, never re-derived,
// so later experiment edits cannot misattribute past conversions.
func (e *Engine) RecordConversion(ctx context.Context, userID, experimentID, eventName string, value *float64) error {
	assignment, err := e.store.GetAssignment(ctx, experimentID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotAssigned
	}
	if err != nil {
		return err
	}

	event := &store.ConversionEvent{
		ID:           uuid.NewString(),
		ExperimentID: experimentID,
		UserID:       userID,
		VariantID:    assignment.VariantID,
		EventName:    eventName,
		Value:        value,
		CreatedAt:    time.Now(),
	}

	if err := e.store.AppendConversion(ctx, event); err != nil {
		return err
	}

	e.log.Debugw("conversion recorded",
		"experiment_id", experimentID,
		"user_id", userID,
		"variant_id", assignment.VariantID,
		"event", eventName,
	)

	return nil
}

// Results aggregates assignments and conversions for one experiment. It
// scans both collections in full, so treat it as a batch operation rather
// than a hot path. A missing experiment is the only hard failure; sparse
// data degrades to partial results.
func (e *Engine) Results(ctx context.Context, experimentID string) (*stats.ExperimentResults, error) {
	exp, err := e.store.GetExperiment(ctx, experimentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExperimentNotFound
	}
	if err != nil {
		return nil, err
	}

	assignments, err := e.store.ListAssignments(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	conversions, err := e.store.ListConversions(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	return stats.Analyze(exp, assignments, conversions), nil
}

// ActiveExperiments lists the experiments a user is assigned to that are
// currently active, with the user's assignment for each.
func (e *Engine) ActiveExperiments(ctx context.Context, userID string) ([]UserExperiment, error) {
	assignments, err := e.store.ListUserAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []UserExperiment
	for _, a := range assignments {
		exp, err := e.store.GetExperiment(ctx, a.ExperimentID)
		if errors.Is(err, store.ErrNotFound) {
			// Experiment deleted after assignment; skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		if exp.Status != store.StatusActive {
			continue
		}
		out = append(out, UserExperiment{Experiment: exp, Assignment: a})
	}

	return out, nil
}

// UserExperiment pairs an active experiment with a user's assignment in it.
type UserExperiment struct {
	Experiment *store.Experiment
	Assignment *store.Assignment
}

// DeleteExperiment removes an experiment and its assignments and
// conversions. Operator tooling only; nothing in the engine calls it.
func (e *Engine) DeleteExperiment(ctx context.Context, experimentID string) error {
	err := e.store.DeleteExperiment(ctx, experimentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrExperimentNotFound
	}
	return err
}
