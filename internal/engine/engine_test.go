package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitkit/splitkit/internal/engine"
	"github.com/splitkit/splitkit/internal/store"
	"github.com/splitkit/splitkit/internal/testutil"
)

func newTestEngine(t *testing.T) (*engine.Engine, *store.SQLiteStore) {
	t.Helper()
	s := testutil.SetupTestStore(t)
	return engine.New(s, nil), s
}

func TestCreateExperiment_Validation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		variants []store.Variant
	}{
		{
			name:     "fewer than 2 variants",
			variants: []store.Variant{{ID: "only", Weight: 100}},
		},
		{
			name: "weights sum below 100",
			variants: []store.Variant{
				{ID: "a", Weight: 50},
				{ID: "b", Weight: 40},
			},
		},
		{
			name: "weights sum above 100",
			variants: []store.Variant{
				{ID: "a", Weight: 60},
				{ID: "b", Weight: 60},
			},
		},
		{
			name: "negative weight",
			variants: []store.Variant{
				{ID: "a", Weight: -10},
				{ID: "b", Weight: 110},
			},
		},
		{
			name: "duplicate variant id",
			variants: []store.Variant{
				{ID: "a", Weight: 50},
				{ID: "a", Weight: 50},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := e.CreateExperiment(ctx, &store.Experiment{ID: "bad-exp", Name: "bad", Variants: tc.variants})
			assert.ErrorIs(t, err, engine.ErrInvalidDefinition)
		})
	}
}

func TestCreateExperiment_Valid(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	exp := &store.Experiment{
		ID:   "exp-checkout",
		Name: "Checkout CTA",
		Variants: []store.Variant{
			{ID: "control", Name: "Control", Weight: 50},
			{ID: "treatment", Name: "Treatment", Weight: 50, Config: map[string]any{"cta": "Buy now"}},
		},
		Targeting: []store.TargetingRule{
			{Type: store.RuleCountry, Operator: store.OpIn, Value: []any{"US", "CA"}},
		},
	}
	require.NoError(t, e.CreateExperiment(ctx, exp))

	got, err := s.GetExperiment(ctx, "exp-checkout")
	require.NoError(t, err)
	assert.Equal(t, store.StatusDraft, got.Status)
	assert.Len(t, got.Variants, 2)
	assert.Equal(t, "Buy now", got.Variants[1].Config["cta"])
	assert.Len(t, got.Targeting, 1)
	assert.False(t, got.StartAt.IsZero())
}

func TestAssign_NotFound(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Assign(context.Background(), "user-1", "missing", nil)
	assert.ErrorIs(t, err, engine.ErrExperimentNotFound)
}

func TestAssign_NotActive(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	exp := testutil.SeedExperiment(t, s, "exp-paused")
	require.NoError(t, e.UpdateStatus(ctx, exp.ID, store.StatusPaused))

	_, err := e.Assign(ctx, "user-1", exp.ID, nil)
	assert.ErrorIs(t, err, engine.ErrExperimentNotActive)
}

func TestAssign_TargetingRejected(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	now := time.Now()
	exp := &store.Experiment{
		ID:     "exp-targeted",
		Name:   "targeted",
		Status: store.StatusActive,
		Variants: []store.Variant{
			{ID: "control", Weight: 50},
			{ID: "treatment", Weight: 50},
		},
		Targeting: []store.TargetingRule{
			{Type: store.RuleCountry, Operator: store.OpEquals, Value: "US"},
		},
		StartAt: now, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateExperiment(ctx, exp))

	_, err := e.Assign(ctx, "user-1", exp.ID, map[string]any{"country": "DE"})
	assert.ErrorIs(t, err, engine.ErrTargetingRejected)

	a, err := e.Assign(ctx, "user-1", exp.ID, map[string]any{"country": "US"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", a.UserID)
}

func TestAssign_DeterministicVariant(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")

	// user-1 buckets to 24 -> control (cumulative 50 > 24).
	a, err := e.Assign(ctx, "user-1", "exp-checkout", nil)
	require.NoError(t, err)
	assert.Equal(t, "control", a.VariantID)

	// alice buckets to 99 -> treatment (cumulative 100 > 99).
	a, err = e.Assign(ctx, "alice", "exp-checkout", nil)
	require.NoError(t, err)
	assert.Equal(t, "treatment", a.VariantID)
}

func TestAssign_IdempotentAcrossWeightEdits(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")

	first, err := e.Assign(ctx, "user-1", "exp-checkout", nil)
	require.NoError(t, err)
	assert.Equal(t, "control", first.VariantID)

	// Rewrite the weight table underneath the engine: all traffic to
	// treatment. Existing assignments must not move.
	_, err = s.DB().Exec(
		`UPDATE experiments SET variants = ? WHERE id = ?`,
		`[{"id":"control","name":"Control","weight":0},{"id":"treatment","name":"Treatment","weight":100}]`,
		"exp-checkout",
	)
	require.NoError(t, err)

	second, err := e.Assign(ctx, "user-1", "exp-checkout", nil)
	require.NoError(t, err)
	assert.Equal(t, first.VariantID, second.VariantID)
	assert.Equal(t, first.AssignedAt.Unix(), second.AssignedAt.Unix())

	// A fresh user sees the new weights.
	fresh, err := e.Assign(ctx, "user-2", "exp-checkout", nil)
	require.NoError(t, err)
	assert.Equal(t, "treatment", fresh.VariantID)
}

func TestAssign_DuplicateWriteIsNoOp(t *testing.T) {
	_, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")

	// Two racing first-time calls write identical content; the second
	// insert must be swallowed, not fail.
	a := &store.Assignment{
		ExperimentID: "exp-checkout",
		UserID:       "user-1",
		VariantID:    "control",
		AssignedAt:   time.Now(),
	}
	require.NoError(t, s.PutAssignment(ctx, a))
	require.NoError(t, s.PutAssignment(ctx, a))

	assignments, err := s.ListAssignments(ctx, "exp-checkout")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

func TestRecordConversion_RequiresAssignment(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")

	err := e.RecordConversion(ctx, "user-1", "exp-checkout", "purchase", nil)
	assert.ErrorIs(t, err, engine.ErrNotAssigned)
}

func TestRecordConversion_CopiesVariantFromAssignment(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")

	a, err := e.Assign(ctx, "user-1", "exp-checkout", nil)
	require.NoError(t, err)

	value := 29.99
	require.NoError(t, e.RecordConversion(ctx, "user-1", "exp-checkout", "purchase", &value))
	require.NoError(t, e.RecordConversion(ctx, "user-1", "exp-checkout", "purchase", nil))

	events, err := s.ListConversions(ctx, "exp-checkout")
	require.NoError(t, err)
	require.Len(t, events, 2)

	for _, ev := range events {
		assert.Equal(t, a.VariantID, ev.VariantID)
		assert.Equal(t, "purchase", ev.EventName)
		assert.NotEmpty(t, ev.ID)
	}
	assert.NotNil(t, events[0].Value)
	assert.InDelta(t, 29.99, *events[0].Value, 1e-9)
	assert.Nil(t, events[1].Value)
}

func TestResults_NotFound(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Results(context.Background(), "missing")
	assert.ErrorIs(t, err, engine.ErrExperimentNotFound)
}

func TestResults_EndToEnd(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")

	a, err := e.Assign(ctx, "user-1", "exp-checkout", nil)
	require.NoError(t, err)
	require.NoError(t, e.RecordConversion(ctx, "user-1", "exp-checkout", "purchase", nil))

	results, err := e.Results(ctx, "exp-checkout")
	require.NoError(t, err)
	require.Len(t, results.Variants, 2)

	var converted, other int
	for i, m := range results.Variants {
		if m.VariantID == a.VariantID {
			converted = i
		} else {
			other = i
		}
	}

	assert.Equal(t, 1, results.Variants[converted].TotalUsers)
	assert.Equal(t, 1, results.Variants[converted].Conversions)
	assert.Equal(t, 0, results.Variants[other].TotalUsers)
	assert.Empty(t, results.Winner, "one lone user must not produce a winner")
}

func TestActiveExperiments(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")
	testutil.SeedExperiment(t, s, "exp-pricing")

	_, err := e.Assign(ctx, "alice", "exp-checkout", nil)
	require.NoError(t, err)
	_, err = e.Assign(ctx, "alice", "exp-pricing", nil)
	require.NoError(t, err)

	require.NoError(t, e.UpdateStatus(ctx, "exp-pricing", store.StatusCompleted))

	entries, err := e.ActiveExperiments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "exp-checkout", entries[0].Experiment.ID)
	assert.Equal(t, "alice", entries[0].Assignment.UserID)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.UpdateStatus(context.Background(), "missing", store.StatusActive)
	assert.ErrorIs(t, err, engine.ErrExperimentNotFound)
}

func TestUpdateStatus_CompletedStampsEnd(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	testutil.SeedExperiment(t, s, "exp-checkout")
	require.NoError(t, e.UpdateStatus(ctx, "exp-checkout", store.StatusCompleted))

	got, err := s.GetExperiment(ctx, "exp-checkout")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	require.NotNil(t, got.EndAt)
}
