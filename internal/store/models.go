package store

import "time"

type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "draft"
	StatusActive    ExperimentStatus = "active"
	StatusPaused    ExperimentStatus = "paused"
	StatusCompleted ExperimentStatus = "completed"
)

// Well-known targeting rule types. The rule type doubles as the key
// looked up in the user context, so custom keys work as well.
const (
	RuleLanguage     = "language"
	RuleSubscription = "subscription"
	RuleCountry      = "country"
	RuleCustom       = "custom"
)

// Targeting rule operators.
const (
	OpEquals    = "equals"
	OpNotEquals = "not_equals"
	OpIn        = "in"
	OpNotIn     = "not_in"
)

type Experiment struct {
	ID        string
	Name      string
	Variants  []Variant // order is frozen configuration once active
	Status    ExperimentStatus
	Targeting []TargetingRule
	StartAt   time.Time
	EndAt     *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Variant is one treatment arm of an experiment. Weights across an
// experiment's variants sum to exactly 100.
type Variant struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Weight int            `json:"weight"`
	Config map[string]any `json:"config,omitempty"`
}

// TargetingRule gates experiment eligibility. Value is a scalar for
// equals/not_equals and a list for in/not_in.
type TargetingRule struct {
	Type     string `json:"type"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Assignment records which variant a user was placed into. At most one
// exists per (ExperimentID, UserID); once written it is never changed.
type Assignment struct {
	ExperimentID string
	UserID       string
	VariantID    string
	AssignedAt   time.Time
}

// ConversionEvent is an append-only outcome record. VariantID is copied
// from the user's assignment at record time, never re-derived.
type ConversionEvent struct {
	ID           string
	ExperimentID string
	UserID       string
	VariantID    string
	EventName    string
	Value        *float64
	CreatedAt    time.Time
}
