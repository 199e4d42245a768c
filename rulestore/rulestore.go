// Package rulestore persists RF automation rules, their trigger conditions,
// and their actions. Two implementations share the Store contract: a seeded
// in-memory store and a bun-backed Postgres store.
package rulestore

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrRuleNotFound      = errors.New("automation rule not found")
	ErrConditionNotFound = errors.New("condition not found")
	ErrActionNotFound    = errors.New("action not found")
	ErrConstraint        = errors.New("constraint violation")
)

const (
	ConditionSignalDetection = "signalDetection"
	ConditionSpectralEnergy  = "spectralEnergy"

	ActionFrequencyScan    = "frequencyScanRequest"
	ActionGeolocation      = "geolocationRequest"
	ActionUserNotification = "userNotification"
)

type Rule struct {
	bun.BaseModel `bun:"table:automation_rules,alias:r" json:"-"`

	ID                  string     `bun:"id,pk" json:"id"`
	Name                string     `bun:"name,notnull" json:"name"`
	Description         string     `bun:"description" json:"description,omitempty"`
	Enabled             bool       `bun:"enabled,notnull" json:"isEnabled"`
	MaxExecutions       *int       `bun:"max_executions" json:"maxExecutions,omitempty"`
	ExecutionsRemaining *int       `bun:"executions_remaining" json:"executionsRemaining,omitempty"`
	StartTime           *time.Time `bun:"start_time" json:"startTime,omitempty"`
	EndTime             *time.Time `bun:"end_time" json:"endTime,omitempty"`
	CreatedAt           time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

type Condition struct {
	bun.BaseModel `bun:"table:rule_conditions,alias:c" json:"-"`

	ID          string         `bun:"id,pk" json:"id"`
	RuleID      string         `bun:"rule_id,notnull" json:"rule_id"`
	Type        string         `bun:"condition_type,notnull" json:"conditionType"`
	Parameters  map[string]any `bun:"parameters,type:jsonb" json:"parameters"`
	Description string         `bun:"description" json:"description,omitempty"`
	Satisfied   bool           `bun:"satisfied,notnull" json:"isSatisfied"`
	CreatedAt   time.Time      `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time      `bun:"updated_at,notnull" json:"updatedAt"`
}

type Action struct {
	bun.BaseModel `bun:"table:rule_actions,alias:a" json:"-"`

	ID          string         `bun:"id,pk" json:"id"`
	RuleID      string         `bun:"rule_id,notnull" json:"rule_id"`
	Type        string         `bun:"action_type,notnull" json:"actionType"`
	Parameters  map[string]any `bun:"parameters,type:jsonb" json:"parameters"`
	Description string         `bun:"description" json:"description,omitempty"`
	CreatedAt   time.Time      `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time      `bun:"updated_at,notnull" json:"updatedAt"`
}

// RuleDraft carries validated input for rule creation; the store assigns
// the identifier and timestamps.
type RuleDraft struct {
	Name          string
	Description   string
	Enabled       bool
	MaxExecutions *int
	StartTime     *time.Time
	EndTime       *time.Time
}

type ConditionDraft struct {
	RuleID      string
	Type        string
	Parameters  map[string]any
	Description string
}

type ActionDraft struct {
	RuleID      string
	Type        string
	Parameters  map[string]any
	Description string
}

// ConditionPatch updates an existing condition. ConditionID empty targets
// the rule's first condition. Parameters merge key-by-key; Type and
// Description replace when non-empty.
type ConditionPatch struct {
	RuleID      string
	ConditionID string
	Type        string
	Parameters  map[string]any
	Description string
}

type ActionPatch struct {
	RuleID      string
	ActionID    string
	Type        string
	Parameters  map[string]any
	Description string
}

// StatusChange reports the outcome of activate/deactivate. Status is one
// of "activated", "already_active", "deactivated", "already_inactive".
type StatusChange struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Status   string `json:"status"`
}

const (
	StatusActivated       = "activated"
	StatusAlreadyActive   = "already_active"
	StatusDeactivated     = "deactivated"
	StatusAlreadyInactive = "already_inactive"
)

// Store is the persistence contract the tool registries invoke against.
type Store interface {
	ListRules(ctx context.Context) ([]Rule, error)
	GetRule(ctx context.Context, ruleID string) (Rule, error)
	ListConditions(ctx context.Context, ruleID string) ([]Condition, error)
	ListActions(ctx context.Context, ruleID string) ([]Action, error)

	CreateRule(ctx context.Context, draft RuleDraft) (Rule, error)
	CreateCondition(ctx context.Context, draft ConditionDraft) (Condition, error)
	CreateAction(ctx context.Context, draft ActionDraft) (Action, error)

	UpdateCondition(ctx context.Context, patch ConditionPatch) (Condition, error)
	UpdateAction(ctx context.Context, patch ActionPatch) (Action, error)

	ActivateRule(ctx context.Context, ruleID string) (StatusChange, error)
	DeactivateRule(ctx context.Context, ruleID string) (StatusChange, error)
}
