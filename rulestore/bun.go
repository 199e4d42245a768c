package rulestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// BunStore persists rules in Postgres through bun.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a Postgres connection from the given DSN.
func NewBunStore(dsn string) (*BunStore, error) {
	connector := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
	sqldb := sql.OpenDB(connector)
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &BunStore{db: db}, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) ListRules(ctx context.Context) ([]Rule, error) {
	var rules []Rule
	err := s.db.NewSelect().Model(&rules).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

func (s *BunStore) GetRule(ctx context.Context, ruleID string) (Rule, error) {
	var rule Rule
	err := s.db.NewSelect().Model(&rule).Where("r.id = ?", ruleID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Rule{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, ruleID)
	}
	if err != nil {
		return Rule{}, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}

func (s *BunStore) ListConditions(ctx context.Context, ruleID string) ([]Condition, error) {
	var conds []Condition
	err := s.db.NewSelect().Model(&conds).Where("c.rule_id = ?", ruleID).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	return conds, nil
}

func (s *BunStore) ListActions(ctx context.Context, ruleID string) ([]Action, error) {
	var acts []Action
	err := s.db.NewSelect().Model(&acts).Where("a.rule_id = ?", ruleID).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return acts, nil
}

func (s *BunStore) CreateRule(ctx context.Context, draft RuleDraft) (Rule, error) {
	now := time.Now().UTC()
	rule := Rule{
		ID:            uuid.NewString(),
		Name:          draft.Name,
		Description:   draft.Description,
		Enabled:       draft.Enabled,
		MaxExecutions: draft.MaxExecutions,
		StartTime:     draft.StartTime,
		EndTime:       draft.EndTime,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if draft.MaxExecutions != nil {
		remaining := *draft.MaxExecutions
		rule.ExecutionsRemaining = &remaining
	}
	if _, err := s.db.NewInsert().Model(&rule).Exec(ctx); err != nil {
		return Rule{}, fmt.Errorf("insert rule: %w", err)
	}
	return rule, nil
}

func (s *BunStore) CreateCondition(ctx context.Context, draft ConditionDraft) (Condition, error) {
	if _, err := s.GetRule(ctx, draft.RuleID); err != nil {
		return Condition{}, err
	}
	now := time.Now().UTC()
	cond := Condition{
		ID:          uuid.NewString(),
		RuleID:      draft.RuleID,
		Type:        draft.Type,
		Parameters:  draft.Parameters,
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.db.NewInsert().Model(&cond).Exec(ctx); err != nil {
		return Condition{}, fmt.Errorf("insert condition: %w", err)
	}
	return cond, nil
}

func (s *BunStore) CreateAction(ctx context.Context, draft ActionDraft) (Action, error) {
	if _, err := s.GetRule(ctx, draft.RuleID); err != nil {
		return Action{}, err
	}
	now := time.Now().UTC()
	act := Action{
		ID:          uuid.NewString(),
		RuleID:      draft.RuleID,
		Type:        draft.Type,
		Parameters:  draft.Parameters,
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.db.NewInsert().Model(&act).Exec(ctx); err != nil {
		return Action{}, fmt.Errorf("insert action: %w", err)
	}
	return act, nil
}

func (s *BunStore) UpdateCondition(ctx context.Context, patch ConditionPatch) (Condition, error) {
	var out Condition
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		conds, err := s.conditionsInTx(ctx, tx, patch.RuleID)
		if err != nil {
			return err
		}
		if len(conds) == 0 {
			return fmt.Errorf("%w: rule=%s has no conditions", ErrConditionNotFound, patch.RuleID)
		}
		target, err := pickCondition(conds, patch.ConditionID, patch.RuleID)
		if err != nil {
			return err
		}
		if patch.Type != "" {
			target.Type = patch.Type
		}
		if len(patch.Parameters) > 0 {
			if target.Parameters == nil {
				target.Parameters = make(map[string]any, len(patch.Parameters))
			}
			for k, v := range patch.Parameters {
				target.Parameters[k] = v
			}
		}
		if patch.Description != "" {
			target.Description = patch.Description
		}
		target.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(target).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update condition: %w", err)
		}
		out = *target
		return nil
	})
	if err != nil {
		return Condition{}, err
	}
	return out, nil
}

func (s *BunStore) UpdateAction(ctx context.Context, patch ActionPatch) (Action, error) {
	var out Action
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var acts []Action
		if err := tx.NewSelect().Model(&acts).Where("a.rule_id = ?", patch.RuleID).Order("created_at ASC").Scan(ctx); err != nil {
			return fmt.Errorf("list actions: %w", err)
		}
		if len(acts) == 0 {
			return fmt.Errorf("%w: rule=%s has no actions", ErrActionNotFound, patch.RuleID)
		}
		target := &acts[0]
		if patch.ActionID != "" {
			target = nil
			for i := range acts {
				if acts[i].ID == patch.ActionID {
					target = &acts[i]
					break
				}
			}
			if target == nil {
				return fmt.Errorf("%w: id=%s rule=%s", ErrActionNotFound, patch.ActionID, patch.RuleID)
			}
		}
		if patch.Type != "" {
			target.Type = patch.Type
		}
		if len(patch.Parameters) > 0 {
			if target.Parameters == nil {
				target.Parameters = make(map[string]any, len(patch.Parameters))
			}
			for k, v := range patch.Parameters {
				target.Parameters[k] = v
			}
		}
		if patch.Description != "" {
			target.Description = patch.Description
		}
		target.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(target).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update action: %w", err)
		}
		out = *target
		return nil
	})
	if err != nil {
		return Action{}, err
	}
	return out, nil
}

// ActivateRule flips the rule on and clears condition satisfaction in one
// transaction.
func (s *BunStore) ActivateRule(ctx context.Context, ruleID string) (StatusChange, error) {
	var change StatusChange
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rule Rule
		err := tx.NewSelect().Model(&rule).Where("r.id = ?", ruleID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id=%s", ErrRuleNotFound, ruleID)
		}
		if err != nil {
			return fmt.Errorf("get rule: %w", err)
		}
		if rule.Enabled {
			change = StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusAlreadyActive}
			return nil
		}

		now := time.Now().UTC()
		rule.Enabled = true
		rule.UpdatedAt = now
		if _, err := tx.NewUpdate().Model(&rule).Column("enabled", "updated_at").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update rule: %w", err)
		}
		_, err = tx.NewUpdate().Model((*Condition)(nil)).
			Set("satisfied = FALSE").
			Set("updated_at = ?", now).
			Where("rule_id = ?", ruleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("reset conditions: %w", err)
		}
		change = StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusActivated}
		return nil
	})
	if err != nil {
		return StatusChange{}, err
	}
	return change, nil
}

func (s *BunStore) DeactivateRule(ctx context.Context, ruleID string) (StatusChange, error) {
	var change StatusChange
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rule Rule
		err := tx.NewSelect().Model(&rule).Where("r.id = ?", ruleID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id=%s", ErrRuleNotFound, ruleID)
		}
		if err != nil {
			return fmt.Errorf("get rule: %w", err)
		}
		if !rule.Enabled {
			change = StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusAlreadyInactive}
			return nil
		}

		rule.Enabled = false
		rule.UpdatedAt = time.Now().UTC()
		if _, err := tx.NewUpdate().Model(&rule).Column("enabled", "updated_at").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update rule: %w", err)
		}
		change = StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusDeactivated}
		return nil
	})
	if err != nil {
		return StatusChange{}, err
	}
	return change, nil
}

func (s *BunStore) conditionsInTx(ctx context.Context, tx bun.Tx, ruleID string) ([]Condition, error) {
	var conds []Condition
	if err := tx.NewSelect().Model(&conds).Where("c.rule_id = ?", ruleID).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	return conds, nil
}

func pickCondition(conds []Condition, conditionID, ruleID string) (*Condition, error) {
	if conditionID == "" {
		return &conds[0], nil
	}
	for i := range conds {
		if conds[i].ID == conditionID {
			return &conds[i], nil
		}
	}
	return nil, fmt.Errorf("%w: id=%s rule=%s", ErrConditionNotFound, conditionID, ruleID)
}

var _ Store = (*BunStore)(nil)
