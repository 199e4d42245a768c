package tool

import (
	"context"
	"fmt"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

// RuleConditionResult is the payload of the combined rule+condition tools.
type RuleConditionResult struct {
	Rule      rulestore.Rule      `json:"rule"`
	Condition rulestore.Condition `json:"condition"`
}

type RuleActionResult struct {
	Rule   rulestore.Rule   `json:"rule"`
	Action rulestore.Action `json:"action"`
}

type RuleConditionActionResult struct {
	Rule      rulestore.Rule      `json:"rule"`
	Condition rulestore.Condition `json:"condition"`
	Action    rulestore.Action    `json:"action"`
}

// NewCreateRegistry builds the tool set for the CREATE workflow. Combined
// tools let a single planner pass build a complete rule; the standalone
// condition and action tools attach pieces to an existing rule.
func NewCreateRegistry(store rulestore.Store) *Registry {
	r := newRegistry(contractx.KindCreate, store)
	r.register(listRulesSpec())

	r.register(Spec{
		Name:   "create_automation_rule",
		Doc:    "Create a new automation rule without conditions or actions.",
		Role:   "rule",
		Fields: ruleFields(),
		Check:  checkTimeWindow,
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.CreateRule(ctx, ruleDraftFromParams(params))
	})

	r.register(Spec{
		Name: "create_condition",
		Doc:  "Attach a trigger condition to an existing rule.",
		Role: "condition",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
			{Name: "condition_type", Kind: FieldString, Required: true, Enum: conditionTypes},
			{Name: "parameters", Kind: FieldObject, Required: true},
			{Name: "description", Kind: FieldString},
		},
		Check: func(params map[string]any) error {
			return checkConditionParams(stringParam(params, "condition_type"), objectParam(params, "parameters"))
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.CreateCondition(ctx, rulestore.ConditionDraft{
			RuleID:      stringParam(params, "rule_id"),
			Type:        stringParam(params, "condition_type"),
			Parameters:  objectParam(params, "parameters"),
			Description: stringParam(params, "description"),
		})
	})

	r.register(Spec{
		Name: "create_action",
		Doc:  "Attach an action to an existing rule, executed when all conditions hold.",
		Role: "action",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
			{Name: "action_type", Kind: FieldString, Required: true, Enum: actionTypes},
			{Name: "parameters", Kind: FieldObject, Required: true},
			{Name: "description", Kind: FieldString},
		},
		Check: func(params map[string]any) error {
			return checkActionParams(stringParam(params, "action_type"), objectParam(params, "parameters"))
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.CreateAction(ctx, rulestore.ActionDraft{
			RuleID:      stringParam(params, "rule_id"),
			Type:        stringParam(params, "action_type"),
			Parameters:  objectParam(params, "parameters"),
			Description: stringParam(params, "description"),
		})
	})

	r.register(Spec{
		Name: "create_rule_condition",
		Doc:  "Create a rule and its trigger condition in one operation.",
		Role: "rule",
		Fields: append(ruleFields(),
			FieldSpec{Name: "condition_type", Kind: FieldString, Required: true, Enum: conditionTypes},
			FieldSpec{Name: "condition_parameters", Kind: FieldObject, Required: true},
			FieldSpec{Name: "condition_description", Kind: FieldString},
		),
		Check: func(params map[string]any) error {
			if err := checkTimeWindow(params); err != nil {
				return err
			}
			return checkConditionParams(stringParam(params, "condition_type"), objectParam(params, "condition_parameters"))
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		rule, err := store.CreateRule(ctx, ruleDraftFromParams(params))
		if err != nil {
			return nil, err
		}
		cond, err := store.CreateCondition(ctx, rulestore.ConditionDraft{
			RuleID:      rule.ID,
			Type:        stringParam(params, "condition_type"),
			Parameters:  objectParam(params, "condition_parameters"),
			Description: stringParam(params, "condition_description"),
		})
		if err != nil {
			return nil, fmt.Errorf("rule %s created but condition failed: %w", rule.ID, err)
		}
		return RuleConditionResult{Rule: rule, Condition: cond}, nil
	})

	r.register(Spec{
		Name: "create_rule_action",
		Doc:  "Create a rule and its action in one operation.",
		Role: "rule",
		Fields: append(ruleFields(),
			FieldSpec{Name: "action_type", Kind: FieldString, Required: true, Enum: actionTypes},
			FieldSpec{Name: "action_parameters", Kind: FieldObject, Required: true},
			FieldSpec{Name: "action_description", Kind: FieldString},
		),
		Check: func(params map[string]any) error {
			if err := checkTimeWindow(params); err != nil {
				return err
			}
			return checkActionParams(stringParam(params, "action_type"), objectParam(params, "action_parameters"))
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		rule, err := store.CreateRule(ctx, ruleDraftFromParams(params))
		if err != nil {
			return nil, err
		}
		act, err := store.CreateAction(ctx, rulestore.ActionDraft{
			RuleID:      rule.ID,
			Type:        stringParam(params, "action_type"),
			Parameters:  objectParam(params, "action_parameters"),
			Description: stringParam(params, "action_description"),
		})
		if err != nil {
			return nil, fmt.Errorf("rule %s created but action failed: %w", rule.ID, err)
		}
		return RuleActionResult{Rule: rule, Action: act}, nil
	})

	r.register(Spec{
		Name: "create_rule_condition_action",
		Doc:  "Create a complete rule with both a condition and an action in one operation.",
		Role: "rule",
		Fields: append(ruleFields(),
			FieldSpec{Name: "condition_type", Kind: FieldString, Required: true, Enum: conditionTypes},
			FieldSpec{Name: "condition_parameters", Kind: FieldObject, Required: true},
			FieldSpec{Name: "condition_description", Kind: FieldString},
			FieldSpec{Name: "action_type", Kind: FieldString, Required: true, Enum: actionTypes},
			FieldSpec{Name: "action_parameters", Kind: FieldObject, Required: true},
			FieldSpec{Name: "action_description", Kind: FieldString},
		),
		Check: func(params map[string]any) error {
			if err := checkTimeWindow(params); err != nil {
				return err
			}
			if err := checkConditionParams(stringParam(params, "condition_type"), objectParam(params, "condition_parameters")); err != nil {
				return err
			}
			return checkActionParams(stringParam(params, "action_type"), objectParam(params, "action_parameters"))
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		rule, err := store.CreateRule(ctx, ruleDraftFromParams(params))
		if err != nil {
			return nil, err
		}
		cond, err := store.CreateCondition(ctx, rulestore.ConditionDraft{
			RuleID:      rule.ID,
			Type:        stringParam(params, "condition_type"),
			Parameters:  objectParam(params, "condition_parameters"),
			Description: stringParam(params, "condition_description"),
		})
		if err != nil {
			return nil, fmt.Errorf("rule %s created but condition failed: %w", rule.ID, err)
		}
		act, err := store.CreateAction(ctx, rulestore.ActionDraft{
			RuleID:      rule.ID,
			Type:        stringParam(params, "action_type"),
			Parameters:  objectParam(params, "action_parameters"),
			Description: stringParam(params, "action_description"),
		})
		if err != nil {
			return nil, fmt.Errorf("rule %s created but action failed: %w", rule.ID, err)
		}
		return RuleConditionActionResult{Rule: rule, Condition: cond, Action: act}, nil
	})

	return r
}
