package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

// NewUpdateRegistry builds the tool set for the UPDATE workflow: lifecycle
// switches plus partial edits of conditions and actions.
func NewUpdateRegistry(store rulestore.Store) *Registry {
	r := newRegistry(contractx.KindUpdate, store)
	r.register(listRulesSpec())

	r.register(Spec{
		Name: "activate_automation_rule",
		Doc:  "Enable a rule so it starts monitoring. Condition satisfaction states are reset.",
		Role: "rule_status",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.ActivateRule(ctx, stringParam(params, "rule_id"))
	})

	r.register(Spec{
		Name: "deactivate_automation_rule",
		Doc:  "Disable a rule without deleting it. Configuration is preserved for later reactivation.",
		Role: "rule_status",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.DeactivateRule(ctx, stringParam(params, "rule_id"))
	})

	r.register(Spec{
		Name: "update_condition",
		Doc:  "Partially update a rule's condition. Without condition_id the first condition is edited.",
		Role: "condition",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
			{Name: "condition_id", Kind: FieldString},
			{Name: "condition_type", Kind: FieldString, Enum: conditionTypes},
			{Name: "parameters", Kind: FieldObject},
			{Name: "description", Kind: FieldString},
		},
		Check: func(params map[string]any) error {
			return checkConditionPatch(objectParam(params, "parameters"))
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.UpdateCondition(ctx, rulestore.ConditionPatch{
			RuleID:      stringParam(params, "rule_id"),
			ConditionID: stringParam(params, "condition_id"),
			Type:        stringParam(params, "condition_type"),
			Parameters:  objectParam(params, "parameters"),
			Description: stringParam(params, "description"),
		})
	})

	r.register(Spec{
		Name: "update_action",
		Doc:  "Partially update a rule's action. Without action_id the first action is edited.",
		Role: "action",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
			{Name: "action_id", Kind: FieldString},
			{Name: "action_type", Kind: FieldString, Enum: actionTypes},
			{Name: "parameters", Kind: FieldObject},
			{Name: "description", Kind: FieldString},
		},
		Check: func(params map[string]any) error {
			return checkActionPatch(objectParam(params, "parameters"))
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.UpdateAction(ctx, rulestore.ActionPatch{
			RuleID:      stringParam(params, "rule_id"),
			ActionID:    stringParam(params, "action_id"),
			Type:        stringParam(params, "action_type"),
			Parameters:  objectParam(params, "parameters"),
			Description: stringParam(params, "description"),
		})
	})

	return r
}

// checkConditionPatch bounds-checks whichever condition parameters the
// patch carries. Partial updates are allowed, so nothing is required.
func checkConditionPatch(params map[string]any) error {
	if params == nil {
		return nil
	}
	for _, key := range []string{"minFrequencyMHz", "maxFrequencyMHz"} {
		if _, ok := params[key]; !ok {
			continue
		}
		freq, err := numberParam(params, key)
		if err != nil {
			return err
		}
		if freq < MinFrequencyMHz || freq > MaxFrequencyMHz {
			return fmt.Errorf("%w: %s must be between %d and %d", contractx.ErrValidation, key, MinFrequencyMHz, MaxFrequencyMHz)
		}
	}
	if _, ok := params["signalType"]; ok {
		sig, _ := params["signalType"].(string)
		if !contains(SignalTypes, sig) {
			return fmt.Errorf("%w: signalType must be one of %v", contractx.ErrValidation, SignalTypes)
		}
	}
	if _, ok := params["threshold_dBm"]; ok {
		threshold, err := numberParam(params, "threshold_dBm")
		if err != nil {
			return err
		}
		if threshold < MinThresholdDBm || threshold > MaxThresholdDBm {
			return fmt.Errorf("%w: threshold_dBm must be between %d and %d", contractx.ErrValidation, MinThresholdDBm, MaxThresholdDBm)
		}
	}
	return nil
}

func checkActionPatch(params map[string]any) error {
	if params == nil {
		return nil
	}
	if _, ok := params["message"]; ok {
		msg, _ := params["message"].(string)
		if strings.TrimSpace(msg) == "" {
			return fmt.Errorf("%w: notification message cannot be empty", contractx.ErrValidation)
		}
	}
	if _, ok := params["sensorIds"]; ok {
		if err := sensorList(params, 1); err != nil {
			return err
		}
	}
	if _, ok := params["algorithm"]; ok {
		algo, _ := params["algorithm"].(string)
		if !contains(Algorithms, algo) {
			return fmt.Errorf("%w: algorithm must be one of %v", contractx.ErrValidation, Algorithms)
		}
	}
	return nil
}
