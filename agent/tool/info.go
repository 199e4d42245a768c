package tool

import (
	"context"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

// NewInfoRegistry builds the read-only tool set for the INFO workflow.
func NewInfoRegistry(store rulestore.Store) *Registry {
	r := newRegistry(contractx.KindInfo, store)
	r.register(listRulesSpec())

	r.register(Spec{
		Name: "get_automation_rule",
		Doc:  "Fetch one rule by its identifier.",
		Role: "rule",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.GetRule(ctx, stringParam(params, "rule_id"))
	})

	r.register(Spec{
		Name: "list_conditions_for_rule",
		Doc:  "List the trigger conditions attached to a rule.",
		Role: "conditions",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.ListConditions(ctx, stringParam(params, "rule_id"))
	})

	r.register(Spec{
		Name: "list_actions_for_rule",
		Doc:  "List the actions attached to a rule.",
		Role: "actions",
		Fields: []FieldSpec{
			{Name: "rule_id", Kind: FieldString, Required: true},
		},
	}, func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error) {
		return store.ListActions(ctx, stringParam(params, "rule_id"))
	})

	return r
}
