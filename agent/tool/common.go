package tool

import (
	"context"
	"time"

	"github.com/signalscape/rf-intent-agent/rulestore"
)

// listRulesSpec is shared by every registry: each workflow may start by
// looking at what exists.
func listRulesSpec() (Spec, Invoker) {
	spec := Spec{
		Name: "list_automation_rules",
		Doc:  "List every automation rule with its current status.",
		Role: "rules",
	}
	invoke := func(ctx context.Context, store rulestore.Store, _ map[string]any) (any, error) {
		return store.ListRules(ctx)
	}
	return spec, invoke
}

// ruleFields are the parameters common to every rule-creating tool.
func ruleFields() []FieldSpec {
	return []FieldSpec{
		{Name: "name", Kind: FieldString, Required: true, Doc: "descriptive rule name"},
		{Name: "description", Kind: FieldString, Required: true, Doc: "what the rule does and why"},
		{Name: "is_enabled", Kind: FieldBool, Default: false, Doc: "activate immediately (default false)"},
		{Name: "max_executions", Kind: FieldInt, Min: bound(1), Doc: "optional trigger limit"},
		{Name: "start_time", Kind: FieldString, Doc: "RFC 3339 start of the active window"},
		{Name: "end_time", Kind: FieldString, Doc: "RFC 3339 end of the active window"},
	}
}

func ruleDraftFromParams(params map[string]any) rulestore.RuleDraft {
	draft := rulestore.RuleDraft{
		Name:        stringParam(params, "name"),
		Description: stringParam(params, "description"),
	}
	if enabled, ok := params["is_enabled"].(bool); ok {
		draft.Enabled = enabled
	}
	if max, ok := params["max_executions"].(float64); ok {
		n := int(max)
		draft.MaxExecutions = &n
	}
	// Timestamps were parsed during validation; errors cannot occur here.
	if raw := stringParam(params, "start_time"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			draft.StartTime = &t
		}
	}
	if raw := stringParam(params, "end_time"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			draft.EndTime = &t
		}
	}
	return draft
}
