package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	toolx "github.com/signalscape/rf-intent-agent/agent/tool"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

// scriptedReasoner returns queued plan decisions in order, then keeps
// repeating the last one.
type scriptedReasoner struct {
	plans      []contractx.PlanDecision
	planErr    error
	planCalls  int
	summary    string
	summaryErr error
	requests   []contractx.SummaryRequest
}

func (r *scriptedReasoner) Analyze(ctx context.Context, query string) (contractx.Analysis, error) {
	return contractx.Analysis{}, nil
}

func (r *scriptedReasoner) Classify(ctx context.Context, query string, analysis contractx.Analysis) (contractx.IntentRecord, error) {
	return contractx.IntentRecord{Intent: contractx.IntentInfo}, nil
}

func (r *scriptedReasoner) Plan(ctx context.Context, req contractx.PlanRequest) (contractx.PlanDecision, error) {
	r.planCalls++
	if r.planErr != nil {
		return contractx.PlanDecision{}, r.planErr
	}
	idx := r.planCalls - 1
	if idx >= len(r.plans) {
		idx = len(r.plans) - 1
	}
	return r.plans[idx], nil
}

func (r *scriptedReasoner) Summarize(ctx context.Context, req contractx.SummaryRequest) (string, error) {
	r.requests = append(r.requests, req)
	if r.summaryErr != nil {
		return "", r.summaryErr
	}
	return r.summary, nil
}

func (r *scriptedReasoner) Generic(ctx context.Context, query, knowledge string) (string, error) {
	return "generic", nil
}

func infoRegistry() *toolx.Registry {
	store := rulestore.NewMemoryStore()
	store.SeedDemoData()
	return toolx.NewInfoRegistry(store)
}

func infoIntent() contractx.IntentRecord {
	return contractx.IntentRecord{Intent: contractx.IntentInfo, Confidence: 0.9}
}

func TestRunSingleToolPass(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		plans: []contractx.PlanDecision{
			{Action: contractx.ActionCallTool, Tool: "list_automation_rules"},
			{Action: contractx.ActionRespond},
		},
		summary: "You have 3 automation rules.",
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := eng.Run(context.Background(), "list my rules", infoIntent())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(st.ToolsCalled) != 1 {
		t.Fatalf("tools_called length = %d, want 1", len(st.ToolsCalled))
	}
	if st.ToolsCalled[0].Failed() {
		t.Errorf("tool call failed: %s", st.ToolsCalled[0].Error)
	}
	if !st.Completed {
		t.Error("run not marked complete")
	}
	if st.FinalResponse != "You have 3 automation rules." {
		t.Errorf("FinalResponse = %q", st.FinalResponse)
	}
	if _, ok := st.Entities["rules"]; !ok {
		t.Error("result not stored under the rules accumulator key")
	}
}

func TestRunTerminatesAtIterationCap(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		plans: []contractx.PlanDecision{
			{Action: contractx.ActionCallTool, Tool: "list_automation_rules"},
		},
		summary: "partial results",
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner, WithMaxIterations(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := eng.Run(context.Background(), "loop forever", infoIntent())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.IterationCount != 3 {
		t.Errorf("IterationCount = %d, want 3", st.IterationCount)
	}
	if reasoner.planCalls != 3 {
		t.Errorf("planner called %d times, want 3", reasoner.planCalls)
	}
	if st.Completed {
		t.Error("exhausted run must not be marked complete")
	}
	if !strings.HasPrefix(st.FinalResponse, IncompleteMarker) {
		t.Errorf("FinalResponse %q lacks the incomplete marker", st.FinalResponse)
	}
	if len(reasoner.requests) != 1 || !reasoner.requests[0].Incomplete {
		t.Error("responder not told the run was incomplete")
	}
}

func TestRunUnknownToolNeverReachesStore(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		plans: []contractx.PlanDecision{
			{Action: contractx.ActionCallTool, Tool: "drop_all_rules"},
		},
		summary: "could not find a suitable tool",
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner, WithMaxIterations(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := eng.Run(context.Background(), "do something odd", infoIntent())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(st.ToolsCalled) != 0 {
		t.Errorf("tools_called length = %d, want 0", len(st.ToolsCalled))
	}
	if len(st.ValidationErrors) != 3 {
		t.Errorf("ValidationErrors = %v, want one per iteration", st.ValidationErrors)
	}
	if !strings.HasPrefix(st.FinalResponse, IncompleteMarker) {
		t.Errorf("FinalResponse %q lacks the incomplete marker", st.FinalResponse)
	}
}

func TestRunSelfCorrectsAfterValidationError(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		plans: []contractx.PlanDecision{
			{Action: contractx.ActionCallTool, Tool: "get_automation_rule", Parameters: map[string]any{}},
			{Action: contractx.ActionCallTool, Tool: "get_automation_rule", Parameters: map[string]any{"rule_id": "rule-001"}},
			{Action: contractx.ActionRespond},
		},
		summary: "Rule rule-001 is the 5G Monitor.",
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := eng.Run(context.Background(), "show rule-001", infoIntent())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(st.ValidationErrors) != 1 {
		t.Fatalf("ValidationErrors = %v, want one entry", st.ValidationErrors)
	}
	if len(st.ToolsCalled) != 1 {
		t.Errorf("tools_called length = %d, want 1 (rejected plan must not reach the store)", len(st.ToolsCalled))
	}
	if st.IterationCount != 3 {
		t.Errorf("IterationCount = %d, want 3 (retry consumed an iteration)", st.IterationCount)
	}
	if !st.Completed {
		t.Error("run should complete after self-correction")
	}
}

func TestRunPlannerFailureDegrades(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		planErr: fmt.Errorf("%w: upstream timeout", contractx.ErrModelInvoke),
		summary: "could not plan",
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := eng.Run(context.Background(), "anything", infoIntent())
	if err != nil {
		t.Fatalf("Run must not surface planner errors, got %v", err)
	}
	if !strings.HasPrefix(st.FinalResponse, IncompleteMarker) {
		t.Errorf("FinalResponse %q lacks the incomplete marker", st.FinalResponse)
	}
	if st.Completed {
		t.Error("degraded run must not be marked complete")
	}
}

func TestRunResponderFailureUsesFallback(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		plans:      []contractx.PlanDecision{{Action: contractx.ActionRespond}},
		summaryErr: errors.New("responder down"),
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := eng.Run(context.Background(), "anything", infoIntent())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(st.FinalResponse, degradedFallback) {
		t.Errorf("FinalResponse = %q, want the fixed fallback", st.FinalResponse)
	}
	if !strings.HasPrefix(st.FinalResponse, IncompleteMarker) {
		t.Error("fallback response must carry the incomplete marker")
	}
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		plans:   []contractx.PlanDecision{{Action: contractx.ActionCallTool, Tool: "list_automation_rules"}},
		summary: "unused",
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := eng.Run(ctx, "anything", infoIntent())
	if !errors.Is(err, contractx.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if st.FinalResponse != "" {
		t.Errorf("cancelled run produced a final response: %q", st.FinalResponse)
	}
	if reasoner.planCalls != 0 {
		t.Errorf("planner called %d times after cancellation, want 0", reasoner.planCalls)
	}
}

func TestRunRecordsBackendFailure(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{
		plans: []contractx.PlanDecision{
			{Action: contractx.ActionCallTool, Tool: "get_automation_rule", Parameters: map[string]any{"rule_id": "rule-999"}},
			{Action: contractx.ActionRespond},
		},
		summary: "No rule with that identifier exists.",
	}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := eng.Run(context.Background(), "show rule-999", infoIntent())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(st.ToolsCalled) != 1 || !st.ToolsCalled[0].Failed() {
		t.Fatalf("expected one failed tool record, got %+v", st.ToolsCalled)
	}
	if _, ok := st.Entities["rule"]; ok {
		t.Error("failed call must not populate the accumulator")
	}
	if !st.Completed {
		t.Error("backend failure is data, the run still completes on respond")
	}
}

func TestRunEmptyQuery(t *testing.T) {
	t.Parallel()

	reasoner := &scriptedReasoner{plans: []contractx.PlanDecision{{Action: contractx.ActionRespond}}, summary: "x"}
	eng, err := New(contractx.KindInfo, infoRegistry(), reasoner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := eng.Run(context.Background(), "", infoIntent()); err == nil {
		t.Fatal("expected an error for an empty query")
	}
}
