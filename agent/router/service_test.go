package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	enginex "github.com/signalscape/rf-intent-agent/agent/engine"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

// fakeReasoner drives both classification and the sub-workflow engines.
// Plan decisions are consumed per workflow kind so dispatch can be
// observed from the outside.
type fakeReasoner struct {
	analysis   contractx.Analysis
	analyzeErr error

	intent      contractx.Intent
	classifyErr error

	plans     map[contractx.WorkflowKind][]contractx.PlanDecision
	planCalls map[contractx.WorkflowKind]int

	summary    string
	genericOut string
	genericErr error
	genericRef string

	analyzeCalls  int
	classifyCalls int
}

func (f *fakeReasoner) Analyze(ctx context.Context, query string) (contractx.Analysis, error) {
	f.analyzeCalls++
	if f.analyzeErr != nil {
		return contractx.Analysis{}, f.analyzeErr
	}
	return f.analysis, nil
}

func (f *fakeReasoner) Classify(ctx context.Context, query string, analysis contractx.Analysis) (contractx.IntentRecord, error) {
	f.classifyCalls++
	if f.classifyErr != nil {
		return contractx.IntentRecord{}, f.classifyErr
	}
	return contractx.IntentRecord{Intent: f.intent, Confidence: 0.9}, nil
}

func (f *fakeReasoner) Plan(ctx context.Context, req contractx.PlanRequest) (contractx.PlanDecision, error) {
	if f.planCalls == nil {
		f.planCalls = make(map[contractx.WorkflowKind]int)
	}
	f.planCalls[req.Kind]++
	queue := f.plans[req.Kind]
	idx := f.planCalls[req.Kind] - 1
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	if idx < 0 {
		return contractx.PlanDecision{Action: contractx.ActionRespond}, nil
	}
	return queue[idx], nil
}

func (f *fakeReasoner) Summarize(ctx context.Context, req contractx.SummaryRequest) (string, error) {
	return f.summary, nil
}

func (f *fakeReasoner) Generic(ctx context.Context, query, reference string) (string, error) {
	f.genericRef = reference
	if f.genericErr != nil {
		return "", f.genericErr
	}
	return f.genericOut, nil
}

func newService(t *testing.T, reasoner *fakeReasoner) *Service {
	t.Helper()
	store := rulestore.NewMemoryStore()
	store.SeedDemoData()
	svc, err := New(reasoner, store, enginex.WithMaxIterations(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestHandleInfoQuery(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{
		intent: contractx.IntentInfo,
		plans: map[contractx.WorkflowKind][]contractx.PlanDecision{
			contractx.KindInfo: {
				{Action: contractx.ActionCallTool, Tool: "list_automation_rules"},
				{Action: contractx.ActionRespond},
			},
		},
		summary: "You have 3 automation rules.",
	}
	svc := newService(t, reasoner)

	reply, err := svc.Handle(context.Background(), "list my rules")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "You have 3 automation rules." {
		t.Errorf("reply = %q", reply)
	}
	if reasoner.planCalls[contractx.KindInfo] != 2 {
		t.Errorf("info planner called %d times, want 2", reasoner.planCalls[contractx.KindInfo])
	}
	for _, kind := range []contractx.WorkflowKind{contractx.KindCreate, contractx.KindUpdate} {
		if reasoner.planCalls[kind] != 0 {
			t.Errorf("%s planner called %d times, dispatch must be exclusive", kind, reasoner.planCalls[kind])
		}
	}
}

func TestHandleUpdateQuery(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{
		intent: contractx.IntentUpdate,
		plans: map[contractx.WorkflowKind][]contractx.PlanDecision{
			contractx.KindUpdate: {
				{Action: contractx.ActionCallTool, Tool: "activate_automation_rule", Parameters: map[string]any{"rule_id": "rule-003"}},
				{Action: contractx.ActionRespond},
			},
		},
		summary: "Rule rule-003 has been activated.",
	}
	svc := newService(t, reasoner)

	reply, err := svc.Handle(context.Background(), "enable rule-003")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "activated") {
		t.Errorf("reply = %q, want activation confirmation", reply)
	}
	if reasoner.planCalls[contractx.KindUpdate] != 2 {
		t.Errorf("update planner called %d times, want 2", reasoner.planCalls[contractx.KindUpdate])
	}
}

func TestHandleCreateQuery(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{
		intent: contractx.IntentCreate,
		plans: map[contractx.WorkflowKind][]contractx.PlanDecision{
			contractx.KindCreate: {
				{
					Action: contractx.ActionCallTool,
					Tool:   "create_rule_condition_action",
					Parameters: map[string]any{
						"name":                 "5G Watch",
						"description":          "watch for 5G and notify",
						"condition_type":       rulestore.ConditionSignalDetection,
						"condition_parameters": map[string]any{"signalType": "5G"},
						"action_type":          rulestore.ActionUserNotification,
						"action_parameters":    map[string]any{"message": "Signal found!"},
					},
				},
				{Action: contractx.ActionRespond},
			},
		},
		summary: "Created rule 5G Watch with one condition and one action.",
	}
	svc := newService(t, reasoner)

	reply, err := svc.Handle(context.Background(), "create a rule to detect 5G and notify 'Signal found!'")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "5G Watch") {
		t.Errorf("reply = %q", reply)
	}
}

func TestHandleGenericQuery(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{
		intent:     contractx.IntentGeneric,
		genericOut: "TDOA locates a signal by comparing arrival times across sensors.",
	}
	svc := newService(t, reasoner)

	reply, err := svc.Handle(context.Background(), "what is TDOA?")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != reasoner.genericOut {
		t.Errorf("reply = %q", reply)
	}
	if !strings.Contains(reasoner.genericRef, "TDOA") || !strings.Contains(reasoner.genericRef, "DATABASE SCHEMA") {
		t.Error("generic answerer did not receive the reference material")
	}
	if len(reasoner.planCalls) != 0 {
		t.Errorf("generic path must not touch any planner, got %v", reasoner.planCalls)
	}
}

func TestHandleUnknownIntent(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{intent: contractx.IntentUnknown}
	svc := newService(t, reasoner)

	reply, err := svc.Handle(context.Background(), "sing me a song")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != unknownResponse {
		t.Errorf("reply = %q, want the fixed unknown response", reply)
	}
}

func TestHandleClassifierFailureRoutesUnknown(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{classifyErr: errors.New("model down")}
	svc := newService(t, reasoner)

	reply, err := svc.Handle(context.Background(), "enable rule-001")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != unknownResponse {
		t.Errorf("reply = %q, classifier failure must route to unknown", reply)
	}
	if len(reasoner.planCalls) != 0 {
		t.Errorf("no workflow may run on classification failure, got %v", reasoner.planCalls)
	}
}

func TestHandleAnalyzerFailureProceeds(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{
		analyzeErr: errors.New("analyzer down"),
		intent:     contractx.IntentInfo,
		plans: map[contractx.WorkflowKind][]contractx.PlanDecision{
			contractx.KindInfo: {{Action: contractx.ActionRespond}},
		},
		summary: "Nothing to report.",
	}
	svc := newService(t, reasoner)

	reply, err := svc.Handle(context.Background(), "list my rules")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "Nothing to report." {
		t.Errorf("reply = %q, analysis failure must not block the request", reply)
	}
	if reasoner.classifyCalls != 1 {
		t.Errorf("classifyCalls = %d, want 1", reasoner.classifyCalls)
	}
}

func TestHandleEmptyQuery(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{intent: contractx.IntentInfo}
	svc := newService(t, reasoner)

	_, err := svc.Handle(context.Background(), "   ")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if reasoner.analyzeCalls != 0 {
		t.Error("empty query must be rejected before analysis")
	}
}
