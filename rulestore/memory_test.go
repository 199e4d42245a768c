package rulestore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestStore() *MemoryStore {
	n := 0
	return NewMemoryStore(
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
	)
}

func TestMemoryStoreSeedDemoData(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	rules, err := store.ListRules(context.Background())
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	if rules[0].Name != "5G Monitor" {
		t.Errorf("rules[0].Name = %q, want %q", rules[0].Name, "5G Monitor")
	}
	if rules[2].Enabled {
		t.Error("rule-003 should start disabled")
	}

	conds, err := store.ListConditions(context.Background(), "rule-001")
	if err != nil {
		t.Fatalf("ListConditions: %v", err)
	}
	if len(conds) != 1 || conds[0].Type != ConditionSignalDetection {
		t.Errorf("rule-001 conditions = %+v, want one signalDetection", conds)
	}
}

func TestMemoryStoreCreateRule(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	max := 10
	rule, err := store.CreateRule(context.Background(), RuleDraft{
		Name:          "QPSK Watch",
		Description:   "Watch for QPSK bursts",
		MaxExecutions: &max,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if rule.ID == "" {
		t.Error("rule ID not assigned")
	}
	if rule.ExecutionsRemaining == nil || *rule.ExecutionsRemaining != 10 {
		t.Errorf("ExecutionsRemaining = %v, want 10", rule.ExecutionsRemaining)
	}

	got, err := store.GetRule(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if got.Name != "QPSK Watch" {
		t.Errorf("Name = %q, want %q", got.Name, "QPSK Watch")
	}
}

func TestMemoryStoreCreateConditionUnknownRule(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	_, err := store.CreateCondition(context.Background(), ConditionDraft{
		RuleID: "missing",
		Type:   ConditionSignalDetection,
	})
	if !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("err = %v, want ErrRuleNotFound", err)
	}
}

func TestMemoryStoreUpdateConditionMergesParameters(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	cond, err := store.UpdateCondition(context.Background(), ConditionPatch{
		RuleID:     "rule-001",
		Parameters: map[string]any{"maxFrequencyMHz": float64(3700)},
	})
	if err != nil {
		t.Fatalf("UpdateCondition: %v", err)
	}
	if cond.Parameters["maxFrequencyMHz"] != float64(3700) {
		t.Errorf("maxFrequencyMHz = %v, want 3700", cond.Parameters["maxFrequencyMHz"])
	}
	if cond.Parameters["minFrequencyMHz"] != float64(3400) {
		t.Errorf("minFrequencyMHz = %v, want the original 3400 preserved", cond.Parameters["minFrequencyMHz"])
	}
	if cond.Parameters["signalType"] != "5G" {
		t.Errorf("signalType = %v, want the original 5G preserved", cond.Parameters["signalType"])
	}
}

func TestMemoryStoreUpdateConditionTargetsFirstWhenIDEmpty(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	cond, err := store.UpdateCondition(context.Background(), ConditionPatch{
		RuleID: "rule-002",
		Type:   ConditionSpectralEnergy,
	})
	if err != nil {
		t.Fatalf("UpdateCondition: %v", err)
	}
	if cond.ID != "cond-002" {
		t.Errorf("targeted %q, want the first condition cond-002", cond.ID)
	}
	if cond.Type != ConditionSpectralEnergy {
		t.Errorf("Type = %q, want %q", cond.Type, ConditionSpectralEnergy)
	}
}

func TestMemoryStoreUpdateActionUnknownID(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	_, err := store.UpdateAction(context.Background(), ActionPatch{
		RuleID:   "rule-001",
		ActionID: "act-999",
		Type:     ActionGeolocation,
	})
	if !errors.Is(err, ErrActionNotFound) {
		t.Fatalf("err = %v, want ErrActionNotFound", err)
	}
}

func TestMemoryStoreActivateResetsConditions(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	// Start from a deactivated rule with a stale satisfied flag.
	if _, err := store.DeactivateRule(context.Background(), "rule-001"); err != nil {
		t.Fatalf("DeactivateRule: %v", err)
	}
	store.mu.Lock()
	store.conditions["rule-001"][0].Satisfied = true
	store.mu.Unlock()

	change, err := store.ActivateRule(context.Background(), "rule-001")
	if err != nil {
		t.Fatalf("ActivateRule: %v", err)
	}
	if change.Status != StatusActivated {
		t.Errorf("Status = %q, want %q", change.Status, StatusActivated)
	}

	conds, _ := store.ListConditions(context.Background(), "rule-001")
	if conds[0].Satisfied {
		t.Error("Satisfied flag not reset on activation")
	}
}

func TestMemoryStoreActivateAlreadyActive(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	change, err := store.ActivateRule(context.Background(), "rule-001")
	if err != nil {
		t.Fatalf("ActivateRule: %v", err)
	}
	if change.Status != StatusAlreadyActive {
		t.Errorf("Status = %q, want %q", change.Status, StatusAlreadyActive)
	}
}

func TestMemoryStoreDeactivateAlreadyInactive(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	change, err := store.DeactivateRule(context.Background(), "rule-003")
	if err != nil {
		t.Fatalf("DeactivateRule: %v", err)
	}
	if change.Status != StatusAlreadyInactive {
		t.Errorf("Status = %q, want %q", change.Status, StatusAlreadyInactive)
	}
}

func TestMemoryStoreListCopiesAreIsolated(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	store.SeedDemoData()

	rules, _ := store.ListRules(context.Background())
	rules[0].Name = "mutated"

	again, _ := store.ListRules(context.Background())
	if again[0].Name != "5G Monitor" {
		t.Error("ListRules returned a shared slice")
	}
}
