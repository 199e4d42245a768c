package rulestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory behind one mutex.
// Independent requests may hit it concurrently.
type MemoryStore struct {
	mu         sync.Mutex
	rules      []Rule
	conditions map[string][]Condition // rule id -> conditions
	actions    map[string][]Action    // rule id -> actions

	now   func() time.Time
	newID func() string
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) MemoryOption {
	return func(s *MemoryStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		conditions: make(map[string][]Condition),
		actions:    make(map[string][]Action),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SeedDemoData loads the demo dataset: three rules, each with one
// condition and one action.
func (s *MemoryStore) SeedDemoData() {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	s.rules = []Rule{
		{ID: "rule-001", Name: "5G Monitor", Description: "Monitors 5G signals in mid-band", Enabled: true, CreatedAt: base, UpdatedAt: base},
		{ID: "rule-002", Name: "LTE Detector", Description: "Detects LTE signals", Enabled: true, CreatedAt: base.AddDate(0, 0, 5), UpdatedAt: base.AddDate(0, 0, 5)},
		{ID: "rule-003", Name: "Energy Threshold Alert", Description: "Alerts when energy exceeds threshold", Enabled: false, CreatedAt: base.AddDate(0, 0, 17), UpdatedAt: base.AddDate(0, 0, 17)},
	}
	s.conditions = map[string][]Condition{
		"rule-001": {{ID: "cond-001", RuleID: "rule-001", Type: ConditionSignalDetection, Parameters: map[string]any{"minFrequencyMHz": float64(3400), "maxFrequencyMHz": float64(3600), "signalType": "5G"}, CreatedAt: base, UpdatedAt: base}},
		"rule-002": {{ID: "cond-002", RuleID: "rule-002", Type: ConditionSignalDetection, Parameters: map[string]any{"minFrequencyMHz": float64(1800), "maxFrequencyMHz": float64(2100), "signalType": "LTE"}, CreatedAt: base, UpdatedAt: base}},
		"rule-003": {{ID: "cond-003", RuleID: "rule-003", Type: ConditionSpectralEnergy, Parameters: map[string]any{"minFrequencyMHz": float64(2400), "maxFrequencyMHz": float64(2500), "threshold_dBm": float64(-70)}, CreatedAt: base, UpdatedAt: base}},
	}
	s.actions = map[string][]Action{
		"rule-001": {{ID: "act-001", RuleID: "rule-001", Type: ActionUserNotification, Parameters: map[string]any{"message": "5G signal detected in mid-band"}, CreatedAt: base, UpdatedAt: base}},
		"rule-002": {{ID: "act-002", RuleID: "rule-002", Type: ActionFrequencyScan, Parameters: map[string]any{"sensorIds": []any{"sensor-01", "sensor-02"}}, CreatedAt: base, UpdatedAt: base}},
		"rule-003": {{ID: "act-003", RuleID: "rule-003", Type: ActionGeolocation, Parameters: map[string]any{"algorithm": "TDOA", "sensorIds": []any{"sensor-01", "sensor-02", "sensor-03"}}, CreatedAt: base, UpdatedAt: base}},
	}
}

func (s *MemoryStore) ListRules(ctx context.Context) ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *MemoryStore) GetRule(ctx context.Context, ruleID string) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.ruleIndex(ruleID)
	if idx < 0 {
		return Rule{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, ruleID)
	}
	return s.rules[idx], nil
}

func (s *MemoryStore) ListConditions(ctx context.Context, ruleID string) ([]Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Condition, len(s.conditions[ruleID]))
	copy(out, s.conditions[ruleID])
	return out, nil
}

func (s *MemoryStore) ListActions(ctx context.Context, ruleID string) ([]Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Action, len(s.actions[ruleID]))
	copy(out, s.actions[ruleID])
	return out, nil
}

func (s *MemoryStore) CreateRule(ctx context.Context, draft RuleDraft) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	rule := Rule{
		ID:            s.newID(),
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
	s.rules = append(s.rules, rule)
	return rule, nil
}

func (s *MemoryStore) CreateCondition(ctx context.Context, draft ConditionDraft) (Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ruleIndex(draft.RuleID) < 0 {
		return Condition{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, draft.RuleID)
	}
	now := s.now().UTC()
	cond := Condition{
		ID:          s.newID(),
		RuleID:      draft.RuleID,
		Type:        draft.Type,
		Parameters:  cloneParams(draft.Parameters),
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.conditions[draft.RuleID] = append(s.conditions[draft.RuleID], cond)
	return cond, nil
}

func (s *MemoryStore) CreateAction(ctx context.Context, draft ActionDraft) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ruleIndex(draft.RuleID) < 0 {
		return Action{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, draft.RuleID)
	}
	now := s.now().UTC()
	act := Action{
		ID:          s.newID(),
		RuleID:      draft.RuleID,
		Type:        draft.Type,
		Parameters:  cloneParams(draft.Parameters),
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.actions[draft.RuleID] = append(s.actions[draft.RuleID], act)
	return act, nil
}

func (s *MemoryStore) UpdateCondition(ctx context.Context, patch ConditionPatch) (Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ruleIndex(patch.RuleID) < 0 {
		return Condition{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, patch.RuleID)
	}
	conds := s.conditions[patch.RuleID]
	if len(conds) == 0 {
		return Condition{}, fmt.Errorf("%w: rule=%s has no conditions", ErrConditionNotFound, patch.RuleID)
	}

	idx := 0
	if patch.ConditionID != "" {
		idx = -1
		for i := range conds {
			if conds[i].ID == patch.ConditionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Condition{}, fmt.Errorf("%w: id=%s rule=%s", ErrConditionNotFound, patch.ConditionID, patch.RuleID)
		}
	}

	target := &conds[idx]
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
	target.UpdatedAt = s.now().UTC()
	return *target, nil
}

func (s *MemoryStore) UpdateAction(ctx context.Context, patch ActionPatch) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ruleIndex(patch.RuleID) < 0 {
		return Action{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, patch.RuleID)
	}
	acts := s.actions[patch.RuleID]
	if len(acts) == 0 {
		return Action{}, fmt.Errorf("%w: rule=%s has no actions", ErrActionNotFound, patch.RuleID)
	}

	idx := 0
	if patch.ActionID != "" {
		idx = -1
		for i := range acts {
			if acts[i].ID == patch.ActionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return Action{}, fmt.Errorf("%w: id=%s rule=%s", ErrActionNotFound, patch.ActionID, patch.RuleID)
		}
	}

	target := &acts[idx]
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
	target.UpdatedAt = s.now().UTC()
	return *target, nil
}

// ActivateRule enables a rule and resets the satisfaction state of its
// conditions so monitoring starts fresh.
func (s *MemoryStore) ActivateRule(ctx context.Context, ruleID string) (StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.ruleIndex(ruleID)
	if idx < 0 {
		return StatusChange{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, ruleID)
	}
	rule := &s.rules[idx]
	if rule.Enabled {
		return StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusAlreadyActive}, nil
	}

	now := s.now().UTC()
	rule.Enabled = true
	rule.UpdatedAt = now
	conds := s.conditions[ruleID]
	for i := range conds {
		conds[i].Satisfied = false
		conds[i].UpdatedAt = now
	}
	return StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusActivated}, nil
}

func (s *MemoryStore) DeactivateRule(ctx context.Context, ruleID string) (StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.ruleIndex(ruleID)
	if idx < 0 {
		return StatusChange{}, fmt.Errorf("%w: id=%s", ErrRuleNotFound, ruleID)
	}
	rule := &s.rules[idx]
	if !rule.Enabled {
		return StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusAlreadyInactive}, nil
	}

	rule.Enabled = false
	rule.UpdatedAt = s.now().UTC()
	return StatusChange{RuleID: ruleID, RuleName: rule.Name, Status: StatusDeactivated}, nil
}

func (s *MemoryStore) ruleIndex(ruleID string) int {
	for i := range s.rules {
		if s.rules[i].ID == ruleID {
			return i
		}
	}
	return -1
}

func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
