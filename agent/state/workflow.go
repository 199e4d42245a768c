package state

import (
	"encoding/json"
	"errors"
	"fmt"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
)

var (
	ErrFinalResponseSet = errors.New("final response already set")
	ErrEmptyQuery       = errors.New("query is empty")
)

// WorkflowState is the mutable bag of fields for one in-flight sub-workflow
// run. Merge rules:
//   - Messages, ToolsCalled, ValidationErrors: append-only, never reordered.
//   - Entities: overwrite per role key.
//   - FinalResponse: write-once.
//
// A state is mutated only by its engine's nodes in strict turn order and
// discarded once the final response is read; it is never shared between
// goroutines.
type WorkflowState struct {
	Query  string                 `json:"query"`
	Kind   contractx.WorkflowKind `json:"kind"`
	Intent contractx.IntentRecord `json:"original_intent_state"`

	Messages []contractx.Message `json:"messages,omitempty"`

	IterationCount int `json:"iteration_count"`
	MaxIterations  int `json:"max_iterations"`

	ToolsCalled []contractx.ToolCallRecord `json:"tools_called,omitempty"`
	Entities    map[string]any             `json:"entities,omitempty"`

	ValidationErrors []string `json:"validation_errors,omitempty"`

	Completed     bool   `json:"completed"`
	FinalResponse string `json:"final_response,omitempty"`

	finalSet bool
}

func New(query string, kind contractx.WorkflowKind, intent contractx.IntentRecord, maxIterations int) *WorkflowState {
	if maxIterations <= 0 {
		maxIterations = 1
	}
	return &WorkflowState{
		Query:         query,
		Kind:          kind,
		Intent:        intent,
		MaxIterations: maxIterations,
		Entities:      make(map[string]any, 4),
	}
}

// Exhausted reports whether the iteration budget is spent. Checked at
// PLANNING entry, before the counter is advanced.
func (s *WorkflowState) Exhausted() bool {
	return s.IterationCount >= s.MaxIterations
}

// BeginIteration advances the counter by exactly one and returns the new
// value. Validation-error retries count the same as tool-call passes.
func (s *WorkflowState) BeginIteration() int {
	s.IterationCount++
	return s.IterationCount
}

func (s *WorkflowState) AppendMessage(role contractx.MessageRole, content string) {
	s.Messages = append(s.Messages, contractx.Message{Role: role, Content: content})
}

func (s *WorkflowState) AppendValidationError(msg string) {
	if msg == "" {
		return
	}
	s.ValidationErrors = append(s.ValidationErrors, msg)
}

func (s *WorkflowState) RecordToolCall(rec contractx.ToolCallRecord) {
	s.ToolsCalled = append(s.ToolsCalled, rec)
}

// SetEntity overwrites the accumulator entry for a role with the most
// recent structured result.
func (s *WorkflowState) SetEntity(role string, value any) {
	if role == "" {
		return
	}
	if s.Entities == nil {
		s.Entities = make(map[string]any, 4)
	}
	s.Entities[role] = value
}

// TimesCalled counts prior log entries with the same tool and the same
// parameter fingerprint. Repeated identical calls are legal; callers log
// them and rely on the iteration cap as backstop.
func (s *WorkflowState) TimesCalled(tool string, params map[string]any) int {
	want := fingerprint(tool, params)
	n := 0
	for _, rec := range s.ToolsCalled {
		if fingerprint(rec.Tool, rec.Parameters) == want {
			n++
		}
	}
	return n
}

// SetFinalResponse is write-once; a second call is a programming error.
func (s *WorkflowState) SetFinalResponse(text string, completed bool) error {
	if s.finalSet {
		return ErrFinalResponseSet
	}
	s.finalSet = true
	s.FinalResponse = text
	s.Completed = completed
	return nil
}

func fingerprint(tool string, params map[string]any) string {
	// encoding/json sorts map keys, so equal maps yield equal bytes.
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", params))
	}
	return tool + "|" + string(raw)
}
