package contract

import (
	"strings"
	"time"
)

// Intent is the closed set of request categories the router dispatches on.
type Intent string

const (
	IntentCreate  Intent = "CREATE"
	IntentUpdate  Intent = "UPDATE"
	IntentInfo    Intent = "INFO"
	IntentGeneric Intent = "GENERIC"
	IntentUnknown Intent = "UNKNOWN"
)

// ParseIntent normalizes a classifier label. Anything outside the closed
// set maps to IntentUnknown.
func ParseIntent(label string) Intent {
	switch Intent(strings.ToUpper(strings.TrimSpace(label))) {
	case IntentCreate:
		return IntentCreate
	case IntentUpdate:
		return IntentUpdate
	case IntentInfo:
		return IntentInfo
	case IntentGeneric:
		return IntentGeneric
	default:
		return IntentUnknown
	}
}

// WorkflowKind identifies which bounded sub-workflow an engine drives.
type WorkflowKind string

const (
	KindCreate WorkflowKind = "create"
	KindUpdate WorkflowKind = "update"
	KindInfo   WorkflowKind = "info"
)

// IntentRecord is produced once per request by the classification step and
// read-only thereafter. Confidence is advisory; routing uses the label only.
type IntentRecord struct {
	Intent     Intent         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Entities   map[string]any `json:"entities,omitempty"`
}

// Analysis is the output of the initial-analysis step. It is purely
// additive context for classification and planning.
type Analysis struct {
	Entities               map[string]any `json:"entities,omitempty"`
	NeedsSchemaKnowledge   bool           `json:"needs_schema_knowledge,omitempty"`
	NeedsSpectrumKnowledge bool           `json:"needs_spectrum_knowledge,omitempty"`
}

type PlanAction string

const (
	ActionCallTool PlanAction = "call_tool"
	ActionRespond  PlanAction = "respond"
)

// PlanDecision is one planner turn: either a tool selection or a request
// to produce the final response.
type PlanDecision struct {
	Action     PlanAction     `json:"next_action"`
	Tool       string         `json:"tool,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// ToolCallRecord is one entry in the append-only tool log. Backend
// failures land in Error; they are data, not control flow.
type ToolCallRecord struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	CalledAt   time.Time      `json:"called_at"`
}

func (r ToolCallRecord) Failed() bool {
	return r.Error != ""
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one turn record in a workflow's append-only transcript.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// PlanRequest carries everything a planner turn may look at.
type PlanRequest struct {
	Query            string           `json:"query"`
	Kind             WorkflowKind     `json:"kind"`
	Catalog          string           `json:"catalog"`
	Messages         []Message        `json:"messages,omitempty"`
	ToolsCalled      []ToolCallRecord `json:"tools_called,omitempty"`
	ValidationErrors []string         `json:"validation_errors,omitempty"`
	Iteration        int              `json:"iteration"`
	MaxIterations    int              `json:"max_iterations"`
}

// SummaryRequest carries the accumulated results for the responder turn.
// Incomplete marks degraded termination (iteration budget exhausted or
// planner unavailable).
type SummaryRequest struct {
	Query       string           `json:"query"`
	Kind        WorkflowKind     `json:"kind"`
	ToolsCalled []ToolCallRecord `json:"tools_called,omitempty"`
	Entities    map[string]any   `json:"entities,omitempty"`
	Incomplete  bool             `json:"incomplete,omitempty"`
	Notes       []string         `json:"notes,omitempty"`
}
