// Package reasoner implements the LLM-facing side of the agent: analysis,
// intent classification, planning, and response writing, each as a small
// structured-output graph over an OpenRouter chat model.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	"github.com/signalscape/rf-intent-agent/agent/knowledge"
	llmx "github.com/signalscape/rf-intent-agent/agent/llm"
	promptx "github.com/signalscape/rf-intent-agent/agent/prompt"
)

type analyzerOutput struct {
	NeedsSchemaKnowledge   bool           `json:"needs_schema_knowledge"`
	NeedsSpectrumKnowledge bool           `json:"needs_spectrum_knowledge"`
	Entities               map[string]any `json:"entities,omitempty"`
}

type classifierOutput struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Entities   map[string]any `json:"entities,omitempty"`
}

type plannerOutput struct {
	NextAction string         `json:"next_action"`
	Tool       string         `json:"tool,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

type Registry struct {
	analyzer   compose.Runnable[map[string]any, analyzerOutput]
	classifier compose.Runnable[map[string]any, classifierOutput]
	planner    compose.Runnable[map[string]any, plannerOutput]
	summarizer compose.Runnable[map[string]any, *schema.Message]
	generic    compose.Runnable[map[string]any, *schema.Message]
}

var _ contractx.Reasoner = (*Registry)(nil)

// New builds one chat model per role and compiles the graphs up front so
// a bad configuration fails at startup, not mid-request.
func New(ctx context.Context, cfg llmx.Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	analyzerCfg := cfg.OpenRouterFor(llmx.RoleAnalyzer)
	analyzerModel, err := analyzerCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create analyzer model: %v", contractx.ErrModelInvoke, err)
	}
	classifierCfg := cfg.OpenRouterFor(llmx.RoleClassifier)
	classifierModel, err := classifierCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create classifier model: %v", contractx.ErrModelInvoke, err)
	}
	plannerCfg := cfg.OpenRouterFor(llmx.RolePlanner)
	plannerModel, err := plannerCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create planner model: %v", contractx.ErrModelInvoke, err)
	}
	responderCfg := cfg.OpenRouterFor(llmx.RoleResponder)
	responderModel, err := responderCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create responder model: %v", contractx.ErrModelInvoke, err)
	}

	analyzer, err := compileStructuredGraph[analyzerOutput](ctx, analyzerModel, prompts.Analyzer, "reasoner.analyzer_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	classifier, err := compileStructuredGraph[classifierOutput](ctx, classifierModel, prompts.Classifier, "reasoner.classifier_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	planner, err := compileStructuredGraph[plannerOutput](ctx, plannerModel, prompts.Planner, "reasoner.planner_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	summarizer, err := compileTextGraph(ctx, responderModel, prompts.Summarizer, "reasoner.summarizer_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	generic, err := compileTextGraph(ctx, responderModel, prompts.Generic, "reasoner.generic_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	return &Registry{
		analyzer:   analyzer,
		classifier: classifier,
		planner:    planner,
		summarizer: summarizer,
		generic:    generic,
	}, nil
}

func (r *Registry) Analyze(ctx context.Context, query string) (contractx.Analysis, error) {
	out, err := invokeStructured(ctx, r.analyzer, map[string]any{"query": query})
	if err != nil {
		return contractx.Analysis{}, err
	}
	return contractx.Analysis{
		Entities:               out.Entities,
		NeedsSchemaKnowledge:   out.NeedsSchemaKnowledge,
		NeedsSpectrumKnowledge: out.NeedsSpectrumKnowledge,
	}, nil
}

// Classify labels the query with one of the closed intents. Knowledge
// blocks the analysis asked for ride along in the payload; classification
// never fails on an unexpected label, it degrades to UNKNOWN.
func (r *Registry) Classify(ctx context.Context, query string, analysis contractx.Analysis) (contractx.IntentRecord, error) {
	payload := map[string]any{
		"query":    query,
		"entities": analysis.Entities,
	}
	if ref := knowledge.For(analysis.NeedsSchemaKnowledge, analysis.NeedsSpectrumKnowledge); ref != "" {
		payload["reference"] = ref
	}

	out, err := invokeStructured(ctx, r.classifier, payload)
	if err != nil {
		return contractx.IntentRecord{}, err
	}

	confidence := out.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	entities := out.Entities
	if entities == nil {
		entities = analysis.Entities
	}
	return contractx.IntentRecord{
		Intent:     contractx.ParseIntent(out.Intent),
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(out.Reasoning),
		Entities:   entities,
	}, nil
}

func (r *Registry) Plan(ctx context.Context, req contractx.PlanRequest) (contractx.PlanDecision, error) {
	out, err := invokeStructured(ctx, r.planner, req)
	if err != nil {
		return contractx.PlanDecision{}, err
	}

	action := contractx.PlanAction(strings.TrimSpace(out.NextAction))
	switch action {
	case contractx.ActionCallTool:
		if strings.TrimSpace(out.Tool) == "" {
			return contractx.PlanDecision{}, fmt.Errorf("%w: call_tool decision without a tool", contractx.ErrSchemaViolation)
		}
	case contractx.ActionRespond:
	default:
		return contractx.PlanDecision{}, fmt.Errorf("%w: unsupported next_action=%q", contractx.ErrSchemaViolation, out.NextAction)
	}

	return contractx.PlanDecision{
		Action:     action,
		Tool:       strings.TrimSpace(out.Tool),
		Parameters: out.Parameters,
		Reasoning:  strings.TrimSpace(out.Reasoning),
	}, nil
}

func (r *Registry) Summarize(ctx context.Context, req contractx.SummaryRequest) (string, error) {
	msg, err := invokeText(ctx, r.summarizer, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", fmt.Errorf("%w: responder returned empty content", contractx.ErrSchemaViolation)
	}
	return text, nil
}

func (r *Registry) Generic(ctx context.Context, query, reference string) (string, error) {
	payload := map[string]any{"query": query}
	if reference != "" {
		payload["reference"] = reference
	}
	msg, err := invokeText(ctx, r.generic, payload)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", fmt.Errorf("%w: generic answer is empty", contractx.ErrSchemaViolation)
	}
	return text, nil
}

func invokeStructured[T any](ctx context.Context, runner compose.Runnable[map[string]any, T], payload any) (T, error) {
	var zero T
	raw, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("%w: marshal payload: %v", contractx.ErrValidation, err)
	}
	out, err := runner.Invoke(ctx, map[string]any{"input": string(raw)})
	if err != nil {
		return zero, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return out, nil
}

func invokeText(ctx context.Context, runner compose.Runnable[map[string]any, *schema.Message], payload any) (*schema.Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", contractx.ErrValidation, err)
	}
	msg, err := runner.Invoke(ctx, map[string]any{"input": string(raw)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: model returned no message", contractx.ErrModelInvoke)
	}
	return msg, nil
}
