// Package engine drives one bounded planner loop: plan, execute, repeat,
// respond. The loop is a plain driver function over an explicit state
// struct; every pass advances the iteration counter exactly once and the
// cap is the sole backstop against a planner that never converges.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	statex "github.com/signalscape/rf-intent-agent/agent/state"
	toolx "github.com/signalscape/rf-intent-agent/agent/tool"
)

const DefaultMaxIterations = 5

// IncompleteMarker prefixes every degraded final response so callers can
// distinguish partial results without parsing prose.
const IncompleteMarker = "[incomplete]"

// degradedFallback is used when the responder itself is unavailable.
const degradedFallback = "The request could not be fully processed. Partial results, if any, are listed in the run log."

type Engine struct {
	kind     contractx.WorkflowKind
	registry *toolx.Registry
	reasoner contractx.Reasoner

	maxIterations int
	logger        zerolog.Logger
	now           func() time.Time
}

type Option func(*Engine)

func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(kind contractx.WorkflowKind, registry *toolx.Registry, reasoner contractx.Reasoner, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("engine %s: nil registry", kind)
	}
	if reasoner == nil {
		return nil, fmt.Errorf("engine %s: nil reasoner", kind)
	}
	e := &Engine{
		kind:          kind,
		registry:      registry,
		reasoner:      reasoner,
		maxIterations: DefaultMaxIterations,
		logger:        log.With().Str("workflow", string(kind)).Logger(),
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Run executes the loop to completion and returns the final state. The
// returned state always carries a final response unless the context was
// cancelled or the query was empty.
func (e *Engine) Run(ctx context.Context, query string, intent contractx.IntentRecord) (*statex.WorkflowState, error) {
	if query == "" {
		return nil, statex.ErrEmptyQuery
	}

	st := statex.New(query, e.kind, intent, e.maxIterations)
	st.AppendMessage(contractx.RoleUser, query)

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Warn().Int("iteration", st.IterationCount).Msg("run cancelled")
			return st, fmt.Errorf("%w: %v", contractx.ErrCancelled, err)
		}

		if st.Exhausted() {
			e.logger.Warn().Int("max_iterations", st.MaxIterations).Msg("iteration budget exhausted")
			e.respond(ctx, st, true, "iteration budget exhausted before the planner finished")
			return st, nil
		}

		iteration := st.BeginIteration()
		decision, err := e.reasoner.Plan(ctx, contractx.PlanRequest{
			Query:            st.Query,
			Kind:             st.Kind,
			Catalog:          e.registry.Catalog(),
			Messages:         st.Messages,
			ToolsCalled:      st.ToolsCalled,
			ValidationErrors: st.ValidationErrors,
			Iteration:        iteration,
			MaxIterations:    st.MaxIterations,
		})
		if err != nil {
			e.logger.Error().Err(err).Int("iteration", iteration).Msg("planner unavailable")
			e.respond(ctx, st, true, fmt.Sprintf("planner unavailable: %v", err))
			return st, nil
		}

		if decision.Action == contractx.ActionRespond {
			e.logger.Debug().Int("iteration", iteration).Msg("planner requested final response")
			e.respond(ctx, st, false, "")
			return st, nil
		}

		e.step(ctx, st, iteration, decision)
	}
}

// step executes one tool-call decision. Validation failures are recorded
// for the next planner pass; backend failures are recorded in the tool
// log. Neither aborts the run.
func (e *Engine) step(ctx context.Context, st *statex.WorkflowState, iteration int, decision contractx.PlanDecision) {
	params, err := e.registry.Validate(decision.Tool, decision.Parameters)
	if err != nil {
		e.logger.Debug().Err(err).Str("tool", decision.Tool).Int("iteration", iteration).Msg("plan rejected")
		st.AppendValidationError(err.Error())
		st.AppendMessage(contractx.RoleTool, fmt.Sprintf("rejected %s: %v", decision.Tool, err))
		return
	}

	if prior := st.TimesCalled(decision.Tool, params); prior > 0 {
		e.logger.Warn().Str("tool", decision.Tool).Int("prior_calls", prior).Msg("repeated identical tool call")
	}

	rec := contractx.ToolCallRecord{
		Tool:       decision.Tool,
		Parameters: params,
		CalledAt:   e.now().UTC(),
	}
	result, err := e.registry.Invoke(ctx, decision.Tool, params)
	if err != nil {
		rec.Error = err.Error()
		e.logger.Warn().Err(err).Str("tool", decision.Tool).Msg("tool call failed")
	} else {
		rec.Result = result
		st.SetEntity(e.registry.Role(decision.Tool), result)
	}
	st.RecordToolCall(rec)
	st.AppendMessage(contractx.RoleTool, toolTranscript(rec))
	e.logger.Info().
		Str("tool", decision.Tool).
		Bool("failed", rec.Failed()).
		Int("iteration", iteration).
		Msg("tool call executed")
}

// respond produces the final response exactly once. A responder failure
// degrades to a fixed fallback rather than surfacing an error.
func (e *Engine) respond(ctx context.Context, st *statex.WorkflowState, incomplete bool, note string) {
	req := contractx.SummaryRequest{
		Query:       st.Query,
		Kind:        st.Kind,
		ToolsCalled: st.ToolsCalled,
		Entities:    st.Entities,
		Incomplete:  incomplete,
	}
	if note != "" {
		req.Notes = append(req.Notes, note)
	}

	text, err := e.reasoner.Summarize(ctx, req)
	if err != nil || text == "" {
		e.logger.Error().Err(err).Msg("responder unavailable, using fallback")
		text = degradedFallback
		incomplete = true
	}
	if incomplete {
		text = IncompleteMarker + " " + text
	}
	if err := st.SetFinalResponse(text, !incomplete); err != nil {
		e.logger.Error().Err(err).Msg("final response already set")
		return
	}
	st.AppendMessage(contractx.RoleAssistant, text)
}

func toolTranscript(rec contractx.ToolCallRecord) string {
	if rec.Failed() {
		return fmt.Sprintf("%s failed: %s", rec.Tool, rec.Error)
	}
	raw, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Sprintf("%s returned an unserializable result", rec.Tool)
	}
	return fmt.Sprintf("%s returned: %s", rec.Tool, raw)
}
