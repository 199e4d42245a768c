package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	"github.com/signalscape/rf-intent-agent/agent/knowledge"
)

// unknownResponse is the fixed reply for queries outside the closed intent
// set. No model call is made on this path.
const unknownResponse = "I could not match your request to anything I can do. " +
	"I can create, update, and inspect RF automation rules, their conditions, " +
	"and their actions, or answer general questions about RF spectrum monitoring."

// genericFallback is the degraded reply when the generic answerer is
// unavailable.
const genericFallback = "I could not produce an answer right now. Please try again."

type routerState struct {
	Query    string
	Analysis contractx.Analysis
	Intent   contractx.IntentRecord
}

func validateQuery(query string) (*routerState, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: query is empty", contractx.ErrValidation)
	}
	return &routerState{Query: trimmed}, nil
}

// analyze is additive context and cannot fail the request: an analyzer
// error just leaves the analysis empty.
func (s *Service) analyze(ctx context.Context, st *routerState) *routerState {
	analysis, err := s.reasoner.Analyze(ctx, st.Query)
	if err != nil {
		log.Warn().Err(err).Msg("query analysis unavailable, proceeding without context")
		return st
	}
	st.Analysis = analysis
	return st
}

// classify labels the query. A classifier failure routes to UNKNOWN with a
// diagnostic instead of aborting.
func (s *Service) classify(ctx context.Context, st *routerState) *routerState {
	record, err := s.reasoner.Classify(ctx, st.Query, st.Analysis)
	if err != nil {
		log.Error().Err(err).Msg("intent classification failed, routing to unknown")
		st.Intent = contractx.IntentRecord{
			Intent:    contractx.IntentUnknown,
			Reasoning: fmt.Sprintf("classification unavailable: %v", err),
		}
		return st
	}
	st.Intent = record
	log.Info().
		Str("intent", string(record.Intent)).
		Float64("confidence", record.Confidence).
		Msg("query classified")
	return st
}

func (s *Service) runWorkflow(ctx context.Context, kind contractx.WorkflowKind, st *routerState) (string, error) {
	eng, ok := s.engines[kind]
	if !ok {
		return "", fmt.Errorf("no engine for %s workflow", kind)
	}
	final, err := eng.Run(ctx, st.Query, st.Intent)
	if err != nil {
		return "", err
	}
	return final.FinalResponse, nil
}

// answerGeneric serves GENERIC queries with the full reference material.
func (s *Service) answerGeneric(ctx context.Context, st *routerState) string {
	text, err := s.reasoner.Generic(ctx, st.Query, knowledge.For(true, true))
	if err != nil {
		log.Error().Err(err).Msg("generic answerer unavailable")
		return genericFallback
	}
	return text
}
