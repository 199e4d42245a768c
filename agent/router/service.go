// Package router dispatches each user query to exactly one handler: a
// bounded sub-workflow for CREATE, UPDATE, and INFO, a knowledge-grounded
// answer for GENERIC, or a fixed reply for UNKNOWN.
package router

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	enginex "github.com/signalscape/rf-intent-agent/agent/engine"
	toolx "github.com/signalscape/rf-intent-agent/agent/tool"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

type Service struct {
	reasoner contractx.Reasoner
	engines  map[contractx.WorkflowKind]*enginex.Engine

	graphRunner compose.Runnable[string, string]
}

// New builds the three sub-workflow engines over the given store and
// compiles the routing graph. Engine options apply to all three engines.
func New(reasoner contractx.Reasoner, store rulestore.Store, opts ...enginex.Option) (*Service, error) {
	if reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if store == nil {
		return nil, errors.New("rule store is required")
	}

	registries := map[contractx.WorkflowKind]*toolx.Registry{
		contractx.KindCreate: toolx.NewCreateRegistry(store),
		contractx.KindUpdate: toolx.NewUpdateRegistry(store),
		contractx.KindInfo:   toolx.NewInfoRegistry(store),
	}

	engines := make(map[contractx.WorkflowKind]*enginex.Engine, len(registries))
	for kind, registry := range registries {
		eng, err := enginex.New(kind, registry, reasoner, opts...)
		if err != nil {
			return nil, err
		}
		engines[kind] = eng
	}

	s := &Service{
		reasoner: reasoner,
		engines:  engines,
	}

	graphRunner, err := s.compileHandleQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// Handle routes one query through the pipeline and returns the final
// response text.
func (s *Service) Handle(ctx context.Context, query string) (string, error) {
	return s.graphRunner.Invoke(ctx, query)
}
