package router

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
)

// compileHandleQueryGraph wires the intent pipeline: validate, analyze,
// classify, then branch into exactly one terminal per intent.
func (s *Service) compileHandleQueryGraph(ctx context.Context) (compose.Runnable[string, string], error) {
	graph := compose.NewGraph[string, string]()

	if err := graph.AddLambdaNode("validate_query",
		compose.InvokableLambda(func(ctx context.Context, query string) (*routerState, error) {
			return validateQuery(query)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_query: %w", err)
	}

	if err := graph.AddLambdaNode("analyze_query",
		compose.InvokableLambda(func(ctx context.Context, st *routerState) (*routerState, error) {
			return s.analyze(ctx, st), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node analyze_query: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, st *routerState) (*routerState, error) {
			return s.classify(ctx, st), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	workflows := map[string]contractx.WorkflowKind{
		"create_workflow": contractx.KindCreate,
		"update_workflow": contractx.KindUpdate,
		"info_workflow":   contractx.KindInfo,
	}
	for name, kind := range workflows {
		kind := kind // per-iteration copy: go directive < 1.22 shares loop variables
		if err := graph.AddLambdaNode(name,
			compose.InvokableLambda(func(ctx context.Context, st *routerState) (string, error) {
				return s.runWorkflow(ctx, kind, st)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", name, err)
		}
	}

	if err := graph.AddLambdaNode("generic_answer",
		compose.InvokableLambda(func(ctx context.Context, st *routerState) (string, error) {
			return s.answerGeneric(ctx, st), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node generic_answer: %w", err)
	}

	if err := graph.AddLambdaNode("unknown_answer",
		compose.InvokableLambda(func(ctx context.Context, st *routerState) (string, error) {
			return unknownResponse, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node unknown_answer: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, st *routerState) (string, error) {
			switch st.Intent.Intent {
			case contractx.IntentCreate:
				return "create_workflow", nil
			case contractx.IntentUpdate:
				return "update_workflow", nil
			case contractx.IntentInfo:
				return "info_workflow", nil
			case contractx.IntentGeneric:
				return "generic_answer", nil
			default:
				return "unknown_answer", nil
			}
		},
		map[string]bool{
			"create_workflow": true,
			"update_workflow": true,
			"info_workflow":   true,
			"generic_answer":  true,
			"unknown_answer":  true,
		},
	)

	if err := graph.AddEdge(compose.START, "validate_query"); err != nil {
		return nil, fmt.Errorf("add edge start->validate: %w", err)
	}
	if err := graph.AddEdge("validate_query", "analyze_query"); err != nil {
		return nil, fmt.Errorf("add edge validate->analyze: %w", err)
	}
	if err := graph.AddEdge("analyze_query", "classify_intent"); err != nil {
		return nil, fmt.Errorf("add edge analyze->classify: %w", err)
	}
	if err := graph.AddBranch("classify_intent", branch); err != nil {
		return nil, fmt.Errorf("add intent branch: %w", err)
	}
	for _, terminal := range []string{"create_workflow", "update_workflow", "info_workflow", "generic_answer", "unknown_answer"} {
		if err := graph.AddEdge(terminal, compose.END); err != nil {
			return nil, fmt.Errorf("add edge %s->end: %w", terminal, err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.handle_query"))
	if err != nil {
		return nil, fmt.Errorf("compile router graph: %w", err)
	}
	return runner, nil
}
