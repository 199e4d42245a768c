package contract

import "context"

// Reasoner is the language-model collaborator. One method per role; every
// method either returns a well-formed structured output or an error the
// caller substitutes a safe default for.
type Reasoner interface {
	Analyze(ctx context.Context, query string) (Analysis, error)
	Classify(ctx context.Context, query string, analysis Analysis) (IntentRecord, error)
	Plan(ctx context.Context, req PlanRequest) (PlanDecision, error)
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
	Generic(ctx context.Context, query string, knowledge string) (string, error)
}
