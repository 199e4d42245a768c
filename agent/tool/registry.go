package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/signalscape/rf-intent-agent/agent/contract"
	"github.com/signalscape/rf-intent-agent/rulestore"
)

// Invoker executes one validated tool call against the store.
type Invoker func(ctx context.Context, store rulestore.Store, params map[string]any) (any, error)

// Registry holds the tools one workflow kind may call. Registration order
// is preserved so Catalog output is stable across runs.
type Registry struct {
	kind     contractx.WorkflowKind
	store    rulestore.Store
	order    []string
	specs    map[string]Spec
	invokers map[string]Invoker
}

func newRegistry(kind contractx.WorkflowKind, store rulestore.Store) *Registry {
	return &Registry{
		kind:     kind,
		store:    store,
		specs:    make(map[string]Spec),
		invokers: make(map[string]Invoker),
	}
}

func (r *Registry) register(spec Spec, invoke Invoker) {
	if _, dup := r.specs[spec.Name]; dup {
		panic(fmt.Sprintf("tool %q registered twice on %s registry", spec.Name, r.kind))
	}
	r.order = append(r.order, spec.Name)
	r.specs[spec.Name] = spec
	r.invokers[spec.Name] = invoke
}

func (r *Registry) Kind() contractx.WorkflowKind { return r.kind }

func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Role returns the accumulator key results of the named tool are stored
// under, or "" when the tool is unknown.
func (r *Registry) Role(name string) string {
	return r.specs[name].Role
}

// Validate checks params against the tool's schema. It returns a
// normalized copy with defaults applied and never touches the store. The
// input map is not mutated.
func (r *Registry) Validate(name string, params map[string]any) (map[string]any, error) {
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q not available for %s workflow", contractx.ErrToolUnknown, name, r.kind)
	}
	return spec.validate(params)
}

// Invoke runs the named tool with already-validated parameters.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (any, error) {
	invoke, ok := r.invokers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q not available for %s workflow", contractx.ErrToolUnknown, name, r.kind)
	}
	return invoke(ctx, r.store, params)
}

// Catalog renders the registry as a deterministic block of text for
// planner prompts.
func (r *Registry) Catalog() string {
	var b strings.Builder
	for _, name := range r.order {
		spec := r.specs[name]
		fmt.Fprintf(&b, "- %s: %s\n", spec.Name, spec.Doc)
		for _, f := range spec.Fields {
			req := "optional"
			if f.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "    %s (%s, %s)", f.Name, f.Kind, req)
			if f.Doc != "" {
				fmt.Fprintf(&b, ": %s", f.Doc)
			}
			if len(f.Enum) > 0 {
				fmt.Fprintf(&b, " [one of: %s]", strings.Join(f.Enum, ", "))
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// stringParam reads a string out of a validated parameter map. Validation
// has already enforced presence and type for required fields.
func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func objectParam(params map[string]any, key string) map[string]any {
	m, _ := params[key].(map[string]any)
	return m
}
