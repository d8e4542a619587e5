// Package condition evaluates boolean predicates over journey context and
// policy-matching context using CEL (Common Expression Language).
//
// The engine/compiled-expression split and the "claims"-style variable
// binding are grounded on toolhive's pkg/auth/awssts/role_mapper.go, which
// builds a CEL engine with a single map[string]any variable and evaluates
// compiled boolean expressions against it. Here the bound variable is named
// "ctx" and carries journey/policy-matching context instead of JWT claims.
package condition

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Engine compiles and evaluates CEL expressions against a context map.
type Engine struct {
	env *cel.Env
}

// NewEngine creates an Engine with a single "ctx" variable of type
// map(string, dyn), matching the journey_data / match-condition shape used
// throughout the orchestrator and policy matcher.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("ctx", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("condition: building CEL environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// CompiledExpression is a parsed and type-checked CEL program ready for
// repeated evaluation.
type CompiledExpression struct {
	source  string
	program cel.Program
}

// Source returns the original expression text.
func (c *CompiledExpression) Source() string { return c.source }

// Compile parses and type-checks expr, returning a reusable program.
func (e *Engine) Compile(expr string) (*CompiledExpression, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("condition: compiling %q: %w", expr, issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("condition: building program for %q: %w", expr, err)
	}

	return &CompiledExpression{source: expr, program: prg}, nil
}

// EvaluateBool evaluates the compiled expression against the given context
// map and requires the result to be a CEL bool.
func (c *CompiledExpression) EvaluateBool(ctx map[string]any) (bool, error) {
	out, _, err := c.program.Eval(map[string]any{"ctx": ctx})
	if err != nil {
		return false, fmt.Errorf("condition: evaluating %q: %w", c.source, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition: expression %q did not evaluate to bool, got %T", c.source, out.Value())
	}
	return result, nil
}

// Evaluate is a convenience one-shot compile+evaluate. Callers that
// evaluate the same expression repeatedly (e.g. the orchestrator evaluating
// a step's pre-conditions on every continuation) should Compile once and
// reuse the CompiledExpression instead.
func (e *Engine) Evaluate(expr string, ctx map[string]any) (bool, error) {
	compiled, err := e.Compile(expr)
	if err != nil {
		return false, err
	}
	return compiled.EvaluateBool(ctx)
}

// MatchCondition is a single named condition entry in a policy or step
// match-condition list (spec §3 JourneyPolicy/PolicyStep "conditions").
type MatchCondition struct {
	// Expression is the CEL boolean expression.
	Expression string
}

// EvaluateAll evaluates every condition in conds and returns true only if
// all pass (conjunctive policy/step matching, per spec §4.1 step 1 and the
// JourneyPolicy matcher in §3). An empty condition list always matches.
func (e *Engine) EvaluateAll(conds []MatchCondition, ctx map[string]any) (bool, error) {
	for _, c := range conds {
		ok, err := e.Evaluate(c.Expression, ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
