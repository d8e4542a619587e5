package handlers

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// Transform implements spec §4.2's Transform step: applies declared
// source-to-target mappings over journey data, each either a named
// primitive transform (lowercase, uppercase, trim, split, join, replace)
// or a whitelisted expr-lang expression.
type Transform struct{}

// transformMapping is one entry of step.Config["mappings"].
type transformMapping struct {
	Source string `mapstructure:"source"`
	Target string `mapstructure:"target"`
	Op     string `mapstructure:"op"` // lowercase|uppercase|trim|split|join|replace|expr
	Arg    string `mapstructure:"arg"`
	Arg2   string `mapstructure:"arg2"`
}

func (h *Transform) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	raw, _ := ec.Step.Config["mappings"].([]any)
	outputs := make(map[string]any, len(raw))

	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		mapping := parseMapping(m)

		sourceVal, ok := ec.JourneyData[mapping.Source]
		if !ok {
			sourceVal, ok = ec.UserInput[mapping.Source]
		}
		if !ok {
			continue
		}

		result, err := applyOp(mapping, sourceVal, ec.JourneyData)
		if err != nil {
			return journey.Outcome{}, fmt.Errorf("transform: %s -> %s: %w", mapping.Source, mapping.Target, err)
		}
		outputs[mapping.Target] = result
	}

	return journey.Success(outputs), nil
}

func parseMapping(m map[string]any) transformMapping {
	get := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return transformMapping{
		Source: get("source"),
		Target: get("target"),
		Op:     get("op"),
		Arg:    get("arg"),
		Arg2:   get("arg2"),
	}
}

func applyOp(m transformMapping, v any, journeyData map[string]any) (any, error) {
	switch m.Op {
	case "lowercase":
		return strings.ToLower(fmt.Sprint(v)), nil
	case "uppercase":
		return strings.ToUpper(fmt.Sprint(v)), nil
	case "trim":
		return strings.TrimSpace(fmt.Sprint(v)), nil
	case "split":
		sep := m.Arg
		if sep == "" {
			sep = ","
		}
		return strings.Split(fmt.Sprint(v), sep), nil
	case "join":
		sep := m.Arg
		if sep == "" {
			sep = ","
		}
		parts, ok := v.([]string)
		if !ok {
			if anyParts, ok := v.([]any); ok {
				parts = make([]string, len(anyParts))
				for i, p := range anyParts {
					parts[i] = fmt.Sprint(p)
				}
			}
		}
		return strings.Join(parts, sep), nil
	case "replace":
		return strings.ReplaceAll(fmt.Sprint(v), m.Arg, m.Arg2), nil
	case "expr":
		env := map[string]any{"value": v, "data": journeyData}
		program, err := expr.Compile(m.Arg, expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("compiling expression %q: %w", m.Arg, err)
		}
		return expr.Run(program, env)
	default:
		return nil, fmt.Errorf("unknown transform op %q", m.Op)
	}
}

var _ journey.StepHandler = (*Transform)(nil)
