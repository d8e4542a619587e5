package handlers

import (
	"github.com/SyndewTech/Oluso-sub010/pkg/condition"
	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// Branch implements a pure routing step: it evaluates step.Config["cases"]
// (an ordered list of {expression, branch} pairs) against journey_data via
// the condition evaluator and reports the first matching case as a Branch
// outcome; with no match it falls through to journey_data["default_branch"]
// if the policy step configures one, otherwise Skip (ordinary routing).
type Branch struct {
	Evaluator *condition.Engine
}

func (h *Branch) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	rawCases, _ := ec.Step.Config["cases"].([]any)

	for _, rc := range rawCases {
		m, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		expr, _ := m["expression"].(string)
		target, _ := m["branch"].(string)
		if expr == "" || target == "" {
			continue
		}

		matched, err := h.Evaluator.Evaluate(expr, ec.JourneyData)
		if err != nil {
			return journey.Outcome{}, err
		}
		if matched {
			return journey.Branch(target), nil
		}
	}

	if def, ok := stepConfigString(ec.Step.Config, "default_branch"); ok && def != "" {
		return journey.Branch(def), nil
	}

	return journey.Skip(), nil
}

var _ journey.StepHandler = (*Branch)(nil)
