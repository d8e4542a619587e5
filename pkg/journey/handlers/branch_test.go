package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/condition"
	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

func newTestEngine(t *testing.T) *condition.Engine {
	t.Helper()
	e, err := condition.NewEngine()
	require.NoError(t, err)
	return e
}

func TestBranch_MatchesFirstCase(t *testing.T) {
	h := &Branch{Evaluator: newTestEngine(t)}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{"risk_score": 80},
		UserInput:   map[string]any{},
		Step: journey.PolicyStep{Config: map[string]any{"cases": []any{
			map[string]any{"expression": `ctx["risk_score"] > 50`, "branch": "step_high_risk"},
			map[string]any{"expression": `true`, "branch": "step_default"},
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeBranch, outcome.Kind)
	assert.Equal(t, "step_high_risk", outcome.BranchStepID)
}

func TestBranch_FallsBackToDefaultBranch(t *testing.T) {
	h := &Branch{Evaluator: newTestEngine(t)}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{"risk_score": 10},
		UserInput:   map[string]any{},
		Step: journey.PolicyStep{Config: map[string]any{
			"cases":          []any{map[string]any{"expression": `ctx["risk_score"] > 50`, "branch": "step_high_risk"}},
			"default_branch": "step_low_risk",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeBranch, outcome.Kind)
	assert.Equal(t, "step_low_risk", outcome.BranchStepID)
}

func TestBranch_SkipsWithNoMatchAndNoDefault(t *testing.T) {
	h := &Branch{Evaluator: newTestEngine(t)}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{},
		UserInput:   map[string]any{},
		Step:        journey.PolicyStep{Config: map[string]any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSkip, outcome.Kind)
}
