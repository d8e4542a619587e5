package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

type fakeSubmissionRecorder struct {
	seen map[string]bool
}

func (f *fakeSubmissionRecorder) RecordSubmission(_ context.Context, _, _, dedupeKey string, _ map[string]any) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[dedupeKey] {
		return true, nil
	}
	f.seen[dedupeKey] = true
	return false, nil
}

func TestCollect_RequiresInputUntilAllFieldsPresent(t *testing.T) {
	h := &Collect{Submissions: &fakeSubmissionRecorder{}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:   context.Background(),
		UserInput: map[string]any{"email": "a@example.com"},
		Step:      journey.PolicyStep{ID: "collect", Config: map[string]any{"fields": []string{"email", "name"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeRequireInput, outcome.Kind)
}

func TestCollect_SucceedsWhenComplete(t *testing.T) {
	h := &Collect{Submissions: &fakeSubmissionRecorder{}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:   context.Background(),
		UserInput: map[string]any{"email": "a@example.com", "name": "Alice"},
		Step:      journey.PolicyStep{ID: "collect", Config: map[string]any{"fields": []string{"email", "name"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "a@example.com", outcome.Outputs["email"])
}

func TestCollect_DetectsDuplicateSubmission(t *testing.T) {
	recorder := &fakeSubmissionRecorder{}
	h := &Collect{Submissions: recorder}
	step := journey.PolicyStep{ID: "waitlist", Config: map[string]any{
		"fields": []string{"email"}, "persist": true, "dedupe_fields": []string{"email"},
	}}

	_, err := h.Execute(&journey.ExecContext{Context: context.Background(), UserInput: map[string]any{"email": "a@example.com"}, Step: step})
	require.NoError(t, err)

	outcome, err := h.Execute(&journey.ExecContext{Context: context.Background(), UserInput: map[string]any{"email": "a@example.com"}, Step: step})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeFail, outcome.Kind)
	assert.Equal(t, "duplicate_submission", outcome.ErrorCode)
}
