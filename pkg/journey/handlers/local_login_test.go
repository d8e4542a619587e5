package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

type fakeAuthenticator struct {
	result AuthResult
	err    error
}

func (f *fakeAuthenticator) Authenticate(context.Context, string, string, string) (AuthResult, error) {
	return f.result, f.err
}

func TestLocalLogin_RequiresInputWhenNoCredentials(t *testing.T) {
	h := &LocalLogin{Auth: &fakeAuthenticator{}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context: context.Background(), JourneyData: map[string]any{}, UserInput: map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeRequireInput, outcome.Kind)
	assert.Equal(t, localLoginView, outcome.ViewName)
}

func TestLocalLogin_SucceedsAndSetsAMR(t *testing.T) {
	h := &LocalLogin{Auth: &fakeAuthenticator{result: AuthResult{UserID: "alice", MFAEnabled: true}}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{},
		UserInput:   map[string]any{"username": "alice", "password": "pw"},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "alice", outcome.Outputs["user_id"])
	assert.Equal(t, []string{"pwd"}, outcome.Outputs["amr"])
}

func TestLocalLogin_PropagatesAuthenticatorError(t *testing.T) {
	h := &LocalLogin{Auth: &fakeAuthenticator{err: errors.New("backend down")}}
	_, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{},
		UserInput:   map[string]any{"username": "alice", "password": "pw"},
	})
	assert.Error(t, err)
}
