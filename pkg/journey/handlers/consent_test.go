package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

type fakeConsentRecorder struct {
	remembered map[string][]string
	puts       int
}

func (f *fakeConsentRecorder) GetConsent(_ context.Context, _, subjectID, clientID string) ([]string, bool, error) {
	scopes, ok := f.remembered[subjectID+"|"+clientID]
	return scopes, ok, nil
}

func (f *fakeConsentRecorder) PutConsent(_ context.Context, _, subjectID, clientID string, scopes []string) error {
	f.puts++
	if f.remembered == nil {
		f.remembered = map[string][]string{}
	}
	f.remembered[subjectID+"|"+clientID] = scopes
	return nil
}

type fakeResourceResolver struct{}

func (fakeResourceResolver) ResolveScopes(context.Context, string, []string) ([]ResolvedResource, error) {
	return []ResolvedResource{{Name: "openid", DisplayName: "OpenID", Required: true}}, nil
}

type fakeEventPublisher struct {
	events []string
}

func (f *fakeEventPublisher) Publish(_ context.Context, eventType string, _ map[string]any) {
	f.events = append(f.events, eventType)
}

func TestConsent_PromptsWhenNoDecision(t *testing.T) {
	events := &fakeEventPublisher{}
	h := &Consent{Consents: &fakeConsentRecorder{}, Resources: fakeResourceResolver{}, Events: events}

	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		ClientID:    "demo-client",
		JourneyData: map[string]any{"user_id": "alice"},
		UserInput:   map[string]any{},
		Step:        journey.PolicyStep{Config: map[string]any{"scopes": []string{"openid"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeRequireInput, outcome.Kind)
	assert.Empty(t, events.events)
}

func TestConsent_DenyEmitsEventAndFails(t *testing.T) {
	events := &fakeEventPublisher{}
	h := &Consent{Consents: &fakeConsentRecorder{}, Resources: fakeResourceResolver{}, Events: events}

	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		ClientID:    "demo-client",
		JourneyData: map[string]any{"user_id": "alice"},
		UserInput:   map[string]any{"decision": "deny"},
		Step:        journey.PolicyStep{Config: map[string]any{"scopes": []string{"openid"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeFail, outcome.Kind)
	assert.Equal(t, "access_denied", outcome.ErrorCode)
	assert.Contains(t, events.events, "ConsentDenied")
}

func TestConsent_AllowRemembersWhenRequested(t *testing.T) {
	events := &fakeEventPublisher{}
	recorder := &fakeConsentRecorder{}
	h := &Consent{Consents: recorder, Resources: fakeResourceResolver{}, Events: events}

	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		ClientID:    "demo-client",
		JourneyData: map[string]any{"user_id": "alice"},
		UserInput:   map[string]any{"decision": "allow", "remember_consent": true},
		Step:        journey.PolicyStep{Config: map[string]any{"scopes": []string{"openid"}, "allow_remember_consent": true}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, 1, recorder.puts)
	assert.Contains(t, events.events, "ConsentGranted")
}

func TestConsent_SkipsPromptWhenAlreadyRemembered(t *testing.T) {
	events := &fakeEventPublisher{}
	recorder := &fakeConsentRecorder{remembered: map[string][]string{"alice|demo-client": {"openid"}}}
	h := &Consent{Consents: recorder, Resources: fakeResourceResolver{}, Events: events}

	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		ClientID:    "demo-client",
		JourneyData: map[string]any{"user_id": "alice"},
		UserInput:   map[string]any{},
		Step:        journey.PolicyStep{Config: map[string]any{"scopes": []string{"openid"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
}

func TestConsent_NotRequiredSkipsEntirely(t *testing.T) {
	h := &Consent{Consents: &fakeConsentRecorder{}, Resources: fakeResourceResolver{}, Events: &fakeEventPublisher{}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{},
		UserInput:   map[string]any{},
		Step:        journey.PolicyStep{Config: map[string]any{"require_consent": false}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
}
