package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

func TestWebhook_SendsTemplatedPayloadAndMapsResponse(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"remote_id":"abc123"}`))
	}))
	defer srv.Close()

	h := &Webhook{Client: srv.Client()}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{"user_id": "alice"},
		UserInput:   map[string]any{},
		Step: journey.PolicyStep{Config: map[string]any{
			"url": srv.URL,
			"payload": map[string]any{
				"subject": `data["user_id"]`,
				"static":  "literal-value",
			},
			"response_mapping": map[string]any{"provisioned_id": "remote_id"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "abc123", outcome.Outputs["provisioned_id"])
	assert.Equal(t, "alice", received["subject"])
	assert.Equal(t, "literal-value", received["static"])
}

func TestWebhook_FailOnErrorFailsStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &Webhook{Client: srv.Client()}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{},
		UserInput:   map[string]any{},
		Step:        journey.PolicyStep{Config: map[string]any{"url": srv.URL, "fail_on_error": true}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeFail, outcome.Kind)
}

func TestWebhook_SwallowsErrorWhenNotFailOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := &Webhook{Client: srv.Client()}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:     context.Background(),
		JourneyData: map[string]any{},
		UserInput:   map[string]any{},
		Step:        journey.PolicyStep{Config: map[string]any{"url": srv.URL, "fail_on_error": false}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
}
