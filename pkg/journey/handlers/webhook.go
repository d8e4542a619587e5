package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/expr-lang/expr"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/logger"
)

// Webhook implements spec §4.2's Webhook step: POSTs a templated JSON
// payload built from step.Config["payload"] (a map whose string values may
// be expr-lang expressions evaluated against {data, input, user, journey}),
// optionally awaiting the response and writing selected fields back into
// journey_data via response_mapping.
//
// Retries (fire-and-forget only) use an exponential backoff, grounded on
// toolhive's use of cenkalti/backoff for outbound HTTP retry loops.
type Webhook struct {
	Client *http.Client
}

func (h *Webhook) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	url, ok := stepConfigString(ec.Step.Config, "url")
	if !ok || url == "" {
		return journey.Outcome{}, fmt.Errorf("webhook: step config missing %q", "url")
	}

	payloadTemplate, _ := ec.Step.Config["payload"].(map[string]any)
	fireAndForget := stepConfigBool(ec.Step.Config, "fire_and_forget", false)
	failOnError := stepConfigBool(ec.Step.Config, "fail_on_error", true)

	env := map[string]any{
		"data":    ec.JourneyData,
		"input":   ec.UserInput,
		"user":    map[string]any{"id": ec.JourneyData["user_id"]},
		"journey": map[string]any{"id": ec.Step.ID, "tenant_id": ec.TenantID},
	}

	body, err := renderPayload(payloadTemplate, env)
	if err != nil {
		return journey.Outcome{}, fmt.Errorf("webhook: render payload: %w", err)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	if fireAndForget {
		go h.sendWithRetry(context.WithoutCancel(ec.Context), client, url, body)
		return journey.Success(nil), nil
	}

	respBody, err := h.send(ec.Context, client, url, body)
	if err != nil {
		if failOnError {
			return journey.Fail("webhook_failed", err.Error()), nil
		}
		return journey.Success(nil), nil
	}

	outputs := applyResponseMapping(ec.Step.Config, respBody)
	return journey.Success(outputs), nil
}

func renderPayload(template map[string]any, env map[string]any) ([]byte, error) {
	rendered := make(map[string]any, len(template))
	for k, v := range template {
		s, ok := v.(string)
		if !ok {
			rendered[k] = v
			continue
		}
		program, err := expr.Compile(s, expr.Env(env))
		if err != nil {
			// Not every value is an expression; fall back to the literal
			// string when it doesn't compile as one.
			rendered[k] = s
			continue
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("evaluating %q: %w", s, err)
		}
		rendered[k] = out
	}
	return json.Marshal(rendered)
}

func (h *Webhook) send(ctx context.Context, client *http.Client, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return respBody, nil
}

func (h *Webhook) sendWithRetry(ctx context.Context, client *http.Client, url string, body []byte) {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	op := func() error {
		_, err := h.send(ctx, client, url, body)
		return err
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(bo, 5)); err != nil {
		logger.Warnf("webhook: fire-and-forget delivery to %s exhausted retries: %v", url, err)
	}
}

func applyResponseMapping(cfg map[string]any, respBody []byte) map[string]any {
	mapping := stepConfigStringMap(cfg, "response_mapping")
	if mapping == nil {
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil
	}

	outputs := make(map[string]any, len(mapping))
	for targetKey, sourceKey := range mapping {
		if v, ok := parsed[sourceKey]; ok {
			outputs[targetKey] = v
		}
	}
	return outputs
}

var _ journey.StepHandler = (*Webhook)(nil)
