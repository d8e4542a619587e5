package saml

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// ProtocolStateTTL matches the default §3 ProtocolState lifetime, reused
// here for the SAML SSO flow's stash/resume around the journey
// orchestrator (the same lifecycle the OIDC authorize endpoint uses).
const ProtocolStateTTL = 10 * time.Minute

// pendingSSORequest is everything SSOComplete needs once the journey
// finishes: the inbound AuthnRequest's wire fields plus the resolved SP
// record's ACS URL, stashed together so a later SP-config change mid-flow
// cannot redirect the response somewhere the request didn't originally name.
type pendingSSORequest struct {
	RequestID                   string `json:"request_id"`
	SPEntityID                  string `json:"sp_entity_id"`
	AssertionConsumerServiceURL string `json:"acs_url"`
	NameIDFormat                string `json:"name_id_format"`
	RelayState                  string `json:"relay_state"`
	ACRValues                   []string `json:"acr_values"`
}

func stashSSORequest(ctx context.Context, states store.ProtocolStateStore, tenantID string, req pendingSSORequest, now time.Time) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("saml: marshaling pending SSO request: %w", err)
	}

	correlationID := uuid.NewString()
	ps := &store.ProtocolState{
		CorrelationID:     correlationID,
		ProtocolName:      "saml",
		EndpointType:      "sso",
		ClientID:          req.SPEntityID,
		TenantID:          tenantID,
		SerializedRequest: payload,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ProtocolStateTTL),
	}
	if err := states.CreateProtocolState(ctx, ps); err != nil {
		return "", fmt.Errorf("saml: persisting protocol state: %w", err)
	}
	return correlationID, nil
}

func resumeSSORequest(ctx context.Context, states store.ProtocolStateStore, correlationID string, now time.Time) (*pendingSSORequest, *store.ProtocolState, error) {
	ps, err := states.ConsumeProtocolState(ctx, correlationID)
	if err != nil {
		return nil, nil, fmt.Errorf("saml: loading protocol state: %w", err)
	}
	if ps.IsExpired(now) {
		return nil, ps, fmt.Errorf("saml: protocol state expired")
	}

	var req pendingSSORequest
	if err := json.Unmarshal(ps.SerializedRequest, &req); err != nil {
		return nil, ps, fmt.Errorf("saml: decoding stashed SSO request: %w", err)
	}
	return &req, ps, nil
}
