package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// ProtocolStateTTL is the default lifetime of a stashed authorize request
// (spec §5 "default protocol-state TTL 10 min").
const ProtocolStateTTL = 10 * time.Minute

// AuthorizeRequest is the wire-level /connect/authorize request, stashed in
// a ProtocolState row while the journey orchestrator drives the user
// through sign-in, and reloaded when the journey completes.
type AuthorizeRequest struct {
	ResponseType        string            `json:"response_type"`
	ClientID            string            `json:"client_id"`
	RedirectURI         string            `json:"redirect_uri"`
	Scope               string            `json:"scope"`
	State               string            `json:"state"`
	Nonce               string            `json:"nonce"`
	CodeChallenge       string            `json:"code_challenge"`
	CodeChallengeMethod string            `json:"code_challenge_method"`
	Policy              string            `json:"policy"`
	UIMode              string            `json:"ui_mode"`
	ACRValues           []string          `json:"acr_values"`
	AdditionalParams    map[string]string `json:"additional_params"`

	// RequestURI is the RFC 9126 PAR handle, if the client pushed its
	// request ahead of time instead of sending parameters directly. It is
	// resolved and discarded in AuthorizeStart before validation, so it is
	// never itself persisted to a ProtocolState row.
	RequestURI string `json:"-"`
}

// stashAuthorizeRequest persists req as a ProtocolState row and returns the
// correlation id the journey is started with (spec §4.5, §3 ProtocolState).
func stashAuthorizeRequest(ctx context.Context, states store.ProtocolStateStore, tenantID string, req AuthorizeRequest, now time.Time) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("oidc: marshaling authorize request: %w", err)
	}

	correlationID := uuid.NewString()
	ps := &store.ProtocolState{
		CorrelationID:     correlationID,
		ProtocolName:      "oidc",
		EndpointType:      "authorize",
		ClientID:          req.ClientID,
		TenantID:          tenantID,
		SerializedRequest: payload,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ProtocolStateTTL),
	}
	if err := states.CreateProtocolState(ctx, ps); err != nil {
		return "", fmt.Errorf("oidc: persisting protocol state: %w", err)
	}
	return correlationID, nil
}

// resumeAuthorizeRequest consumes the ProtocolState row by correlation id
// and decodes it back into an AuthorizeRequest, exactly once.
func resumeAuthorizeRequest(ctx context.Context, states store.ProtocolStateStore, correlationID string, now time.Time) (*AuthorizeRequest, *store.ProtocolState, error) {
	ps, err := states.ConsumeProtocolState(ctx, correlationID)
	if err != nil {
		return nil, nil, fmt.Errorf("oidc: loading protocol state: %w", err)
	}
	if ps.IsExpired(now) {
		return nil, ps, NewError(ErrInvalidRequest, "protocol state expired")
	}

	var req AuthorizeRequest
	if err := json.Unmarshal(ps.SerializedRequest, &req); err != nil {
		return nil, ps, fmt.Errorf("oidc: decoding stashed authorize request: %w", err)
	}
	return &req, ps, nil
}
