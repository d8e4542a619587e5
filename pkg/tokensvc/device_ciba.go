package tokensvc

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// DevicePollStatus is the out-of-band approval state backing the
// device-code and CIBA polling grants (spec §4.5 "symmetric polling
// semantics" / "authorization_pending, slow_down, expired_token").
type DevicePollStatus string

const (
	DevicePollPending  DevicePollStatus = "pending"
	DevicePollApproved DevicePollStatus = "approved"
	DevicePollDenied   DevicePollStatus = "denied"
)

type devicePollPayload struct {
	Status    DevicePollStatus `json:"status"`
	SubjectID string           `json:"subject_id,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
}

const (
	DefaultDeviceCodeLifetime = 10 * time.Minute
	DefaultCIBARequestLifetime = 10 * time.Minute
	DevicePollInterval        = 5 * time.Second
)

// CreateDeviceAuthorizationRequest starts a device-code flow (RFC 8628):
// a long opaque device_code (server-held) and a short, user-typeable
// user_code are both persisted as pending polling grants.
type CreateDeviceAuthorizationRequest struct {
	TenantID string
	ClientID string
	Scopes   []string
}

type DeviceAuthorization struct {
	DeviceCode string
	UserCode   string
	Interval   time.Duration
	ExpiresAt  time.Time
}

func (s *Service) CreateDeviceAuthorization(ctx context.Context, req CreateDeviceAuthorizationRequest) (*DeviceAuthorization, error) {
	deviceCode, err := newOpaqueHandle(32)
	if err != nil {
		return nil, err
	}
	userCode, err := newUserCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(DefaultDeviceCodeLifetime)

	payload, err := marshalDevicePollPayload(devicePollPayload{Status: DevicePollPending})
	if err != nil {
		return nil, err
	}

	if err := s.Grants.CreateGrant(ctx, &store.PersistedGrant{
		GrantKey:          deviceCode,
		Type:              store.GrantDeviceCode,
		ClientID:          req.ClientID,
		TenantID:          req.TenantID,
		Scopes:            req.Scopes,
		CreatedAt:         now,
		ExpiresAt:         expiresAt,
		SerializedPayload: payload,
	}); err != nil {
		return nil, fmt.Errorf("tokensvc: persisting device code: %w", err)
	}

	// The user_code grant maps the short code the user types at the
	// verification URI back to the device_code, so the approval step (run
	// in the user's browser session) never needs to know the device_code.
	userCodePayload, err := marshalDeviceCodeRef(deviceCodeRef{DeviceCode: deviceCode})
	if err != nil {
		return nil, err
	}
	if err := s.Grants.CreateGrant(ctx, &store.PersistedGrant{
		GrantKey:          userCode,
		Type:              store.GrantUserCode,
		ClientID:          req.ClientID,
		TenantID:          req.TenantID,
		CreatedAt:         now,
		ExpiresAt:         expiresAt,
		SerializedPayload: userCodePayload,
	}); err != nil {
		return nil, fmt.Errorf("tokensvc: persisting user code: %w", err)
	}

	return &DeviceAuthorization{
		DeviceCode: deviceCode,
		UserCode:   userCode,
		Interval:   DevicePollInterval,
		ExpiresAt:  expiresAt,
	}, nil
}

// ApproveDeviceCode resolves a user_code to its device_code and marks the
// polling grant approved for subjectID, called once the user completes the
// sign-in journey at the verification URI.
func (s *Service) ApproveDeviceCode(ctx context.Context, userCode, subjectID, sessionID string) error {
	userCodeGrant, err := s.Grants.GetGrant(ctx, userCode)
	if err != nil {
		return fmt.Errorf("tokensvc: resolving user_code: %w", err)
	}
	ref, err := unmarshalDeviceCodeRef(userCodeGrant.SerializedPayload)
	if err != nil {
		return err
	}

	payload, err := marshalDevicePollPayload(devicePollPayload{
		Status:    DevicePollApproved,
		SubjectID: subjectID,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	return s.Grants.UpdateGrantPayload(ctx, ref.DeviceCode, payload)
}

// DeviceCodeStatus polls a device_code's approval state without consuming
// it; the token endpoint's device_code grant handler uses this to decide
// between authorization_pending and token issuance.
func (s *Service) DeviceCodeStatus(ctx context.Context, deviceCode string) (*store.PersistedGrant, DevicePollStatus, string, string, error) {
	grant, err := s.Grants.GetGrant(ctx, deviceCode)
	if err != nil {
		return nil, "", "", "", err
	}
	if grant.Type != store.GrantDeviceCode {
		return nil, "", "", "", ErrWrongGrantType
	}
	if grant.IsExpired(s.now()) {
		return grant, "", "", "", ErrGrantExpired
	}
	payload, err := unmarshalDevicePollPayload(grant.SerializedPayload)
	if err != nil {
		return nil, "", "", "", err
	}
	return grant, payload.Status, payload.SubjectID, payload.SessionID, nil
}

// RedeemDeviceCode atomically consumes an approved device_code grant,
// exactly like RedeemCode does for authorization codes.
func (s *Service) RedeemDeviceCode(ctx context.Context, deviceCode string) (*store.PersistedGrant, error) {
	grant, err := s.Grants.CompareAndConsumeGrant(ctx, deviceCode)
	if err != nil {
		return nil, err
	}
	if grant.Type != store.GrantDeviceCode {
		return nil, ErrWrongGrantType
	}
	return grant, nil
}

// CIBA (Client-Initiated Backchannel Authentication, spec §4.5's
// "urn:openid:params:grant-type:ciba") follows the same pending/approved
// polling shape as device code, keyed by auth_req_id instead of
// device_code/user_code.

type CreateBackchannelAuthRequest struct {
	TenantID string
	ClientID string
	Scopes   []string
	LoginHint string
}

type BackchannelAuthRequest struct {
	AuthReqID string
	Interval  time.Duration
	ExpiresAt time.Time
}

func (s *Service) CreateBackchannelAuthRequest(ctx context.Context, req CreateBackchannelAuthRequest) (*BackchannelAuthRequest, error) {
	authReqID, err := newOpaqueHandle(32)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(DefaultCIBARequestLifetime)

	payload, err := marshalDevicePollPayload(devicePollPayload{Status: DevicePollPending})
	if err != nil {
		return nil, err
	}

	if err := s.Grants.CreateGrant(ctx, &store.PersistedGrant{
		GrantKey:          authReqID,
		Type:              store.GrantCIBARequest,
		ClientID:          req.ClientID,
		TenantID:          req.TenantID,
		Scopes:            req.Scopes,
		CreatedAt:         now,
		ExpiresAt:         expiresAt,
		SerializedPayload: payload,
	}); err != nil {
		return nil, fmt.Errorf("tokensvc: persisting ciba request: %w", err)
	}

	return &BackchannelAuthRequest{AuthReqID: authReqID, Interval: DevicePollInterval, ExpiresAt: expiresAt}, nil
}

// ApproveBackchannelAuthRequest marks a CIBA request approved, called once
// the user completes the out-of-band sign-in journey.
func (s *Service) ApproveBackchannelAuthRequest(ctx context.Context, authReqID, subjectID, sessionID string) error {
	payload, err := marshalDevicePollPayload(devicePollPayload{
		Status:    DevicePollApproved,
		SubjectID: subjectID,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	return s.Grants.UpdateGrantPayload(ctx, authReqID, payload)
}

func (s *Service) BackchannelAuthRequestStatus(ctx context.Context, authReqID string) (*store.PersistedGrant, DevicePollStatus, string, string, error) {
	grant, err := s.Grants.GetGrant(ctx, authReqID)
	if err != nil {
		return nil, "", "", "", err
	}
	if grant.Type != store.GrantCIBARequest {
		return nil, "", "", "", ErrWrongGrantType
	}
	if grant.IsExpired(s.now()) {
		return grant, "", "", "", ErrGrantExpired
	}
	payload, err := unmarshalDevicePollPayload(grant.SerializedPayload)
	if err != nil {
		return nil, "", "", "", err
	}
	return grant, payload.Status, payload.SubjectID, payload.SessionID, nil
}

func (s *Service) RedeemBackchannelAuthRequest(ctx context.Context, authReqID string) (*store.PersistedGrant, error) {
	grant, err := s.Grants.CompareAndConsumeGrant(ctx, authReqID)
	if err != nil {
		return nil, err
	}
	if grant.Type != store.GrantCIBARequest {
		return nil, ErrWrongGrantType
	}
	return grant, nil
}

// newUserCode generates an 8-character, dash-separated user code from an
// unambiguous alphabet (no 0/O/1/I), matching RFC 8628 §6.1's guidance.
func newUserCode() (string, error) {
	const alphabet = "BCDFGHJKLMNPQRSTVWXZ"
	const length = 8

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("tokensvc: generating user code: %w", err)
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code[:4]) + "-" + string(code[4:]), nil
}
