package oidc

import (
	"context"
	"errors"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/tokensvc"
)

// DeviceAuthorizationRequest is the POST /connect/deviceauthorization body
// (RFC 8628 §3.1).
type DeviceAuthorizationRequest struct {
	ClientID string
	Scope    string
}

// DeviceAuthorizationResponse is the RFC 8628 §3.2 response body.
type DeviceAuthorizationResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int64  `json:"expires_in"`
	Interval                int64  `json:"interval"`
}

// DeviceAuthorization answers POST /connect/deviceauthorization.
// verificationURI is supplied by the caller (it is a static, configured
// path, not something this package resolves).
func (s *Service) DeviceAuthorization(ctx context.Context, tenantID, verificationURI string, req DeviceAuthorizationRequest) (*DeviceAuthorizationResponse, error) {
	if _, err := s.Clients.GetClient(ctx, tenantID, req.ClientID); err != nil {
		return nil, NewError(ErrInvalidClient, "unknown client_id")
	}

	auth, err := s.Tokens.CreateDeviceAuthorization(ctx, tokensvc.CreateDeviceAuthorizationRequest{
		TenantID: tenantID,
		ClientID: req.ClientID,
		Scopes:   splitScope(req.Scope),
	})
	if err != nil {
		return nil, NewError(ErrServerError, err.Error())
	}

	return &DeviceAuthorizationResponse{
		DeviceCode:              auth.DeviceCode,
		UserCode:                auth.UserCode,
		VerificationURI:         verificationURI,
		VerificationURIComplete: appendQuery(verificationURI, map[string]string{"user_code": auth.UserCode}),
		ExpiresIn:               int64(auth.ExpiresAt.Sub(s.now()).Seconds()),
		Interval:                int64(tokensvc.DevicePollInterval.Seconds()),
	}, nil
}

// BackchannelAuthenticationRequest is the POST /connect/ciba body (CIBA
// Core §7).
type BackchannelAuthenticationRequest struct {
	ClientID       string
	Scope          string
	LoginHint      string
	BindingMessage string
}

// BackchannelAuthenticationResponse is the CIBA Core §7 response body.
type BackchannelAuthenticationResponse struct {
	AuthReqID string `json:"auth_req_id"`
	ExpiresIn int64  `json:"expires_in"`
	Interval  int64  `json:"interval"`
}

// BackchannelAuthentication answers POST /connect/ciba. The actual user
// authentication happens out of band (push notification, SMS, or an
// upstream IdP): this call only opens the pending polling grant; a journey
// started elsewhere calls Tokens.ApproveBackchannelAuthRequest when the
// user completes it.
func (s *Service) BackchannelAuthentication(ctx context.Context, tenantID string, req BackchannelAuthenticationRequest) (*BackchannelAuthenticationResponse, error) {
	if _, err := s.Clients.GetClient(ctx, tenantID, req.ClientID); err != nil {
		return nil, NewError(ErrInvalidClient, "unknown client_id")
	}
	if req.LoginHint == "" {
		return nil, NewError(ErrInvalidRequest, "login_hint is required")
	}

	auth, err := s.Tokens.CreateBackchannelAuthRequest(ctx, tokensvc.CreateBackchannelAuthRequest{
		TenantID:  tenantID,
		ClientID:  req.ClientID,
		Scopes:    splitScope(req.Scope),
		LoginHint: req.LoginHint,
	})
	if err != nil {
		return nil, NewError(ErrServerError, err.Error())
	}

	return &BackchannelAuthenticationResponse{
		AuthReqID: auth.AuthReqID,
		ExpiresIn: int64(auth.ExpiresAt.Sub(s.now()).Seconds()),
		Interval:  int64(tokensvc.DevicePollInterval.Seconds()),
	}, nil
}

func (s *Service) tokenFromDeviceCode(ctx context.Context, tenantID string, client *store.Client, deviceCode string) (*TokenResponse, error) {
	_, status, subjectID, sessionID, err := s.Tokens.DeviceCodeStatus(ctx, deviceCode)
	if err != nil {
		return nil, mapPollError(err)
	}

	switch status {
	case tokensvc.DevicePollPending:
		return nil, NewError("authorization_pending", "the user has not yet completed the verification flow")
	case tokensvc.DevicePollDenied:
		return nil, NewError(ErrAccessDenied, "the user denied the request")
	case tokensvc.DevicePollApproved:
		grant, err := s.Tokens.RedeemDeviceCode(ctx, deviceCode)
		if err != nil {
			return nil, mapRedeemError(err)
		}
		return s.issueTokenSet(ctx, tenantID, client, subjectID, sessionID, grant.Scopes, "", true)
	default:
		return nil, NewError(ErrServerError, "unknown device code status")
	}
}

func (s *Service) tokenFromCIBA(ctx context.Context, tenantID string, client *store.Client, authReqID string) (*TokenResponse, error) {
	_, status, subjectID, sessionID, err := s.Tokens.BackchannelAuthRequestStatus(ctx, authReqID)
	if err != nil {
		return nil, mapPollError(err)
	}

	switch status {
	case tokensvc.DevicePollPending:
		return nil, NewError("authorization_pending", "the user has not yet approved the request")
	case tokensvc.DevicePollDenied:
		return nil, NewError(ErrAccessDenied, "the user denied the request")
	case tokensvc.DevicePollApproved:
		grant, err := s.Tokens.RedeemBackchannelAuthRequest(ctx, authReqID)
		if err != nil {
			return nil, mapRedeemError(err)
		}
		return s.issueTokenSet(ctx, tenantID, client, subjectID, sessionID, grant.Scopes, "", true)
	default:
		return nil, NewError(ErrServerError, "unknown ciba request status")
	}
}

func mapPollError(err error) *Error {
	switch {
	case errors.Is(err, tokensvc.ErrGrantExpired):
		return NewError("expired_token", "the device/CIBA request expired")
	case errors.Is(err, tokensvc.ErrGrantNotFound):
		return NewError(ErrInvalidGrant, "unknown device_code or auth_req_id")
	case errors.Is(err, tokensvc.ErrWrongGrantType):
		return NewError(ErrInvalidGrant, "grant type mismatch")
	default:
		return NewError(ErrServerError, err.Error())
	}
}
