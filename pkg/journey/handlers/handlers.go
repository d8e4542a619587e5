// Package handlers implements the representative journey step types named
// in spec §4.2: LocalLogin, Mfa, Consent, WebAuthn, Ldap, Webhook,
// Transform, plus a generic Collect step for the data-collection policies
// (Waitlist/ContactForm/Survey/Feedback) and a Branch step for explicit
// condition-driven routing.
//
// Each handler is a small struct holding only the collaborators it needs,
// constructed once at server startup and registered into a
// journey.Registry under its step_type string — grounded on toolhive's
// pkg/auth/token.go TokenIntrospector registry, where each provider
// (Google, RFC7662, ...) is its own struct satisfying one interface.
package handlers

import (
	"context"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// UserAuthenticator validates a username/password pair against the user
// service (spec §4.2 LocalLogin: "validates against user service").
type UserAuthenticator interface {
	Authenticate(ctx context.Context, tenantID, username, password string) (AuthResult, error)
}

// AuthResult is what a successful Authenticate call reports back.
type AuthResult struct {
	UserID     string
	MFAEnabled bool
}

// TOTPSecretLookup resolves a user's enrolled TOTP secret.
type TOTPSecretLookup interface {
	TOTPSecret(ctx context.Context, tenantID, userID string) (secret string, ok bool, err error)
}

// ConsentRecorder persists and checks remembered consent (spec §4.2
// Consent handler).
type ConsentRecorder interface {
	GetConsent(ctx context.Context, tenantID, subjectID, clientID string) (scopes []string, found bool, err error)
	PutConsent(ctx context.Context, tenantID, subjectID, clientID string, scopes []string) error
}

// ResourceResolver resolves requested scopes to identity/API resources,
// used by Consent to build the consent prompt's resource list.
type ResourceResolver interface {
	ResolveScopes(ctx context.Context, tenantID string, scopes []string) ([]ResolvedResource, error)
}

// ResolvedResource is a scope resolved to a displayable resource.
type ResolvedResource struct {
	Name        string
	DisplayName string
	Required    bool
}

// EventPublisher emits domain events (ConsentGranted, ConsentDenied, ...).
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]any)
}

// WebAuthnVerifier verifies a registration attestation or authentication
// assertion (delegated to pkg/webauthn).
type WebAuthnVerifier interface {
	VerifyRegistration(ctx context.Context, tenantID, userID string, attestationObject, clientDataJSON []byte) (credentialID string, err error)
	VerifyAssertion(ctx context.Context, tenantID, userID string, authenticatorData, clientDataJSON, signature []byte) error
}

// LDAPBinder authenticates via a directory bind (delegated to pkg/ldapfront
// in client mode) and maps returned groups to local roles.
type LDAPBinder interface {
	Bind(ctx context.Context, tenantID, username, password string) (LDAPBindResult, error)
}

// LDAPBindResult is what a successful directory bind reports.
type LDAPBindResult struct {
	UserID string
	Groups []string
}

// UserProvisioner auto-provisions a local user record the first time an
// external identity (LDAP, upstream IdP) authenticates.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, tenantID, externalID string, attrs map[string]any) (userID string, err error)
}

// stepConfigString reads a required string config key, returning ok=false
// if absent or not a string.
func stepConfigString(cfg map[string]any, key string) (string, bool) {
	v, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stepConfigBool(cfg map[string]any, key string, def bool) bool {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func stepConfigStringSlice(cfg map[string]any, key string) []string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func userInputString(ec *journey.ExecContext, key string) (string, bool) {
	v, ok := ec.UserInput[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
