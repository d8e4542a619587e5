package webauthn

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey/handlers"
	"github.com/SyndewTech/Oluso-sub010/pkg/logger"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// Verifier implements handlers.WebAuthnVerifier: CBOR-decode an attestation
// object for registration or validate a raw authenticatorData+signature for
// authentication, per spec §4.2's WebAuthn step description.
type Verifier struct {
	Credentials store.WebAuthnCredentialStore
	RPID        string
	Now         func() time.Time
}

var _ handlers.WebAuthnVerifier = (*Verifier)(nil)

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// VerifyRegistration decodes the attestation object, checks the RP-ID hash
// and user-present flag, extracts the attested credential's public key, and
// persists it. It does not attempt attestation-statement (attStmt)
// signature chain verification against a trust anchor — "fmt"/"attStmt"
// are accepted and stored for audit but not cryptographically validated
// against vendor root certificates, consistent with spec §4.2's description
// of the registration step covering only "CBOR decoding ... RP-ID hash
// compare; user-present flag".
func (v *Verifier) VerifyRegistration(_ context.Context, tenantID, userID string, attestationObject, clientDataJSON []byte) (string, error) {
	obj, err := DecodeAttestationObject(attestationObject)
	if err != nil {
		return "", fmt.Errorf("webauthn: decoding attestation object: %w", err)
	}
	authData, err := ParseAuthenticatorData(obj.AuthData)
	if err != nil {
		return "", err
	}
	if err := v.checkRPIDHash(authData); err != nil {
		return "", err
	}
	if !authData.UserPresent() {
		return "", fmt.Errorf("webauthn: user-present flag not set")
	}
	if len(authData.CredentialID) == 0 || len(authData.CredentialPublicKey) == 0 {
		return "", fmt.Errorf("webauthn: attestation has no attested credential data")
	}
	// Validate the COSE key decodes and is a supported algorithm before
	// persisting it, so a malformed or unsupported key never silently
	// accumulates as a stored credential nothing can later verify with.
	if _, err := parseCOSEKey(authData.CredentialPublicKey); err != nil {
		return "", err
	}

	credentialID := base64.RawURLEncoding.EncodeToString(authData.CredentialID)
	if err := v.Credentials.PutWebAuthnCredential(context.Background(), &store.WebAuthnCredential{
		CredentialID:  credentialID,
		TenantID:      tenantID,
		UserID:        userID,
		PublicKeyCOSE: authData.CredentialPublicKey,
		SignCount:     authData.SignCount,
		CreatedAt:     v.now(),
	}); err != nil {
		return "", err
	}
	return credentialID, nil
}

// VerifyAssertion validates an authentication ceremony: RP-ID hash, user
// present flag, and the signature over authData||SHA-256(clientDataJSON)
// against every credential registered to userID (the credential id itself
// isn't threaded through handlers.WebAuthnVerifier's signature, so a user
// with more than one registered authenticator is checked against each in
// turn). The counter check is lenient per the redesign flag: a
// non-increasing counter is logged, not rejected, "since some
// authenticators don't implement counters."
func (v *Verifier) VerifyAssertion(ctx context.Context, tenantID, userID string, authenticatorData, clientDataJSON, signature []byte) error {
	authData, err := ParseAuthenticatorData(authenticatorData)
	if err != nil {
		return err
	}
	if err := v.checkRPIDHash(authData); err != nil {
		return err
	}
	if !authData.UserPresent() {
		return fmt.Errorf("webauthn: user-present flag not set")
	}

	creds, err := v.Credentials.ListWebAuthnCredentials(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		return fmt.Errorf("webauthn: no registered credentials for user %q", userID)
	}

	clientDataHash := sha256.Sum256(clientDataJSON)
	message := append(append([]byte(nil), authenticatorData...), clientDataHash[:]...)

	var matched *store.WebAuthnCredential
	for _, c := range creds {
		key, err := parseCOSEKey(c.PublicKeyCOSE)
		if err != nil {
			continue
		}
		if key.VerifySignature(message, signature) == nil {
			matched = c
			break
		}
	}
	if matched == nil {
		return fmt.Errorf("webauthn: signature did not verify against any registered credential")
	}

	if authData.SignCount != 0 && matched.SignCount != 0 && authData.SignCount <= matched.SignCount {
		logger.Warnw("webauthn: authenticator counter did not advance",
			"tenant_id", tenantID, "user_id", userID, "credential_id", matched.CredentialID,
			"stored_count", matched.SignCount, "reported_count", authData.SignCount)
	}
	if authData.SignCount != 0 {
		if err := v.Credentials.UpdateSignCount(ctx, tenantID, matched.CredentialID, authData.SignCount); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) checkRPIDHash(authData *AuthenticatorData) error {
	want := sha256.Sum256([]byte(v.RPID))
	if authData.RPIDHash != want {
		return fmt.Errorf("webauthn: rpIdHash does not match expected RP ID %q", v.RPID)
	}
	return nil
}
