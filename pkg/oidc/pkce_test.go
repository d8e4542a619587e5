package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestVerifyPKCE_S256(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := s256Challenge(verifier)

	require.True(t, VerifyPKCE(challenge, "S256", verifier))
	require.False(t, VerifyPKCE(challenge, "S256", "wrong-verifier"))
}

func TestVerifyPKCE_RejectsPlain(t *testing.T) {
	verifier := "some-verifier-value"
	// A "plain" challenge is just the verifier itself, but the method is
	// never accepted regardless of whether challenge == verifier.
	require.False(t, VerifyPKCE(verifier, "plain", verifier))
}

func TestVerifyPKCE_NoChallengeRequiresNoVerifier(t *testing.T) {
	require.True(t, VerifyPKCE("", "", ""))
	require.False(t, VerifyPKCE("", "", "unexpected-verifier"))
}

func TestVerifyPKCE_MissingVerifier(t *testing.T) {
	challenge := s256Challenge("verifier")
	require.False(t, VerifyPKCE(challenge, "S256", ""))
}
