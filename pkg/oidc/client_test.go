package oidc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

func TestMatchRedirectURI_PublicClientLoopbackDifferentPort(t *testing.T) {
	client := &store.Client{
		Public:       true,
		RedirectURIs: []string{"http://127.0.0.1:8080/cb"},
	}

	// RFC 8252 §7.3: the ephemeral port is allowed to vary between
	// registration and the actual request.
	require.True(t, MatchRedirectURI(client, "http://127.0.0.1:53219/cb"))
	require.True(t, MatchRedirectURI(client, "http://localhost:9999/cb"))
	require.True(t, MatchRedirectURI(client, "http://[::1]:4000/cb"))
}

func TestMatchRedirectURI_PublicClientLoopbackPathMustMatch(t *testing.T) {
	client := &store.Client{
		Public:       true,
		RedirectURIs: []string{"http://127.0.0.1:8080/cb"},
	}

	require.False(t, MatchRedirectURI(client, "http://127.0.0.1:53219/different-path"))
}

func TestMatchRedirectURI_PublicClientRejectsNonLoopbackHost(t *testing.T) {
	client := &store.Client{
		Public:       true,
		RedirectURIs: []string{"http://127.0.0.1:8080/cb"},
	}

	require.False(t, MatchRedirectURI(client, "http://evil.example:8080/cb"))
	require.False(t, MatchRedirectURI(client, "https://127.0.0.1:8080/cb"))
}

func TestMatchRedirectURI_ConfidentialClientRequiresExactMatch(t *testing.T) {
	client := &store.Client{
		Public:       false,
		RedirectURIs: []string{"http://127.0.0.1:8080/cb"},
	}

	// Confidential clients never get the loopback exemption, even for a
	// registered loopback URI: only an exact match is accepted.
	require.False(t, MatchRedirectURI(client, "http://127.0.0.1:9999/cb"))
	require.True(t, MatchRedirectURI(client, "http://127.0.0.1:8080/cb"))
}

func TestIsNativeClient(t *testing.T) {
	require.True(t, IsNativeClient(&store.Client{Public: true}))
	require.False(t, IsNativeClient(&store.Client{Public: false}))
}
