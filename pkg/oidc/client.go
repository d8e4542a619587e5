package oidc

import (
	"net"
	"net/url"
	"strings"

	"github.com/ory/fosite"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// ClientAdapter wraps a store.Client so it satisfies fosite.Client, letting
// the rest of this package reuse fosite's Arguments/Client vocabulary
// without a second client model.
type ClientAdapter struct {
	Client *store.Client
}

func (c *ClientAdapter) GetID() string { return c.Client.ClientID }

func (c *ClientAdapter) GetHashedSecret() []byte {
	if len(c.Client.Secrets) == 0 {
		return nil
	}
	return []byte(c.Client.Secrets[0])
}

func (c *ClientAdapter) GetRedirectURIs() []string { return c.Client.RedirectURIs }

func (c *ClientAdapter) GetGrantTypes() fosite.Arguments {
	return fosite.Arguments(c.Client.AllowedGrantTypes)
}

func (c *ClientAdapter) GetResponseTypes() fosite.Arguments {
	return fosite.Arguments{"code", "id_token", "token"}
}

func (c *ClientAdapter) GetScopes() fosite.Arguments {
	return fosite.Arguments(c.Client.AllowedScopes)
}

func (c *ClientAdapter) IsPublic() bool { return c.Client.Public }

func (c *ClientAdapter) GetAudience() fosite.Arguments { return fosite.Arguments{} }

var _ fosite.Client = (*ClientAdapter)(nil)

// MatchRedirectURI validates a requested redirect_uri against the client's
// registered list. Confidential clients require an exact match; public
// clients additionally accept RFC 8252 §7.3 loopback/native-app redirects
// (spec §4.5 "IsNativeClient rule").
func MatchRedirectURI(c *store.Client, requestedURI string) bool {
	for _, registered := range c.RedirectURIs {
		if requestedURI == registered {
			return true
		}
		if c.Public && matchesAsLoopback(requestedURI, registered) {
			return true
		}
	}
	return false
}

// matchesAsLoopback implements RFC 8252 §7.3: loopback redirect URIs use
// "http", host 127.0.0.1/[::1]/localhost, any port, exact path and query.
// Ported from the teacher's LoopbackClient with the same rules, adapted to
// compare directly against a requested URI rather than wrapping a
// fosite.Client.
func matchesAsLoopback(requestedURI, registeredURI string) bool {
	requested, err := url.Parse(requestedURI)
	if err != nil {
		return false
	}
	registered, err := url.Parse(registeredURI)
	if err != nil {
		return false
	}

	if requested.Scheme != "http" || registered.Scheme != "http" {
		return false
	}
	if !IsLoopbackHost(requested.Hostname()) || !IsLoopbackHost(registered.Hostname()) {
		return false
	}
	if !hostnamesMatch(requested.Hostname(), registered.Hostname()) {
		return false
	}
	if requested.Path != registered.Path {
		return false
	}
	if requested.RawQuery != registered.RawQuery {
		return false
	}
	return true
}

// IsLoopbackHost reports whether hostname is a loopback address per
// RFC 8252 §7.3: "127.0.0.1", "::1", or "localhost" (case-insensitive).
func IsLoopbackHost(hostname string) bool {
	if strings.EqualFold(hostname, "localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}

func hostnamesMatch(requested, registered string) bool {
	if strings.EqualFold(requested, "localhost") && strings.EqualFold(registered, "localhost") {
		return true
	}
	return requested == registered
}

// IsNativeClient reports whether a client is eligible for loopback/native
// redirect matching: public clients only (spec §4.5, Invariant 7).
func IsNativeClient(c *store.Client) bool {
	return c.Public
}
