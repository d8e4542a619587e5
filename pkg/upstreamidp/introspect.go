package upstreamidp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/tokensvc"
)

// Introspector adapts a Provider into tokensvc.UpstreamIntrospector: it
// recognizes one vendor's opaque access tokens by their configured prefix
// and validates them against that vendor's own RFC 7662 introspection
// endpoint, the same "pick a provider, ask its endpoint" shape as
// toolhive's pkg/auth.GoogleProvider/RFC7662Provider, generalized from a
// single hardcoded vendor to any configured Provider.
type Introspector struct {
	Provider *Provider
}

// Name identifies this introspector in logs/diagnostics.
func (i *Introspector) Name() string {
	return i.Provider.Name
}

// CanHandle reports whether token's shape matches this provider's known
// token prefix. Returns false unconditionally when the provider has none
// configured.
func (i *Introspector) CanHandle(token string) bool {
	if i.Provider.TokenPrefix == "" {
		return false
	}
	return strings.HasPrefix(token, i.Provider.TokenPrefix)
}

// rfc7662Response is the subset of RFC 7662 §2.2 fields this adapter maps
// into tokensvc.IntrospectionResult.
type rfc7662Response struct {
	Active   bool   `json:"active"`
	Scope    string `json:"scope"`
	ClientID string `json:"client_id"`
	Sub      string `json:"sub"`
	Exp      int64  `json:"exp"`
}

// Introspect calls the provider's introspection endpoint with HTTP Basic
// client authentication (RFC 7662 §2.1) and maps the response.
func (i *Introspector) Introspect(ctx context.Context, token string) (*tokensvc.IntrospectionResult, error) {
	if i.Provider.IntrospectionEndpoint == "" {
		return nil, fmt.Errorf("upstreamidp: %s has no introspection endpoint configured", i.Provider.Name)
	}

	form := url.Values{}
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.Provider.IntrospectionEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("upstreamidp: building introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if i.Provider.ClientID != "" {
		req.SetBasicAuth(i.Provider.ClientID, i.Provider.ClientSecret)
	}

	resp, err := i.Provider.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstreamidp: introspecting via %s: %w", i.Provider.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("upstreamidp: reading introspection response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstreamidp: %s introspection endpoint returned %d: %s", i.Provider.Name, resp.StatusCode, body)
	}

	var parsed rfc7662Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("upstreamidp: decoding introspection response: %w", err)
	}
	if !parsed.Active {
		return &tokensvc.IntrospectionResult{Active: false}, nil
	}

	claims := map[string]any{}
	if parsed.Sub != "" {
		claims["sub"] = parsed.Sub
	}
	if parsed.ClientID != "" {
		claims["client_id"] = parsed.ClientID
	}
	if parsed.Scope != "" {
		claims["scope"] = parsed.Scope
	}

	result := &tokensvc.IntrospectionResult{Active: true, Claims: claims}
	if parsed.Exp > 0 {
		result.ExpiresAt = time.Unix(parsed.Exp, 0)
	}
	return result, nil
}

var _ tokensvc.UpstreamIntrospector = (*Introspector)(nil)
