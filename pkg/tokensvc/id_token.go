package tokensvc

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CreateIDTokenRequest is the input to Service.CreateIDToken (spec §4.3).
type CreateIDTokenRequest struct {
	TenantID  string
	ClientID  string
	SubjectID string // required
	Algorithm string
	Lifetime  time.Duration
	AuthTime  *time.Time
	AMR       []string
	ACR       string
	Nonce     string
	SessionID string
	// AccessToken/Code, when non-empty, produce at_hash/c_hash respectively,
	// hashed with the algorithm this ID token is signed with.
	AccessToken string
	Code        string
	Claims      map[string]any
}

// CreateIDToken mints an ID token per spec §4.3: always includes iat,
// auth_time (if provided), amr, acr, nonce, sid; computes at_hash/c_hash
// with the left-most-half hashing rule.
func (s *Service) CreateIDToken(ctx context.Context, req CreateIDTokenRequest) (string, error) {
	if req.SubjectID == "" {
		return "", fmt.Errorf("tokensvc: create_id_token requires subject_id")
	}

	now := s.now()
	algorithm := s.algorithm(req.Algorithm)
	expiresAt := now.Add(s.accessTokenLifetime(req.Lifetime))

	claims := make(map[string]any)
	mergeClaimsKeepFirst(claims, map[string]any{
		"sub": req.SubjectID,
		"aud": []string{req.ClientID},
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": newJTI(),
	})
	if req.AuthTime != nil {
		mergeClaimsKeepFirst(claims, map[string]any{"auth_time": req.AuthTime.Unix()})
	}
	if len(req.AMR) > 0 {
		mergeClaimsKeepFirst(claims, map[string]any{"amr": req.AMR})
	}
	if req.ACR != "" {
		mergeClaimsKeepFirst(claims, map[string]any{"acr": req.ACR})
	}
	if req.Nonce != "" {
		mergeClaimsKeepFirst(claims, map[string]any{"nonce": req.Nonce})
	}
	if req.SessionID != "" {
		mergeClaimsKeepFirst(claims, map[string]any{"sid": req.SessionID})
	}

	if req.AccessToken != "" {
		atHash, err := leftMostHalfHash(req.AccessToken, algorithm)
		if err != nil {
			return "", fmt.Errorf("tokensvc: computing at_hash: %w", err)
		}
		mergeClaimsKeepFirst(claims, map[string]any{"at_hash": atHash})
	}
	if req.Code != "" {
		cHash, err := leftMostHalfHash(req.Code, algorithm)
		if err != nil {
			return "", fmt.Errorf("tokensvc: computing c_hash: %w", err)
		}
		mergeClaimsKeepFirst(claims, map[string]any{"c_hash": cHash})
	}

	mergeClaimsKeepFirst(claims, req.Claims)

	signed, _, err := s.signJWT(ctx, req.TenantID, algorithm, jwt.MapClaims(claims))
	if err != nil {
		return "", err
	}
	return signed, nil
}
