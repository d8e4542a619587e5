package tokensvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// CodeGrant is the redeemed, fully-typed form of an authorization_code
// grant (spec §4.3 redeem_code).
type CodeGrant struct {
	Grant       *store.PersistedGrant
	Nonce       string
	RedirectURI string
	CodeChallenge       string
	CodeChallengeMethod string
}

// RefreshGrant is the redeemed, fully-typed form of a refresh_token grant
// (spec §4.3 redeem_refresh).
type RefreshGrant struct {
	Grant *store.PersistedGrant
}

// RedeemCode atomically marks the authorization_code grant consumed and
// returns it decoded. Concurrent redemption is resolved by the store's
// mark-consumed-if-not-consumed primitive: exactly one caller succeeds,
// every other sees ErrAlreadyConsumed (spec Invariant 1).
func (s *Service) RedeemCode(ctx context.Context, code string) (*CodeGrant, error) {
	grant, err := s.Grants.CompareAndConsumeGrant(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyConsumed) {
			return nil, ErrAlreadyConsumed
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("tokensvc: redeeming code: %w", err)
	}
	if grant.Type != store.GrantAuthorizationCode {
		return nil, ErrWrongGrantType
	}
	if grant.IsExpired(s.now()) {
		return nil, ErrGrantExpired
	}

	payload, err := unmarshalCodePayload(grant.SerializedPayload)
	if err != nil {
		return nil, err
	}
	return &CodeGrant{
		Grant:               grant,
		Nonce:               payload.Nonce,
		RedirectURI:         payload.RedirectURI,
		CodeChallenge:       payload.CodeChallenge,
		CodeChallengeMethod: payload.CodeChallengeMethod,
	}, nil
}

// RedeemRefresh atomically marks the refresh_token grant consumed. Callers
// that rotate refresh tokens mint a replacement via CreateRefreshToken after
// a successful redemption here; the old handle stays consumed.
func (s *Service) RedeemRefresh(ctx context.Context, handle string) (*RefreshGrant, error) {
	grant, err := s.Grants.CompareAndConsumeGrant(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyConsumed) {
			return nil, ErrAlreadyConsumed
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("tokensvc: redeeming refresh token: %w", err)
	}
	if grant.Type != store.GrantRefreshToken {
		return nil, ErrWrongGrantType
	}
	if grant.IsExpired(s.now()) {
		return nil, ErrGrantExpired
	}
	return &RefreshGrant{Grant: grant}, nil
}

// Revoke marks a grant consumed and, when it is a refresh token tied to a
// session, cascades to every other grant in that session — the
// refresh-token-family revocation spec §4.3 describes.
func (s *Service) Revoke(ctx context.Context, handle string) error {
	grant, err := s.Grants.GetGrant(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("tokensvc: looking up grant to revoke: %w", err)
	}

	if err := s.Grants.RevokeGrant(ctx, handle); err != nil {
		return fmt.Errorf("tokensvc: revoking grant: %w", err)
	}

	if grant.Type == store.GrantRefreshToken && grant.SessionID != "" {
		if err := s.Grants.RevokeGrantsBySession(ctx, grant.SessionID); err != nil {
			return fmt.Errorf("tokensvc: cascading session revocation: %w", err)
		}
	}
	return nil
}
