// Package localauth adapts pkg/store's ScimUser/Consent/Resource stores
// into the narrow capability interfaces pkg/journey/handlers declares
// (UserAuthenticator, TOTPSecretLookup, UserProvisioner, ConsentRecorder,
// ResourceResolver). Spec §6 lists SCIM as the provisioning surface and
// names no separate "local user" store, so password hashes and TOTP
// secrets are carried as extension attributes on the already-provisioned
// store.ScimUser row rather than inventing a parallel user table.
//
// Password hashing uses golang.org/x/crypto/bcrypt, the library every
// bcrypt-using repo in the retrieval pack reaches for (authelia,
// cryptoutil, teleport). TOTP secret storage lives here too, but
// verification itself is pkg/journey/handlers' own RFC 6238 implementation
// (totp.go) — this package only stores and returns the enrolled secret.
package localauth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey/handlers"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

const (
	attrPasswordHash = "password_hash"
	attrTOTPSecret   = "totp_secret"
)

// Users adapts store.ScimUserStore into UserAuthenticator, TOTPSecretLookup
// and UserProvisioner.
type Users struct {
	Store store.ScimUserStore
}

var (
	_ handlers.UserAuthenticator = (*Users)(nil)
	_ handlers.TOTPSecretLookup  = (*Users)(nil)
	_ handlers.UserProvisioner   = (*Users)(nil)
)

// HashPassword bcrypt-hashes a cleartext password for storage in a
// ScimUser's password_hash attribute.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("localauth: hashing password: %w", err)
	}
	return string(hash), nil
}

// Authenticate implements handlers.UserAuthenticator.
func (u *Users) Authenticate(ctx context.Context, tenantID, username, password string) (handlers.AuthResult, error) {
	user, err := u.Store.FindScimUserByUserName(ctx, tenantID, username)
	if err != nil {
		return handlers.AuthResult{}, fmt.Errorf("localauth: looking up user %q: %w", username, err)
	}
	if !user.Active {
		return handlers.AuthResult{}, fmt.Errorf("localauth: user %q is not active", username)
	}

	hash, _ := user.Attributes[attrPasswordHash].(string)
	if hash == "" {
		return handlers.AuthResult{}, fmt.Errorf("localauth: user %q has no password set", username)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return handlers.AuthResult{}, fmt.Errorf("localauth: invalid credentials for %q", username)
	}

	_, enrolled := user.Attributes[attrTOTPSecret].(string)
	return handlers.AuthResult{UserID: user.ID, MFAEnabled: enrolled}, nil
}

// TOTPSecret implements handlers.TOTPSecretLookup.
func (u *Users) TOTPSecret(ctx context.Context, tenantID, userID string) (string, bool, error) {
	user, err := u.Store.GetScimUser(ctx, tenantID, userID)
	if err != nil {
		if err == store.ErrNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("localauth: looking up user %q: %w", userID, err)
	}
	secret, ok := user.Attributes[attrTOTPSecret].(string)
	if !ok || secret == "" {
		return "", false, nil
	}
	return secret, true, nil
}

// EnsureUser implements handlers.UserProvisioner: auto-provisioning maps
// the external identity's username onto a local ScimUser row, creating one
// on first sight. externalID doubles as the new user's UserName, the same
// convention spec §4.2's Ldap step describes ("maps returned groups to
// roles") assuming federated and local identities share a namespace.
func (u *Users) EnsureUser(ctx context.Context, tenantID, externalID string, attrs map[string]any) (string, error) {
	existing, err := u.Store.FindScimUserByUserName(ctx, tenantID, externalID)
	if err == nil {
		return existing.ID, nil
	}
	if err != store.ErrNotFound {
		return "", fmt.Errorf("localauth: looking up provisioned user %q: %w", externalID, err)
	}

	user := &store.ScimUser{
		ID:         newID(),
		TenantID:   tenantID,
		ExternalID: externalID,
		UserName:   externalID,
		Active:     true,
		Attributes: attrs,
	}
	if err := u.Store.PutScimUser(ctx, user); err != nil {
		return "", fmt.Errorf("localauth: provisioning user %q: %w", externalID, err)
	}
	return user.ID, nil
}

// Consents adapts store.ConsentStore into handlers.ConsentRecorder.
type Consents struct {
	Store store.ConsentStore
}

var _ handlers.ConsentRecorder = (*Consents)(nil)

func (c *Consents) GetConsent(ctx context.Context, tenantID, subjectID, clientID string) ([]string, bool, error) {
	consent, err := c.Store.GetConsent(ctx, tenantID, subjectID, clientID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	if consent.IsExpired(nowUTC()) {
		return nil, false, nil
	}
	return consent.Scopes, true, nil
}

func (c *Consents) PutConsent(ctx context.Context, tenantID, subjectID, clientID string, scopes []string) error {
	return c.Store.PutConsent(ctx, &store.Consent{
		TenantID:  tenantID,
		SubjectID: subjectID,
		ClientID:  clientID,
		Scopes:    scopes,
		CreatedAt: nowUTC(),
	})
}

// Resources adapts store.ResourceStore into handlers.ResourceResolver.
type Resources struct {
	Store store.ResourceStore
}

var _ handlers.ResourceResolver = (*Resources)(nil)

func (r *Resources) ResolveScopes(ctx context.Context, tenantID string, scopes []string) ([]handlers.ResolvedResource, error) {
	out := make([]handlers.ResolvedResource, 0, len(scopes))
	for _, scope := range scopes {
		res, err := r.Store.GetResource(ctx, tenantID, scope)
		if err != nil {
			if err == store.ErrNotFound {
				out = append(out, handlers.ResolvedResource{Name: scope, DisplayName: scope})
				continue
			}
			return nil, fmt.Errorf("localauth: resolving scope %q: %w", scope, err)
		}
		out = append(out, handlers.ResolvedResource{
			Name:        res.Name,
			DisplayName: res.DisplayName,
			Required:    res.Required,
		})
	}
	return out, nil
}
