// Package admin implements the administrative REST surface (spec §8
// scenario 6: reserved-role and reserved-claim guard on role creation),
// grounded on the routing/handler shape of stacklok-toolhive's
// pkg/api/v1 group/client management endpoints.
package admin

import "strings"

// reservedRoleNames can never be used as a tenant-defined Role.Name: they
// are names the platform itself would assign meaning to, so letting a
// tenant administrator define a role by one of these names would let it
// shadow or be confused with a platform-reserved concept.
var reservedRoleNames = map[string]struct{}{
	"superadmin":  {},
	"super_admin": {},
	"admin":       {},
	"owner":       {},
	"root":        {},
	"system":      {},
	"service":     {},
}

// reservedClaimTypes can never appear in a Role's claim list: granting
// them through an ordinary administrator-defined role would let any
// tenant admin silently mint a claim that is supposed to be reserved for
// the platform's own super-admin bootstrap path.
var reservedClaimTypes = map[string]struct{}{
	"super_admin": {},
	"system_role": {},
}

// isReservedRoleName reports whether name collides with a reserved role
// name, matched case-insensitively (spec's "SuperAdmin" example is not
// all-lowercase).
func isReservedRoleName(name string) bool {
	_, ok := reservedRoleNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// isReservedClaimType reports whether claimType collides with a reserved
// claim type.
func isReservedClaimType(claimType string) bool {
	_, ok := reservedClaimTypes[strings.ToLower(strings.TrimSpace(claimType))]
	return ok
}
