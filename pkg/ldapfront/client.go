package ldapfront

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey/handlers"
)

// UpstreamDirectory names one external directory the Ldap step handler
// binds against (spec §4.2 Ldap: "authenticates via directory bind, maps
// returned groups to roles").
type UpstreamDirectory struct {
	Addr         string // host:port
	UseTLS       bool
	BaseDN       string
	UserFilter   string // e.g. "(uid=%s)"; %s is replaced with the username
	GroupFilter  string // e.g. "(&(objectClass=groupOfNames)(member=%s))"
	GroupAttr    string // attribute on the matched group entry holding its name, e.g. "cn"
	BindDN       string // service account used for the search phase, "" for anonymous
	BindPassword string
}

// DirectoryBinder implements handlers.LDAPBinder by performing a real bind
// against a configured upstream directory via go-ldap/ldap/v3 — the
// standard client library for this, used in client mode exactly as spec
// §6's "LDAP, client-mode bind" line calls for.
type DirectoryBinder struct {
	Directories map[string]UpstreamDirectory // keyed by tenantID
}

var _ handlers.LDAPBinder = (*DirectoryBinder)(nil)

// Bind performs a search-then-bind: search for the user's DN with the
// service account (or anonymously), then bind as that DN with the supplied
// password to verify it, then search for group membership.
func (b *DirectoryBinder) Bind(ctx context.Context, tenantID, username, password string) (handlers.LDAPBindResult, error) {
	dir, ok := b.Directories[tenantID]
	if !ok {
		return handlers.LDAPBindResult{}, fmt.Errorf("ldapfront: no directory configured for tenant %q", tenantID)
	}

	conn, err := dialDirectory(dir)
	if err != nil {
		return handlers.LDAPBindResult{}, err
	}
	defer conn.Close()

	if dir.BindDN != "" {
		if err := conn.Bind(dir.BindDN, dir.BindPassword); err != nil {
			return handlers.LDAPBindResult{}, fmt.Errorf("ldapfront: service bind failed: %w", err)
		}
	}

	userFilter := ldap.EscapeFilter(username)
	searchFilter := fmt.Sprintf(dir.UserFilter, userFilter)
	searchReq := ldap.NewSearchRequest(
		dir.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		searchFilter, []string{"dn"}, nil,
	)
	result, err := conn.Search(searchReq)
	if err != nil {
		return handlers.LDAPBindResult{}, fmt.Errorf("ldapfront: user search failed: %w", err)
	}
	if len(result.Entries) != 1 {
		return handlers.LDAPBindResult{}, fmt.Errorf("ldapfront: user %q not found or ambiguous", username)
	}
	userDN := result.Entries[0].DN

	if err := conn.Bind(userDN, password); err != nil {
		return handlers.LDAPBindResult{}, fmt.Errorf("ldapfront: invalid credentials: %w", err)
	}

	groups, err := b.lookupGroups(ctx, conn, dir, userDN)
	if err != nil {
		return handlers.LDAPBindResult{}, err
	}

	return handlers.LDAPBindResult{UserID: userDN, Groups: groups}, nil
}

func (b *DirectoryBinder) lookupGroups(ctx context.Context, conn *ldap.Conn, dir UpstreamDirectory, userDN string) ([]string, error) {
	if dir.GroupFilter == "" {
		return nil, nil
	}
	filter := fmt.Sprintf(dir.GroupFilter, ldap.EscapeFilter(userDN))
	attr := dir.GroupAttr
	if attr == "" {
		attr = "cn"
	}
	req := ldap.NewSearchRequest(
		dir.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter, []string{attr}, nil,
	)
	result, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("ldapfront: group search failed: %w", err)
	}
	var groups []string
	for _, entry := range result.Entries {
		if v := entry.GetAttributeValue(attr); v != "" {
			groups = append(groups, v)
		}
	}
	return groups, nil
}

func dialDirectory(dir UpstreamDirectory) (*ldap.Conn, error) {
	if dir.UseTLS {
		return ldap.DialURL(fmt.Sprintf("ldaps://%s", dir.Addr),
			ldap.DialWithTLSConfig(&tls.Config{ServerName: hostOnly(dir.Addr)}))
	}
	return ldap.DialURL(fmt.Sprintf("ldap://%s", dir.Addr))
}

func hostOnly(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}
