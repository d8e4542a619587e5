// Package app implements oluso's command-line surface: serve (run the HTTP
// and LDAP front-ends) and genkey (mint a signing or encryption key into
// the configured store).
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:               "oluso",
	DisableAutoGenTag: true,
	Short:             "Oluso multi-tenant identity platform",
	Long: `oluso runs the identity platform's protocol front-ends (OIDC,
SAML 2.0, SCIM 2.0, LDAP), journey orchestrator, token service, and
signing key lifecycle as a single server process.`,
}

// NewRootCmd creates the root command tree for the oluso CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(genkeyCmd)
	return rootCmd
}
