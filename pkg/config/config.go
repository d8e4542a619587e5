// Package config loads server and tenant configuration via viper:
// defaults, an optional config file, and environment variable overrides,
// following the same precedence order as toolhive's cmd/*/app flag
// binding (viper.BindPFlag feeding into viper.Get*) generalized to a
// struct-based config.Load the way the reference kubilitics-backend
// config loader structures its own Load function.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the platform's server-wide configuration. Per-tenant settings
// (journey policies, signing key refs, custom domains) live in pkg/store
// and pkg/tenant, resolved at request time — Config only covers what the
// process needs before it can serve a single request.
type Config struct {
	// HTTP server
	ListenAddr          string `mapstructure:"listen_addr"`
	ShutdownTimeoutSec  int    `mapstructure:"shutdown_timeout_sec"`
	ReadTimeoutSec      int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec     int    `mapstructure:"write_timeout_sec"`
	TLSEnabled          bool   `mapstructure:"tls_enabled"`
	TLSCertPath         string `mapstructure:"tls_cert_path"`
	TLSKeyPath          string `mapstructure:"tls_key_path"`

	// LDAP front-end (spec §6): listens on its own TCP port, separate
	// from the HTTP server.
	LDAPListenAddr string `mapstructure:"ldap_listen_addr"`
	LDAPEnabled    bool   `mapstructure:"ldap_enabled"`

	// Tenancy / issuer resolution (pkg/tenant)
	TenantHeaderName  string `mapstructure:"tenant_header_name"`
	PlatformIssuerURL string `mapstructure:"platform_issuer_url"`

	// Storage backend selection for pkg/store: "memory" or "redis".
	StorageBackend string `mapstructure:"storage_backend"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`

	// Relational tenant registry (pkg/tenant.SQLHostMapper), optional —
	// when TenantRegistryEnabled is false the host-based tenant
	// resolution step is skipped.
	TenantRegistryEnabled bool   `mapstructure:"tenant_registry_enabled"`
	TenantRegistryHost    string `mapstructure:"tenant_registry_host"`
	TenantRegistryPort    int    `mapstructure:"tenant_registry_port"`
	TenantRegistryUser    string `mapstructure:"tenant_registry_user"`
	TenantRegistryPass    string `mapstructure:"tenant_registry_pass"`
	TenantRegistryDBName  string `mapstructure:"tenant_registry_dbname"`
	TenantRegistrySSLMode string `mapstructure:"tenant_registry_sslmode"`

	// Signing key lifecycle (pkg/signing)
	SigningKeyRotationDays int    `mapstructure:"signing_key_rotation_days"`
	SigningKeyAlgorithm    string `mapstructure:"signing_key_algorithm"`

	// EncryptionKeyBase64 seals signing-key private material at rest
	// (signing.AESGCMEncryptionService, a 32-byte AES-256 key). Left empty
	// in a dev config, serve generates and logs a throwaway key instead of
	// refusing to start, trading at-rest durability across restarts for a
	// zero-config first run.
	EncryptionKeyBase64 string `mapstructure:"encryption_key_base64"`

	// PlatformIssuerEntityID/PlatformSSOURL/PlatformSLOURL configure the
	// SAML IdP role's own published identity (spec §4.6).
	SAMLIssuerEntityID string `mapstructure:"saml_issuer_entity_id"`
	SAMLSSOPath        string `mapstructure:"saml_sso_path"`
	SAMLSLOPath        string `mapstructure:"saml_slo_path"`
	SAMLSPEntityID     string `mapstructure:"saml_sp_entity_id"`

	// WebAuthnRPID is the Relying Party ID the WebAuthn step checks every
	// authenticator response against (spec §4.2 WebAuthn: "RP-ID hash
	// compare").
	WebAuthnRPID string `mapstructure:"webauthn_rp_id"`

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogProduction bool   `mapstructure:"log_production"`
}

// Load reads configuration from (in increasing precedence) built-in
// defaults, an optional config file named "oluso" under /etc/oluso/,
// $HOME/.oluso, or the working directory, and OLUSO_-prefixed
// environment variables.
func Load() (*Config, error) {
	v := viper.GetViper()
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("oluso")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/oluso/")
	v.AddConfigPath("$HOME/.oluso")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("OLUSO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8443")
	v.SetDefault("shutdown_timeout_sec", 30)
	v.SetDefault("read_timeout_sec", 10)
	v.SetDefault("write_timeout_sec", 15)
	v.SetDefault("tls_enabled", false)

	v.SetDefault("ldap_enabled", false)
	v.SetDefault("ldap_listen_addr", ":8389")

	v.SetDefault("tenant_header_name", "X-Tenant-Id")
	v.SetDefault("platform_issuer_url", "")

	v.SetDefault("storage_backend", "memory")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)

	v.SetDefault("tenant_registry_enabled", false)
	v.SetDefault("tenant_registry_port", 5432)
	v.SetDefault("tenant_registry_sslmode", "require")

	v.SetDefault("signing_key_rotation_days", 90)
	v.SetDefault("signing_key_algorithm", "RS256")

	v.SetDefault("saml_issuer_entity_id", "https://idp.oluso.local/saml/idp")
	v.SetDefault("saml_sso_path", "/saml/idp/sso")
	v.SetDefault("saml_slo_path", "/saml/idp/slo")
	v.SetDefault("saml_sp_entity_id", "https://idp.oluso.local/saml/sp")
	v.SetDefault("webauthn_rp_id", "oluso.local")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_production", false)
}
