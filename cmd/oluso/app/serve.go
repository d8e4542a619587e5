package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/SyndewTech/Oluso-sub010/pkg/condition"
	"github.com/SyndewTech/Oluso-sub010/pkg/config"
	"github.com/SyndewTech/Oluso-sub010/pkg/events"
	"github.com/SyndewTech/Oluso-sub010/pkg/httpapi"
	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/journey/handlers"
	"github.com/SyndewTech/Oluso-sub010/pkg/ldapfront"
	"github.com/SyndewTech/Oluso-sub010/pkg/localauth"
	"github.com/SyndewTech/Oluso-sub010/pkg/logger"
	"github.com/SyndewTech/Oluso-sub010/pkg/oidc"
	"github.com/SyndewTech/Oluso-sub010/pkg/saml"
	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/rediskv"
	"github.com/SyndewTech/Oluso-sub010/pkg/tenant"
	"github.com/SyndewTech/Oluso-sub010/pkg/tokensvc"
	"github.com/SyndewTech/Oluso-sub010/pkg/upstreamidp"
	"github.com/SyndewTech/Oluso-sub010/pkg/webauthn"

	"github.com/redis/go-redis/v9"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP protocol front-ends and, if enabled, the LDAP listener",
	RunE:  runServe,
}

// Graceful-shutdown timing, grounded on toolhive's thv-registry-api serve
// command: a short read/write budget per request and a generous drain
// window for in-flight requests at shutdown.
const (
	serverReadTimeout  = 10 * time.Second
	serverWriteTimeout = 15 * time.Second
	serverIdleTimeout  = 60 * time.Second
)

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("serve: loading configuration: %w", err)
	}

	if err := logger.Initialize(logger.Options{Production: cfg.LogProduction, Level: cfg.LogLevel}); err != nil {
		return fmt.Errorf("serve: initializing logger: %w", err)
	}

	deps, closeDeps, err := wireDependencies(cfg)
	if err != nil {
		return fmt.Errorf("serve: wiring dependencies: %w", err)
	}
	defer closeDeps()

	router := httpapi.NewRouter(deps.router)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Infof("oluso: HTTP listening on %s (tls=%v)", cfg.ListenAddr, cfg.TLSEnabled)
		var err error
		if cfg.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("oluso: HTTP server failed: %v", err)
		}
	}()

	if cfg.LDAPEnabled {
		ln, err := net.Listen("tcp", cfg.LDAPListenAddr)
		if err != nil {
			return fmt.Errorf("serve: binding LDAP listener on %s: %w", cfg.LDAPListenAddr, err)
		}
		go func() {
			logger.Infof("oluso: LDAP listening on %s", cfg.LDAPListenAddr)
			if err := deps.ldap.Serve(ctx, ln); err != nil {
				logger.Errorf("oluso: LDAP server failed: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("oluso: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("oluso: server forced to shutdown: %v", err)
		return err
	}
	logger.Info("oluso: shutdown complete")
	return nil
}

// serviceDeps is everything runServe needs once construction is done.
type serviceDeps struct {
	router *httpapi.Router
	ldap   *ldapfront.Server
}

// stores bundles every store.* contract the platform needs. memory.Store
// satisfies all of them; a redis-backed deployment only swaps the two
// high-churn, short-lived ones (grants, protocol states) for rediskv.Store,
// keeping everything else (clients, users, roles, keys, sessions, SAML
// registrations) on the in-memory/relational-admin path until a relational
// ClientStore etc. is warranted.
type stores struct {
	*memory.Store // embeds every ScimUser/Role/WebAuthn/etc. method set

	grants store.GrantStore
	proto  store.ProtocolStateStore
}

func (s *stores) CreateGrant(ctx context.Context, g *store.PersistedGrant) error {
	return s.grants.CreateGrant(ctx, g)
}
func (s *stores) GetGrant(ctx context.Context, grantKey string) (*store.PersistedGrant, error) {
	return s.grants.GetGrant(ctx, grantKey)
}
func (s *stores) CompareAndConsumeGrant(ctx context.Context, grantKey string) (*store.PersistedGrant, error) {
	return s.grants.CompareAndConsumeGrant(ctx, grantKey)
}
func (s *stores) RevokeGrant(ctx context.Context, grantKey string) error {
	return s.grants.RevokeGrant(ctx, grantKey)
}
func (s *stores) UpdateGrantPayload(ctx context.Context, grantKey string, payload []byte) error {
	return s.grants.UpdateGrantPayload(ctx, grantKey, payload)
}
func (s *stores) RevokeGrantsBySession(ctx context.Context, sessionID string) error {
	return s.grants.RevokeGrantsBySession(ctx, sessionID)
}
func (s *stores) CreateProtocolState(ctx context.Context, ps *store.ProtocolState) error {
	return s.proto.CreateProtocolState(ctx, ps)
}
func (s *stores) GetProtocolState(ctx context.Context, correlationID string) (*store.ProtocolState, error) {
	return s.proto.GetProtocolState(ctx, correlationID)
}
func (s *stores) ConsumeProtocolState(ctx context.Context, correlationID string) (*store.ProtocolState, error) {
	return s.proto.ConsumeProtocolState(ctx, correlationID)
}

func wireDependencies(cfg *config.Config) (*serviceDeps, func(), error) {
	mem := memory.New()

	backend := &stores{Store: mem, grants: mem, proto: mem}
	var closers []func() error

	tracerProvider := httpapi.NewTracerProvider("oluso")
	otel.SetTracerProvider(tracerProvider)
	closers = append(closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tracerProvider.Shutdown(ctx)
	})

	if cfg.StorageBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		rkv := rediskv.New(client, "oluso:")
		backend.grants = rkv
		backend.proto = rkv
		closers = append(closers, rkv.Close)
		logger.Infof("oluso: using redis grant/protocol-state storage at %s", cfg.RedisAddr)
	}

	encKey, err := resolveEncryptionKey(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, nil, err
	}
	enc, err := signing.NewAESGCMEncryptionService(encKey)
	if err != nil {
		return nil, nil, fmt.Errorf("building encryption service: %w", err)
	}

	sigRegistry := signing.NewRegistry()
	sigRegistry.Register(&signing.LocalProvider{Encryption: enc})

	keyManager := &signing.KeyManager{Registry: sigRegistry, Keys: backend, NewKeyID: newKeyID}
	if err := ensureSigningKey(keyManager, cfg); err != nil {
		return nil, nil, err
	}
	credentials := signing.NewSigningCredentialStore(backend, sigRegistry)

	tokens := &tokensvc.Service{
		Grants:                     backend,
		Credentials:                credentials,
		DefaultAlgorithm:           cfg.SigningKeyAlgorithm,
		DefaultAccessTokenLifetime: time.Hour,
	}

	orchestrator, err := buildOrchestrator(backend, cfg.WebAuthnRPID)
	if err != nil {
		return nil, nil, err
	}

	oidcSvc := &oidc.Service{
		Clients:        backend,
		Resources:      backend,
		ProtocolStates: backend,
		Sessions:       backend,
		Journeys:       orchestrator,
		Tokens:         tokens,
		Issuer: func(_ context.Context, tenantID string) string {
			return tenant.ResolveIssuer(tenant.IssuerSource{PlatformIssuer: cfg.PlatformIssuerURL})
		},
	}

	samlIdP := &saml.Service{
		ServiceProviders:  backend,
		ProtocolStates:    backend,
		Sessions:          backend,
		Journeys:          orchestrator,
		Credentials:       credentials,
		IssuerEntityID:    cfg.SAMLIssuerEntityID,
		SSOURL:            cfg.SAMLIssuerEntityID + cfg.SAMLSSOPath,
		SLOURL:            cfg.SAMLIssuerEntityID + cfg.SAMLSLOPath,
		AssertionLifetime: 5 * time.Minute,
	}

	samlSP := &saml.SPService{UpstreamIdPs: backend, EntityID: cfg.SAMLSPEntityID}

	var hostMapper tenant.HostMapper
	if cfg.TenantRegistryEnabled {
		sqlMapper, err := tenant.NewSQLHostMapperConn(tenant.SQLHostMapperConfig{
			Host:     cfg.TenantRegistryHost,
			Port:     cfg.TenantRegistryPort,
			User:     cfg.TenantRegistryUser,
			Password: cfg.TenantRegistryPass,
			DBName:   cfg.TenantRegistryDBName,
			SSLMode:  cfg.TenantRegistrySSLMode,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting tenant registry: %w", err)
		}
		closers = append(closers, sqlMapper.Close)
		hostMapper = sqlMapper
	}

	resolver := tenant.NewResolver(hostMapper)
	if cfg.TenantHeaderName != "" {
		resolver.HeaderName = cfg.TenantHeaderName
	}

	router := &httpapi.Router{
		OIDC:           oidcSvc,
		SAMLIdP:        samlIdP,
		SAMLSP:         samlSP,
		Clients:        backend,
		Roles:          backend,
		ScimUsers:      backend,
		ScimGroups:     backend,
		TenantResolver: resolver,
		Paths:          defaultEndpointPaths(),
		Issuer: func(r *http.Request, tenantID string) string {
			scheme := "https"
			if r.TLS == nil {
				scheme = "http"
			}
			return tenant.ResolveIssuer(tenant.IssuerSource{
				PlatformIssuer:    cfg.PlatformIssuerURL,
				RequestSchemeHost: scheme + "://" + r.Host,
			})
		},
	}

	var ldapServer *ldapfront.Server
	if cfg.LDAPEnabled {
		ldapServer = &ldapfront.Server{
			Directory: ldapfront.NewInMemoryDirectory(),
			Auth:      &ldapPasswordVerifier{users: &localauth.Users{Store: backend}},
		}
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warnf("oluso: cleanup error: %v", err)
			}
		}
	}

	return &serviceDeps{router: router, ldap: ldapServer}, closeAll, nil
}

// ldapPasswordVerifier adapts localauth.Users into ldapfront.PasswordVerifier
// by treating the bind DN's leaf RDN value as the local username, the same
// simple-bind convention spec §6 describes for this front-end.
type ldapPasswordVerifier struct {
	users *localauth.Users
}

func (v *ldapPasswordVerifier) Verify(ctx context.Context, tenantID, bindDN, password string) error {
	username := bindDNToUsername(bindDN)
	_, err := v.users.Authenticate(ctx, tenantID, username, password)
	return err
}

func bindDNToUsername(bindDN string) string {
	for i := 0; i < len(bindDN); i++ {
		if bindDN[i] == ',' {
			bindDN = bindDN[:i]
			break
		}
	}
	for i := 0; i < len(bindDN); i++ {
		if bindDN[i] == '=' {
			return bindDN[i+1:]
		}
	}
	return bindDN
}

func defaultEndpointPaths() oidc.EndpointPaths {
	return oidc.EndpointPaths{
		Authorization:              "/connect/authorize",
		Token:                      "/connect/token",
		Userinfo:                   "/connect/userinfo",
		JWKS:                       "/connect/jwks",
		Revocation:                 "/connect/revoke",
		Introspection:              "/connect/introspect",
		EndSession:                 "/connect/endsession",
		DeviceAuthorization:        "/connect/deviceauthorization",
		PushedAuthorizationRequest: "/connect/par",
		BackchannelAuthentication:  "/connect/ciba",
		Registration:               "/connect/register",
	}
}

// buildOrchestrator registers the representative step handler set named in
// spec §4.2 and a default SignIn policy (local_login -> mfa -> consent) so
// a fresh deployment can authenticate without hand-authoring policy JSON
// first.
func buildOrchestrator(backend *stores, rpID string) (*journey.Orchestrator, error) {
	evaluator, err := condition.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("building condition evaluator: %w", err)
	}

	bus := events.NewBus()
	users := &localauth.Users{Store: backend}

	registry := journey.NewRegistry()
	registry.Register("local_login", &handlers.LocalLogin{Auth: users})
	registry.Register("mfa", &handlers.Mfa{Secrets: users})
	registry.Register("consent", &handlers.Consent{
		Consents:  &localauth.Consents{Store: backend},
		Resources: &localauth.Resources{Store: backend},
		Events:    bus,
	})
	registry.Register("ldap", &handlers.Ldap{
		Binder:      &ldapfront.DirectoryBinder{},
		Provisioner: users,
		Events:      bus,
	})
	registry.Register("webauthn", &handlers.WebAuthn{Verifier: &webauthn.Verifier{Credentials: backend, RPID: rpID}})
	registry.Register("webhook", &handlers.Webhook{Client: http.DefaultClient})
	registry.Register("transform", &handlers.Transform{})
	registry.Register("branch", &handlers.Branch{Evaluator: evaluator})
	registry.Register("upstream_oidc", &handlers.UpstreamOIDC{Providers: upstreamidp.NewRegistry(), Provisioner: users})

	policies := journey.NewStaticPolicyStore(defaultSignInPolicy())

	return journey.New(policies, backend, registry, evaluator, journey.Capabilities{Events: bus}), nil
}

func defaultSignInPolicy() *journey.JourneyPolicy {
	return &journey.JourneyPolicy{
		ID:      "default-signin",
		Type:    journey.PolicySignIn,
		Enabled: true,
		Priority: 0,
		Steps: []journey.PolicyStep{
			{ID: "login", Type: "local_login", Order: 1},
			{ID: "mfa", Type: "mfa", Order: 2},
			{ID: "consent", Type: "consent", Order: 3, Config: map[string]any{"scopes": []any{"openid", "profile"}}},
		},
		OutputClaims: []journey.OutputClaim{
			{ClaimType: "sub", Source: "user_id"},
			{ClaimType: "amr", Source: "amr", OmitIfEmpty: true},
		},
		DefaultStepTimeout: 5 * time.Minute,
		MaxJourneyDuration: 30 * time.Minute,
	}
}

func resolveEncryptionKey(b64 string) ([]byte, error) {
	if b64 == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating a throwaway encryption key: %w", err)
		}
		logger.Warn("oluso: no encryption_key_base64 configured, generated an ephemeral key — signing keys will not survive a restart")
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption_key_base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption_key_base64 must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// ensureSigningKey issues the tenant-less (platform) signing key set used
// before any tenant has its own, if one isn't already present.
func ensureSigningKey(km *signing.KeyManager, cfg *config.Config) error {
	ctx := context.Background()
	now := time.Now()
	spec, err := algorithmKeySpec(cfg.SigningKeyAlgorithm)
	if err != nil {
		return err
	}
	_, err = km.Issue(ctx, signing.IssueRequest{
		TenantID:  tenant.Platform,
		Use:       store.KeyUseSigning,
		Algorithm: cfg.SigningKeyAlgorithm,
		Spec:      spec,
		NotBefore: now.Add(-time.Minute),
		NotAfter:  now.AddDate(0, 0, cfg.SigningKeyRotationDays),
	})
	if err != nil {
		return fmt.Errorf("issuing platform signing key: %w", err)
	}
	return nil
}

func algorithmKeySpec(algorithm string) (signing.KeySpec, error) {
	switch algorithm {
	case "RS256", "RS384", "RS512", "":
		return signing.KeySpec{Type: store.KeyTypeRSA, Size: 2048}, nil
	case "ES256":
		return signing.KeySpec{Type: store.KeyTypeEC, Curve: "P-256"}, nil
	case "ES384":
		return signing.KeySpec{Type: store.KeyTypeEC, Curve: "P-384"}, nil
	case "HS256", "HS384", "HS512":
		return signing.KeySpec{Type: store.KeyTypeSymmetric, Size: 256}, nil
	default:
		return signing.KeySpec{}, fmt.Errorf("unsupported signing_key_algorithm %q", algorithm)
	}
}

var counterSeed uint64

func newKeyID() string {
	counterSeed++
	return fmt.Sprintf("key-%d-%d", time.Now().UnixNano(), counterSeed)
}
