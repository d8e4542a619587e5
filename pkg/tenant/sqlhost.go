package tenant

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// SQLHostMapperConfig describes how to reach the relational tenant
// registry. Grounded on suleymanmyradov-growth-server's
// third_party/database.PostgresConfig/NewPostgresConnection: same DSN
// shape, same connection-pool tuning, same "connect, ping once at
// startup" sequencing.
type SQLHostMapperConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SQLHostMapper resolves a request's Host header to a tenant ID by
// looking up the tenant registry table kept in a relational database —
// the admin/control-plane store distinct from pkg/store's high-volume
// token/session data (which lives in memory or Redis). It implements
// tenant.HostMapper.
type SQLHostMapper struct {
	db *sqlx.DB
}

// dsn builds the postgres connection string for cfg.
func (cfg SQLHostMapperConfig) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)
}

// NewSQLHostMapperConn connects to the tenant registry database.
func NewSQLHostMapperConn(cfg SQLHostMapperConfig) (*SQLHostMapper, error) {
	db, err := sqlx.Connect("postgres", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("tenant: connecting to tenant registry database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("tenant: pinging tenant registry database: %w", err)
	}
	return &SQLHostMapper{db: db}, nil
}

// NewSQLHostMapper wraps an already-connected *sqlx.DB, for callers that
// share one connection pool across several relational-backed components.
func NewSQLHostMapper(db *sqlx.DB) *SQLHostMapper {
	return &SQLHostMapper{db: db}
}

// TenantForHost looks up the tenant whose custom_domain column matches
// host. A miss (sql.ErrNoRows) is reported as (ok=false), matching the
// HostMapper contract's miss semantics rather than treated as an error.
func (m *SQLHostMapper) TenantForHost(host string) (string, bool) {
	var tenantID string
	err := m.db.Get(&tenantID, `SELECT id FROM tenants WHERE custom_domain = $1`, host)
	if err != nil {
		if err != sql.ErrNoRows {
			return "", false
		}
		return "", false
	}
	return tenantID, true
}

// Close releases the underlying connection pool.
func (m *SQLHostMapper) Close() error {
	return m.db.Close()
}
