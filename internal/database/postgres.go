// Package database provides the bounded connection pool and the safe query
// executor for the lab reporting schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig holds PostgreSQL connection pool configuration
type PoolConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string

	// MinConns sessions are kept idle and ready; MaxConns bounds total
	// concurrent database sessions.
	MinConns int
	MaxConns int

	// AcquireTimeout bounds how long a borrower waits for a free session
	// before the pool is reported exhausted.
	AcquireTimeout time.Duration
}

const (
	DefaultMinConns       = 1
	DefaultMaxConns       = 10
	DefaultAcquireTimeout = 5 * time.Second
)

// Pool owns the shared database sessions. It is the only shared mutable
// resource in the request path; database/sql serializes acquisition
// internally, so borrowers add no locking of their own.
type Pool struct {
	db             *sql.DB
	acquireTimeout time.Duration
}

// NewPool opens a bounded connection pool and verifies connectivity
func NewPool(config PoolConfig) (*Pool, error) {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.MinConns <= 0 {
		config.MinConns = DefaultMinConns
	}
	if config.MaxConns <= 0 {
		config.MaxConns = DefaultMaxConns
	}
	if config.AcquireTimeout <= 0 {
		config.AcquireTimeout = DefaultAcquireTimeout
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConns)
	db.SetMaxIdleConns(config.MinConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Pool{db: db, acquireTimeout: config.AcquireTimeout}, nil
}

// NewPoolFromDB wraps an existing *sql.DB. Used by tests to inject a mock.
func NewPoolFromDB(db *sql.DB, acquireTimeout time.Duration) *Pool {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Pool{db: db, acquireTimeout: acquireTimeout}
}

// Acquire borrows one dedicated session from the pool. It blocks until a
// session frees up or the acquire timeout elapses. The caller owns the
// session until it calls Close on it, which returns it to the pool.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Ping tests database connectivity
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Stats exposes the underlying pool counters
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close closes the pool and all its sessions
func (p *Pool) Close() error {
	return p.db.Close()
}
