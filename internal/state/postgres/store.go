// Package postgres persists monitor state as a single Postgres row.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

const (
	backend = "postgres"
	// stateRowID keys the only row the table ever holds.
	stateRowID = 1
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for the state row.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store reads and upserts the state row.
type Store struct {
	pool  pool
	table string
}

// New connects to Postgres and creates the state table when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("state.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: p, table: table}
	if err := s.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// poolConfig parses the DSN and applies the pool limits; zero keeps the
// pgxpool default.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	return poolCfg, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "monitor_state"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the state table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id         SMALLINT PRIMARY KEY,
	hash       TEXT NOT NULL,
	url        TEXT NOT NULL,
	month_str  TEXT NOT NULL,
	last_check TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	return nil
}

// Load reads the state row. An empty table yields monitor.ErrNoState.
func (s *Store) Load(ctx context.Context) (monitor.State, error) {
	query := fmt.Sprintf(`SELECT hash, url, month_str, last_check FROM %s WHERE id = $1`, s.table)

	var (
		hash      string
		st        monitor.State
		lastCheck time.Time
	)
	err := s.pool.QueryRow(ctx, query, stateRowID).Scan(&hash, &st.URL, &st.Period, &lastCheck)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return monitor.State{}, monitor.ErrNoState
		}
		return monitor.State{}, &monitor.PersistenceError{
			Op: "load", Backend: backend, Err: fmt.Errorf("select state: %w", err),
		}
	}
	st.Fingerprint = monitor.Fingerprint(hash)
	st.LastCheck = lastCheck
	return st, nil
}

// Save upserts the state row in a single statement.
func (s *Store) Save(ctx context.Context, st monitor.State) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, hash, url, month_str, last_check)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	hash = EXCLUDED.hash,
	url = EXCLUDED.url,
	month_str = EXCLUDED.month_str,
	last_check = EXCLUDED.last_check`, s.table)

	args := []any{
		stateRowID,
		string(st.Fingerprint),
		st.URL,
		st.Period,
		st.LastCheck,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return &monitor.PersistenceError{
			Op: "save", Backend: backend, Err: fmt.Errorf("upsert state: %w", err),
		}
	}
	return nil
}
