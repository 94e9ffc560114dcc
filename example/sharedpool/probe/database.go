package probe

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// Database defines the operations the probe needs from a database connection.
type Database interface {
	Query(ctx context.Context, query string) (Rows, error)
	Close() error
}

// Rows defines the interface for query result rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// PGXDatabase implements Database for pgxpool.Pool.
type PGXDatabase struct {
	pool *pgxpool.Pool
}

// NewPGXDatabase creates a Database backed by a pgx pool.
func NewPGXDatabase(pool *pgxpool.Pool) *PGXDatabase {
	return &PGXDatabase{pool: pool}
}

// Query executes a query using the pgx pool.
func (p *PGXDatabase) Query(ctx context.Context, query string) (Rows, error) {
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

// Close closes the pool.
func (p *PGXDatabase) Close() error {
	p.pool.Close()
	return nil
}

type pgxRows struct {
	rows pgx.Rows
}

func (p *pgxRows) Next() bool {
	return p.rows.Next()
}

func (p *pgxRows) Scan(dest ...any) error {
	return p.rows.Scan(dest...)
}

func (p *pgxRows) Err() error {
	return p.rows.Err()
}

func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

// SQLDatabase implements Database for database/sql.
type SQLDatabase struct {
	db *sql.DB
}

// NewSQLDatabase creates a Database backed by a *sql.DB.
func NewSQLDatabase(db *sql.DB) *SQLDatabase {
	return &SQLDatabase{db: db}
}

// Query executes a query using the sql.DB.
func (s *SQLDatabase) Query(ctx context.Context, query string) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Close closes the sql.DB.
func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

// SQLXDatabase implements Database for sqlx.DB.
type SQLXDatabase struct {
	db *sqlx.DB
}

// NewSQLXDatabase creates a Database backed by a *sqlx.DB.
func NewSQLXDatabase(db *sqlx.DB) *SQLXDatabase {
	return &SQLXDatabase{db: db}
}

// Query executes a query using the sqlx.DB.
func (s *SQLXDatabase) Query(ctx context.Context, query string) (Rows, error) {
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Close closes the sqlx.DB.
func (s *SQLXDatabase) Close() error {
	return s.db.Close()
}
