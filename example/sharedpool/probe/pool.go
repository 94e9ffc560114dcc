package probe

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrNoRow is returned when the probe query yields no row.
var ErrNoRow = errors.New("probe query returned no row")

// Stats counts probe outcomes. It lives inside Pool, so handles aliasing it keep the Pool alive.
type Stats struct {
	Probes   atomic.Int64
	Failures atomic.Int64
}

// Pool is the shared resource of the example: a database plus the statistics of its probes.
type Pool struct {
	db     Database
	stats  Stats
	closed atomic.Bool
}

// NewPool wraps db.
func NewPool(db Database) *Pool {
	return &Pool{db: db}
}

// Stats returns the probe statistics.
func (p *Pool) Stats() *Stats {
	return &p.stats
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	return p.closed.Load()
}

// Close closes the underlying database. It is meant to be called by the deleter of the shared handle.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return errors.New("pool already closed")
	}

	return p.db.Close()
}

// Result is the echo of one probe.
type Result struct {
	ProbedAt time.Time
	WorkerID string
	Sequence int64
}

// Probe runs one round trip and checks that the database echoed the worker ID and sequence number.
func (p *Pool) Probe(ctx context.Context, workerID uuid.UUID, seq int) (Result, error) {
	result, err := p.probe(ctx, workerID, seq)
	if err != nil {
		p.stats.Failures.Add(1)
		return Result{}, err
	}

	p.stats.Probes.Add(1)

	return result, nil
}

func (p *Pool) probe(ctx context.Context, workerID uuid.UUID, seq int) (Result, error) {
	query, err := BuildProbeQuery(workerID, seq)
	if err != nil {
		return Result{}, fmt.Errorf("build probe query: %w", err)
	}

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("run probe query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Result{}, fmt.Errorf("run probe query: %w", err)
		}
		return Result{}, ErrNoRow
	}

	var result Result
	if err := rows.Scan(&result.ProbedAt, &result.WorkerID, &result.Sequence); err != nil {
		return Result{}, fmt.Errorf("scan probe row: %w", err)
	}

	if result.WorkerID != workerID.String() || result.Sequence != int64(seq) {
		return Result{}, fmt.Errorf("probe echo mismatch: got %s/%d", result.WorkerID, result.Sequence)
	}

	return result, nil
}
