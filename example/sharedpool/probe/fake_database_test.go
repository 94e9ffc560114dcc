package probe_test

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AntonStoeckl/shared-handles-go/example/sharedpool/probe"
)

var echoPattern = regexp.MustCompile(`'([0-9a-f-]{36})' AS "worker_id", (\d+) AS "seq"`)

// fakeDatabase answers probe queries like PostgreSQL would: it echoes the literals of the query.
type fakeDatabase struct {
	mu        sync.Mutex
	queries   []string
	closed    atomic.Int64
	queryErr  error
	noRows    bool
	corrupted bool
}

func (f *fakeDatabase) Query(_ context.Context, query string) (probe.Rows, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.closed.Load() > 0 {
		return nil, errors.New("database is closed")
	}

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	if f.noRows {
		return &fakeRows{}, nil
	}

	match := echoPattern.FindStringSubmatch(query)
	if match == nil {
		return nil, errors.New("unexpected query: " + query)
	}

	seq, _ := strconv.ParseInt(match[2], 10, 64)
	if f.corrupted {
		seq++
	}

	return &fakeRows{row: []any{time.Now(), match[1], seq}}, nil
}

func (f *fakeDatabase) Close() error {
	f.closed.Add(1)
	return nil
}

func (f *fakeDatabase) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queries)
}

type fakeRows struct {
	row  []any
	read bool
}

func (r *fakeRows) Next() bool {
	if r.read || r.row == nil {
		return false
	}

	r.read = true

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) != len(r.row) {
		return errors.New("column count mismatch")
	}

	*dest[0].(*time.Time) = r.row[0].(time.Time)
	*dest[1].(*string) = r.row[1].(string)
	*dest[2].(*int64) = r.row[2].(int64)

	return nil
}

func (r *fakeRows) Err() error {
	return nil
}

func (r *fakeRows) Close() error {
	return nil
}
