package probe

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/google/uuid"
)

const (
	dialectPostgres = "postgres"
	colProbedAt     = "probed_at"
	colWorkerID     = "worker_id"
	colSequence     = "seq"
)

// BuildProbeQuery builds the round-trip query of one probe. The database echoes the worker ID
// and sequence number back together with its own clock.
func BuildProbeQuery(workerID uuid.UUID, seq int) (string, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Select(
			goqu.L("now()").As(colProbedAt),
			goqu.V(workerID.String()).As(colWorkerID),
			goqu.V(seq).As(colSequence),
		).
		ToSQL()
	if err != nil {
		return "", err
	}

	return sqlQuery, nil
}
