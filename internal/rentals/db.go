package rentals

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/openrits/openrits/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// rentalsLockSpace is the advisory lock class id for per-item booking locks.
const rentalsLockSpace int32 = 0x7265_6e74

// itemLockKeys maps item ids to advisory lock object ids, sorted and
// deduplicated so that every booking acquires them in the same order. Ids
// folding onto the same key only serialize more than needed.
func itemLockKeys(ids []int64) []int32 {
	keys := make([]int32, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, int32(id%math.MaxInt32))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

func lockItems(ctx context.Context, q querier, ids []int64) error {
	for _, key := range itemLockKeys(ids) {
		if _, err := q.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, rentalsLockSpace, key); err != nil {
			return err
		}
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
