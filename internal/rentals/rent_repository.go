package rentals

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/openrits/openrits/internal/domain"
)

type RentRepository struct {
	db *sql.DB
}

func NewRentRepository(db *sql.DB) *RentRepository {
	return &RentRepository{db: db}
}

const rentColumns = "r.id, r.customer_id, r.created, r.start_date, r.end_date, r.issued, r.returned"

func scanRent(row interface{ Scan(...any) error }) (*domain.Rent, error) {
	rent := &domain.Rent{}
	var issued, returned sql.NullTime
	if err := row.Scan(&rent.ID, &rent.CustomerID, &rent.Created, &rent.Start.Time, &rent.End.Time, &issued, &returned); err != nil {
		return nil, err
	}
	rent.Start = domain.NewDate(rent.Start.Date())
	rent.End = domain.NewDate(rent.End.Date())
	if issued.Valid {
		rent.Issued = &issued.Time
	}
	if returned.Valid {
		rent.Returned = &returned.Time
	}
	return rent, nil
}

// reserved returns how many units of itemID are held by rents that are not
// returned and whose period overlaps [start, end].
func reserved(ctx context.Context, q querier, itemID int64, start, end domain.Date) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ri.amount), 0)
		FROM rent_items ri
		JOIN rents r ON r.id = ri.rent_id
		WHERE ri.item_id = $1
		  AND r.returned IS NULL
		  AND r.start_date <= $3
		  AND $2 <= r.end_date
	`, itemID, start.Time, end.Time).Scan(&n)
	return n, err
}

func (r *RentRepository) Reserved(ctx context.Context, itemID int64, start, end domain.Date) (int, error) {
	return reserved(ctx, r.db, itemID, start, end)
}

// Create inserts rent if every item still has enough free units in the rent
// period. capacity maps item ids to their total amount in inventory.
// Bookings touching the same item are serialized through per-item advisory
// locks taken in ascending key order.
func (r *RentRepository) Create(ctx context.Context, rent *domain.Rent, capacity map[int64]int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	itemIDs := make([]int64, 0, len(rent.Items))
	for _, it := range rent.Items {
		itemIDs = append(itemIDs, it.ItemID)
	}
	if err := lockItems(ctx, tx, itemIDs); err != nil {
		return err
	}

	for _, it := range rent.Items {
		held, err := reserved(ctx, tx, it.ItemID, rent.Start, rent.End)
		if err != nil {
			return err
		}
		if held+it.Amount > capacity[it.ItemID] {
			return fmt.Errorf("%w: item %d has %d of %d units free",
				domain.ErrInsufficientStock, it.ItemID, max(capacity[it.ItemID]-held, 0), capacity[it.ItemID])
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO rents (customer_id, created, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, rent.CustomerID, rent.Created, rent.Start.Time, rent.End.Time).Scan(&rent.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("customer %d: %w", rent.CustomerID, domain.ErrNotFound)
		}
		return err
	}

	for _, it := range rent.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rent_items (rent_id, item_id, amount)
			VALUES ($1, $2, $3)
		`, rent.ID, it.ItemID, it.Amount); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *RentRepository) loadItems(ctx context.Context, q querier, rents []*domain.Rent) error {
	if len(rents) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Rent, len(rents))
	ids := make([]int64, 0, len(rents))
	for _, rent := range rents {
		rent.Items = []domain.RentItem{}
		byID[rent.ID] = rent
		ids = append(ids, rent.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT rent_id, item_id, amount
		FROM rent_items
		WHERE rent_id = ANY($1)
		ORDER BY rent_id, item_id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rentID int64
		var it domain.RentItem
		if err := rows.Scan(&rentID, &it.ItemID, &it.Amount); err != nil {
			return err
		}
		byID[rentID].Items = append(byID[rentID].Items, it)
	}

	return rows.Err()
}

func getRent(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Rent, error) {
	query := `SELECT ` + rentColumns + ` FROM rents r WHERE r.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rent, err := scanRent(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return rent, nil
}

func (r *RentRepository) Get(ctx context.Context, id int64) (*domain.Rent, error) {
	rent, err := getRent(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, r.db, []*domain.Rent{rent}); err != nil {
		return nil, err
	}
	return rent, nil
}

func rentListQuery(filter domain.RentFilter) sq.SelectBuilder {
	q := psql.Select(rentColumns).From("rents r").OrderBy("r.start_date DESC", "r.id DESC")

	if filter.CustomerID != nil {
		q = q.Where(sq.Eq{"r.customer_id": *filter.CustomerID})
	}

	if filter.Status != nil {
		switch *filter.Status {
		case domain.RentStatusReserved:
			q = q.Where(sq.Eq{"r.issued": nil, "r.returned": nil})
		case domain.RentStatusIssued:
			q = q.Where(sq.And{sq.NotEq{"r.issued": nil}, sq.Eq{"r.returned": nil}})
		case domain.RentStatusReturned:
			q = q.Where(sq.NotEq{"r.returned": nil})
		}
	}

	return q
}

func (r *RentRepository) List(ctx context.Context, filter domain.RentFilter) ([]domain.Rent, error) {
	query, args, err := rentListQuery(filter).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ptrs []*domain.Rent
	for rows.Next() {
		rent, err := scanRent(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, rent)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, r.db, ptrs); err != nil {
		return nil, err
	}

	rents := make([]domain.Rent, 0, len(ptrs))
	for _, rent := range ptrs {
		rents = append(rents, *rent)
	}
	return rents, nil
}

// transition locks the rent row, applies change and persists the new
// issued/returned timestamps.
func (r *RentRepository) transition(ctx context.Context, id int64, change func(*domain.Rent) error) (*domain.Rent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rent, err := getRent(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	if err := change(rent); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE rents SET issued = $2, returned = $3
		WHERE id = $1
	`, rent.ID, rent.Issued, rent.Returned); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, tx, []*domain.Rent{rent}); err != nil {
		return nil, err
	}

	return rent, tx.Commit()
}

func (r *RentRepository) Issue(ctx context.Context, id int64, at time.Time) (*domain.Rent, error) {
	return r.transition(ctx, id, func(rent *domain.Rent) error { return rent.Issue(at) })
}

func (r *RentRepository) Return(ctx context.Context, id int64, at time.Time) (*domain.Rent, error) {
	return r.transition(ctx, id, func(rent *domain.Rent) error { return rent.Return(at) })
}
