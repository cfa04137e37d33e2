package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/lib/pq"

	"github.com/openrits/openrits/internal/domain"
)

type ValueRepository struct {
	db *sql.DB
}

func NewValueRepository(db *sql.DB) *ValueRepository {
	return &ValueRepository{db: db}
}

// itemChain returns the category chain of an item: its category's ancestors
// followed by the category itself, or an empty chain for uncategorized items.
func itemChain(ctx context.Context, q querier, itemID int64) ([]int64, error) {
	var categoryID sql.NullInt64
	var lineage sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT c.id, c.lineage
		FROM items i
		LEFT JOIN item_categories c ON c.id = i.category_id
		WHERE i.id = $1
	`, itemID).Scan(&categoryID, &lineage)
	if err != nil {
		return nil, notFound(err)
	}

	if !categoryID.Valid {
		return []int64{}, nil
	}

	c := domain.ItemCategory{ID: categoryID.Int64, Lineage: lineage.String}
	return c.Chain()
}

func (r *ValueRepository) queryValues(ctx context.Context, itemID int64, relevant bool) ([]domain.ItemPropertyValue, error) {
	chain, err := itemChain(ctx, r.db, itemID)
	if err != nil {
		return nil, err
	}

	condition := "p.category_id = ANY($2::bigint[])"
	order := "array_position($2::bigint[], p.category_id), p.id"
	if !relevant {
		condition = "NOT (" + condition + ")"
		order = "p.id"
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT v.id, v.item_id, v.value, `+propertyColumns+`
		FROM item_property_values v
		JOIN item_category_properties p ON p.id = v.property_id
		WHERE v.item_id = $1 AND `+condition+`
		ORDER BY `+order, itemID, pq.Array(chain))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	values := []domain.ItemPropertyValue{}
	for rows.Next() {
		var v domain.ItemPropertyValue
		if err := rows.Scan(&v.ID, &v.ItemID, &v.Value,
			&v.Property.ID, &v.Property.Name, &v.Property.PropertyType, &v.Property.CategoryID); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

// FilterRelevantFor returns the item's values whose property belongs to the
// item's category or one of its ancestors, root category first.
func (r *ValueRepository) FilterRelevantFor(ctx context.Context, itemID int64) ([]domain.ItemPropertyValue, error) {
	return r.queryValues(ctx, itemID, true)
}

// FilterObsoleteFor returns the item's values whose property no longer applies,
// typically after the item or its category was moved.
func (r *ValueRepository) FilterObsoleteFor(ctx context.Context, itemID int64) ([]domain.ItemPropertyValue, error) {
	return r.queryValues(ctx, itemID, false)
}

// Set stores value for the given property of an item after serializing it
// with the property type.
func (r *ValueRepository) Set(ctx context.Context, itemID, propertyID int64, value any) (*domain.ItemPropertyValue, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	chain, err := itemChain(ctx, tx, itemID)
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", itemID, err)
	}

	prop, err := scanProperty(tx.QueryRowContext(ctx, `
		SELECT `+propertyColumns+`
		FROM item_category_properties p
		WHERE p.id = $1
	`, propertyID))
	if err != nil {
		return nil, fmt.Errorf("property %d: %w", propertyID, notFound(err))
	}

	if !slices.Contains(chain, prop.CategoryID) {
		return nil, domain.ErrPropertyNotRelevant
	}

	v := &domain.ItemPropertyValue{ItemID: itemID, Property: *prop}
	if err := v.Set(value); err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO item_property_values (item_id, property_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, property_id) DO UPDATE SET value = EXCLUDED.value
		RETURNING id
	`, v.ItemID, v.Property.ID, v.Value).Scan(&v.ID)
	if err != nil {
		return nil, err
	}

	return v, tx.Commit()
}

// PurgeObsolete deletes the values returned by FilterObsoleteFor.
func (r *ValueRepository) PurgeObsolete(ctx context.Context, itemID int64) (int64, error) {
	chain, err := itemChain(ctx, r.db, itemID)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM item_property_values v
		USING item_category_properties p
		WHERE p.id = v.property_id
		  AND v.item_id = $1
		  AND NOT (p.category_id = ANY($2::bigint[]))
	`, itemID, pq.Array(chain))
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
