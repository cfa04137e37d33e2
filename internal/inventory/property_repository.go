package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/openrits/openrits/internal/domain"
)

type PropertyRepository struct {
	db *sql.DB
}

func NewPropertyRepository(db *sql.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

const propertyColumns = "p.id, p.name, p.property_type, p.category_id"

func scanProperty(row interface{ Scan(...any) error }) (*domain.ItemCategoryProperty, error) {
	p := &domain.ItemCategoryProperty{}
	if err := row.Scan(&p.ID, &p.Name, &p.PropertyType, &p.CategoryID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PropertyRepository) Create(ctx context.Context, categoryID int64, name string, propertyType domain.PropertyType) (*domain.ItemCategoryProperty, error) {
	p := &domain.ItemCategoryProperty{Name: name, PropertyType: propertyType, CategoryID: categoryID}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO item_category_properties (name, property_type, category_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, p.Name, p.PropertyType, p.CategoryID).Scan(&p.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("category %d: %w", categoryID, domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *PropertyRepository) Get(ctx context.Context, id int64) (*domain.ItemCategoryProperty, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, `
		SELECT `+propertyColumns+`
		FROM item_category_properties p
		WHERE p.id = $1
	`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PropertyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM item_category_properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FilterRelevantFor returns the properties defined on c and on all of its
// ancestors, root category first.
func (r *PropertyRepository) FilterRelevantFor(ctx context.Context, c *domain.ItemCategory) ([]domain.ItemCategoryProperty, error) {
	chain, err := c.Chain()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+propertyColumns+`
		FROM item_category_properties p
		WHERE p.category_id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], p.category_id), p.id
	`, pq.Array(chain))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	props := []domain.ItemCategoryProperty{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return props, nil
}
