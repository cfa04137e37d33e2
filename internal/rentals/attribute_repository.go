package rentals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openrits/openrits/internal/domain"
)

var ErrDuplicateAttribute = errors.New("attribute already defined")

// AttributeRepository stores free-form attributes for one owner kind. The
// definitions table holds (id, name), the values table holds
// (owner_id, property_id, value) and owners is the table values belong to.
type AttributeRepository struct {
	db          *sql.DB
	owners      string
	definitions string
	values      string
}

func NewCustomerAttributeRepository(db *sql.DB) *AttributeRepository {
	return &AttributeRepository{db: db, owners: "customers", definitions: "customer_properties", values: "customer_property_values"}
}

func NewRentAttributeRepository(db *sql.DB) *AttributeRepository {
	return &AttributeRepository{db: db, owners: "rents", definitions: "rent_properties", values: "rent_property_values"}
}

func (r *AttributeRepository) Define(ctx context.Context, name string) (*domain.Attribute, error) {
	a := &domain.Attribute{Name: name}
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id`, r.definitions),
		name,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAttribute, name)
		}
		return nil, err
	}
	return a, nil
}

func (r *AttributeRepository) List(ctx context.Context) ([]domain.Attribute, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, r.definitions))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	attrs := []domain.Attribute{}
	for rows.Next() {
		var a domain.Attribute
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attrs, nil
}

func (r *AttributeRepository) Set(ctx context.Context, ownerID, attributeID int64, value string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (owner_id, property_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, property_id) DO UPDATE SET value = EXCLUDED.value
	`, r.values), ownerID, attributeID, value)
	if err != nil && isForeignKeyViolation(err) {
		return domain.ErrNotFound
	}
	return err
}

// Values lists the attribute values of one owner. An unknown owner is
// ErrNotFound rather than an empty list.
func (r *AttributeRepository) Values(ctx context.Context, ownerID int64) ([]domain.AttributeValue, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.owners),
		ownerID,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("owner %d: %w", ownerID, domain.ErrNotFound)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT v.owner_id, d.id, d.name, v.value
		FROM %s v
		JOIN %s d ON d.id = v.property_id
		WHERE v.owner_id = $1
		ORDER BY d.name
	`, r.values, r.definitions), ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	values := []domain.AttributeValue{}
	for rows.Next() {
		var v domain.AttributeValue
		if err := rows.Scan(&v.OwnerID, &v.Attribute.ID, &v.Attribute.Name, &v.Value); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}
