package rentals

import (
	"context"
	"database/sql"

	"github.com/openrits/openrits/internal/domain"
)

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, surname, email)
		VALUES ($1, $2, $3)
		RETURNING id
	`, c.Name, c.Surname, c.Email).Scan(&c.ID)
}

func (r *CustomerRepository) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, surname, email
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Surname, &c.Email)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, surname, email
		FROM customers
		ORDER BY surname, name, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	customers := []domain.Customer{}
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Surname, &c.Email); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return customers, nil
}
