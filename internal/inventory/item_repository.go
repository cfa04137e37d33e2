package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/openrits/openrits/internal/domain"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = "id, name, amount, archived, category_id"

func scanItem(row interface{ Scan(...any) error }) (*domain.Item, error) {
	it := &domain.Item{}
	var categoryID sql.NullInt64
	if err := row.Scan(&it.ID, &it.Name, &it.Amount, &it.Archived, &categoryID); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		it.CategoryID = &categoryID.Int64
	}
	return it, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO items (name, amount, archived, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, item.Name, item.Amount, item.Archived, item.CategoryID).Scan(&item.ID)
	if err != nil && isForeignKeyViolation(err) {
		return fmt.Errorf("category %d: %w", *item.CategoryID, domain.ErrNotFound)
	}
	return err
}

func (r *ItemRepository) Get(ctx context.Context, id int64) (*domain.Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return it, nil
}

func itemListQuery(filter domain.ItemFilter) sq.SelectBuilder {
	q := psql.Select(itemColumns).From("items").OrderBy("id")

	if filter.CategoryID != nil {
		if filter.IncludeDescendants {
			id := *filter.CategoryID
			q = q.Where(sq.Expr(
				"category_id IN (SELECT id FROM item_categories WHERE id = ? OR lineage LIKE ?)",
				id, "%,"+strconv.FormatInt(id, 10)+",%",
			))
		} else {
			q = q.Where(sq.Eq{"category_id": *filter.CategoryID})
		}
	}

	if filter.Archived != nil {
		q = q.Where(sq.Eq{"archived": *filter.Archived})
	}

	if query := strings.TrimSpace(filter.Query); query != "" {
		q = q.Where(sq.ILike{"name": "%" + escapeLike(query) + "%"})
	}

	return q
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *ItemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	query, args, err := itemListQuery(filter).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// ItemPatch lists the fields to change; nil fields are left untouched.
// ClearCategory removes the item from its category.
type ItemPatch struct {
	Name          *string
	Amount        *int
	Archived      *bool
	CategoryID    *int64
	ClearCategory bool
}

func (p ItemPatch) empty() bool {
	return p.Name == nil && p.Amount == nil && p.Archived == nil && p.CategoryID == nil && !p.ClearCategory
}

func (r *ItemRepository) Update(ctx context.Context, id int64, patch ItemPatch) (*domain.Item, error) {
	if patch.empty() {
		return r.Get(ctx, id)
	}

	q := psql.Update("items").Where(sq.Eq{"id": id}).Suffix("RETURNING " + itemColumns)
	if patch.Name != nil {
		q = q.Set("name", *patch.Name)
	}
	if patch.Amount != nil {
		q = q.Set("amount", *patch.Amount)
	}
	if patch.Archived != nil {
		q = q.Set("archived", *patch.Archived)
	}
	if patch.ClearCategory {
		q = q.Set("category_id", nil)
	} else if patch.CategoryID != nil {
		q = q.Set("category_id", *patch.CategoryID)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	it, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("category %d: %w", *patch.CategoryID, domain.ErrNotFound)
		}
		return nil, notFound(err)
	}
	return it, nil
}
