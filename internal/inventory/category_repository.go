package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/openrits/openrits/internal/domain"
)

type CategoryRepository struct {
	db    *sql.DB
	moved metric.Int64Counter
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	moved, _ := otel.Meter("inventory").Int64Counter("inventory.categories.moved",
		metric.WithDescription("Categories re-parented, including their subtrees"),
	)
	return &CategoryRepository{db: db, moved: moved}
}

const categoryColumns = "id, name, parent_id, lineage"

func scanCategory(row interface{ Scan(...any) error }) (*domain.ItemCategory, error) {
	c := &domain.ItemCategory{}
	var parentID sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &parentID, &c.Lineage); err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return c, nil
}

func queryCategories(ctx context.Context, q querier, query string, args ...any) ([]domain.ItemCategory, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.ItemCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func getCategory(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.ItemCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM item_categories WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, name string, parentID *int64) (*domain.ItemCategory, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var parent *domain.ItemCategory
	if parentID != nil {
		if err := lockTree(ctx, tx); err != nil {
			return nil, err
		}
		parent, err = getCategory(ctx, tx, *parentID, false)
		if err != nil {
			return nil, fmt.Errorf("parent category %d: %w", *parentID, err)
		}
	}

	c := &domain.ItemCategory{Name: name, ParentID: parentID, Lineage: domain.LineageFor(parent)}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO item_categories (name, parent_id, lineage)
		VALUES ($1, $2, $3)
		RETURNING id
	`, c.Name, c.ParentID, c.Lineage).Scan(&c.ID)
	if err != nil {
		return nil, err
	}

	return c, tx.Commit()
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (*domain.ItemCategory, error) {
	return getCategory(ctx, r.db, id, false)
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.ItemCategory, error) {
	return queryCategories(ctx, r.db, `
		SELECT `+categoryColumns+`
		FROM item_categories
		ORDER BY lineage, id
	`)
}

// FilterDescendants returns every category below c, at any depth.
func (r *CategoryRepository) FilterDescendants(ctx context.Context, c *domain.ItemCategory) ([]domain.ItemCategory, error) {
	query, args, err := psql.Select(categoryColumns).
		From("item_categories").
		Where(sq.Like{"lineage": "%," + strconv.FormatInt(c.ID, 10) + ",%"}).
		OrderBy("lineage", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	return queryCategories(ctx, r.db, query, args...)
}

// FilterAncestors returns the ancestors of c, root first.
func (r *CategoryRepository) FilterAncestors(ctx context.Context, c *domain.ItemCategory) ([]domain.ItemCategory, error) {
	ids, err := c.AncestorIDs()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.ItemCategory{}, nil
	}
	return queryCategories(ctx, r.db, `
		SELECT `+categoryColumns+`
		FROM item_categories
		WHERE id = ANY($1::bigint[])
		ORDER BY array_position($1::bigint[], id)
	`, pq.Array(ids))
}

// UpdateParent moves the category with the given id under parentID (nil makes
// it a root) and rewrites the lineage of its whole subtree in one transaction.
func (r *CategoryRepository) UpdateParent(ctx context.Context, id int64, parentID *int64) (*domain.ItemCategory, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockTree(ctx, tx); err != nil {
		return nil, err
	}

	c, err := getCategory(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}

	var parent *domain.ItemCategory
	if parentID != nil {
		parent, err = getCategory(ctx, tx, *parentID, false)
		if err != nil {
			return nil, fmt.Errorf("parent category %d: %w", *parentID, err)
		}
		if parent.ID == c.ID || c.IsAncestorOf(parent) {
			return nil, domain.ErrCategoryCycle
		}
	}

	oldChildLineage := c.ChildLineage()
	c.ParentID = parentID
	c.Lineage = domain.LineageFor(parent)

	if _, err := tx.ExecContext(ctx, `
		UPDATE item_categories SET parent_id = $2, lineage = $3
		WHERE id = $1
	`, c.ID, c.ParentID, c.Lineage); err != nil {
		return nil, err
	}

	if err := rebaseSubtree(ctx, tx, oldChildLineage, c.ChildLineage()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if r.moved != nil {
		r.moved.Add(ctx, 1)
	}
	return c, nil
}

// Delete removes a category. Its children become roots and items in it are
// left without category.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockTree(ctx, tx); err != nil {
		return err
	}

	c, err := getCategory(ctx, tx, id, true)
	if err != nil {
		return err
	}

	if err := rebaseSubtree(ctx, tx, c.ChildLineage(), domain.RootLineage); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_categories WHERE id = $1`, c.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// rebaseSubtree replaces the lineage prefix from with to on every category
// whose lineage starts with from.
func rebaseSubtree(ctx context.Context, q querier, from, to string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE item_categories
		SET lineage = $2 || substr(lineage, length($1) + 1)
		WHERE starts_with(lineage, $1)
	`, from, to)
	return err
}
