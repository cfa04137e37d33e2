package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrits/openrits/internal/domain"
)

func TestItemListQuery(t *testing.T) {
	categoryID := int64(4)
	archived := false

	t.Run("no filter", func(t *testing.T) {
		query, args, err := itemListQuery(domain.ItemFilter{}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name, amount, archived, category_id FROM items ORDER BY id", query)
		assert.Empty(t, args)
	})

	t.Run("direct category", func(t *testing.T) {
		query, args, err := itemListQuery(domain.ItemFilter{CategoryID: &categoryID, Archived: &archived}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name, amount, archived, category_id FROM items WHERE category_id = $1 AND archived = $2 ORDER BY id", query)
		assert.Equal(t, []any{int64(4), false}, args)
	})

	t.Run("subtree and search", func(t *testing.T) {
		query, args, err := itemListQuery(domain.ItemFilter{
			CategoryID:         &categoryID,
			IncludeDescendants: true,
			Query:              "50%_off",
		}).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, name, amount, archived, category_id FROM items "+
			"WHERE category_id IN (SELECT id FROM item_categories WHERE id = $1 OR lineage LIKE $2) "+
			"AND name ILIKE $3 ORDER BY id", query)
		assert.Equal(t, []any{int64(4), "%,4,%", `%50\%\_off%`}, args)
	})
}
