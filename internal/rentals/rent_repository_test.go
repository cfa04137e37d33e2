package rentals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrits/openrits/internal/domain"
)

func TestRentListQuery(t *testing.T) {
	const base = "SELECT r.id, r.customer_id, r.created, r.start_date, r.end_date, r.issued, r.returned FROM rents r"
	customerID := int64(3)

	cases := []struct {
		name   string
		status domain.RentStatus
		where  string
	}{
		{"reserved", domain.RentStatusReserved, " WHERE r.customer_id = $1 AND r.issued IS NULL AND r.returned IS NULL"},
		{"issued", domain.RentStatusIssued, " WHERE r.customer_id = $1 AND (r.issued IS NOT NULL AND r.returned IS NULL)"},
		{"returned", domain.RentStatusReturned, " WHERE r.customer_id = $1 AND r.returned IS NOT NULL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := tc.status
			query, args, err := rentListQuery(domain.RentFilter{CustomerID: &customerID, Status: &status}).ToSql()
			require.NoError(t, err)
			assert.Equal(t, base+tc.where+" ORDER BY r.start_date DESC, r.id DESC", query)
			assert.Equal(t, []any{int64(3)}, args)
		})
	}
}

func TestItemLockKeys(t *testing.T) {
	assert.Equal(t, []int32{2, 5, 9}, itemLockKeys([]int64{9, 2, 5}))
	assert.Equal(t, []int32{3}, itemLockKeys([]int64{3, 3}))

	// ids beyond the int32 range fold into it and keep a single ordering
	folded := itemLockKeys([]int64{math.MaxInt32 + 4, 4, 7})
	assert.Equal(t, []int32{4, 7}, folded)
}
