package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRent_Validate(t *testing.T) {
	valid := func() Rent {
		return Rent{
			CustomerID: 1,
			Start:      NewDate(2025, 6, 1),
			End:        NewDate(2025, 6, 3),
			Items:      []RentItem{{ItemID: 1, Amount: 2}},
		}
	}

	r := valid()
	assert.NoError(t, r.Validate())

	r = valid()
	r.End = NewDate(2025, 5, 31)
	assert.Error(t, r.Validate())

	r = valid()
	r.End = r.Start
	assert.NoError(t, r.Validate(), "single-day rent")

	r = valid()
	r.Items = nil
	assert.Error(t, r.Validate())

	r = valid()
	r.Items = []RentItem{{ItemID: 1, Amount: 0}}
	assert.Error(t, r.Validate())

	r = valid()
	r.Items = []RentItem{{ItemID: 1, Amount: 1}, {ItemID: 1, Amount: 1}}
	assert.Error(t, r.Validate())

	r = valid()
	r.CustomerID = 0
	assert.Error(t, r.Validate())

	for _, id := range []int64{0, -4} {
		r = valid()
		r.Items = []RentItem{{ItemID: id, Amount: 1}}
		assert.Error(t, r.Validate(), "item_id %d", id)
	}

	r = valid()
	r.Items = []RentItem{{ItemID: 1, Amount: MaxItemAmount + 1}}
	assert.Error(t, r.Validate())
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(MaxItemAmount))
	assert.Error(t, ValidateAmount(-1))
	assert.Error(t, ValidateAmount(MaxItemAmount+1))
}

func TestRent_Lifecycle(t *testing.T) {
	r := Rent{}
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, RentStatusReserved, r.Status())
	assert.ErrorIs(t, r.Return(now), ErrInvalidTransition)

	require.NoError(t, r.Issue(now))
	assert.Equal(t, RentStatusIssued, r.Status())
	assert.ErrorIs(t, r.Issue(now), ErrInvalidTransition)

	require.NoError(t, r.Return(now.Add(time.Hour)))
	assert.Equal(t, RentStatusReturned, r.Status())
	assert.ErrorIs(t, r.Return(now), ErrInvalidTransition)
}

func TestRent_Overlaps(t *testing.T) {
	r := Rent{Start: NewDate(2025, 6, 10), End: NewDate(2025, 6, 12)}

	assert.True(t, r.Overlaps(NewDate(2025, 6, 12), NewDate(2025, 6, 15)))
	assert.True(t, r.Overlaps(NewDate(2025, 6, 1), NewDate(2025, 6, 10)))
	assert.True(t, r.Overlaps(NewDate(2025, 6, 11), NewDate(2025, 6, 11)))
	assert.False(t, r.Overlaps(NewDate(2025, 6, 13), NewDate(2025, 6, 20)))
	assert.False(t, r.Overlaps(NewDate(2025, 6, 1), NewDate(2025, 6, 9)))
}

func TestNewAvailability(t *testing.T) {
	assert.Equal(t, Availability{ItemID: 3, Amount: 10, Reserved: 4, Available: 6}, NewAvailability(3, 10, 4))
	assert.Equal(t, 0, NewAvailability(3, 2, 5).Available)
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Start Date `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"1918-11-11"}`), &payload))
	assert.Equal(t, NewDate(1918, 11, 11), payload.Start)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"1918-11-11"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"start":"11/11/1918"}`), &payload))
}

func TestCustomer_Validate(t *testing.T) {
	c := Customer{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com"}
	assert.NoError(t, c.Validate())

	c.Email = "Ada <ada@example.com>"
	assert.Error(t, c.Validate())

	c.Email = "not-an-email"
	assert.Error(t, c.Validate())
}
