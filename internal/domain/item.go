package domain

import (
	"fmt"
	"math"
)

// MaxItemAmount is the largest stock (and rent) amount the schema stores.
const MaxItemAmount = math.MaxInt32

// ValidateAmount checks that n units can be stored as an item amount.
func ValidateAmount(n int) error {
	if n < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if n > MaxItemAmount {
		return fmt.Errorf("amount must not exceed %d", MaxItemAmount)
	}
	return nil
}

type Item struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Amount     int    `json:"amount"`
	Archived   bool   `json:"archived"`
	CategoryID *int64 `json:"category_id"`
}

// ItemFilter narrows item listings. Zero values mean "any".
type ItemFilter struct {
	CategoryID         *int64
	IncludeDescendants bool
	Archived           *bool
	Query              string
}
