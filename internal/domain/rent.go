package domain

import (
	"fmt"
	"time"
)

type RentStatus string

const (
	RentStatusReserved RentStatus = "reserved"
	RentStatusIssued   RentStatus = "issued"
	RentStatusReturned RentStatus = "returned"
)

func ParseRentStatus(s string) (RentStatus, error) {
	switch RentStatus(s) {
	case RentStatusReserved, RentStatusIssued, RentStatusReturned:
		return RentStatus(s), nil
	}
	return "", fmt.Errorf("unknown rent status %q", s)
}

type RentItem struct {
	ItemID int64 `json:"item_id"`
	Amount int   `json:"amount"`
}

type Rent struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Created    time.Time  `json:"created"`
	Start      Date       `json:"start"`
	End        Date       `json:"end"`
	Issued     *time.Time `json:"issued"`
	Returned   *time.Time `json:"returned"`
	Items      []RentItem `json:"items"`
}

func (r *Rent) Status() RentStatus {
	switch {
	case r.Returned != nil:
		return RentStatusReturned
	case r.Issued != nil:
		return RentStatusIssued
	default:
		return RentStatusReserved
	}
}

// Overlaps reports whether the inclusive periods [r.Start, r.End] and
// [start, end] share at least one day.
func (r *Rent) Overlaps(start, end Date) bool {
	return !r.Start.After(end.Time) && !start.After(r.End.Time)
}

// Validate checks the request-side invariants of a new rent.
func (r *Rent) Validate() error {
	if r.CustomerID <= 0 {
		return fmt.Errorf("customer_id is required")
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if r.End.Before(r.Start.Time) {
		return fmt.Errorf("end %s is before start %s", r.End, r.Start)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	seen := make(map[int64]struct{}, len(r.Items))
	for _, it := range r.Items {
		if it.ItemID <= 0 {
			return fmt.Errorf("invalid item_id %d", it.ItemID)
		}
		if it.Amount <= 0 {
			return fmt.Errorf("amount for item %d must be positive", it.ItemID)
		}
		if it.Amount > MaxItemAmount {
			return fmt.Errorf("amount for item %d must not exceed %d", it.ItemID, MaxItemAmount)
		}
		if _, dup := seen[it.ItemID]; dup {
			return fmt.Errorf("item %d listed more than once", it.ItemID)
		}
		seen[it.ItemID] = struct{}{}
	}
	return nil
}

// Issue marks the rent as handed over to the customer.
func (r *Rent) Issue(at time.Time) error {
	if r.Status() != RentStatusReserved {
		return fmt.Errorf("%w: cannot issue %s rent", ErrInvalidTransition, r.Status())
	}
	r.Issued = &at
	return nil
}

// Return marks the rent as given back.
func (r *Rent) Return(at time.Time) error {
	if r.Status() != RentStatusIssued {
		return fmt.Errorf("%w: cannot return %s rent", ErrInvalidTransition, r.Status())
	}
	r.Returned = &at
	return nil
}

type Availability struct {
	ItemID    int64 `json:"item_id"`
	Amount    int   `json:"amount"`
	Reserved  int   `json:"reserved"`
	Available int   `json:"available"`
}

func NewAvailability(itemID int64, amount, reserved int) Availability {
	available := amount - reserved
	if available < 0 {
		available = 0
	}
	return Availability{ItemID: itemID, Amount: amount, Reserved: reserved, Available: available}
}

type RentFilter struct {
	CustomerID *int64
	Status     *RentStatus
}
