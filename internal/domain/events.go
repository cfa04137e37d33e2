package domain

import "time"

type RentEventType string

const (
	RentEventCreated  RentEventType = "rent.created"
	RentEventIssued   RentEventType = "rent.issued"
	RentEventReturned RentEventType = "rent.returned"
)

type RentEvent struct {
	EventID    string        `json:"event_id"`
	Type       RentEventType `json:"type"`
	RentID     int64         `json:"rent_id"`
	CustomerID int64         `json:"customer_id"`
	Items      []RentItem    `json:"items"`
	Start      Date          `json:"start"`
	End        Date          `json:"end"`
	Timestamp  time.Time     `json:"timestamp"`
}
