package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openrits/openrits/internal/domain"
)

type NotificationHandler struct {
	rentalsServiceURL string
	emailServiceURL   string
	httpClient        *http.Client
	logger            *slog.Logger
}

func NewNotificationHandler(rentalsServiceURL, emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		rentalsServiceURL: rentalsServiceURL,
		emailServiceURL:   emailServiceURL,
		httpClient:        client,
		logger:            logger,
	}
}

type email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handle turns one rent event into a customer notification. Undecodable
// payloads, unknown event types and deleted customers are dropped; transport
// failures are returned so the message is redelivered.
func (h *NotificationHandler) Handle(ctx context.Context, eventType string, payload []byte) error {
	var event domain.RentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("dropping undecodable rent event", "error", err, "type", eventType)
		return nil
	}
	if event.Type == "" {
		event.Type = domain.RentEventType(eventType)
	}

	if !knownEventType(event.Type) {
		h.logger.Warn("unknown rent event type, skipping", "type", event.Type, "rent_id", event.RentID)
		return nil
	}
	if event.CustomerID <= 0 {
		h.logger.Warn("rent event without customer, skipping", "type", event.Type, "rent_id", event.RentID)
		return nil
	}

	h.logger.Info("processing rent event", "type", event.Type, "rent_id", event.RentID, "customer_id", event.CustomerID)

	customer, err := h.fetchCustomer(ctx, event.CustomerID)
	if err != nil {
		h.logger.Error("failed to fetch customer", "error", err, "rent_id", event.RentID, "customer_id", event.CustomerID)
		return fmt.Errorf("fetch customer: %w", err)
	}
	if customer == nil {
		h.logger.Warn("customer not found, skipping notification", "rent_id", event.RentID, "customer_id", event.CustomerID)
		return nil
	}

	msg := compose(event, customer)
	if err := h.sendEmail(ctx, msg); err != nil {
		h.logger.Error("failed to send notification", "error", err, "rent_id", event.RentID)
		return fmt.Errorf("send notification: %w", err)
	}

	h.logger.Info("notification sent", "type", event.Type, "rent_id", event.RentID, "to", msg.To)
	return nil
}

func knownEventType(t domain.RentEventType) bool {
	switch t {
	case domain.RentEventCreated, domain.RentEventIssued, domain.RentEventReturned:
		return true
	}
	return false
}

// compose builds the message for a known event type.
func compose(event domain.RentEvent, customer *domain.Customer) email {
	msg := email{To: customer.Email}
	greeting := fmt.Sprintf("Hello %s %s,\n\n", customer.Name, customer.Surname)

	switch event.Type {
	case domain.RentEventCreated:
		msg.Subject = fmt.Sprintf("Rent #%d reserved", event.RentID)
		msg.Body = greeting + fmt.Sprintf("your reservation of %d item(s) from %s to %s is confirmed.", totalAmount(event.Items), event.Start, event.End)
	case domain.RentEventIssued:
		msg.Subject = fmt.Sprintf("Rent #%d issued", event.RentID)
		msg.Body = greeting + fmt.Sprintf("your rented items have been handed over. Please return them by %s.", event.End)
	case domain.RentEventReturned:
		msg.Subject = fmt.Sprintf("Rent #%d returned", event.RentID)
		msg.Body = greeting + "thank you for returning your rented items."
	}

	return msg
}

func totalAmount(items []domain.RentItem) int {
	n := 0
	for _, it := range items {
		n += it.Amount
	}
	return n
}

// fetchCustomer returns nil without an error when the customer does not exist.
func (h *NotificationHandler) fetchCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	url := fmt.Sprintf("%s/customers/%d", h.rentalsServiceURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rentals service returned status %d", resp.StatusCode)
	}

	var customer domain.Customer
	if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	return &customer, nil
}

func (h *NotificationHandler) sendEmail(ctx context.Context, msg email) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
