package rentals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openrits/openrits/internal/domain"
)

// InventoryClient reads items from the inventory service.
type InventoryClient struct {
	baseURL string
	client  *http.Client
}

func NewInventoryClient(baseURL string, client *http.Client) *InventoryClient {
	return &InventoryClient{baseURL: baseURL, client: client}
}

func (c *InventoryClient) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	url := fmt.Sprintf("%s/items/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create item request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("item %d: %w (status %d)", id, ErrItemRejected, resp.StatusCode)
	default:
		return nil, fmt.Errorf("inventory service returned status %d for item %d", resp.StatusCode, id)
	}

	var item domain.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode item %d: %w", id, err)
	}
	return &item, nil
}
