package rentals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrits/openrits/internal/domain"
)

func TestInventoryClient_GetItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items/1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":1,"name":"kayak","amount":4,"archived":false,"category_id":null}`))
		case "/items/2":
			w.WriteHeader(http.StatusNotFound)
		case "/items/4":
			w.WriteHeader(http.StatusBadRequest)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewInventoryClient(server.URL, server.Client())

	t.Run("found", func(t *testing.T) {
		item, err := client.GetItem(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, &domain.Item{ID: 1, Name: "kayak", Amount: 4}, item)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.GetItem(context.Background(), 2)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("bad request is a client error", func(t *testing.T) {
		_, err := client.GetItem(context.Background(), 4)
		assert.ErrorIs(t, err, ErrItemRejected)
	})

	t.Run("server error", func(t *testing.T) {
		_, err := client.GetItem(context.Background(), 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, ErrItemRejected)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := NewInventoryClient("http://localhost:99999", &http.Client{}).GetItem(context.Background(), 1)
		assert.Error(t, err)
	})
}
