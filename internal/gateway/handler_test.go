package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(inventoryURL, rentalsURL string) *Handler {
	return NewHandler(
		NewServiceProxy(inventoryURL, http.DefaultClient),
		NewServiceProxy(rentalsURL, http.DefaultClient),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestHandler_HandleInventory(t *testing.T) {
	t.Run("strips /inventory prefix and keeps the query", func(t *testing.T) {
		inventoryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/items", r.URL.Path)
			assert.Equal(t, "category_id=4&include_descendants=true", r.URL.RawQuery)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[{"id":1,"name":"kayak"}]`))
		}))
		defer inventoryServer.Close()

		handler := newTestHandler(inventoryServer.URL, "http://unused")

		req := httptest.NewRequest(http.MethodGet, "/inventory/items?category_id=4&include_descendants=true", nil)
		rec := httptest.NewRecorder()

		handler.HandleInventory(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, `[{"id":1,"name":"kayak"}]`, rec.Body.String())
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		inventoryServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"category cycle"}`))
		}))
		defer inventoryServer.Close()

		handler := newTestHandler(inventoryServer.URL, "http://unused")

		req := httptest.NewRequest(http.MethodPut, "/inventory/categories/1/parent", strings.NewReader(`{"parent_id":3}`))
		rec := httptest.NewRecorder()

		handler.HandleInventory(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("returns 502 when inventory service unavailable", func(t *testing.T) {
		handler := newTestHandler("http://localhost:99999", "http://unused")

		req := httptest.NewRequest(http.MethodGet, "/inventory/items/1", nil)
		rec := httptest.NewRecorder()

		handler.HandleInventory(rec, req)

		require.Equal(t, http.StatusBadGateway, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "service unavailable", resp["error"])
	})
}

func TestHandler_HandleRentals(t *testing.T) {
	t.Run("proxies POST /rentals/rents with body", func(t *testing.T) {
		rentalsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rents", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"customer_id":1}`, string(body))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":9}`))
		}))
		defer rentalsServer.Close()

		handler := newTestHandler("http://unused", rentalsServer.URL)

		req := httptest.NewRequest(http.MethodPost, "/rentals/rents", strings.NewReader(`{"customer_id":1}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		handler.HandleRentals(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, `{"id":9}`, rec.Body.String())
	})

	t.Run("returns 502 when rentals service unavailable", func(t *testing.T) {
		handler := newTestHandler("http://unused", "http://localhost:99999")

		req := httptest.NewRequest(http.MethodGet, "/rentals/rents", nil)
		rec := httptest.NewRecorder()

		handler.HandleRentals(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestDownstreamPath(t *testing.T) {
	assert.Equal(t, "/items/3", downstreamPath("/inventory/items/3", inventoryPrefix))
	assert.Equal(t, "/", downstreamPath("/rentals", rentalsPrefix))
	assert.Equal(t, "/", downstreamPath("/rentals/", rentalsPrefix))
}
