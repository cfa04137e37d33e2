//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrits/openrits/internal/domain"
	"github.com/openrits/openrits/internal/inventory"
	"github.com/openrits/openrits/internal/messaging"
	"github.com/openrits/openrits/internal/rentals"
	"github.com/openrits/openrits/internal/worker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func names(categories []domain.ItemCategory) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Name)
	}
	return out
}

func valueNames(values []domain.ItemPropertyValue) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Property.Name)
	}
	return out
}

// categoryTree builds
//
//	A
//	├── A_1
//	│   └── A_1_1
//	└── A_2
//	B
type categoryTree struct {
	A, A1, A11, A2, B *domain.ItemCategory
}

func newCategoryTree(ctx context.Context, t *testing.T, repo *inventory.CategoryRepository) categoryTree {
	t.Helper()

	create := func(name string, parent *domain.ItemCategory) *domain.ItemCategory {
		var parentID *int64
		if parent != nil {
			parentID = &parent.ID
		}
		c, err := repo.Create(ctx, name, parentID)
		require.NoError(t, err)
		return c
	}

	var tree categoryTree
	tree.A = create("A", nil)
	tree.A1 = create("A_1", tree.A)
	tree.A11 = create("A_1_1", tree.A1)
	tree.A2 = create("A_2", tree.A)
	tree.B = create("B", nil)
	return tree
}

func TestCategoryTree(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := DBWithSchema(t, pg.ConnStr, "inventory")
	repo := inventory.NewCategoryRepository(db)

	tree := newCategoryTree(ctx, t, repo)

	t.Run("descendants", func(t *testing.T) {
		got, err := repo.FilterDescendants(ctx, tree.A)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"A_1", "A_1_1", "A_2"}, names(got))

		got, err = repo.FilterDescendants(ctx, tree.A11)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ancestors", func(t *testing.T) {
		got, err := repo.FilterAncestors(ctx, tree.A11)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "A_1"}, names(got))

		got, err = repo.FilterAncestors(ctx, tree.A)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("update parent to other", func(t *testing.T) {
		moved, err := repo.UpdateParent(ctx, tree.A1.ID, &tree.B.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LineageFor(tree.B), moved.Lineage)

		leaf, err := repo.Get(ctx, tree.A11.ID)
		require.NoError(t, err)
		assert.Equal(t, moved.ChildLineage(), leaf.Lineage)

		ancestors, err := repo.FilterAncestors(ctx, leaf)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A_1"}, names(ancestors))

		descendants, err := repo.FilterDescendants(ctx, tree.A)
		require.NoError(t, err)
		assert.Equal(t, []string{"A_2"}, names(descendants))
	})

	t.Run("update parent to null", func(t *testing.T) {
		moved, err := repo.UpdateParent(ctx, tree.A1.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, moved.ParentID)
		assert.Equal(t, domain.RootLineage, moved.Lineage)

		leaf, err := repo.Get(ctx, tree.A11.ID)
		require.NoError(t, err)
		assert.Equal(t, moved.ChildLineage(), leaf.Lineage)
	})

	t.Run("update parent to descendant", func(t *testing.T) {
		_, err := repo.UpdateParent(ctx, tree.A1.ID, &tree.A11.ID)
		assert.ErrorIs(t, err, domain.ErrCategoryCycle)

		_, err = repo.UpdateParent(ctx, tree.A1.ID, &tree.A1.ID)
		assert.ErrorIs(t, err, domain.ErrCategoryCycle)

		leaf, err := repo.Get(ctx, tree.A11.ID)
		require.NoError(t, err)
		ancestorIDs, err := leaf.AncestorIDs()
		require.NoError(t, err)
		assert.Equal(t, []int64{tree.A1.ID}, ancestorIDs)
	})

	t.Run("delete promotes children", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, tree.A1.ID))

		leaf, err := repo.Get(ctx, tree.A11.ID)
		require.NoError(t, err)
		assert.Nil(t, leaf.ParentID)
		assert.Equal(t, domain.RootLineage, leaf.Lineage)

		_, err = repo.Get(ctx, tree.A1.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPropertyValues(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := DBWithSchema(t, pg.ConnStr, "inventory")
	categories := inventory.NewCategoryRepository(db)
	properties := inventory.NewPropertyRepository(db)
	items := inventory.NewItemRepository(db)
	values := inventory.NewValueRepository(db)

	tree := newCategoryTree(ctx, t, categories)

	aProp, err := properties.Create(ctx, tree.A.ID, "A_prop", domain.PropertyTypeInteger)
	require.NoError(t, err)
	a1Prop, err := properties.Create(ctx, tree.A1.ID, "A_1_prop", domain.PropertyTypeText)
	require.NoError(t, err)
	a11Prop, err := properties.Create(ctx, tree.A11.ID, "A_1_1_prop", domain.PropertyTypeBoolean)
	require.NoError(t, err)
	_, err = properties.Create(ctx, tree.B.ID, "B_prop", domain.PropertyTypeDate)
	require.NoError(t, err)

	t.Run("relevant properties", func(t *testing.T) {
		got, err := properties.FilterRelevantFor(ctx, tree.A11)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int64{aProp.ID, a1Prop.ID, a11Prop.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
	})

	item := &domain.Item{Name: "kayak", Amount: 3, CategoryID: &tree.A11.ID}
	require.NoError(t, items.Create(ctx, item))

	_, err = values.Set(ctx, item.ID, aProp.ID, 1)
	require.NoError(t, err)
	_, err = values.Set(ctx, item.ID, a1Prop.ID, "Hello sir!")
	require.NoError(t, err)
	_, err = values.Set(ctx, item.ID, a11Prop.ID, true)
	require.NoError(t, err)

	t.Run("invalid value", func(t *testing.T) {
		_, err := values.Set(ctx, item.ID, aProp.ID, 0.5)
		assert.ErrorIs(t, err, domain.ErrInvalidPropertyValue)
	})

	_, err = items.Update(ctx, item.ID, inventory.ItemPatch{CategoryID: &tree.A1.ID})
	require.NoError(t, err)

	t.Run("relevant values", func(t *testing.T) {
		got, err := values.FilterRelevantFor(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"A_prop", "A_1_prop"}, valueNames(got))

		typed, err := got[0].Typed()
		require.NoError(t, err)
		assert.Equal(t, int64(1), typed)
	})

	t.Run("obsolete values", func(t *testing.T) {
		got, err := values.FilterObsoleteFor(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"A_1_1_prop"}, valueNames(got))
	})

	t.Run("set value outside the chain", func(t *testing.T) {
		_, err := values.Set(ctx, item.ID, a11Prop.ID, false)
		assert.ErrorIs(t, err, domain.ErrPropertyNotRelevant)
	})

	t.Run("purge obsolete", func(t *testing.T) {
		n, err := values.PurgeObsolete(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := values.FilterObsoleteFor(ctx, item.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

type rentalsEnv struct {
	items              *inventory.ItemRepository
	customers          *rentals.CustomerRepository
	customerAttributes *rentals.AttributeRepository
	service            *rentals.RentService
	rentalsMux         *http.ServeMux
}

func newRentalsEnv(t *testing.T, connStr string, publisher messaging.Publisher) *rentalsEnv {
	t.Helper()

	inventoryDB := DBWithSchema(t, connStr, "inventory")
	rentalsDB := DBWithSchema(t, connStr, "rentals")
	logger := discardLogger()

	items := inventory.NewItemRepository(inventoryDB)
	inventoryMux := http.NewServeMux()
	inventory.NewHandler(
		inventory.NewCategoryRepository(inventoryDB),
		inventory.NewPropertyRepository(inventoryDB),
		items,
		inventory.NewValueRepository(inventoryDB),
		logger,
	).Register(inventoryMux)
	inventoryServer := httptest.NewServer(inventoryMux)
	t.Cleanup(inventoryServer.Close)

	customers := rentals.NewCustomerRepository(rentalsDB)
	customerAttributes := rentals.NewCustomerAttributeRepository(rentalsDB)
	service := rentals.NewRentService(
		rentals.NewRentRepository(rentalsDB),
		rentals.NewInventoryClient(inventoryServer.URL, inventoryServer.Client()),
		publisher,
		logger,
	)

	rentalsMux := http.NewServeMux()
	rentals.NewHandler(
		customers,
		customerAttributes,
		rentals.NewRentAttributeRepository(rentalsDB),
		service,
		logger,
	).Register(rentalsMux)

	return &rentalsEnv{
		items:              items,
		customers:          customers,
		customerAttributes: customerAttributes,
		service:            service,
		rentalsMux:         rentalsMux,
	}
}

func TestRentBooking(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	env := newRentalsEnv(t, pg.ConnStr, nil)

	kayak := &domain.Item{Name: "kayak", Amount: 2}
	require.NoError(t, env.items.Create(ctx, kayak))

	customer := &domain.Customer{Name: "Ada", Surname: "Lovelace", Email: "ada@example.com"}
	require.NoError(t, env.customers.Create(ctx, customer))

	book := func(start, end domain.Date, amount int) (*domain.Rent, error) {
		rent := &domain.Rent{
			CustomerID: customer.ID,
			Start:      start,
			End:        end,
			Items:      []domain.RentItem{{ItemID: kayak.ID, Amount: amount}},
		}
		return rent, env.service.Create(ctx, rent)
	}

	june10, june12 := domain.NewDate(2025, 6, 10), domain.NewDate(2025, 6, 12)
	june12b, june14 := domain.NewDate(2025, 6, 12), domain.NewDate(2025, 6, 14)
	june13 := domain.NewDate(2025, 6, 13)

	first, err := book(june10, june12, 2)
	require.NoError(t, err)

	_, err = book(june12b, june14, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "the last day overlaps")

	_, err = book(june13, june14, 2)
	require.NoError(t, err)

	availability, err := env.service.Availability(ctx, kayak.ID, june10, june14)
	require.NoError(t, err)
	assert.Equal(t, domain.Availability{ItemID: kayak.ID, Amount: 2, Reserved: 4, Available: 0}, availability)

	_, err = env.service.Return(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.service.Issue(ctx, first.ID)
	require.NoError(t, err)
	returned, err := env.service.Return(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentStatusReturned, returned.Status())

	_, err = book(june10, june12, 2)
	assert.NoError(t, err, "returned rents release their items")

	status := domain.RentStatusReturned
	list, err := env.service.List(ctx, domain.RentFilter{CustomerID: &customer.ID, Status: &status})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, []domain.RentItem{{ItemID: kayak.ID, Amount: 2}}, list[0].Items)

	t.Run("concurrent bookings never overbook", func(t *testing.T) {
		tent := &domain.Item{Name: "tent", Amount: 3}
		require.NoError(t, env.items.Create(ctx, tent))

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			booked  int
			refused int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rent := &domain.Rent{
					CustomerID: customer.ID,
					Start:      june10,
					End:        june14,
					Items:      []domain.RentItem{{ItemID: tent.ID, Amount: 1}},
				}
				err := env.service.Create(ctx, rent)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					booked++
				} else {
					assert.ErrorIs(t, err, domain.ErrInsufficientStock)
					refused++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, booked)
		assert.Equal(t, 5, refused)
	})

	t.Run("attribute values need an existing owner", func(t *testing.T) {
		values, err := env.customerAttributes.Values(ctx, customer.ID)
		require.NoError(t, err)
		assert.Empty(t, values)

		_, err = env.customerAttributes.Values(ctx, customer.ID+1000)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("archived items cannot be booked", func(t *testing.T) {
		archived := true
		_, err := env.items.Update(ctx, kayak.ID, inventory.ItemPatch{Archived: &archived})
		require.NoError(t, err)

		_, err = book(domain.NewDate(2025, 7, 1), domain.NewDate(2025, 7, 2), 1)
		assert.ErrorIs(t, err, rentals.ErrItemArchived)
	})
}

func TestRentEventsNotifyCustomer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	const topic = "rent.events"
	producer := messaging.NewProducer(brokers, topic)
	defer func() { _ = producer.Close() }()

	env := newRentalsEnv(t, pg.ConnStr, producer)
	rentalsServer := httptest.NewServer(env.rentalsMux)
	defer rentalsServer.Close()

	received := make(chan map[string]string, 4)
	emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg map[string]string
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- msg
		w.WriteHeader(http.StatusOK)
	}))
	defer emailServer.Close()

	item := &domain.Item{Name: "canoe", Amount: 1}
	require.NoError(t, env.items.Create(ctx, item))
	customer := &domain.Customer{Name: "Grace", Surname: "Hopper", Email: "grace@example.com"}
	require.NoError(t, env.customers.Create(ctx, customer))

	rent := &domain.Rent{
		CustomerID: customer.ID,
		Start:      domain.NewDate(2025, 8, 1),
		End:        domain.NewDate(2025, 8, 3),
		Items:      []domain.RentItem{{ItemID: item.ID, Amount: 1}},
	}
	require.NoError(t, env.service.Create(ctx, rent))

	consumer := messaging.NewConsumer(brokers, topic, "rent-notifier-test", messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	notifications := worker.NewNotificationHandler(rentalsServer.URL, emailServer.URL, http.DefaultClient, discardLogger())

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() { _ = consumer.Consume(consumeCtx, notifications.Handle) }()

	select {
	case msg := <-received:
		assert.Equal(t, "grace@example.com", msg["to"])
		assert.Contains(t, msg["subject"], "reserved")
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for the notification email")
	}
}
