package rentals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openrits/openrits/internal/domain"
	"github.com/openrits/openrits/internal/messaging"
)

var (
	ErrItemArchived = errors.New("item is archived")
	// ErrItemRejected means inventory refused the item lookup as a bad request.
	ErrItemRejected = errors.New("item rejected by inventory")
)

type RentStore interface {
	Create(ctx context.Context, rent *domain.Rent, capacity map[int64]int) error
	Get(ctx context.Context, id int64) (*domain.Rent, error)
	List(ctx context.Context, filter domain.RentFilter) ([]domain.Rent, error)
	Issue(ctx context.Context, id int64, at time.Time) (*domain.Rent, error)
	Return(ctx context.Context, id int64, at time.Time) (*domain.Rent, error)
	Reserved(ctx context.Context, itemID int64, start, end domain.Date) (int, error)
}

type ItemSource interface {
	GetItem(ctx context.Context, id int64) (*domain.Item, error)
}

// RentService books rents against inventory and announces their lifecycle
// on the rent events topic.
type RentService struct {
	store     RentStore
	items     ItemSource
	publisher messaging.Publisher
	logger    *slog.Logger
	now       func() time.Time

	created  metric.Int64Counter
	rejected metric.Int64Counter
}

// NewRentService builds the service. publisher may be nil, in which case no
// events are emitted.
func NewRentService(store RentStore, items ItemSource, publisher messaging.Publisher, logger *slog.Logger) *RentService {
	meter := otel.Meter("rentals")
	created, _ := meter.Int64Counter("rentals.rents.created",
		metric.WithDescription("Rents booked"),
	)
	rejected, _ := meter.Int64Counter("rentals.rents.rejected",
		metric.WithDescription("Rent bookings refused, by reason"),
	)

	return &RentService{
		store:     store,
		items:     items,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		created:   created,
		rejected:  rejected,
	}
}

func (s *RentService) reject(ctx context.Context, reason string) {
	if s.rejected != nil {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (s *RentService) Create(ctx context.Context, rent *domain.Rent) error {
	if err := rent.Validate(); err != nil {
		s.reject(ctx, "invalid")
		return err
	}

	capacity := make(map[int64]int, len(rent.Items))
	for _, it := range rent.Items {
		item, err := s.items.GetItem(ctx, it.ItemID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.reject(ctx, "unknown_item")
			}
			return err
		}
		if item.Archived {
			s.reject(ctx, "archived_item")
			return fmt.Errorf("%w: %d", ErrItemArchived, item.ID)
		}
		capacity[item.ID] = item.Amount
	}

	rent.Created = s.now()
	if err := s.store.Create(ctx, rent, capacity); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.reject(ctx, "insufficient_stock")
		}
		return err
	}

	if s.created != nil {
		s.created.Add(ctx, 1)
	}
	s.publish(ctx, domain.RentEventCreated, rent, rent.Created)
	return nil
}

func (s *RentService) Get(ctx context.Context, id int64) (*domain.Rent, error) {
	return s.store.Get(ctx, id)
}

func (s *RentService) List(ctx context.Context, filter domain.RentFilter) ([]domain.Rent, error) {
	return s.store.List(ctx, filter)
}

func (s *RentService) Issue(ctx context.Context, id int64) (*domain.Rent, error) {
	rent, err := s.store.Issue(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.RentEventIssued, rent, *rent.Issued)
	return rent, nil
}

func (s *RentService) Return(ctx context.Context, id int64) (*domain.Rent, error) {
	rent, err := s.store.Return(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.RentEventReturned, rent, *rent.Returned)
	return rent, nil
}

func (s *RentService) Availability(ctx context.Context, itemID int64, start, end domain.Date) (domain.Availability, error) {
	if end.Before(start.Time) {
		return domain.Availability{}, fmt.Errorf("end %s is before start %s", end, start)
	}

	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return domain.Availability{}, err
	}

	held, err := s.store.Reserved(ctx, itemID, start, end)
	if err != nil {
		return domain.Availability{}, err
	}

	if item.Archived {
		return domain.NewAvailability(itemID, 0, held), nil
	}
	return domain.NewAvailability(itemID, item.Amount, held), nil
}

// publish emits a rent event. Failures are logged: the rent is already
// committed and the event is informational.
func (s *RentService) publish(ctx context.Context, eventType domain.RentEventType, rent *domain.Rent, at time.Time) {
	if s.publisher == nil {
		return
	}

	event := domain.RentEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		RentID:     rent.ID,
		CustomerID: rent.CustomerID,
		Items:      rent.Items,
		Start:      rent.Start,
		End:        rent.End,
		Timestamp:  at,
	}
	if err := s.publisher.Publish(ctx, strconv.FormatInt(rent.ID, 10), string(eventType), event); err != nil {
		s.logger.Error("failed to publish rent event", "error", err, "rent_id", rent.ID, "event_type", eventType)
	}
}
