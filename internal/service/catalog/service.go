package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
)

const (
	cacheTTL       = 5 * time.Minute
	cacheCleanup   = 10 * time.Minute
	therapyListKey = "therapies"
	slotListKey    = "time_slots"
	slotActiveKey  = "time_slots_active"
	therapyKeyPfx  = "therapy:"
)

// Service serves the therapy catalog and slot templates. Both are slow-moving
// reference data, so reads go through a small TTL cache.
type Service struct {
	therapies repository.TherapyRepository
	slots     repository.TimeSlotRepository
	cache     *cache.Cache
}

func NewService(therapies repository.TherapyRepository, slots repository.TimeSlotRepository) *Service {
	return &Service{
		therapies: therapies,
		slots:     slots,
		cache:     cache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) ListTherapies(ctx context.Context) ([]*model.Therapy, error) {
	if cached, ok := s.cache.Get(therapyListKey); ok {
		return cached.([]*model.Therapy), nil
	}

	therapies, err := s.therapies.List(ctx)
	if err != nil {
		return nil, apperrors.Lookup("failed to load therapies", err)
	}
	s.cache.Set(therapyListKey, therapies, cache.DefaultExpiration)
	return therapies, nil
}

func (s *Service) GetTherapy(ctx context.Context, id uuid.UUID) (*model.Therapy, error) {
	key := therapyKeyPfx + id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Therapy), nil
	}

	therapy, err := s.therapies.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("therapy", err)
	}
	if err != nil {
		return nil, apperrors.Lookup("failed to load therapy", err)
	}
	s.cache.Set(key, therapy, cache.DefaultExpiration)
	return therapy, nil
}

// TherapiesByID resolves each requested id or fails with a not-found error
// naming the first missing one. Prices always come from this lookup, never
// from client input.
func (s *Service) TherapiesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Therapy, error) {
	therapies, err := s.therapies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Lookup("failed to load therapies", err)
	}

	byID := make(map[uuid.UUID]*model.Therapy, len(therapies))
	for _, t := range therapies {
		byID[t.ID] = t
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, apperrors.NotFound("therapy "+id.String(), nil)
		}
	}
	return byID, nil
}

func (s *Service) ListSlots(ctx context.Context) ([]*model.TimeSlot, error) {
	if cached, ok := s.cache.Get(slotListKey); ok {
		return cached.([]*model.TimeSlot), nil
	}

	slots, err := s.slots.List(ctx)
	if err != nil {
		return nil, apperrors.Lookup("failed to load time slots", err)
	}
	s.cache.Set(slotListKey, slots, cache.DefaultExpiration)
	return slots, nil
}

func (s *Service) ListActiveSlots(ctx context.Context) ([]*model.TimeSlot, error) {
	if cached, ok := s.cache.Get(slotActiveKey); ok {
		return cached.([]*model.TimeSlot), nil
	}

	slots, err := s.slots.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Lookup("failed to load active time slots", err)
	}
	s.cache.Set(slotActiveKey, slots, cache.DefaultExpiration)
	return slots, nil
}
