package event

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
)

// Service stores booking domain events in the outbox table; the worker fans
// them out to the message broker. Emission is best-effort: a failed write is
// logged and never fails the core operation that produced it.
type Service struct {
	outbox repository.OutboxRepository
}

func NewService(outbox repository.OutboxRepository) *Service {
	return &Service{outbox: outbox}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		return
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to store outbox event")
	}
}
