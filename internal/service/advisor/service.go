package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	"github.com/ayursutra/booking-api/internal/service/availability"
	"github.com/ayursutra/booking-api/internal/service/catalog"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/metrics"
)

const wellnessWindow = 7

// Service produces schedule suggestions: a ranked therapy-to-slot arrangement
// informed by the patient's recent wellness samples. Suggestions are advisory;
// booking still goes through the normal reservation path. Store reads failing
// is an error, the model failing is not: a deterministic round-robin
// arrangement is served instead.
type Service struct {
	catalog      *catalog.Service
	availability *availability.Service
	wellness     repository.WellnessRepository
	llm          LLMClient
	metrics      *metrics.Metrics
}

func NewService(
	catalogSvc *catalog.Service,
	availabilitySvc *availability.Service,
	wellness repository.WellnessRepository,
	llm LLMClient,
	m *metrics.Metrics,
) *Service {
	return &Service{
		catalog:      catalogSvc,
		availability: availabilitySvc,
		wellness:     wellness,
		llm:          llm,
		metrics:      m,
	}
}

// Suggest produces a therapy-to-slot arrangement for the given day. Every
// therapy claims a distinct slot, so requesting more therapies than the day
// has open slots is a conflict up front; slots are never reused, because the
// patient cannot attend two sessions in the same window. Catalog, slot, and
// wellness read failures propagate to the caller, while model failures or
// unusable model output degrade to the deterministic fallback arrangement.
func (s *Service) Suggest(ctx context.Context, patientID uuid.UUID, date time.Time, therapyIDs []uuid.UUID) (*model.Suggestion, error) {
	seen := make(map[uuid.UUID]struct{}, len(therapyIDs))
	for _, id := range therapyIDs {
		if _, dup := seen[id]; dup {
			return nil, apperrors.Validation("duplicate therapy in request")
		}
		seen[id] = struct{}{}
	}

	therapies, err := s.catalog.TherapiesByID(ctx, therapyIDs)
	if err != nil {
		return nil, err
	}

	slots, err := s.availability.ListBookableSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(slots) < len(therapyIDs) {
		return nil, apperrors.Conflict("not enough open slots for the requested therapies", nil)
	}

	summary, err := s.wellnessSummary(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if s.llm == nil {
		return s.fallback(therapyIDs, slots), nil
	}

	prompt := buildPrompt(date, therapyIDs, therapies, slots, summary)

	start := time.Now()
	raw, err := s.llm.Complete(ctx, prompt)
	s.metrics.AdvisorLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Warn().Err(err).Msg("advisor model call failed, using fallback arrangement")
		return s.fallback(therapyIDs, slots), nil
	}

	suggestion, err := parseSuggestion(raw)
	if err != nil {
		log.Warn().Err(err).Msg("advisor returned unusable output, using fallback arrangement")
		return s.fallback(therapyIDs, slots), nil
	}
	if err := validateArrangement(suggestion.Arrangement, therapyIDs, slots); err != nil {
		log.Warn().Err(err).Msg("advisor arrangement failed validation, using fallback arrangement")
		return s.fallback(therapyIDs, slots), nil
	}

	suggestion.EnergyNotes = energyNotes(summary)
	return suggestion, nil
}

// wellnessSummary averages the last samples; a patient with no history gets
// neutral mid-scale values.
func (s *Service) wellnessSummary(ctx context.Context, patientID uuid.UUID) (*model.WellnessSummary, error) {
	samples, err := s.wellness.RecentByPatient(ctx, patientID, wellnessWindow)
	if err != nil {
		return nil, apperrors.Lookup("failed to load wellness history", err)
	}
	if len(samples) == 0 {
		return &model.WellnessSummary{
			SleepQuality: 5,
			EnergyLevel:  5,
			StressLevel:  5,
			Digestion:    5,
		}, nil
	}

	summary := &model.WellnessSummary{SampleCount: len(samples)}
	for _, sample := range samples {
		summary.SleepQuality += float64(sample.SleepQuality)
		summary.EnergyLevel += float64(sample.EnergyLevel)
		summary.StressLevel += float64(sample.StressLevel)
		summary.Digestion += float64(sample.Digestion)
	}
	n := float64(len(samples))
	summary.SleepQuality /= n
	summary.EnergyLevel /= n
	summary.StressLevel /= n
	summary.Digestion /= n
	return summary, nil
}

func buildPrompt(date time.Time, therapyIDs []uuid.UUID, therapies map[uuid.UUID]*model.Therapy, slots []*model.TimeSlot, summary *model.WellnessSummary) string {
	var b strings.Builder
	b.WriteString("You are an Ayurvedic treatment scheduler. Arrange the requested therapies into the open time slots for ")
	b.WriteString(date.Format("2006-01-02"))
	b.WriteString(".\n\nTherapies to schedule:\n")
	for _, id := range therapyIDs {
		t := therapies[id]
		fmt.Fprintf(&b, "- id=%s name=%q duration=%dmin benefits=%s\n",
			t.ID, t.Name, t.Duration, strings.Join(t.Benefits, ", "))
	}
	b.WriteString("\nOpen slots (earliest first):\n")
	for _, slot := range slots {
		fmt.Fprintf(&b, "- id=%s start=%s end=%s\n", slot.ID, slot.StartTime, slot.EndTime)
	}
	fmt.Fprintf(&b, "\nPatient wellness averages over the last %d days (1-10 scale): sleep=%.1f energy=%.1f stress=%.1f digestion=%.1f\n",
		wellnessWindow, summary.SleepQuality, summary.EnergyLevel, summary.StressLevel, summary.Digestion)
	b.WriteString(`
Rules:
- Use every listed therapy exactly once.
- Only use the listed slot ids, at most one therapy per slot.
- Prefer demanding therapies when energy is high and calming ones when stress is high.

Respond with a single JSON object, no surrounding text:
{"arrangement":[{"therapy_id":"...","time_slot_id":"...","rank":1,"rationale":"..."}],"summary":"..."}`)
	return b.String()
}

// parseSuggestion pulls the first balanced JSON object out of the model
// output. Models wrap JSON in prose and code fences often enough that a plain
// unmarshal of the whole response is not reliable.
func parseSuggestion(raw string) (*model.Suggestion, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var suggestion model.Suggestion
				if err := json.Unmarshal([]byte(raw[start:i+1]), &suggestion); err != nil {
					return nil, fmt.Errorf("malformed JSON in model output: %w", err)
				}
				return &suggestion, nil
			}
		}
	}
	return nil, fmt.Errorf("unbalanced JSON object in model output")
}

func validateArrangement(arrangement []model.ArrangementItem, therapyIDs []uuid.UUID, slots []*model.TimeSlot) error {
	if len(arrangement) != len(therapyIDs) {
		return fmt.Errorf("arrangement has %d items, want %d", len(arrangement), len(therapyIDs))
	}

	open := make(map[uuid.UUID]struct{}, len(slots))
	for _, slot := range slots {
		open[slot.ID] = struct{}{}
	}
	requested := make(map[uuid.UUID]struct{}, len(therapyIDs))
	for _, id := range therapyIDs {
		requested[id] = struct{}{}
	}

	seenTherapy := make(map[uuid.UUID]struct{}, len(arrangement))
	seenSlot := make(map[uuid.UUID]struct{}, len(arrangement))
	for _, item := range arrangement {
		if _, ok := requested[item.TherapyID]; !ok {
			return fmt.Errorf("arrangement names unrequested therapy %s", item.TherapyID)
		}
		if _, dup := seenTherapy[item.TherapyID]; dup {
			return fmt.Errorf("therapy %s appears more than once", item.TherapyID)
		}
		seenTherapy[item.TherapyID] = struct{}{}

		if _, ok := open[item.TimeSlotID]; !ok {
			return fmt.Errorf("arrangement names unavailable slot %s", item.TimeSlotID)
		}
		if _, dup := seenSlot[item.TimeSlotID]; dup {
			return fmt.Errorf("slot %s appears more than once", item.TimeSlotID)
		}
		seenSlot[item.TimeSlotID] = struct{}{}
	}
	return nil
}

// fallback pairs therapies with the earliest open slots in request order.
func (s *Service) fallback(therapyIDs []uuid.UUID, slots []*model.TimeSlot) *model.Suggestion {
	s.metrics.AdvisorFallbacks.Inc()

	arrangement := make([]model.ArrangementItem, 0, len(therapyIDs))
	for i, id := range therapyIDs {
		arrangement = append(arrangement, model.ArrangementItem{
			TherapyID:  id,
			TimeSlotID: slots[i].ID,
			Rank:       i + 1,
			Rationale:  "assigned to the earliest open slot",
		})
	}
	return &model.Suggestion{
		Arrangement: arrangement,
		Summary:     "Therapies placed into the earliest open slots in the order requested.",
		Fallback:    true,
	}
}

func energyNotes(summary *model.WellnessSummary) string {
	switch {
	case summary.SampleCount == 0:
		return ""
	case summary.EnergyLevel >= 7:
		return "Energy levels trending high; demanding therapies scheduled earlier."
	case summary.EnergyLevel <= 3:
		return "Energy levels trending low; gentler pacing recommended."
	default:
		return ""
	}
}
