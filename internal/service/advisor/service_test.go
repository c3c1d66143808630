package advisor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	"github.com/ayursutra/booking-api/internal/service/availability"
	"github.com/ayursutra/booking-api/internal/service/catalog"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "advisor")

type stubLLM struct {
	response string
	err      error
	prompt   string
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubLLM) Close() error { return nil }

type fakeTherapyRepo struct {
	therapies map[uuid.UUID]*model.Therapy
}

func (f *fakeTherapyRepo) Get(ctx context.Context, id uuid.UUID) (*model.Therapy, error) {
	t, ok := f.therapies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakeTherapyRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Therapy, error) {
	var out []*model.Therapy
	for _, id := range ids {
		if t, ok := f.therapies[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTherapyRepo) List(ctx context.Context) ([]*model.Therapy, error) {
	var out []*model.Therapy
	for _, t := range f.therapies {
		out = append(out, t)
	}
	return out, nil
}

type fakeSlotRepo struct {
	slots []*model.TimeSlot
}

func (f *fakeSlotRepo) Get(ctx context.Context, id uuid.UUID) (*model.TimeSlot, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeSlotRepo) List(ctx context.Context) ([]*model.TimeSlot, error) {
	return f.slots, nil
}

func (f *fakeSlotRepo) ListActive(ctx context.Context) ([]*model.TimeSlot, error) {
	return f.slots, nil
}

type fakeAppointmentRepo struct{}

func (f *fakeAppointmentRepo) CreateBatch(ctx context.Context, appointments []*model.Appointment) error {
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeAppointmentRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) OccupiedSlotIDs(ctx context.Context, date time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, cancelReason *string) error {
	return nil
}

type fakeWellnessRepo struct {
	samples []*model.WellnessSample
	err     error
}

func (f *fakeWellnessRepo) RecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.WellnessSample, error) {
	return f.samples, f.err
}

type fixture struct {
	svc       *Service
	llm       *stubLLM
	wellness  *fakeWellnessRepo
	therapies []*model.Therapy
	slots     []*model.TimeSlot
}

func newFixture(therapyCount, slotCount int) *fixture {
	byID := make(map[uuid.UUID]*model.Therapy, therapyCount)
	therapies := make([]*model.Therapy, 0, therapyCount)
	for i := 0; i < therapyCount; i++ {
		t := &model.Therapy{
			Base:     model.Base{ID: uuid.New()},
			Name:     fmt.Sprintf("Therapy %d", i+1),
			Duration: 60,
			Active:   true,
		}
		byID[t.ID] = t
		therapies = append(therapies, t)
	}

	slots := make([]*model.TimeSlot, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		slots = append(slots, &model.TimeSlot{
			Base:      model.Base{ID: uuid.New()},
			StartTime: fmt.Sprintf("%02d:00", 9+i),
			EndTime:   fmt.Sprintf("%02d:00", 10+i),
			Active:    true,
		})
	}

	llm := &stubLLM{}
	wellness := &fakeWellnessRepo{}

	catalogSvc := catalog.NewService(&fakeTherapyRepo{therapies: byID}, &fakeSlotRepo{slots: slots})
	availabilitySvc := availability.NewService(&fakeSlotRepo{slots: slots}, &fakeAppointmentRepo{})

	return &fixture{
		svc:       NewService(catalogSvc, availabilitySvc, wellness, llm, testMetrics),
		llm:       llm,
		wellness:  wellness,
		therapies: therapies,
		slots:     slots,
	}
}

func (f *fixture) therapyIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(f.therapies))
	for _, t := range f.therapies {
		ids = append(ids, t.ID)
	}
	return ids
}

func tomorrow() time.Time {
	return time.Now().UTC().AddDate(0, 0, 1)
}

func modelResponse(f *fixture) string {
	return fmt.Sprintf(`Here is the plan:
{"arrangement":[
  {"therapy_id":"%s","time_slot_id":"%s","rank":1,"rationale":"calming start"},
  {"therapy_id":"%s","time_slot_id":"%s","rank":2,"rationale":"builds on the first"}
],"summary":"A gentle morning sequence."}`,
		f.therapies[0].ID, f.slots[1].ID,
		f.therapies[1].ID, f.slots[0].ID)
}

func TestSuggest(t *testing.T) {
	f := newFixture(2, 2)
	f.llm.response = modelResponse(f)

	suggestion, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), f.therapyIDs())
	require.NoError(t, err)

	assert.False(t, suggestion.Fallback)
	require.Len(t, suggestion.Arrangement, 2)
	assert.Equal(t, f.therapies[0].ID, suggestion.Arrangement[0].TherapyID)
	assert.Equal(t, f.slots[1].ID, suggestion.Arrangement[0].TimeSlotID)
	assert.Equal(t, "A gentle morning sequence.", suggestion.Summary)
}

func TestSuggestModelFailureFallsBack(t *testing.T) {
	f := newFixture(2, 3)
	f.llm.err = errors.New("model timeout")

	suggestion, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), f.therapyIDs())
	require.NoError(t, err)

	assert.True(t, suggestion.Fallback)
	require.Len(t, suggestion.Arrangement, 2)
	assert.Equal(t, f.slots[0].ID, suggestion.Arrangement[0].TimeSlotID)
	assert.Equal(t, f.slots[1].ID, suggestion.Arrangement[1].TimeSlotID)
	assert.Equal(t, 1, suggestion.Arrangement[0].Rank)
}

func TestSuggestGarbageOutputFallsBack(t *testing.T) {
	f := newFixture(1, 1)
	f.llm.response = "I cannot produce a schedule today."

	suggestion, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), f.therapyIDs())
	require.NoError(t, err)
	assert.True(t, suggestion.Fallback)
}

func TestSuggestInvalidArrangementFallsBack(t *testing.T) {
	f := newFixture(2, 2)
	// Same slot twice.
	f.llm.response = fmt.Sprintf(`{"arrangement":[
  {"therapy_id":"%s","time_slot_id":"%s","rank":1},
  {"therapy_id":"%s","time_slot_id":"%s","rank":2}
],"summary":"bad"}`,
		f.therapies[0].ID, f.slots[0].ID,
		f.therapies[1].ID, f.slots[0].ID)

	suggestion, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), f.therapyIDs())
	require.NoError(t, err)
	assert.True(t, suggestion.Fallback)
}

func TestSuggestNotEnoughSlots(t *testing.T) {
	f := newFixture(3, 2)

	_, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), f.therapyIDs())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestSuggestDuplicateTherapies(t *testing.T) {
	f := newFixture(1, 2)
	ids := []uuid.UUID{f.therapies[0].ID, f.therapies[0].ID}

	_, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), ids)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestSuggestWellnessStoreErrorPropagates(t *testing.T) {
	f := newFixture(1, 1)
	f.wellness.err = errors.New("connection reset")

	_, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), f.therapyIDs())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrLookup))
}

func TestSuggestPromptCarriesWellnessAverages(t *testing.T) {
	f := newFixture(1, 1)
	f.llm.response = fmt.Sprintf(`{"arrangement":[{"therapy_id":"%s","time_slot_id":"%s","rank":1}],"summary":"ok"}`,
		f.therapies[0].ID, f.slots[0].ID)
	f.wellness.samples = []*model.WellnessSample{
		{SleepQuality: 8, EnergyLevel: 9, StressLevel: 2, Digestion: 7},
		{SleepQuality: 6, EnergyLevel: 7, StressLevel: 4, Digestion: 5},
	}

	_, err := f.svc.Suggest(context.Background(), uuid.New(), tomorrow(), f.therapyIDs())
	require.NoError(t, err)
	assert.Contains(t, f.llm.prompt, "sleep=7.0")
	assert.Contains(t, f.llm.prompt, "energy=8.0")
	assert.Contains(t, f.llm.prompt, "stress=3.0")
}

func TestParseSuggestion(t *testing.T) {
	therapyID := uuid.New()
	slotID := uuid.New()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{
			name: "plain JSON",
			raw:  fmt.Sprintf(`{"arrangement":[{"therapy_id":"%s","time_slot_id":"%s","rank":1}],"summary":"s"}`, therapyID, slotID),
		},
		{
			name: "fenced JSON with prose",
			raw: fmt.Sprintf("Sure, here you go:\n```json\n"+
				`{"arrangement":[{"therapy_id":"%s","time_slot_id":"%s","rank":1}],"summary":"s"}`+
				"\n```\nLet me know.", therapyID, slotID),
		},
		{
			name: "braces inside strings",
			raw:  fmt.Sprintf(`{"arrangement":[{"therapy_id":"%s","time_slot_id":"%s","rank":1,"rationale":"note {with} braces"}],"summary":"s"}`, therapyID, slotID),
		},
		{
			name:    "no JSON at all",
			raw:     "plain refusal",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			raw:     `{"arrangement":[`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestion(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got.Arrangement, 1)
			assert.Equal(t, therapyID, got.Arrangement[0].TherapyID)
		})
	}
}
