package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayursutra/booking-api/internal/middleware"
	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	availabilityService "github.com/ayursutra/booking-api/internal/service/availability"
	bookingService "github.com/ayursutra/booking-api/internal/service/booking"
	catalogService "github.com/ayursutra/booking-api/internal/service/catalog"
	eventService "github.com/ayursutra/booking-api/internal/service/event"
	"github.com/ayursutra/booking-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "booking_handler")

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
	return nil, nil
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

type fakeAppointmentRepo struct {
	occupied   []uuid.UUID
	byID       map[uuid.UUID]*model.Appointment
	lastStatus model.AppointmentStatus
}

func (f *fakeAppointmentRepo) CreateBatch(ctx context.Context, appointments []*model.Appointment) error {
	for _, apt := range appointments {
		apt.ID = uuid.New()
	}
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	if apt, ok := f.byID[id]; ok {
		return apt, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAppointmentRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) OccupiedSlotIDs(ctx context.Context, date time.Time) ([]uuid.UUID, error) {
	return f.occupied, nil
}

func (f *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, cancelReason *string) error {
	f.lastStatus = status
	return nil
}

type fakeOutboxRepo struct{}

func (f *fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error { return nil }

func (f *fakeOutboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func setupRouter(t *testing.T, patientID uuid.UUID) (*gin.Engine, *model.Therapy, []*model.TimeSlot, *fakeAppointmentRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()

	therapy := &model.Therapy{Base: model.Base{ID: uuid.New()}, Name: "Abhyanga", Price: 1500, Active: true}
	slots := []*model.TimeSlot{
		{Base: model.Base{ID: uuid.New()}, StartTime: "09:00", EndTime: "10:00", Active: true},
		{Base: model.Base{ID: uuid.New()}, StartTime: "11:00", EndTime: "12:00", Active: true},
	}

	appointments := &fakeAppointmentRepo{byID: map[uuid.UUID]*model.Appointment{}}
	catalogSvc := catalogService.NewService(
		&fakeTherapyRepo{therapies: map[uuid.UUID]*model.Therapy{therapy.ID: therapy}},
		&fakeSlotRepo{slots: slots},
	)
	availabilitySvc := availabilityService.NewService(&fakeSlotRepo{slots: slots}, appointments)
	bookingSvc := bookingService.NewService(appointments, catalogSvc, availabilitySvc, eventService.NewService(&fakeOutboxRepo{}), testMetrics)

	h := NewHandler(bookingSvc, availabilitySvc)

	engine := gin.New()
	// Stands in for the auth middleware.
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, patientID)
		c.Next()
	})
	h.RegisterRoutes(engine.Group(""))
	h.RegisterPractitionerRoutes(engine.Group(""))
	return engine, therapy, slots, appointments
}

func TestListAvailableSlotsEndpoint(t *testing.T) {
	engine, _, slots, _ := setupRouter(t, uuid.New())

	date := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/slots/available?date="+date, nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    []*model.TimeSlot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, len(slots))
}

func TestListAvailableSlotsBadDate(t *testing.T) {
	engine, _, _, _ := setupRouter(t, uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/slots/available?date=09-01-2026", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReserveEndpoint(t *testing.T) {
	patientID := uuid.New()
	engine, therapy, slots, _ := setupRouter(t, patientID)

	date := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	body, _ := json.Marshal(model.ReserveRequest{
		Date: date,
		Selections: []model.Selection{
			{TherapyID: therapy.ID, TimeSlotID: slots[0].ID},
		},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments/reserve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success bool                 `json:"success"`
		Data    []*model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, patientID, resp.Data[0].PatientID)
	assert.Equal(t, therapy.Price, resp.Data[0].TotalAmount)
}

func TestReserveEndpointOccupiedSlot(t *testing.T) {
	patientID := uuid.New()
	engine, therapy, slots, _ := setupRouter(t, patientID)

	date := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	body := fmt.Sprintf(`{"date":%q,"selections":[{"therapy_id":%q,"time_slot_id":%q},{"therapy_id":%q,"time_slot_id":%q}]}`,
		date, therapy.ID, slots[0].ID, therapy.ID, slots[0].ID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/appointments/reserve", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	// Duplicate slot selection is rejected before any write.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	engine, _, _, appointments := setupRouter(t, uuid.New())

	apt := &model.Appointment{Base: model.Base{ID: uuid.New()}, Status: model.AppointmentStatusScheduled}
	appointments.byID[apt.ID] = apt

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/appointments/"+apt.ID.String()+"/status",
		bytes.NewReader([]byte(`{"status":"confirmed"}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.AppointmentStatusConfirmed, appointments.lastStatus)
}
