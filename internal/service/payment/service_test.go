package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayursutra/booking-api/internal/gateway/razorpay"
	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/repository"
	"github.com/ayursutra/booking-api/internal/service/event"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/metrics"
)

const testSecret = "test_secret"

var testMetrics = metrics.NewMetrics("test", "payment")

type fakeGateway struct {
	lastParams razorpay.OrderParams
	orderID    string
	err        error
	calls      int
}

func (f *fakeGateway) CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.Order, error) {
	f.calls++
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &razorpay.Order{
		ID:          f.orderID,
		AmountMinor: params.AmountMinor,
		Currency:    params.Currency,
		Receipt:     params.Receipt,
		Status:      "created",
	}, nil
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

type fakePaymentRepo struct {
	payments       []*model.Payment
	pendingOrder   bool
	completedCalls int
	completedRows  int
	completeErr    error
	lastPaymentID  string
	lastOwner      uuid.UUID
}

func (f *fakePaymentRepo) CreateBatch(ctx context.Context, payments []*model.Payment) error {
	f.payments = append(f.payments, payments...)
	return nil
}

func (f *fakePaymentRepo) ListByOrderID(ctx context.Context, gatewayOrderID string) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range f.payments {
		if p.GatewayOrderID == gatewayOrderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) HasPendingOrder(ctx context.Context, appointmentIDs []uuid.UUID) (bool, error) {
	return f.pendingOrder, nil
}

func (f *fakePaymentRepo) CompleteByOrderID(ctx context.Context, gatewayOrderID, gatewayPaymentID, method string, ownerID uuid.UUID) (int, error) {
	f.completedCalls++
	f.lastPaymentID = gatewayPaymentID
	f.lastOwner = ownerID
	if f.completeErr != nil {
		return 0, f.completeErr
	}
	return f.completedRows, nil
}

type fakeAppointmentRepo struct {
	byID map[uuid.UUID]*model.Appointment
}

func (f *fakeAppointmentRepo) CreateBatch(ctx context.Context, appointments []*model.Appointment) error {
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return apt, nil
}

func (f *fakeAppointmentRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, id := range ids {
		if apt, ok := f.byID[id]; ok {
			out = append(out, apt)
		}
	}
	return out, nil
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

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeOutboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fixture struct {
	svc          *Service
	gateway      *fakeGateway
	payments     *fakePaymentRepo
	appointments *fakeAppointmentRepo
	outbox       *fakeOutboxRepo
	patientID    uuid.UUID
}

func newFixture() *fixture {
	gateway := &fakeGateway{orderID: "order_test123"}
	payments := &fakePaymentRepo{}
	appointments := &fakeAppointmentRepo{byID: map[uuid.UUID]*model.Appointment{}}
	outbox := &fakeOutboxRepo{}

	return &fixture{
		svc: NewService(
			payments,
			appointments,
			gateway,
			testSecret,
			"INR",
			event.NewService(outbox),
			testMetrics,
		),
		gateway:      gateway,
		payments:     payments,
		appointments: appointments,
		outbox:       outbox,
		patientID:    uuid.New(),
	}
}

func (f *fixture) addAppointment(amount float64, status model.AppointmentStatus, payStatus model.PaymentStatus) *model.Appointment {
	apt := &model.Appointment{
		Base:          model.Base{ID: uuid.New()},
		PatientID:     f.patientID,
		Status:        status,
		PaymentStatus: payStatus,
		TotalAmount:   amount,
	}
	f.appointments.byID[apt.ID] = apt
	return apt
}

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	a1 := f.addAppointment(1500.50, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	a2 := f.addAppointment(999.50, model.AppointmentStatusScheduled, model.PaymentStatusPending)

	order, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{a1.ID, a2.ID})
	require.NoError(t, err)

	assert.Equal(t, "order_test123", order.GatewayOrderID)
	assert.Equal(t, int64(250000), order.AmountMinor)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_test_key", order.GatewayKeyID)

	require.Len(t, f.payments.payments, 2)
	for _, p := range f.payments.payments {
		assert.Equal(t, "order_test123", p.GatewayOrderID)
		assert.Equal(t, model.PaymentStatusPending, p.Status)
	}
}

func TestCreateOrderGatewayNotes(t *testing.T) {
	f := newFixture()
	a1 := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	a2 := f.addAppointment(200, model.AppointmentStatusScheduled, model.PaymentStatusPending)

	_, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{a1.ID, a2.ID})
	require.NoError(t, err)

	notes := f.gateway.lastParams.Notes
	assert.Equal(t, f.patientID.String(), notes["patient_id"])
	assert.NotEmpty(t, notes["description"])

	ids := strings.Split(notes["appointment_ids"], ",")
	assert.ElementsMatch(t, []string{a1.ID.String(), a2.ID.String()}, ids)
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestCreateOrderDeterministicReceipt(t *testing.T) {
	f := newFixture()
	a1 := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	a2 := f.addAppointment(200, model.AppointmentStatusScheduled, model.PaymentStatusPending)

	_, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{a1.ID, a2.ID})
	require.NoError(t, err)
	first := f.gateway.lastParams.Receipt

	// Same id set in a different order yields the same receipt.
	f.payments.payments = nil
	_, err = f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{a2.ID, a1.ID})
	require.NoError(t, err)
	assert.Equal(t, first, f.gateway.lastParams.Receipt)
	assert.LessOrEqual(t, len(first), 40)
}

func TestCreateOrderUnknownAppointment(t *testing.T) {
	f := newFixture()
	a1 := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)

	_, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{a1.ID, uuid.New()})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Zero(t, f.gateway.calls)
}

func TestCreateOrderForeignAppointment(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	apt.PatientID = uuid.New()

	_, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{apt.ID})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthorization))
}

func TestCreateOrderAlreadyPaid(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusCompleted)

	_, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{apt.ID})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestCreateOrderOpenOrderExists(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	f.payments.pendingOrder = true

	_, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{apt.ID})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Zero(t, f.gateway.calls)
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	f.gateway.err = errors.New("gateway unavailable")

	_, err := f.svc.CreateOrder(context.Background(), f.patientID, []uuid.UUID{apt.ID})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
	assert.Empty(t, f.payments.payments)
}

func TestVerify(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	f.payments.payments = []*model.Payment{
		{AppointmentID: apt.ID, Amount: 100, GatewayOrderID: "order_1", Status: model.PaymentStatusPending},
	}
	f.payments.completedRows = 1

	result, err := f.svc.Verify(context.Background(), f.patientID, "patient@example.com", &model.VerifyPaymentRequest{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: sign("order_1", "pay_1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedAppointments)
	assert.Equal(t, "pay_1", f.payments.lastPaymentID)
	assert.Equal(t, f.patientID, f.payments.lastOwner)
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventPaymentCompleted, f.outbox.events[0].EventType)
}

func TestVerifyBadSignature(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Verify(context.Background(), f.patientID, "", &model.VerifyPaymentRequest{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: "forged",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSignature))
	assert.Zero(t, f.payments.completedCalls)
}

func TestVerifyUnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Verify(context.Background(), f.patientID, "", &model.VerifyPaymentRequest{
		GatewayOrderID:   "order_missing",
		GatewayPaymentID: "pay_1",
		GatewaySignature: sign("order_missing", "pay_1"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestVerifyAppointmentSetMismatch(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	f.payments.payments = []*model.Payment{
		{AppointmentID: apt.ID, Amount: 100, GatewayOrderID: "order_1", Status: model.PaymentStatusPending},
	}

	_, err := f.svc.Verify(context.Background(), f.patientID, "", &model.VerifyPaymentRequest{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: sign("order_1", "pay_1"),
		AppointmentIDs:   []uuid.UUID{apt.ID, uuid.New()},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Zero(t, f.payments.completedCalls)
}

func TestVerifyForeignOrder(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	f.payments.payments = []*model.Payment{
		{AppointmentID: apt.ID, Amount: 100, GatewayOrderID: "order_1", Status: model.PaymentStatusPending},
	}
	f.payments.completedRows = 0

	_, err := f.svc.Verify(context.Background(), uuid.New(), "", &model.VerifyPaymentRequest{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: sign("order_1", "pay_1"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuthorization))
}

func TestVerifyIdempotent(t *testing.T) {
	f := newFixture()
	apt := f.addAppointment(100, model.AppointmentStatusScheduled, model.PaymentStatusPending)
	f.payments.payments = []*model.Payment{
		{AppointmentID: apt.ID, Amount: 100, GatewayOrderID: "order_1", Status: model.PaymentStatusPending},
	}
	f.payments.completedRows = 1

	req := &model.VerifyPaymentRequest{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		GatewaySignature: sign("order_1", "pay_1"),
	}

	first, err := f.svc.Verify(context.Background(), f.patientID, "", req)
	require.NoError(t, err)
	second, err := f.svc.Verify(context.Background(), f.patientID, "", req)
	require.NoError(t, err)

	assert.Equal(t, first.UpdatedAppointments, second.UpdatedAppointments)
	assert.Equal(t, 2, f.payments.completedCalls)
}
