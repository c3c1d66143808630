package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/ayursutra/booking-api/internal/repository"
)

type therapyRepository struct {
	db *sqlx.DB
}

type timeSlotRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	db *sqlx.DB
}

type paymentRepository struct {
	db *sqlx.DB
}

type wellnessRepository struct {
	db *sqlx.DB
}

func NewTherapyRepository(db *sqlx.DB) repository.TherapyRepository {
	return &therapyRepository{db: db}
}

func NewTimeSlotRepository(db *sqlx.DB) repository.TimeSlotRepository {
	return &timeSlotRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func NewWellnessRepository(db *sqlx.DB) repository.WellnessRepository {
	return &wellnessRepository{db: db}
}
