package booking

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/middleware"
	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/service/availability"
	"github.com/ayursutra/booking-api/internal/service/booking"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/httputil"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service      *booking.Service
	availability *availability.Service
}

func NewHandler(service *booking.Service, availabilitySvc *availability.Service) *Handler {
	return &Handler{service: service, availability: availabilitySvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots/available", h.ListAvailableSlots)

	appointments := rg.Group("/appointments")
	{
		appointments.POST("/reserve", h.Reserve)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
	}
}

// RegisterPractitionerRoutes mounts the lifecycle endpoints gated behind the
// practitioner role.
func (h *Handler) RegisterPractitionerRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/appointments/:id/status", h.UpdateStatus)
}

func (h *Handler) ListAvailableSlots(c *gin.Context) {
	date, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid or missing date, expected YYYY-MM-DD"))
		return
	}

	slots, err := h.availability.ListBookableSlots(c.Request.Context(), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) Reserve(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Authorization("not authenticated"))
		return
	}

	var req model.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid date, expected YYYY-MM-DD"))
		return
	}

	appointments, err := h.service.Reserve(c.Request.Context(), patientID, date, req.Selections, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appointments)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Authorization("not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID"))
		return
	}

	appointment, err := h.service.Get(c.Request.Context(), id, patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Authorization("not authenticated"))
		return
	}

	filters := &model.AppointmentFilters{}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if date := c.Query("start_date"); date != "" {
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid start_date"))
			return
		}
		filters.StartDate = parsed
	}
	if date := c.Query("end_date"); date != "" {
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("invalid end_date"))
			return
		}
		filters.EndDate = parsed
	}

	appointments, err := h.service.ListForPatient(c.Request.Context(), patientID, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Authorization("not authenticated"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID"))
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id, patientID, req.Reason); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"cancelled": true})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid appointment ID"))
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	if err := h.service.AdvanceStatus(c.Request.Context(), id, req.Status); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"status": req.Status})
}
