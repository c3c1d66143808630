package payment

import (
	"github.com/gin-gonic/gin"

	"github.com/ayursutra/booking-api/internal/middleware"
	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/service/payment"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/httputil"
)

type Handler struct {
	service *payment.Service
}

func NewHandler(service *payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("/order", h.CreateOrder)
		payments.POST("/verify", h.VerifyPayment)
	}
}

func (h *Handler) CreateOrder(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Authorization("not authenticated"))
		return
	}

	var req model.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), patientID, req.AppointmentIDs)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, order)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Authorization("not authenticated"))
		return
	}

	var req model.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	email := c.GetString(middleware.ContextUserEmail)
	result, err := h.service.Verify(c.Request.Context(), patientID, email, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}
