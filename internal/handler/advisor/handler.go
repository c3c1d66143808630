package advisor

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ayursutra/booking-api/internal/middleware"
	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/internal/service/advisor"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/httputil"
)

const dateLayout = "2006-01-02"

type Handler struct {
	service *advisor.Service
}

func NewHandler(service *advisor.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/schedule/suggest", h.Suggest)
}

func (h *Handler) Suggest(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Authorization("not authenticated"))
		return
	}

	var req model.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid date, expected YYYY-MM-DD"))
		return
	}

	suggestion, err := h.service.Suggest(c.Request.Context(), patientID, date, req.TherapyIDs)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, suggestion)
}
