package catalog

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ayursutra/booking-api/internal/service/catalog"
	apperrors "github.com/ayursutra/booking-api/pkg/errors"
	"github.com/ayursutra/booking-api/pkg/httputil"
)

type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	therapies := rg.Group("/therapies")
	{
		therapies.GET("", h.ListTherapies)
		therapies.GET("/:id", h.GetTherapy)
	}
	rg.GET("/slots", h.ListSlots)
}

func (h *Handler) ListTherapies(c *gin.Context) {
	therapies, err := h.service.ListTherapies(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, therapies)
}

func (h *Handler) GetTherapy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid therapy ID"))
		return
	}

	therapy, err := h.service.GetTherapy(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, therapy)
}

func (h *Handler) ListSlots(c *gin.Context) {
	slots, err := h.service.ListSlots(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}
