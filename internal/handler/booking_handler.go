package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Klinik-Sehat/service-appointment/internal/application"
	"github.com/Klinik-Sehat/service-appointment/internal/auth"
	"github.com/Klinik-Sehat/service-appointment/internal/middleware"
)

// BookingHandler handles HTTP requests for booking lifecycle operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.Manager) {
	authMW := middleware.Auth(jwtManager)
	staffMW := middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("", h.Create)
		bookings.GET("", h.ListMine)
		bookings.GET("/code/:code", h.GetByCode)
		bookings.GET("/:id", h.Get)
		bookings.POST("/:id/confirm", staffMW, h.Confirm)
		bookings.POST("/:id/checkin", staffMW, h.CheckIn)
		bookings.POST("/:id/checkout", staffMW, h.CheckOut)
		bookings.POST("/:id/cancel", h.Cancel)
	}
}

// Create handles POST /api/v1/bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, result)
}

// ListMine handles GET /api/v1/bookings, returning the caller's bookings.
func (h *BookingHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := parsePagination(c)
	result, err := h.service.GetCustomerBookings(c.Request.Context(), userID, page, limit)
	if err != nil {
		Error(c, err)
		return
	}
	Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// Get handles GET /api/v1/bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.Get(c.Request.Context(), bookingID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// GetByCode handles GET /api/v1/bookings/code/:code, the front-desk lookup by
// the human-facing booking code.
func (h *BookingHandler) GetByCode(c *gin.Context) {
	result, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// Confirm handles POST /api/v1/bookings/:id/confirm.
func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

// CheckIn handles POST /api/v1/bookings/:id/checkin.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.transition(c, h.service.CheckIn)
}

// CheckOut handles POST /api/v1/bookings/:id/checkout.
func (h *BookingHandler) CheckOut(c *gin.Context) {
	h.transition(c, h.service.CheckOut)
}

// Cancel handles POST /api/v1/bookings/:id/cancel. Patients may cancel their
// own bookings; staff may cancel any.
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// transition runs one lifecycle transition, passing the authenticated caller
// as the acting identity.
func (h *BookingHandler) transition(
	c *gin.Context,
	op func(ctx context.Context, bookingID, actorID uuid.UUID) (*application.BookingDTO, error),
) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid booking ID")
		return
	}

	actorID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := op(c.Request.Context(), bookingID, actorID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
