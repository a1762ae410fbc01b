package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Klinik-Sehat/service-appointment/internal/application"
	"github.com/Klinik-Sehat/service-appointment/internal/auth"
	"github.com/Klinik-Sehat/service-appointment/internal/middleware"
)

// AdminHandler handles admin HTTP requests for booking management.
type AdminHandler struct {
	service *application.BookingService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service *application.BookingService) *AdminHandler {
	return &AdminHandler{service: service}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.Manager) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.Auth(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/bookings/sweep", h.Sweep)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)
	result, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		Error(c, err)
		return
	}
	Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, stats)
}

// Sweep handles POST /api/v1/admin/bookings/sweep, a manual trigger for the
// auto-cancellation sweep. The scheduled sweeper calls the same service path.
func (h *AdminHandler) Sweep(c *gin.Context) {
	result, err := h.service.SweepAutoCancel(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}
