package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Klinik-Sehat/service-appointment/internal/application"
	"github.com/Klinik-Sehat/service-appointment/internal/auth"
	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
	"github.com/Klinik-Sehat/service-appointment/internal/middleware"
)

// NotificationHandler handles HTTP requests for notification dispatch and the
// dispatch audit trail.
type NotificationHandler struct {
	bookings      *application.BookingService
	notifications *application.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(bookings *application.BookingService, notifications *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{bookings: bookings, notifications: notifications}
}

// RegisterRoutes registers notification routes on the given router group.
func (h *NotificationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.Manager) {
	authMW := middleware.Auth(jwtManager)
	staffMW := middleware.RequireRole(auth.RoleStaff, auth.RoleAdmin)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW, staffMW)
	{
		bookings.POST("/:id/notify", h.Notify)
		bookings.GET("/:id/notifications", h.History)
	}
}

// notifyRequest selects which message template to dispatch.
type notifyRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// Notify handles POST /api/v1/bookings/:id/notify, e.g. sending a reminder.
func (h *NotificationHandler) Notify(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid booking ID")
		return
	}

	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	kind, err := notification.ParseKind(req.Kind)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.bookings.Notify(c.Request.Context(), bookingID, kind)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, result)
}

// History handles GET /api/v1/bookings/:id/notifications.
func (h *NotificationHandler) History(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid booking ID")
		return
	}

	entries, err := h.notifications.History(c.Request.Context(), bookingID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, entries)
}
