package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Klinik-Sehat/service-appointment/internal/domain/apperror"
)

// errorBody is the JSON shape of every error response. CurrentState is set on
// rejected transitions so the client can explain the failure.
type errorBody struct {
	Code         apperror.Code `json:"code"`
	Message      string        `json:"message"`
	CurrentState string        `json:"current_state,omitempty"`
}

// httpStatusFor maps an application error code onto an HTTP status.
func httpStatusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeValidation:
		return http.StatusBadRequest
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeSlotUnavailable,
		apperror.CodeInvalidTransition,
		apperror.CodeStaleTransition,
		apperror.CodeAppointmentExpired:
		return http.StatusConflict
	case apperror.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperror.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error writes an application error as a structured JSON response.
func Error(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, errorBody{
			Code:    apperror.CodeInternal,
			Message: "internal server error",
		})
		return
	}
	c.JSON(httpStatusFor(appErr.Code), errorBody{
		Code:         appErr.Code,
		Message:      appErr.Message,
		CurrentState: appErr.CurrentState,
	})
}

// BadRequest writes a 400 with a validation code.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{
		Code:    apperror.CodeValidation,
		Message: message,
	})
}

// Success writes a 200 with the payload under "data".
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Created writes a 201 with the payload under "data".
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// Paginated writes a 200 with items and pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}
