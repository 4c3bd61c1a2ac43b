package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/palmhaven/booking-api/internal/dto"
	"github.com/palmhaven/booking-api/internal/service"
)

func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	// Availability conflicts carry detail the caller needs to act on.
	var ce *service.ConflictError
	if errors.As(err, &ce) {
		conflicts := ce.Conflicts
		if conflicts == nil {
			conflicts = []service.BookingConflict{}
		}
		_ = c.JSON(http.StatusConflict, dto.ConflictResponse{
			Message:   ce.Error(),
			Conflicts: conflicts,
		})
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}

	_ = c.JSON(code, dto.ErrorResponse{Message: msg})
}
