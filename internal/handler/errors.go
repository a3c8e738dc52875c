package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/reservation"
)

const (
	msgInvalidSeatID = "Invalid seat id"
	msgInternal      = "Internal server error"
)

// errorStatus maps a service error to the HTTP status and client message.
// badRequest is the endpoint specific message for reservation.ErrBadRequest.
func errorStatus(err error, badRequest string) (int, string) {
	switch {
	case errors.Is(err, reservation.ErrBadRequest):
		return http.StatusBadRequest, badRequest
	case errors.Is(err, reservation.ErrInvalidSeatID):
		return http.StatusBadRequest, msgInvalidSeatID
	case errors.Is(err, reservation.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid token"
	case errors.Is(err, reservation.ErrExpired):
		return http.StatusBadRequest, "Token expired"
	case errors.Is(err, reservation.ErrAlreadyUsed):
		return http.StatusBadRequest, "Token already used"
	case errors.Is(err, reservation.ErrInvalidReservation):
		return http.StatusBadRequest, "Invalid seat reservation"
	case errors.Is(err, reservation.ErrSeatUnavailable):
		return http.StatusBadRequest, "Seat already reserved"
	case errors.Is(err, reservation.ErrSeatNotFound):
		return http.StatusBadRequest, "Seat not found"
	case errors.Is(err, reservation.ErrForbidden):
		return http.StatusForbidden, "Not allowed to release this seat"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// respondError renders err as {"error": ...}.  Server errors are logged
// with the underlying cause, which never reaches the client.
func respondError(c echo.Context, log *logger.Logger, err error, badRequest string) error {
	status, msg := errorStatus(err, badRequest)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

// HTTPErrorHandler renders framework errors (unknown route, wrong method,
// panics recovered by middleware) in the same {"error": ...} shape as the
// handlers.
func HTTPErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := msgInternal
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch status {
			case http.StatusMethodNotAllowed:
				msg = "Method not allowed"
			case http.StatusNotFound:
				msg = "Not found"
			default:
				if s, ok := he.Message.(string); ok {
					msg = s
				} else {
					msg = http.StatusText(status)
				}
			}
		}
		if status >= http.StatusInternalServerError {
			log.Error("unhandled error", "path", c.Path(), "error", err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, echo.Map{"error": msg})
	}
}
