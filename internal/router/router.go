// Package router defines how HTTP routes and middleware are registered.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/library-seat-reservation/internal/handler"
	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/middleware"
)

// New builds the echo instance: validator, error rendering, recovery,
// access log, CORS and every route.
func New(h *handler.ReservationHandler, log *logger.Logger) (*echo.Echo, error) {
	v, err := handler.NewValidator()
	if err != nil {
		return nil, err
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestScope(log))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLog(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	RegisterRoutes(e, h)
	return e, nil
}

// RegisterRoutes maps the health check, the reservation flow and the seat
// map onto e.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler) {
	e.GET("/healthz", handler.Health)

	e.POST("/reserve", h.Reserve)
	e.POST("/checkin", h.CheckIn)
	e.POST("/occupy", h.Occupy)
	e.POST("/release", h.Release)

	e.GET("/floors/:floor/seats", h.FloorSeats)
}
