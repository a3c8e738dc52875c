package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// FloorSeats handles GET /floors/:floor/seats and returns the seat map of
// one floor.  The floor may be given as "3" or "3F".
func (h *ReservationHandler) FloorSeats(c echo.Context) error {
	raw := strings.TrimSuffix(strings.ToUpper(c.Param("floor")), "F")
	floor, err := strconv.Atoi(raw)
	if err != nil || floor < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid floor"})
	}
	seats, err := h.Svc.Floor(c.Request().Context(), floor)
	if err != nil {
		return respondError(c, h.Log, err, "invalid floor")
	}
	return c.JSON(http.StatusOK, echo.Map{"floor": floor, "items": seats})
}
