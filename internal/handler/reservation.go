package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/reservation"
)

// ReservationHandler exposes the reservation service over HTTP.  User
// identity comes from the client as supplied by the external identity
// provider; the handlers do not authenticate it.
type ReservationHandler struct {
	Svc *reservation.Service
	Log *logger.Logger
	// AdminHeader names the request header an authenticating proxy sets to
	// the verified caller e-mail.  Empty disables admin release.
	AdminHeader string
}

func NewReservationHandler(svc *reservation.Service, log *logger.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReservationHandler{Svc: svc, Log: log}
}

type reserveRequest struct {
	SeatID     string `json:"seatId" validate:"required_without=FloorID,omitempty,seatid"`
	FloorID    string `json:"floorId" validate:"required_with=SeatNumber,omitempty,max=4"`
	SeatNumber string `json:"seatNumber" validate:"required_with=FloorID,omitempty,max=6"`
	UserID     string `json:"userId" validate:"required,max=254"`
}

const msgReserveMissing = "Missing seatId or userId"

// Reserve handles POST /reserve.  The seat is named either by seatId or by
// floorId plus seatNumber; the response carries the capability token.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	var req reserveRequest
	if ok, err := bind(c, &req, msgReserveMissing); !ok {
		return err
	}
	ticket, err := h.Svc.Reserve(c.Request().Context(), reservation.ReserveInput{
		SeatID:     req.SeatID,
		FloorID:    req.FloorID,
		SeatNumber: req.SeatNumber,
		UserID:     req.UserID,
	})
	if err != nil {
		return respondError(c, h.Log, err, msgReserveMissing)
	}
	return c.JSON(http.StatusOK, ticket)
}

type checkInRequest struct {
	Token string `json:"token" validate:"required"`
}

const msgCheckInMissing = "Missing token"

// CheckIn handles POST /checkin.  It validates the scanned token and
// returns the fields the client needs to occupy the seat.  Nothing is
// written.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	var req checkInRequest
	if ok, err := bind(c, &req, msgCheckInMissing); !ok {
		return err
	}
	res, err := h.Svc.CheckIn(c.Request().Context(), req.Token)
	if err != nil {
		return respondError(c, h.Log, err, msgCheckInMissing)
	}
	return c.JSON(http.StatusOK, res)
}

type occupyRequest struct {
	SeatID       string `json:"seatId" validate:"required,seatid"`
	UserID       string `json:"userId" validate:"required,max=254"`
	OneTimeToken string `json:"oneTimeToken" validate:"required,max=128"`
	Token        string `json:"token,omitempty"`
}

const msgOccupyMissing = "Missing required fields"

// Occupy handles POST /occupy.
func (h *ReservationHandler) Occupy(c echo.Context) error {
	var req occupyRequest
	if ok, err := bind(c, &req, msgOccupyMissing); !ok {
		return err
	}
	err := h.Svc.Occupy(c.Request().Context(), reservation.OccupyInput{
		SeatID:       req.SeatID,
		UserID:       req.UserID,
		OneTimeToken: req.OneTimeToken,
		Token:        req.Token,
	})
	if err != nil {
		return respondError(c, h.Log, err, msgOccupyMissing)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type releaseRequest struct {
	SeatID string `json:"seatId" validate:"required,seatid"`
	UserID string `json:"userId" validate:"required,max=254"`
}

const msgReleaseMissing = "Missing seatId or userId"

// Release handles POST /release.  The holder or an admin may free a seat.
func (h *ReservationHandler) Release(c echo.Context) error {
	var req releaseRequest
	if ok, err := bind(c, &req, msgReleaseMissing); !ok {
		return err
	}
	in := reservation.ReleaseInput{SeatID: req.SeatID, UserID: req.UserID}
	if h.AdminHeader != "" {
		in.AdminEmail = c.Request().Header.Get(h.AdminHeader)
	}
	err := h.Svc.Release(c.Request().Context(), in)
	if err != nil {
		return respondError(c, h.Log, err, msgReleaseMissing)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
