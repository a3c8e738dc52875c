// Package reservation implements the seat reservation flow: issuing a
// capability token for a seat, checking it in at the seat, occupying the
// seat, releasing it and expiring lapsed reservations.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/identity"
	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/queue"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
	"github.com/iliyamo/library-seat-reservation/internal/token"
)

// Publisher delivers seat events.  Failures are logged by the service and
// never fail the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, ev queue.SeatEvent) error
}

// DefaultPublishTimeout caps how long a request waits on the event broker.
const DefaultPublishTimeout = 2 * time.Second

// Options configures a Service.  Seats, Nonces and Codec are required.
type Options struct {
	Seats          repository.SeatStore
	Nonces         repository.NonceStore
	Codec          *token.Codec
	Events         Publisher
	Log            *logger.Logger
	ExpiringWindow time.Duration
	AdminDomain    string
	// PublishTimeout bounds each event delivery; zero means
	// DefaultPublishTimeout.
	PublishTimeout time.Duration

	// Now and NewNonce default to the wall clock and token.NewNonce.
	Now      func() time.Time
	NewNonce func() (string, error)
}

// Service coordinates the token codec with the seat and nonce stores.
type Service struct {
	seats          repository.SeatStore
	nonces         repository.NonceStore
	codec          *token.Codec
	events         Publisher
	log            *logger.Logger
	expiringWindow time.Duration
	adminDomain    string
	publishTimeout time.Duration
	now            func() time.Time
	newNonce       func() (string, error)
}

func New(opts Options) *Service {
	s := &Service{
		seats:          opts.Seats,
		nonces:         opts.Nonces,
		codec:          opts.Codec,
		events:         opts.Events,
		log:            opts.Log,
		expiringWindow: opts.ExpiringWindow,
		adminDomain:    opts.AdminDomain,
		publishTimeout: opts.PublishTimeout,
		now:            opts.Now,
		newNonce:       opts.NewNonce,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newNonce == nil {
		s.newNonce = token.NewNonce
	}
	if s.codec != nil && s.expiringWindow >= s.codec.Window() {
		s.log.Warn("expiring window not shorter than token window, expiring flag disabled",
			"expiringWindow", s.expiringWindow, "tokenWindow", s.codec.Window())
		s.expiringWindow = 0
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = DefaultPublishTimeout
	}
	if s.adminDomain == "" {
		s.adminDomain = identity.DefaultAdminDomain
	}
	return s
}

// clock returns the current time in UTC at millisecond precision, the
// precision every store keeps.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// ReserveInput identifies the seat either by SeatID or by FloorID plus
// SeatNumber.
type ReserveInput struct {
	SeatID     string
	FloorID    string
	SeatNumber string
	UserID     string
}

// seatID resolves the composite id, preferring an explicit SeatID.
func (in ReserveInput) seatID() string {
	if in.SeatID != "" {
		return in.SeatID
	}
	if in.FloorID == "" || in.SeatNumber == "" {
		return ""
	}
	return model.FloorSeatID(in.FloorID, in.SeatNumber)
}

// Ticket is returned to the client after a successful reservation; Token
// is what the QR code encodes.
type Ticket struct {
	Token     string    `json:"token"`
	SeatID    string    `json:"seatId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Reserve issues a capability token for the seat and records the
// reservation.  The seat is claimed conditionally first, so of several
// concurrent callers exactly one succeeds.  No token is handed out unless
// both the seat and the nonce were persisted.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (Ticket, error) {
	seatID := in.seatID()
	if seatID == "" || in.UserID == "" {
		return Ticket{}, ErrBadRequest
	}
	if !model.IsSeatID(seatID) {
		return Ticket{}, fmt.Errorf("%w: %q", ErrInvalidSeatID, seatID)
	}

	now := s.clock()
	nonce, err := s.newNonce()
	if err != nil {
		return Ticket{}, fmt.Errorf("reserve: %w", err)
	}
	raw, claims, err := s.codec.Issue(seatID, in.UserID, nonce, now)
	if err != nil {
		return Ticket{}, fmt.Errorf("reserve: %w", err)
	}
	res := model.Reservation{
		SeatID:     seatID,
		UserID:     in.UserID,
		ReservedAt: now,
		ExpiresAt:  time.Unix(claims.Exp(), 0).UTC(),
	}

	if err := s.seats.Reserve(ctx, res); err != nil {
		if errors.Is(err, repository.ErrSeatUnavailable) {
			return Ticket{}, ErrSeatUnavailable
		}
		return Ticket{}, fmt.Errorf("%w: reserve seat: %w", ErrStoreUnavailable, err)
	}

	err = s.nonces.Create(ctx, model.Nonce{Nonce: nonce, SeatID: seatID, UserID: in.UserID, CreatedAt: now})
	if err != nil {
		if cerr := s.seats.CancelReservation(context.WithoutCancel(ctx), res, s.clock()); cerr != nil {
			s.logFor(ctx, seatID, in.UserID).Error("failed to roll back seat reservation", "error", cerr)
		}
		return Ticket{}, fmt.Errorf("%w: persist nonce: %w", ErrStoreUnavailable, err)
	}

	s.logFor(ctx, seatID, in.UserID).Info("seat reserved", "expiresAt", res.ExpiresAt)
	s.publish(ctx, queue.SeatReserved, seatID, in.UserID, now)
	return Ticket{Token: raw, SeatID: seatID, ExpiresAt: res.ExpiresAt}, nil
}

// CheckInResult is what the scanning client needs to occupy the seat.
type CheckInResult struct {
	SeatID       string `json:"seatId"`
	ReservedBy   string `json:"reservedBy"`
	OneTimeToken string `json:"oneTimeToken"`
}

// CheckIn validates a scanned token against the stores without changing
// them.
func (s *Service) CheckIn(ctx context.Context, raw string) (CheckInResult, error) {
	if raw == "" {
		return CheckInResult{}, ErrBadRequest
	}
	claims, err := s.check(raw)
	if err != nil {
		return CheckInResult{}, err
	}

	n, err := s.nonces.Get(ctx, claims.OneTimeToken)
	switch {
	case errors.Is(err, repository.ErrNonceNotFound):
		return CheckInResult{}, ErrAlreadyUsed
	case err != nil:
		return CheckInResult{}, fmt.Errorf("%w: load nonce: %w", ErrStoreUnavailable, err)
	case n.Used:
		return CheckInResult{}, ErrAlreadyUsed
	}

	seat, err := s.seats.Get(ctx, claims.SeatID)
	switch {
	case errors.Is(err, repository.ErrSeatNotFound):
		return CheckInResult{}, ErrInvalidReservation
	case err != nil:
		return CheckInResult{}, fmt.Errorf("%w: load seat: %w", ErrStoreUnavailable, err)
	case !seat.HeldBy(claims.ReservedBy):
		return CheckInResult{}, ErrInvalidReservation
	}

	return CheckInResult{
		SeatID:       claims.SeatID,
		ReservedBy:   claims.ReservedBy,
		OneTimeToken: claims.OneTimeToken,
	}, nil
}

// OccupyInput is the body of an occupy request.  Token is optional; when
// present it is verified again and must name the same seat, user and
// nonce.
type OccupyInput struct {
	SeatID       string
	UserID       string
	OneTimeToken string
	Token        string
}

// Occupy consumes the nonce and marks the seat occupied by the user.
//
// The nonce is consumed before the seat is written.  The two live in
// separate stores, so a seat write failure after the nonce flip leaves
// the nonce used and the seat reserved; the reservation then lapses
// through the expiry sweep.
func (s *Service) Occupy(ctx context.Context, in OccupyInput) error {
	if in.SeatID == "" || in.UserID == "" || in.OneTimeToken == "" {
		return ErrBadRequest
	}
	if in.Token != "" {
		claims, err := s.check(in.Token)
		if err != nil {
			return err
		}
		if claims.SeatID != in.SeatID || claims.ReservedBy != in.UserID || claims.OneTimeToken != in.OneTimeToken {
			return ErrInvalidReservation
		}
	}

	n, err := s.nonces.Get(ctx, in.OneTimeToken)
	switch {
	case errors.Is(err, repository.ErrNonceNotFound):
		return ErrAlreadyUsed
	case err != nil:
		return fmt.Errorf("%w: load nonce: %w", ErrStoreUnavailable, err)
	case n.Used:
		return ErrAlreadyUsed
	case n.SeatID != in.SeatID || n.UserID != in.UserID:
		return ErrInvalidReservation
	}

	now := s.clock()
	seat, err := s.seats.Get(ctx, in.SeatID)
	switch {
	case errors.Is(err, repository.ErrSeatNotFound):
		return ErrInvalidReservation
	case err != nil:
		return fmt.Errorf("%w: load seat: %w", ErrStoreUnavailable, err)
	case !seat.HeldBy(in.UserID):
		return ErrInvalidReservation
	case seat.Lapsed(now):
		return ErrExpired
	}

	if err := s.nonces.MarkUsed(ctx, in.OneTimeToken, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrNonceUsed), errors.Is(err, repository.ErrNonceNotFound):
			return ErrAlreadyUsed
		default:
			return fmt.Errorf("%w: mark nonce used: %w", ErrStoreUnavailable, err)
		}
	}
	if err := s.seats.Occupy(ctx, in.SeatID, in.UserID, now); err != nil {
		if errors.Is(err, repository.ErrInvalidReservation) {
			return ErrInvalidReservation
		}
		return fmt.Errorf("%w: occupy seat: %w", ErrStoreUnavailable, err)
	}

	s.logFor(ctx, in.SeatID, in.UserID).Info("seat occupied")
	s.publish(ctx, queue.SeatOccupied, in.SeatID, in.UserID, now)
	return nil
}

// ReleaseInput names the seat to free and who is asking.
type ReleaseInput struct {
	SeatID string
	UserID string
	// AdminEmail is the caller's e-mail as vouched for by the identity
	// provider, never the client supplied UserID.  Empty means no admin
	// override.
	AdminEmail string
}

// Release frees a seat.  Only the current holder (reservation or
// occupancy) or an admin may release it.
func (s *Service) Release(ctx context.Context, in ReleaseInput) error {
	if in.SeatID == "" || in.UserID == "" {
		return ErrBadRequest
	}
	seat, err := s.seats.Get(ctx, in.SeatID)
	switch {
	case errors.Is(err, repository.ErrSeatNotFound):
		return ErrSeatNotFound
	case err != nil:
		return fmt.Errorf("%w: load seat: %w", ErrStoreUnavailable, err)
	}
	holder := seat.ReservedBy
	if seat.Status == model.StatusOccupied {
		holder = seat.OccupiedBy
	}
	if holder != in.UserID && !identity.IsAdmin(in.AdminEmail, s.adminDomain) {
		return ErrForbidden
	}
	if seat.Status == model.StatusAvailable {
		return nil
	}

	now := s.clock()
	if err := s.seats.Release(ctx, in.SeatID, now); err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return ErrSeatNotFound
		}
		return fmt.Errorf("%w: release seat: %w", ErrStoreUnavailable, err)
	}
	s.logFor(ctx, in.SeatID, in.UserID).Info("seat released", "admin", in.UserID != holder)
	s.publish(ctx, queue.SeatReleased, in.SeatID, in.UserID, now)
	return nil
}

// ExpiryReport summarises one sweep.
type ExpiryReport struct {
	MarkedExpiring int
	Released       []string
}

// ExpireReservations flags reservations about to lapse as expiring and
// releases the ones that already lapsed.
func (s *Service) ExpireReservations(ctx context.Context) (ExpiryReport, error) {
	now := s.clock()
	var report ExpiryReport

	n, err := s.seats.MarkExpiring(ctx, now, now.Add(s.expiringWindow))
	if err != nil {
		return report, fmt.Errorf("%w: mark expiring: %w", ErrStoreUnavailable, err)
	}
	report.MarkedExpiring = n

	ids, err := s.seats.ReleaseExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("%w: release expired: %w", ErrStoreUnavailable, err)
	}
	report.Released = ids
	for _, id := range ids {
		s.publish(ctx, queue.SeatExpired, id, "", now)
	}
	if n > 0 || len(ids) > 0 {
		s.log.Info("expiry sweep", "markedExpiring", n, "released", len(ids))
	}
	return report, nil
}

// Floor returns the seat map of one floor.
func (s *Service) Floor(ctx context.Context, floor int) ([]model.Seat, error) {
	if floor < 1 {
		return nil, ErrBadRequest
	}
	seats, err := s.seats.ListByFloor(ctx, floor)
	if err != nil {
		return nil, fmt.Errorf("%w: list seats: %w", ErrStoreUnavailable, err)
	}
	return seats, nil
}

// check runs the shared token verification and maps codec errors.
func (s *Service) check(raw string) (token.Claims, error) {
	claims, err := s.codec.Check(raw, s.now())
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, token.ErrExpired):
		return token.Claims{}, ErrExpired
	default:
		return token.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
}

// logFor prefers the request-scoped logger carried by ctx.
func (s *Service) logFor(ctx context.Context, seatID, userID string) *logger.Logger {
	return logger.FromContext(ctx, s.log).ForSeat(seatID, userID)
}

func (s *Service) publish(ctx context.Context, typ queue.EventType, seatID, userID string, at time.Time) {
	if s.events == nil {
		return
	}
	ev := queue.NewSeatEvent(typ, seatID, userID, at)
	// outlives request cancellation, bounded by publishTimeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logFor(ctx, seatID, userID).Warn("failed to publish seat event", "type", typ, "error", err)
	}
}
