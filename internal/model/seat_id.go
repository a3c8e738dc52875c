package model

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seatIDPattern = regexp.MustCompile(`^([1-9][0-9]*)F-([A-Z]{1,2})([1-9][0-9]*)$`)

// ErrInvalidSeatID is returned by ParseSeatID for ids that do not follow
// the <floor>F-<row><column> convention.
var ErrInvalidSeatID = errors.New("invalid seat id")

// SeatID builds the composite identifier of a seat, e.g. SeatID(1, "A", 1)
// returns "1F-A1".
func SeatID(floor int, row string, column int) string {
	return fmt.Sprintf("%dF-%s%d", floor, strings.ToUpper(row), column)
}

// FloorSeatID joins a floor identifier ("1F") and a seat number ("A1") the
// way clients submit them on the reserve endpoint.
func FloorSeatID(floorID, seatNumber string) string {
	return strings.ToUpper(strings.TrimSpace(floorID)) + "-" + strings.ToUpper(strings.TrimSpace(seatNumber))
}

// IsSeatID reports whether id is a well formed composite seat id.
func IsSeatID(id string) bool {
	return seatIDPattern.MatchString(id)
}

// ParseSeatID splits a composite id into floor, row and column.
func ParseSeatID(id string) (floor int, row string, column int, err error) {
	m := seatIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, "", 0, fmt.Errorf("%w: %q", ErrInvalidSeatID, id)
	}
	floor, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, "", 0, fmt.Errorf("%w: %q", ErrInvalidSeatID, id)
	}
	column, err = strconv.Atoi(m[3])
	if err != nil {
		return 0, "", 0, fmt.Errorf("%w: %q", ErrInvalidSeatID, id)
	}
	return floor, m[2], column, nil
}

// NewSeat returns an available seat for the given id.  The floor, row and
// column are derived from the id.
func NewSeat(id string, at time.Time) (Seat, error) {
	floor, row, column, err := ParseSeatID(id)
	if err != nil {
		return Seat{}, err
	}
	return Seat{
		ID:        id,
		Floor:     floor,
		Row:       row,
		Column:    column,
		Status:    StatusAvailable,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// FloorLayout generates available seats for floors 1..floors, rows
// A..(rows) and columns 1..cols.  The default library layout is five
// floors of ten rows by ten columns.
func FloorLayout(floors, rows, cols int, at time.Time) []Seat {
	if floors <= 0 || rows <= 0 || cols <= 0 {
		return nil
	}
	seats := make([]Seat, 0, floors*rows*cols)
	for f := 1; f <= floors; f++ {
		for r := 0; r < rows; r++ {
			label := RowLabel(r)
			for c := 1; c <= cols; c++ {
				seats = append(seats, Seat{
					ID:        SeatID(f, label, c),
					Floor:     f,
					Row:       label,
					Column:    c,
					Status:    StatusAvailable,
					CreatedAt: at,
					UpdatedAt: at,
				})
			}
		}
	}
	return seats
}

// RowLabel converts a zero-based index to an alphabetical row label like A, B, AA.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
