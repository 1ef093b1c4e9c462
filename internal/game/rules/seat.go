package rules

import "fmt"

// Seat identifies one of the two players at the table.
type Seat int

const (
	SeatSouth Seat = iota
	SeatNorth
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatSouth {
		return SeatNorth
	}
	return SeatSouth
}

func (s Seat) String() string {
	switch s {
	case SeatSouth:
		return "SOUTH"
	case SeatNorth:
		return "NORTH"
	default:
		return fmt.Sprintf("SEAT_%d", int(s))
	}
}

// Valid reports whether the seat is one of the two table positions.
func (s Seat) Valid() bool {
	return s == SeatSouth || s == SeatNorth
}
