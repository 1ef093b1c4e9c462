package targeting

// Owner restricts which player's cards an effect may target, relative to the
// player resolving the effect.
type Owner string

const (
	OwnerOwn      Owner = "OWN"
	OwnerOpponent Owner = "OPPONENT"
	OwnerAny      Owner = "ANY"
)

// FaceState restricts targets by orientation.
type FaceState string

const (
	FaceUp   FaceState = "UP"
	FaceDown FaceState = "DOWN"
	FaceAny  FaceState = "ANY"
)

// Position restricts targets by stack position within a lane. Only the top
// card of a lane stack is uncovered; everything beneath it is covered.
type Position string

const (
	PositionCovered   Position = "COVERED"
	PositionUncovered Position = "UNCOVERED"
	PositionAny       Position = "ANY"
)

// Location restricts which container a target may occupy.
type Location string

const (
	LocationLane Location = "LANE"
	LocationHand Location = "HAND"
	LocationAny  Location = "ANY"
)

// Filter describes the legal target set of a single effect instruction or a
// pending action. The zero value matches nothing useful; use the setters in
// the catalog to build filters declaratively.
type Filter struct {
	Owner    Owner
	Face     FaceState
	Position Position
	Location Location

	// Value range, inclusive, applied to the card's effective value.
	// Only consulted when HasValueRange is set.
	HasValueRange bool
	MinValue      int
	MaxValue      int

	// Lane restricts targets to a single lane index. -1 means any lane.
	Lane int

	ExcludeSelf  bool
	ExcludeIDs   []string
	ExcludeLanes []int
}

// NewFilter returns a filter with the permissive defaults used by the
// catalog: any owner, any face, any position, lane cards, no value bound.
func NewFilter() Filter {
	return Filter{
		Owner:    OwnerAny,
		Face:     FaceAny,
		Position: PositionAny,
		Location: LocationLane,
		Lane:     -1,
	}
}

// CardInfo is the view of a card a Filter matches against. It is computed by
// the board state for a concrete (card, resolving player) pair so that the
// match itself stays a pure function.
type CardInfo struct {
	ID       string
	Protocol string
	Value    int // effective value: printed when face-up, face-down default otherwise

	FaceUp   bool
	Covered  bool
	InLane   bool
	InHand   bool
	Lane     int // -1 when not in a lane
	OwnedBy  Owner
	SourceID string // id of the effect source; used for ExcludeSelf
}

// Matches reports whether the card satisfies every constraint of the filter.
// It is a pure predicate: no state is read or written.
func (f Filter) Matches(c CardInfo) bool {
	switch f.Location {
	case LocationLane:
		if !c.InLane {
			return false
		}
	case LocationHand:
		if !c.InHand {
			return false
		}
	}

	if f.Owner != OwnerAny && f.Owner != c.OwnedBy {
		return false
	}

	switch f.Face {
	case FaceUp:
		if !c.FaceUp {
			return false
		}
	case FaceDown:
		if c.FaceUp {
			return false
		}
	}

	// Position constraints only make sense for lane cards.
	if c.InLane {
		switch f.Position {
		case PositionCovered:
			if !c.Covered {
				return false
			}
		case PositionUncovered:
			if c.Covered {
				return false
			}
		}
	}

	if f.HasValueRange && (c.Value < f.MinValue || c.Value > f.MaxValue) {
		return false
	}

	if f.Lane >= 0 && (!c.InLane || c.Lane != f.Lane) {
		return false
	}

	if f.ExcludeSelf && c.ID == c.SourceID {
		return false
	}

	for _, id := range f.ExcludeIDs {
		if c.ID == id {
			return false
		}
	}

	if c.InLane {
		for _, lane := range f.ExcludeLanes {
			if c.Lane == lane {
				return false
			}
		}
	}

	return true
}

// Validate reports whether the filter's enum fields carry known values.
// Catalog loading rejects definitions that fail validation.
func (f Filter) Validate() bool {
	switch f.Owner {
	case OwnerOwn, OwnerOpponent, OwnerAny:
	default:
		return false
	}
	switch f.Face {
	case FaceUp, FaceDown, FaceAny:
	default:
		return false
	}
	switch f.Position {
	case PositionCovered, PositionUncovered, PositionAny:
	default:
		return false
	}
	switch f.Location {
	case LocationLane, LocationHand, LocationAny:
	default:
		return false
	}
	if f.HasValueRange && f.MinValue > f.MaxValue {
		return false
	}
	return true
}
