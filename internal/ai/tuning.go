package ai

// Tuning holds the weights the hard strategy scores candidate moves with.
type Tuning struct {
	// IntrinsicWeight multiplies cardPower: cards with dense effect boxes
	// are worth committing to the board.
	IntrinsicWeight float64
	// LeadGainWeight multiplies the immediate change of the lane lead
	// (own value minus opposing value) a play produces.
	LeadGainWeight float64
	// CompileSetupBonus rewards a play that leaves the lane at or above
	// the compile threshold and strictly ahead.
	CompileSetupBonus float64
	// DefenseWeight multiplies the lane's threat grade when a disruptive
	// card is played face-up into it.
	DefenseWeight float64
	// FaceDownPenalty discourages burying an effect box face-down.
	FaceDownPenalty float64
	// FillHandBase and HandDeficitWeight score the refill option; an empty
	// hand makes refilling dominate every play.
	FillHandBase      float64
	HandDeficitWeight float64
	// PlayThreshold is the minimum play score; below it the strategy
	// refills instead.
	PlayThreshold float64
}

// DefaultTuning favors building toward a compile while keeping enough
// pressure on threatened lanes.
var DefaultTuning = Tuning{
	IntrinsicWeight:   1.0,
	LeadGainWeight:    1.5,
	CompileSetupBonus: 25.0,
	DefenseWeight:     3.0,
	FaceDownPenalty:   2.0,
	FillHandBase:      1.0,
	HandDeficitWeight: 1.2,
	PlayThreshold:     0.0,
}
