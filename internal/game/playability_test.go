package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compiledigital/compile-server-go/internal/game/rules"
)

// A face-up lane-block card on the opposing side closes the lane entirely.
func TestLaneBlockClosesLane(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Plague", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)
	putLane(t, e, s, rules.SeatNorth, 0, "Plague-0", true)

	speed4 := mustCard(t, e, "Speed-4")
	playability := s.GetLanePlayability(rules.SeatSouth, speed4)
	assert.False(t, playability[0].IsPlayable, "blocked regardless of hand selection")
	assert.True(t, playability[1].IsPlayable)
	assert.True(t, playability[2].IsPlayable)

	// Face-down play is rejected too.
	id := putHand(t, e, s, rules.SeatSouth, "Speed-4")
	_, _, err := e.PlayCard(s, id, 0, false)
	assert.ErrorIs(t, err, rules.ErrIllegalIntent)

	// Covering the blocker reopens the lane for the blocker's owner only;
	// for the opponent it stays closed while the blocker is the uncovered
	// face-up card.
	putLane(t, e, s, rules.SeatNorth, 0, "Death-4", true)
	playability = s.GetLanePlayability(rules.SeatSouth, speed4)
	assert.True(t, playability[0].IsPlayable, "a covered blocker no longer blocks")
}

func TestBaselineProtocolMatching(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	// A card matches a lane when it matches either side's protocol.
	metal4 := mustCard(t, e, "Metal-4")
	playability := s.GetLanePlayability(rules.SeatSouth, metal4)
	assert.True(t, playability[0].FaceUp, "matches the opposing protocol")
	assert.False(t, playability[1].FaceUp)
	assert.True(t, playability[1].IsPlayable, "face-down stays available")
}

func TestInvertedMatchingPrecedence(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Darkness", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)
	putLane(t, e, s, rules.SeatNorth, 0, "Darkness-0", true)

	speed4 := mustCard(t, e, "Speed-4")
	playability := s.GetLanePlayability(rules.SeatSouth, speed4)
	assert.False(t, playability[0].FaceUp, "Speed matches lane 0, so inverted matching forbids it")
	assert.True(t, playability[1].FaceUp, "non-matching lanes open up under inversion")
	assert.True(t, playability[2].FaceUp)

	// The any-face-up rule loses to inversion.
	putLane(t, e, s, rules.SeatSouth, 2, "Love-1", true)
	playability = s.GetLanePlayability(rules.SeatSouth, speed4)
	assert.False(t, playability[0].FaceUp, "inversion takes precedence over any-face-up")
}

func TestAnyFaceUpRule(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)
	putLane(t, e, s, rules.SeatSouth, 1, "Love-1", true)

	hate2 := mustCard(t, e, "Hate-2")
	playability := s.GetLanePlayability(rules.SeatSouth, hate2)
	for lane := 0; lane < LaneCount; lane++ {
		assert.True(t, playability[lane].FaceUp, "lane %d", lane)
	}
}

func TestSelfAnyLanePassive(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Speed", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	spirit3 := mustCard(t, e, "Spirit-3")
	playability := s.GetLanePlayability(rules.SeatSouth, spirit3)
	for lane := 0; lane < LaneCount; lane++ {
		assert.True(t, playability[lane].FaceUp, "lane %d", lane)
	}

	// The bypass is for the carrying card only.
	spirit2 := mustCard(t, e, "Spirit-2")
	playability = s.GetLanePlayability(rules.SeatSouth, spirit2)
	assert.False(t, playability[0].FaceUp)
}

func TestFaceDownValueRaisedLaneWide(t *testing.T) {
	e := testEngine()
	s := bareState(
		[LaneCount]string{"Gravity", "Life", "Water"},
		[LaneCount]string{"Metal", "Death", "Hate"},
		rules.SeatSouth)
	toActionPhase(s)

	putLane(t, e, s, rules.SeatSouth, 0, "Water-4", false)
	putLane(t, e, s, rules.SeatNorth, 0, "Hate-4", false)
	putLane(t, e, s, rules.SeatSouth, 1, "Life-4", false)
	require.Equal(t, faceDownValue, s.Player(rules.SeatSouth).LaneValues[0])

	putLane(t, e, s, rules.SeatSouth, 0, "Gravity-1", true)
	assert.Equal(t, 4+1, s.Player(rules.SeatSouth).LaneValues[0], "own face-down now counts 4")
	assert.Equal(t, 4, s.Player(rules.SeatNorth).LaneValues[0], "the raise is lane-wide, both sides")
	assert.Equal(t, faceDownValue, s.Player(rules.SeatSouth).LaneValues[1], "other lanes keep the default")
}
