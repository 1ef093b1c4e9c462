package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogShape(t *testing.T) {
	cat := NewDefault()

	protocols := cat.Protocols()
	assert.Len(t, protocols, 13)

	for _, proto := range protocols {
		cards, ok := cat.ProtocolCards(proto)
		require.True(t, ok, "protocol %s missing", proto)
		require.Len(t, cards, cardsPerProtocol, "protocol %s", proto)
		for i, card := range cards {
			assert.Equal(t, i, card.Value, "protocol %s sorted by value", proto)
			assert.Equal(t, proto, card.Protocol)
		}
	}
}

func TestDefaultCatalogValidates(t *testing.T) {
	for _, card := range defaultCards {
		assert.NoError(t, ValidateCard(card), "card %s", card.Key())
	}
}

func TestCardLookup(t *testing.T) {
	cat := NewDefault()

	card, ok := cat.Card("Speed-0")
	require.True(t, ok)
	assert.Equal(t, "Speed", card.Protocol)
	assert.Equal(t, 0, card.Value)
	assert.True(t, card.HasKeyword(KeywordDraw))

	effect, ok := card.EffectFor(TriggerOnFlip)
	require.True(t, ok)
	require.Len(t, effect.Instructions, 1)
	assert.Equal(t, OpShift, effect.Instructions[0].Op)
	assert.True(t, effect.Instructions[0].Self)

	_, ok = cat.Card("Speed-9")
	assert.False(t, ok)
}

func TestPassiveCards(t *testing.T) {
	cat := NewDefault()

	plague, _ := cat.Card("Plague-0")
	assert.True(t, plague.HasPassive(PassiveLaneBlock))

	gravity, _ := cat.Card("Gravity-1")
	require.True(t, gravity.HasPassive(PassiveFaceDownValue))
	assert.Equal(t, 4, gravity.Passives[0].Amount)

	spirit, _ := cat.Card("Spirit-3")
	assert.True(t, spirit.HasPassive(PassiveSelfAnyLane))
	assert.Empty(t, spirit.Effects)
}

func TestLoadProtocolFile(t *testing.T) {
	input := `{
		"schemaVersion": 1,
		"protocols": [{
			"name": "Storm",
			"cards": [
				{"protocol": "Storm", "value": 0, "middle": "Draw 2 cards.",
				 "keywords": ["draw"],
				 "effects": [{"trigger": "ON_PLAY", "text": "Draw 2 cards.",
				              "instructions": [{"op": "DRAW", "count": 2}]}]},
				{"protocol": "Storm", "value": 1},
				{"protocol": "Storm", "value": 2},
				{"protocol": "Storm", "value": 3},
				{"protocol": "Storm", "value": 4}
			]
		}]
	}`

	cards, err := LoadProtocolFile(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, cards, 5)

	cat, err := NewWithCustom(cards)
	require.NoError(t, err)
	assert.Len(t, cat.Protocols(), 14)

	storm, ok := cat.Card("Storm-0")
	require.True(t, ok)
	assert.True(t, storm.HasKeyword(KeywordDraw))
}

func TestLoadProtocolFileRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{
			name:  "wrong schema version",
			input: `{"schemaVersion": 2, "protocols": [{"name": "X", "cards": []}]}`,
		},
		{
			name: "wrong card count",
			input: `{"schemaVersion": 1, "protocols": [{"name": "X", "cards": [
				{"protocol": "X", "value": 0}]}]}`,
		},
		{
			name: "duplicate value",
			input: `{"schemaVersion": 1, "protocols": [{"name": "X", "cards": [
				{"protocol": "X", "value": 0}, {"protocol": "X", "value": 0},
				{"protocol": "X", "value": 2}, {"protocol": "X", "value": 3},
				{"protocol": "X", "value": 4}]}]}`,
		},
		{
			name: "unknown op",
			input: `{"schemaVersion": 1, "protocols": [{"name": "X", "cards": [
				{"protocol": "X", "value": 0,
				 "effects": [{"trigger": "ON_PLAY", "text": "x",
				              "instructions": [{"op": "EXPLODE"}]}]},
				{"protocol": "X", "value": 1}, {"protocol": "X", "value": 2},
				{"protocol": "X", "value": 3}, {"protocol": "X", "value": 4}]}]}`,
		},
		{
			name: "shift revealed without reveal",
			input: `{"schemaVersion": 1, "protocols": [{"name": "X", "cards": [
				{"protocol": "X", "value": 0,
				 "effects": [{"trigger": "ON_PLAY", "text": "x",
				              "instructions": [{"op": "SHIFT_REVEALED"}]}]},
				{"protocol": "X", "value": 1}, {"protocol": "X", "value": 2},
				{"protocol": "X", "value": 3}, {"protocol": "X", "value": 4}]}]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadProtocolFile(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestNewWithCustomRejectsShadowing(t *testing.T) {
	_, err := NewWithCustom([]Card{{Protocol: "Speed", Value: 0}})
	assert.Error(t, err)
}

func TestValidateCardRejectsDualTarget(t *testing.T) {
	card := Card{
		Protocol: "X", Value: 0,
		Effects: []Effect{{Trigger: TriggerOnPlay, Text: "x", Instructions: []Instruction{
			{Op: OpDelete}, // neither self nor a target filter
		}}},
	}
	assert.Error(t, ValidateCard(card))
}
