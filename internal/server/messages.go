package server

import "encoding/json"

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type    string          `json:"type"`
	MatchID string          `json:"match_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client to server message types.
const (
	MsgCreateMatch  = "create_match"
	MsgJoinMatch    = "join_match"
	MsgPlayCard     = "play_card"
	MsgFillHand     = "fill_hand"
	MsgResolveCard  = "resolve_card"
	MsgResolveLane  = "resolve_lane"
	MsgResolveOrder = "resolve_order"
	MsgResolveSwap  = "resolve_swap"
	MsgAccept       = "accept"
	MsgSkip         = "skip"
)

// Server to client message types.
const (
	MsgMatchCreated = "match_created"
	MsgMatchJoined  = "match_joined"
	MsgStateView    = "state_view"
	MsgEvents       = "events"
	MsgError        = "error"
)

// CreateMatchRequest starts a match. With VsAI set the north seat is driven
// by the server's AI at the given difficulty.
type CreateMatchRequest struct {
	Name         string    `json:"name"`
	Protocols    [3]string `json:"protocols"`
	VsAI         bool      `json:"vs_ai"`
	AIDifficulty string    `json:"ai_difficulty,omitempty"`
	AIProtocols  [3]string `json:"ai_protocols,omitempty"`
	UseControl   *bool     `json:"use_control,omitempty"`
}

// JoinMatchRequest claims the open seat of a waiting match.
type JoinMatchRequest struct {
	Name      string    `json:"name"`
	Protocols [3]string `json:"protocols"`
}

// PlayCardRequest plays a hand card.
type PlayCardRequest struct {
	CardID string `json:"card_id"`
	Lane   int    `json:"lane"`
	FaceUp bool   `json:"face_up"`
}

// ResolveCardRequest answers the pending action with a card.
type ResolveCardRequest struct {
	CardID string `json:"card_id"`
}

// ResolveLaneRequest answers the pending action with a lane.
type ResolveLaneRequest struct {
	Lane int `json:"lane"`
}

// ResolveOrderRequest answers a rearrange action with a protocol ordering.
type ResolveOrderRequest struct {
	Order [3]string `json:"order"`
}

// ResolveSwapRequest answers a swap action with two lane indices.
type ResolveSwapRequest struct {
	LaneA int `json:"lane_a"`
	LaneB int `json:"lane_b"`
}

// MatchCreatedResponse acknowledges a create request.
type MatchCreatedResponse struct {
	MatchID string `json:"match_id"`
	Seat    string `json:"seat"`
}

// ErrorResponse reports a rejected frame; illegal intents leave the match
// state untouched, so the client simply re-prompts.
type ErrorResponse struct {
	Reason string `json:"reason"`
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func envelope(msgType, matchID string, payload any) []byte {
	data, err := json.Marshal(WSMessage{Type: msgType, MatchID: matchID, Data: mustMarshal(payload)})
	if err != nil {
		return nil
	}
	return data
}
