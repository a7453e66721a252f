package ws

import (
	"encoding/json"
	"fmt"
)

// MessageType constants for the battle WebSocket protocol.
const (
	// Client -> Server
	TypeJoinBattle      = "battleRoom"
	TypeStartBattle     = "startBattle"
	TypeSubmitSolution  = "submitSolution"
	TypeQuestionExpired = "questionExpired"
	TypeLeaveBattle     = "leaveBattle"

	// Server -> Client. The first four are also relayed peer to peer.
	TypeNewQuestion      = "newQuestion"
	TypeScoreUpdate      = "scoreUpdate"
	TypePointAwarded     = "pointAwarded"
	TypeBattleCompleted  = "battleCompleted"
	TypeBattleState      = "battleState"
	TypeOpponentJoined   = "opponentJoined"
	TypeRedirectToBattle = "redirectToBattle"
	TypeOpponentLeft     = "opponentLeft"
	TypeRoomClosed       = "roomClosed"
	TypeSubmissionResult = "submissionResult"
	TypeError            = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage encodes payload under msgType.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Payload: data}, nil
}

// Client Messages (incoming)

type JoinBattlePayload struct {
	RoomCode string `json:"roomCode"`
}

type StartBattlePayload struct {
	RoomCode string `json:"roomCode"`
}

type SubmitSolutionPayload struct {
	RoomCode      string `json:"roomCode"`
	QuestionIndex int    `json:"questionIndex"`
	Language      string `json:"language"`
	SourceCode    string `json:"sourceCode"`
}

type QuestionExpiredPayload struct {
	RoomCode      string `json:"roomCode"`
	QuestionIndex int    `json:"questionIndex"`
}

type LeaveBattlePayload struct {
	RoomCode string `json:"roomCode"`
}

// RelayPayload carries a client-authored event mirrored to the opponent.
type RelayPayload struct {
	RoomCode string          `json:"roomCode"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Server Messages (outgoing)

type Scores struct {
	Creator    int `json:"creator"`
	Challenger int `json:"challenger"`
}

type Player struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

type BattleStatePayload struct {
	RoomCode     string      `json:"roomCode"`
	ConnectionID string      `json:"connectionId"`
	Side         string      `json:"side"`
	IsCreator    bool        `json:"isCreator"`
	Battle       interface{} `json:"battle"`
	Question     interface{} `json:"question,omitempty"`
}

type OpponentJoinedPayload struct {
	RoomCode string `json:"roomCode"`
	Opponent Player `json:"opponent"`
	Side     string `json:"side"`
}

type NewQuestionPayload struct {
	RoomCode         string      `json:"roomCode"`
	Index            int         `json:"index"`
	Total            int         `json:"total"`
	TimeLimitSeconds int         `json:"timeLimitSeconds"`
	Question         interface{} `json:"question"`
}

type ScoreUpdatePayload struct {
	RoomCode string `json:"roomCode"`
	Scores   Scores `json:"scores"`
}

type PointAwardedPayload struct {
	RoomCode      string `json:"roomCode"`
	QuestionIndex int    `json:"questionIndex"`
	Side          string `json:"side"`
	UserID        string `json:"userId"`
}

type BattleCompletedPayload struct {
	RoomCode string `json:"roomCode"`
	BattleID string `json:"battleId"`
	IsWinner bool   `json:"isWinner"`
	IsTie    bool   `json:"isTie"`
	WinnerID string `json:"winnerId,omitempty"`
	Scores   Scores `json:"scores"`
}

type RedirectPayload struct {
	RoomCode string `json:"roomCode"`
	BattleID string `json:"battleId"`
}

type OpponentLeftPayload struct {
	RoomCode string `json:"roomCode"`
	Side     string `json:"side"`
	Status   string `json:"status"`
}

type RoomClosedPayload struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

type SubmissionResultPayload struct {
	RoomCode      string `json:"roomCode"`
	QuestionIndex int    `json:"questionIndex"`
	Passed        bool   `json:"passed"`
	Stale         bool   `json:"stale,omitempty"`
	Retry         bool   `json:"retry,omitempty"`
	PassedCases   int    `json:"passedCases"`
	TotalCases    int    `json:"totalCases"`
	Message       string `json:"message,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
