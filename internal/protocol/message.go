// Package protocol defines the closed set of inbound message kinds and
// the outward payload shapes. Everything outside the union is rejected
// before it reaches a room.
package protocol

import (
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const (
	TypeHello      = "hello"
	TypeMove       = "move"
	TypeNewGame    = "newGame"
	TypeNewAIGame  = "newAIGame"
	TypeSwitchMode = "switchMode"
)

const (
	maxTypeLength   = 20
	maxStringLength = 60
)

var (
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrInvalidType = errors.New("invalid message type")
)

// ClientMessage is the tagged union of everything a client may send.
// Coordinates are pointers so a missing field is distinguishable from 0.
type ClientMessage struct {
	Type         string `json:"type"`
	SessionID    string `json:"sessionId,omitempty"`
	RoomID       string `json:"roomId,omitempty"`
	Mode         string `json:"mode,omitempty"`
	X            *int   `json:"x,omitempty"`
	Y            *int   `json:"y,omitempty"`
	PreferRoomID string `json:"preferRoomId,omitempty"`
}

// Parse decodes and structurally validates an inbound record. Field
// semantics are still re-checked by the coordinator against live state.
func Parse(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, ErrInvalidJSON
	}

	if msg.Type == "" || len(msg.Type) > maxTypeLength {
		return nil, ErrInvalidType
	}

	msg.SessionID = SafeString(msg.SessionID, maxStringLength)
	msg.RoomID = SafeString(msg.RoomID, maxStringLength)
	msg.PreferRoomID = SafeString(msg.PreferRoomID, maxStringLength)

	return &msg, nil
}

// SafeString returns v when it is non-empty and within max, else "".
func SafeString(v string, max int) string {
	if v == "" || len(v) > max {
		return ""
	}
	return v
}

// NormalizeMode maps anything that isn't explicitly "ai" onto PvP.
func NormalizeMode(v string) entity.Mode {
	if v == string(entity.ModeAI) {
		return entity.ModeAI
	}
	return entity.ModePVP
}

// HelloAck confirms identity and seat to a freshly (re)connected client.
type HelloAck struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionId"`
	RoomID    string       `json:"roomId"`
	Color     entity.Color `json:"color"`
}

func NewHelloAck(sessionID, roomID string, color entity.Color) HelloAck {
	return HelloAck{Type: "hello_ack", SessionID: sessionID, RoomID: roomID, Color: color}
}

// Presence flags which seats are occupied (by human or AI).
type Presence struct {
	Black bool `json:"black"`
	White bool `json:"white"`
}

// State is the full snapshot a client needs to reconstruct the match.
type State struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"roomId"`
	RoomName string        `json:"roomName"`
	Board    *entity.Board `json:"board"`
	Moves    []entity.Move `json:"moves"`
	NextTurn entity.Color  `json:"nextTurn"`
	YouAre   entity.Color  `json:"youAre"`
	Players  Presence      `json:"players"`
	Winner   entity.Color  `json:"winner"`
	Mode     entity.Mode   `json:"mode"`
}

// Snapshot renders a room for one recipient; YouAre is recipient-specific.
func Snapshot(room *entity.Room, forSessionID string) State {
	return State{
		Type:     "state",
		RoomID:   room.ID,
		RoomName: room.Name,
		Board:    room.Board,
		Moves:    room.Moves,
		NextTurn: room.NextTurn,
		YouAre:   room.SeatOf(forSessionID),
		Players: Presence{
			Black: room.Players[entity.Black] != nil,
			White: room.Players[entity.White] != nil,
		},
		Winner: room.Winner,
		Mode:   room.Mode,
	}
}

// MoveDelta describes one move's effect; NextTurn is 0 on the final move.
type MoveDelta struct {
	Type     string       `json:"type"`
	X        int          `json:"x"`
	Y        int          `json:"y"`
	Color    entity.Color `json:"color"`
	NextTurn entity.Color `json:"nextTurn"`
}

func NewMoveDelta(move entity.Move, nextTurn entity.Color) MoveDelta {
	return MoveDelta{Type: "move", X: move.X, Y: move.Y, Color: move.Color, NextTurn: nextTurn}
}

type Result struct {
	Type   string       `json:"type"`
	Winner entity.Color `json:"winner"`
}

func NewResult(winner entity.Color) Result {
	return Result{Type: "result", Winner: winner}
}

type Status struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Waiting bool   `json:"waiting"`
}

func NewStatus(message string, waiting bool) Status {
	return Status{Type: "status", Message: message, Waiting: waiting}
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) Error {
	return Error{Type: "error", Message: message}
}
