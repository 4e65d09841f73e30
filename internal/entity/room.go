package entity

import (
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

type Mode string

const (
	ModePVP Mode = "pvp"
	ModeAI  Mode = "ai"
)

// AISessionID is the synthetic session occupying the machine seat of an
// AI room. It never has a connection attached.
const AISessionID = "AI"

// Conn is the one-way push handle the transport layer provides for a live
// connection. A seat holds it as a non-owning reference; it may be nil
// while the player is disconnected.
type Conn interface {
	Send(payload any) error
}

// Player binds a seat to a session and, while connected, to a transport handle.
type Player struct {
	SessionID string
	Conn      Conn
}

func (that *Player) IsAI() bool {
	return that.SessionID == AISessionID
}

// Move is one entry of a room's append-only move log.
type Move struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color Color `json:"color"`
}

// Room is one isolated match: a board, two seats, a turn cursor and a
// move log. Rooms are mutated only through the coordinator, one message
// at a time.
type Room struct {
	ID   string
	Name string
	Mode Mode

	Board    *Board
	Moves    []Move
	NextTurn Color
	Winner   Color

	Players map[Color]*Player

	CreatedAt    time.Time
	LastActivity time.Time
}

// NewRoom creates a fresh room. AI rooms pre-seat the machine as WHITE,
// so the human seat is always BLACK and moves first.
func NewRoom(id, name string, mode Mode) *Room {
	now := time.Now()
	room := &Room{
		ID:           id,
		Name:         name,
		Mode:         mode,
		Board:        NewBoard(),
		Moves:        []Move{},
		NextTurn:     Black,
		Winner:       Empty,
		Players:      map[Color]*Player{},
		CreatedAt:    now,
		LastActivity: now,
	}

	if mode == ModeAI {
		room.Players[White] = &Player{SessionID: AISessionID}
	}

	return room
}

// SeatOf returns the color seated by the given session, or Empty.
func (that *Room) SeatOf(sessionID string) Color {
	if sessionID == "" {
		return Empty
	}
	for color, player := range that.Players {
		if player != nil && player.SessionID == sessionID {
			return color
		}
	}
	return Empty
}

// Seat binds a session and connection to a color. Filling a seat never
// touches board or turn state.
func (that *Room) Seat(color Color, sessionID string, conn Conn) {
	that.Players[color] = &Player{SessionID: sessionID, Conn: conn}
}

// Vacate clears a seat entirely, releasing it for matchmaking.
func (that *Room) Vacate(color Color) {
	delete(that.Players, color)
}

// Detach drops a seat's connection but keeps the session binding, so a
// reconnecting client can reclaim the seat.
func (that *Room) Detach(color Color) {
	if player := that.Players[color]; player != nil {
		player.Conn = nil
	}
}

func (that *Room) IsFinished() bool {
	return that.Winner != Empty
}

func (that *Room) IsWaiting() bool {
	return !that.IsFinished() && (that.Players[Black] == nil || that.Players[White] == nil)
}

func (that *Room) IsActive() bool {
	return !that.IsFinished() && !that.IsWaiting()
}

// HasBothConns reports whether both seats currently hold live connections.
// AI seats count as connected since no transport handle ever exists for them.
func (that *Room) HasBothConns() bool {
	for _, color := range []Color{Black, White} {
		player := that.Players[color]
		if player == nil {
			return false
		}
		if player.Conn == nil && !player.IsAI() {
			return false
		}
	}
	return true
}

// HasLiveConn reports whether any seat holds a live connection.
func (that *Room) HasLiveConn() bool {
	for _, player := range that.Players {
		if player != nil && player.Conn != nil {
			return true
		}
	}
	return false
}

// MakeMove validates and applies one stone for the given seat color.
// On a win it records the winner and clears the turn cursor; otherwise
// the cursor flips. Rejections leave the room untouched.
func (that *Room) MakeMove(color Color, x, y int) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if that.NextTurn != color {
		return apperror.ErrNotYourTurn
	}

	if !InBounds(x, y) {
		return apperror.ErrOutOfBounds
	}

	if that.Board.At(x, y) != Empty {
		return apperror.ErrCellOccupied
	}

	that.Board.Apply(x, y, color)
	that.Moves = append(that.Moves, Move{X: x, Y: y, Color: color})

	if winner := that.Board.CheckWinner(x, y); winner != Empty {
		that.Winner = winner
		that.NextTurn = Empty
		return nil
	}

	that.NextTurn = color.Opponent()

	return nil
}

// Reset restores the initial game state while preserving identity and
// seat occupancy.
func (that *Room) Reset() {
	that.Board = NewBoard()
	that.Moves = []Move{}
	that.NextTurn = Black
	that.Winner = Empty
}

// Touch records activity for idle-room eviction.
func (that *Room) Touch() {
	that.LastActivity = time.Now()
}
