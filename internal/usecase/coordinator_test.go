package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
	"github.com/rocketscienceinc/gomoku-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordConn captures every payload pushed to one connection.
type recordConn struct {
	payloads []any
}

func (that *recordConn) Send(payload any) error {
	that.payloads = append(that.payloads, payload)
	return nil
}

func (that *recordConn) errors() []protocol.Error {
	var out []protocol.Error
	for _, p := range that.payloads {
		if e, ok := p.(protocol.Error); ok {
			out = append(out, e)
		}
	}
	return out
}

func (that *recordConn) moves() []protocol.MoveDelta {
	var out []protocol.MoveDelta
	for _, p := range that.payloads {
		if m, ok := p.(protocol.MoveDelta); ok {
			out = append(out, m)
		}
	}
	return out
}

func (that *recordConn) results() []protocol.Result {
	var out []protocol.Result
	for _, p := range that.payloads {
		if r, ok := p.(protocol.Result); ok {
			out = append(out, r)
		}
	}
	return out
}

func (that *recordConn) lastAck(t *testing.T) protocol.HelloAck {
	t.Helper()
	for i := len(that.payloads) - 1; i >= 0; i-- {
		if ack, ok := that.payloads[i].(protocol.HelloAck); ok {
			return ack
		}
	}
	t.Fatal("no hello_ack recorded")
	return protocol.HelloAck{}
}

func (that *recordConn) lastState(t *testing.T) protocol.State {
	t.Helper()
	for i := len(that.payloads) - 1; i >= 0; i-- {
		if state, ok := that.payloads[i].(protocol.State); ok {
			return state
		}
	}
	t.Fatal("no state snapshot recorded")
	return protocol.State{}
}

// fakeScheduler collects deferred tasks so tests decide when the AI fires.
type fakeScheduler struct {
	tasks []func()
}

func (that *fakeScheduler) Schedule(_ time.Duration, task func()) {
	that.tasks = append(that.tasks, task)
}

func (that *fakeScheduler) runAll() {
	tasks := that.tasks
	that.tasks = nil
	for _, task := range tasks {
		task()
	}
}

// fakeSessions is an in-memory stand-in for the Redis-backed service.
type fakeSessions struct {
	sessions map[string]*entity.Session
	minted   int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*entity.Session)}
}

func (that *fakeSessions) Resolve(_ context.Context, clientID string) (*entity.Session, error) {
	if clientID == "" {
		that.minted++
		session := &entity.Session{ID: fmt.Sprintf("minted-%d", that.minted)}
		that.sessions[session.ID] = session
		return session, nil
	}
	if session, ok := that.sessions[clientID]; ok {
		stored := *session
		return &stored, nil
	}
	session := &entity.Session{ID: clientID}
	that.sessions[clientID] = session
	return session, nil
}

func (that *fakeSessions) Save(_ context.Context, session *entity.Session) error {
	stored := *session
	that.sessions[session.ID] = &stored
	return nil
}

type fixture struct {
	coordinator *Coordinator
	registry    *service.RoomRegistry
	scheduler   *fakeScheduler
	sessions    *fakeSessions
}

func newFixture() *fixture {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	registry := service.NewRoomRegistry()
	scheduler := &fakeScheduler{}
	sessions := newFakeSessions()

	return &fixture{
		coordinator: NewCoordinator(logger, registry, sessions, service.NewBotService(), scheduler, 200*time.Millisecond),
		registry:    registry,
		scheduler:   scheduler,
		sessions:    sessions,
	}
}

func (that *fixture) connect(sessionID, mode string) (*Client, *recordConn) {
	conn := &recordConn{}
	client := that.coordinator.Register(conn)
	that.coordinator.HandleMessage(context.Background(),
		client, []byte(fmt.Sprintf(`{"type":"hello","sessionId":%q,"mode":%q}`, sessionID, mode)))
	return client, conn
}

func (that *fixture) move(client *Client, x, y int) {
	that.coordinator.HandleMessage(context.Background(),
		client, []byte(fmt.Sprintf(`{"type":"move","x":%d,"y":%d}`, x, y)))
}

func TestCoordinator_Hello(t *testing.T) {
	t.Run("Greets a fresh client with identity, snapshot and status", func(t *testing.T) {
		fix := newFixture()

		_, conn := fix.connect("", "pvp")

		ack := conn.lastAck(t)
		assert.NotEmpty(t, ack.SessionID)
		assert.NotEmpty(t, ack.RoomID)
		assert.Equal(t, entity.Black, ack.Color)

		state := conn.lastState(t)
		assert.Equal(t, entity.Black, state.YouAre)
		assert.Equal(t, entity.Black, state.NextTurn)
		assert.Empty(t, state.Moves)
	})

	t.Run("Pairs the second PvP client into the same room", func(t *testing.T) {
		fix := newFixture()

		_, first := fix.connect("player-one", "pvp")
		_, second := fix.connect("player-two", "pvp")

		assert.Equal(t, first.lastAck(t).RoomID, second.lastAck(t).RoomID)
		assert.Equal(t, entity.White, second.lastAck(t).Color)
		assert.Equal(t, entity.White, second.lastState(t).YouAre)
	})

	t.Run("AI mode seats the client as black against the machine", func(t *testing.T) {
		fix := newFixture()

		_, conn := fix.connect("solo", "ai")

		state := conn.lastState(t)
		assert.Equal(t, entity.ModeAI, state.Mode)
		assert.Equal(t, entity.Black, state.YouAre)
		assert.True(t, state.Players.White)
	})
}

func TestCoordinator_BadInput(t *testing.T) {
	fix := newFixture()
	conn := &recordConn{}
	client := fix.coordinator.Register(conn)

	t.Run("Garbage bytes", func(t *testing.T) {
		fix.coordinator.HandleMessage(context.Background(), client, []byte("{not json"))

		require.NotEmpty(t, conn.errors())
		assert.Equal(t, "Invalid JSON", conn.errors()[len(conn.errors())-1].Message)
	})

	t.Run("Missing type", func(t *testing.T) {
		fix.coordinator.HandleMessage(context.Background(), client, []byte(`{"x":1}`))

		assert.Equal(t, "Invalid message", conn.errors()[len(conn.errors())-1].Message)
	})

	t.Run("Unknown type", func(t *testing.T) {
		fix.coordinator.HandleMessage(context.Background(), client, []byte(`{"type":"teleport"}`))

		assert.Equal(t, "Unknown message type", conn.errors()[len(conn.errors())-1].Message)
	})

	t.Run("Move before hello", func(t *testing.T) {
		fix.coordinator.HandleMessage(context.Background(), client, []byte(`{"type":"move","x":1,"y":1}`))

		assert.Equal(t, "Room not found", conn.errors()[len(conn.errors())-1].Message)
	})
}

func TestCoordinator_Move(t *testing.T) {
	t.Run("Broadcasts the delta to both players", func(t *testing.T) {
		fix := newFixture()
		black, blackConn := fix.connect("player-one", "pvp")
		_, whiteConn := fix.connect("player-two", "pvp")

		fix.move(black, 9, 9)

		require.Len(t, blackConn.moves(), 1)
		require.Len(t, whiteConn.moves(), 1)
		delta := whiteConn.moves()[0]
		assert.Equal(t, 9, delta.X)
		assert.Equal(t, entity.Black, delta.Color)
		assert.Equal(t, entity.White, delta.NextTurn)
	})

	t.Run("Rejections go only to the offender", func(t *testing.T) {
		fix := newFixture()
		_, blackConn := fix.connect("player-one", "pvp")
		white, whiteConn := fix.connect("player-two", "pvp")

		// When: white plays out of turn
		fix.move(white, 9, 9)

		// Then: white hears the rejection, black hears nothing new
		require.NotEmpty(t, whiteConn.errors())
		assert.Equal(t, "Not your turn", whiteConn.errors()[0].Message)
		assert.Empty(t, blackConn.errors())
		assert.Empty(t, blackConn.moves())
	})

	t.Run("Missing coordinates are rejected before the room is touched", func(t *testing.T) {
		fix := newFixture()
		black, conn := fix.connect("player-one", "pvp")

		fix.coordinator.HandleMessage(context.Background(), black, []byte(`{"type":"move","x":9}`))

		require.NotEmpty(t, conn.errors())
		assert.Equal(t, "Move coordinates required", conn.errors()[0].Message)
	})

	t.Run("Occupied and out-of-bounds map onto their wire texts", func(t *testing.T) {
		fix := newFixture()
		black, blackConn := fix.connect("player-one", "pvp")
		white, whiteConn := fix.connect("player-two", "pvp")

		fix.move(black, 9, 9)
		fix.move(white, 9, 9)
		require.NotEmpty(t, whiteConn.errors())
		assert.Equal(t, "Intersection occupied", whiteConn.errors()[0].Message)

		fix.move(white, 0, 0)
		fix.move(black, 99, 0)
		require.NotEmpty(t, blackConn.errors())
		assert.Equal(t, "Out-of-bounds move", blackConn.errors()[0].Message)
	})

	t.Run("Fifth in a row broadcasts the result and freezes the room", func(t *testing.T) {
		fix := newFixture()
		black, blackConn := fix.connect("player-one", "pvp")
		white, whiteConn := fix.connect("player-two", "pvp")

		for i := 0; i < 4; i++ {
			fix.move(black, 3+i, 9)
			fix.move(white, 3+i, 10)
		}
		fix.move(black, 7, 9)

		require.Len(t, blackConn.results(), 1)
		require.Len(t, whiteConn.results(), 1)
		assert.Equal(t, entity.Black, blackConn.results()[0].Winner)

		fix.move(white, 0, 0)
		assert.Equal(t, "Game already finished", whiteConn.errors()[len(whiteConn.errors())-1].Message)
	})
}

func TestCoordinator_AIMove(t *testing.T) {
	t.Run("Schedules exactly one reply after a human move", func(t *testing.T) {
		fix := newFixture()
		human, conn := fix.connect("solo", "ai")

		fix.move(human, 9, 9)

		require.Len(t, fix.scheduler.tasks, 1)
		require.Len(t, conn.moves(), 1)

		// When: the delay elapses
		fix.scheduler.runAll()

		// Then: the AI's stone lands and the turn comes back
		require.Len(t, conn.moves(), 2)
		reply := conn.moves()[1]
		assert.Equal(t, entity.White, reply.Color)
		assert.Equal(t, entity.Black, reply.NextTurn)

		room, ok := fix.registry.Get(conn.lastAck(t).RoomID)
		require.True(t, ok)
		assert.Equal(t, entity.White, room.Board.At(reply.X, reply.Y))
	})

	t.Run("No reply is scheduled in a PvP room", func(t *testing.T) {
		fix := newFixture()
		black, _ := fix.connect("player-one", "pvp")
		fix.connect("player-two", "pvp")

		fix.move(black, 9, 9)

		assert.Empty(t, fix.scheduler.tasks)
	})

	t.Run("Stale task is dropped after a reset", func(t *testing.T) {
		fix := newFixture()
		human, conn := fix.connect("solo", "ai")
		fix.move(human, 9, 9)
		require.Len(t, fix.scheduler.tasks, 1)

		// When: the game restarts before the AI fires
		fix.coordinator.HandleMessage(context.Background(), human, []byte(`{"type":"newAIGame"}`))
		fix.scheduler.runAll()

		// Then: the carried move never lands
		room, ok := fix.registry.Get(conn.lastAck(t).RoomID)
		require.True(t, ok)
		assert.Empty(t, room.Moves)
		assert.Equal(t, entity.Black, room.NextTurn)
	})

	t.Run("Stale task is dropped after the human switches away", func(t *testing.T) {
		fix := newFixture()
		human, _ := fix.connect("solo", "ai")
		fix.move(human, 9, 9)
		require.Len(t, fix.scheduler.tasks, 1)

		room, ok := fix.registry.Get(human.roomID)
		require.True(t, ok)

		fix.coordinator.HandleMessage(context.Background(), human,
			[]byte(`{"type":"switchMode","mode":"pvp"}`))
		fix.scheduler.runAll()

		// The AI room was reset on leave; the deferred move must not land.
		assert.Empty(t, room.Moves)
	})
}

func TestCoordinator_NewGame(t *testing.T) {
	fix := newFixture()
	black, blackConn := fix.connect("player-one", "pvp")
	white, whiteConn := fix.connect("player-two", "pvp")

	for i := 0; i < 4; i++ {
		fix.move(black, 3+i, 9)
		fix.move(white, 3+i, 10)
	}
	fix.move(black, 7, 9)
	require.NotEmpty(t, blackConn.results())

	// When: either player asks for a rematch
	fix.coordinator.HandleMessage(context.Background(), white, []byte(`{"type":"newGame"}`))

	// Then: both get a clean snapshot with seats preserved
	blackState := blackConn.lastState(t)
	whiteState := whiteConn.lastState(t)
	assert.Empty(t, blackState.Moves)
	assert.Equal(t, entity.Empty, blackState.Winner)
	assert.Equal(t, entity.Black, blackState.YouAre)
	assert.Equal(t, entity.White, whiteState.YouAre)
	assert.Equal(t, entity.Black, blackState.NextTurn)
}

func TestCoordinator_NewAIGame(t *testing.T) {
	t.Run("Resets the AI room", func(t *testing.T) {
		fix := newFixture()
		human, conn := fix.connect("solo", "ai")
		fix.move(human, 9, 9)
		fix.scheduler.runAll()

		fix.coordinator.HandleMessage(context.Background(), human, []byte(`{"type":"newAIGame"}`))

		state := conn.lastState(t)
		assert.Empty(t, state.Moves)
		assert.Equal(t, entity.Black, state.NextTurn)
	})

	t.Run("Refused outside an AI room", func(t *testing.T) {
		fix := newFixture()
		human, conn := fix.connect("player-one", "pvp")

		fix.coordinator.HandleMessage(context.Background(), human, []byte(`{"type":"newAIGame"}`))

		require.NotEmpty(t, conn.errors())
		assert.Equal(t, "Not an AI room", conn.errors()[0].Message)
	})
}

func TestCoordinator_SwitchMode(t *testing.T) {
	t.Run("PvP to AI leaves the opponent a reset waiting room", func(t *testing.T) {
		fix := newFixture()
		black, blackConn := fix.connect("player-one", "pvp")
		_, whiteConn := fix.connect("player-two", "pvp")
		pvpRoomID := blackConn.lastAck(t).RoomID

		fix.move(black, 9, 9)

		// When: black abandons the match for the machine
		fix.coordinator.HandleMessage(context.Background(), black,
			[]byte(`{"type":"switchMode","mode":"ai"}`))

		// Then: black lands in a fresh AI room
		ack := blackConn.lastAck(t)
		assert.NotEqual(t, pvpRoomID, ack.RoomID)
		assert.Equal(t, entity.ModeAI, blackConn.lastState(t).Mode)

		// Then: the abandoned opponent got a clean board and a waiting status
		whiteState := whiteConn.lastState(t)
		assert.Empty(t, whiteState.Moves)
		assert.False(t, whiteState.Players.Black)

		pvpRoom, ok := fix.registry.Get(pvpRoomID)
		require.True(t, ok)
		assert.Nil(t, pvpRoom.Players[entity.Black])
	})

	t.Run("Switching back prefers the remembered PvP room", func(t *testing.T) {
		fix := newFixture()
		black, blackConn := fix.connect("player-one", "pvp")
		fix.connect("player-two", "pvp")
		pvpRoomID := blackConn.lastAck(t).RoomID

		fix.coordinator.HandleMessage(context.Background(), black,
			[]byte(`{"type":"switchMode","mode":"ai"}`))
		require.NotEqual(t, pvpRoomID, blackConn.lastAck(t).RoomID)

		// When: they come back to multiplayer
		fix.coordinator.HandleMessage(context.Background(), black,
			[]byte(`{"type":"switchMode","mode":"pvp"}`))

		// Then: they are reseated with their old opponent
		assert.Equal(t, pvpRoomID, blackConn.lastAck(t).RoomID)
	})

	t.Run("Vacated AI room is reset for reuse", func(t *testing.T) {
		fix := newFixture()
		human, _ := fix.connect("solo", "ai")
		fix.move(human, 9, 9)
		aiRoomID := human.roomID

		fix.coordinator.HandleMessage(context.Background(), human,
			[]byte(`{"type":"switchMode","mode":"pvp"}`))

		room, ok := fix.registry.Get(aiRoomID)
		require.True(t, ok)
		assert.Empty(t, room.Moves)
		assert.Nil(t, room.Players[entity.Black])
	})
}

func TestCoordinator_DisconnectAndRejoin(t *testing.T) {
	fix := newFixture()
	black, blackConn := fix.connect("player-one", "pvp")
	_, whiteConn := fix.connect("player-two", "pvp")
	roomID := blackConn.lastAck(t).RoomID

	fix.move(black, 9, 9)

	// When: black's connection drops
	fix.coordinator.Disconnect(black)

	// Then: the seat survives and the opponent is told to wait
	room, ok := fix.registry.Get(roomID)
	require.True(t, ok)
	assert.Equal(t, entity.Black, room.SeatOf("player-one"))
	lastStatus, isStatus := whiteConn.payloads[len(whiteConn.payloads)-1].(protocol.Status)
	require.True(t, isStatus)
	assert.True(t, lastStatus.Waiting)

	// When: the same session says hello again
	_, rejoined := fix.connect("player-one", "pvp")

	// Then: it lands back on its seat with the game intact
	ack := rejoined.lastAck(t)
	assert.Equal(t, roomID, ack.RoomID)
	assert.Equal(t, entity.Black, ack.Color)
	state := rejoined.lastState(t)
	require.Len(t, state.Moves, 1)
	assert.Equal(t, entity.White, state.NextTurn)
}

func TestRejectionMessage(t *testing.T) {
	assert.Equal(t, "Game already finished", rejectionMessage(apperror.ErrGameFinished))
	assert.Equal(t, "Not your turn", rejectionMessage(apperror.ErrNotYourTurn))
	assert.Equal(t, "Out-of-bounds move", rejectionMessage(apperror.ErrOutOfBounds))
	assert.Equal(t, "Intersection occupied", rejectionMessage(apperror.ErrCellOccupied))
	assert.Equal(t, "Invalid move", rejectionMessage(errors.New("unexpected")))
}
