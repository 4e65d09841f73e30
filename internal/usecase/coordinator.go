package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/gomoku"
	"github.com/rocketscienceinc/gomoku-backend/internal/protocol"
	"github.com/rocketscienceinc/gomoku-backend/internal/service"
)

type botService interface {
	ChooseMove(board *entity.Board, mover entity.Color) (gomoku.Point, bool)
}

type sessionService interface {
	Resolve(ctx context.Context, clientID string) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
}

// Client is the coordinator-side view of one live connection: its
// session identity, current room and seat. It is ephemeral; closing the
// connection never vacates the seat.
type Client struct {
	conn entity.Conn

	sessionID     string
	roomID        string
	color         entity.Color
	prevPVPRoomID string
}

// Coordinator maps connections to sessions and rooms and drives every
// room mutation. A single mutex serializes message handlers and AI
// continuations, which is what makes "at most one mutation in flight"
// hold for each room.
type Coordinator struct {
	logger *slog.Logger

	mu        sync.Mutex
	registry  *service.RoomRegistry
	sessions  sessionService
	bot       botService
	scheduler Scheduler
	aiDelay   time.Duration

	handlers map[string]func(ctx context.Context, client *Client, msg *protocol.ClientMessage)
}

func NewCoordinator(
	logger *slog.Logger,
	registry *service.RoomRegistry,
	sessions sessionService,
	bot botService,
	scheduler Scheduler,
	aiDelay time.Duration,
) *Coordinator {
	coordinator := &Coordinator{
		logger:    logger,
		registry:  registry,
		sessions:  sessions,
		bot:       bot,
		scheduler: scheduler,
		aiDelay:   aiDelay,
	}

	coordinator.handlers = map[string]func(context.Context, *Client, *protocol.ClientMessage){
		protocol.TypeHello:      coordinator.handleHello,
		protocol.TypeMove:       coordinator.handleMove,
		protocol.TypeNewGame:    coordinator.handleNewGame,
		protocol.TypeNewAIGame:  coordinator.handleNewAIGame,
		protocol.TypeSwitchMode: coordinator.handleSwitchMode,
	}

	return coordinator
}

// Register wraps a fresh transport connection into a Client.
func (that *Coordinator) Register(conn entity.Conn) *Client {
	return &Client{conn: conn}
}

// HandleMessage validates and dispatches one inbound record. Each
// handler runs to completion under the coordinator lock before the next
// message, from any connection, is processed.
func (that *Coordinator) HandleMessage(ctx context.Context, client *Client, data []byte) {
	msg, err := protocol.Parse(data)
	if errors.Is(err, protocol.ErrInvalidJSON) {
		that.sendError(client, "Invalid JSON")
		return
	}
	if err != nil {
		that.sendError(client, "Invalid message")
		return
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	handler, ok := that.handlers[msg.Type]
	if !ok {
		that.sendError(client, "Unknown message type")
		return
	}

	handler(ctx, client, msg)
}

// Disconnect detaches the connection from its seat. The seat and the
// room stay, waiting for the session to come back.
func (that *Coordinator) Disconnect(client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if client.roomID == "" {
		return
	}

	room, ok := that.registry.Get(client.roomID)
	if !ok {
		return
	}

	seat := room.SeatOf(client.sessionID)
	if seat == entity.Empty {
		return
	}

	room.Detach(seat)
	room.Touch()

	if !room.HasBothConns() {
		that.broadcast(room, protocol.NewStatus(
			"Your opponent left the game. Waiting for them (or another player) to join…", true))
	}
}

// RunReaper periodically evicts rooms that lost all connections and went
// idle, through the same lock every mutation takes.
func (that *Coordinator) RunReaper(ctx context.Context, interval, ttl time.Duration) {
	log := that.logger.With("method", "RunReaper")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.mu.Lock()
			removed := that.registry.RemoveIdle(ttl, time.Now())
			that.mu.Unlock()

			if removed > 0 {
				log.Info("evicted idle rooms", "count", removed)
			}
		}
	}
}

// Stats reports registry counters for the REST surface.
func (that *Coordinator) Stats() (rooms, active int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.registry.Stats()
}

func (that *Coordinator) handleHello(ctx context.Context, client *Client, msg *protocol.ClientMessage) {
	log := that.logger.With("method", "handleHello")

	session, err := that.sessions.Resolve(ctx, msg.SessionID)
	if err != nil {
		log.Error("failed to resolve session", "error", err)
		that.sendError(client, "Failed to resolve session")
		return
	}

	client.sessionID = session.ID
	if client.prevPVPRoomID == "" {
		client.prevPVPRoomID = session.PreferredPVPRoomID
	}

	var (
		room  *entity.Room
		color entity.Color
	)

	// Explicit rejoin first, then the server-side reconnect hint, then
	// fresh matchmaking.
	if msg.RoomID != "" {
		room, color, _ = that.registry.Rejoin(session.ID, msg.RoomID, client.conn)
	}
	if room == nil && session.LastRoomID != "" {
		room, color, _ = that.registry.Rejoin(session.ID, session.LastRoomID, client.conn)
	}
	if room == nil {
		room, color = that.registry.Assign(session.ID, client.conn, protocol.NormalizeMode(msg.Mode))
	}

	client.roomID = room.ID
	client.color = color
	if room.Mode == entity.ModePVP {
		client.prevPVPRoomID = room.ID
	}

	room.Touch()
	that.saveSessionHints(ctx, client)

	that.send(client, protocol.NewHelloAck(session.ID, room.ID, color))
	that.send(client, protocol.Snapshot(room, session.ID))
	that.broadcastRoomStatus(room)

	log.Info("session connected", "sessionID", session.ID, "roomID", room.ID)
}

func (that *Coordinator) handleMove(_ context.Context, client *Client, msg *protocol.ClientMessage) {
	log := that.logger.With("method", "handleMove")

	room, ok := that.registry.Get(client.roomID)
	if !ok {
		that.sendError(client, "Room not found")
		return
	}

	seat := room.SeatOf(client.sessionID)
	if seat == entity.Empty {
		that.sendError(client, "Not a player in this room")
		return
	}

	if msg.X == nil || msg.Y == nil {
		that.sendError(client, "Move coordinates required")
		return
	}

	if err := room.MakeMove(seat, *msg.X, *msg.Y); err != nil {
		that.sendError(client, rejectionMessage(err))
		return
	}

	room.Touch()

	move := room.Moves[len(room.Moves)-1]
	that.broadcast(room, protocol.NewMoveDelta(move, room.NextTurn))

	if room.IsFinished() {
		that.broadcast(room, protocol.NewResult(room.Winner))
		log.Info("game finished", "roomID", room.ID, "winner", room.Winner)
		return
	}

	that.maybeScheduleAIMove(room)
}

func (that *Coordinator) handleNewGame(_ context.Context, client *Client, _ *protocol.ClientMessage) {
	room, ok := that.registry.Get(client.roomID)
	if !ok {
		that.sendError(client, "Room not found")
		return
	}

	room.Reset()
	room.Touch()

	that.broadcastSnapshots(room)

	if room.Mode == entity.ModeAI {
		that.broadcast(room, protocol.NewStatus("New AI game started. Black moves first.", false))
		return
	}

	both := room.Players[entity.Black] != nil && room.Players[entity.White] != nil
	that.broadcast(room, protocol.NewStatus(
		fmt.Sprintf("New multiplayer game started in %s. Black moves first.", room.Name), !both))
}

func (that *Coordinator) handleNewAIGame(_ context.Context, client *Client, _ *protocol.ClientMessage) {
	room, ok := that.registry.Get(client.roomID)
	if !ok {
		that.sendError(client, "Room not found")
		return
	}

	if room.Mode != entity.ModeAI {
		that.sendError(client, "Not an AI room")
		return
	}

	if room.SeatOf(client.sessionID) != entity.Black {
		that.sendError(client, "Not a player in this room")
		return
	}

	room.Reset()
	room.Touch()

	that.broadcastSnapshots(room)
	that.broadcast(room, protocol.NewStatus("New AI game started. Black moves first.", false))
}

func (that *Coordinator) handleSwitchMode(ctx context.Context, client *Client, msg *protocol.ClientMessage) {
	room, ok := that.registry.Get(client.roomID)
	if !ok {
		that.sendError(client, "Room not found")
		return
	}

	seat := room.SeatOf(client.sessionID)
	if seat == entity.Empty {
		that.sendError(client, "Not a player in this room")
		return
	}

	if protocol.NormalizeMode(msg.Mode) == entity.ModeAI {
		that.switchToAI(ctx, client, room, seat)
		return
	}

	that.switchToPVP(ctx, client, room, seat, msg.PreferRoomID)
}

func (that *Coordinator) switchToAI(ctx context.Context, client *Client, room *entity.Room, seat entity.Color) {
	other := room.Players[seat.Opponent()]

	room.Vacate(seat)
	if room.Mode == entity.ModePVP {
		client.prevPVPRoomID = room.ID
	}

	// The abandoned opponent keeps the room; give them a clean board and
	// put them back into the waiting pool.
	if other != nil && other.Conn != nil {
		room.Reset()
		room.Touch()
		that.sendTo(other.Conn, protocol.Snapshot(room, other.SessionID))
		that.sendTo(other.Conn, protocol.NewStatus(
			"Your opponent switched to AI. Waiting for another player to join…", true))
	}

	aiRoom, color := that.registry.Assign(client.sessionID, client.conn, entity.ModeAI)
	client.roomID = aiRoom.ID
	client.color = color

	aiRoom.Touch()
	that.saveSessionHints(ctx, client)

	that.send(client, protocol.NewHelloAck(client.sessionID, aiRoom.ID, color))
	that.send(client, protocol.Snapshot(aiRoom, client.sessionID))
	that.broadcastRoomStatus(aiRoom)
}

func (that *Coordinator) switchToPVP(ctx context.Context, client *Client, room *entity.Room, seat entity.Color, preferRoomID string) {
	room.Vacate(seat)
	if room.Mode == entity.ModeAI {
		room.Reset()
	}
	room.Touch()

	prefer := preferRoomID
	if prefer == "" {
		prefer = client.prevPVPRoomID
	}

	var (
		target *entity.Room
		color  entity.Color
	)

	if prefer != "" {
		target, color, _ = that.registry.TrySeat(prefer, client.sessionID, client.conn)
	}
	if target == nil {
		target, color = that.registry.Assign(client.sessionID, client.conn, entity.ModePVP)
	}

	client.roomID = target.ID
	client.color = color
	client.prevPVPRoomID = target.ID

	target.Touch()
	that.saveSessionHints(ctx, client)

	that.send(client, protocol.NewHelloAck(client.sessionID, target.ID, color))
	that.send(client, protocol.Snapshot(target, client.sessionID))
	that.broadcastRoomStatus(target)
}

// maybeScheduleAIMove defers the machine reply when it is the AI seat's
// turn. The move is chosen now, against the current board, and carried
// by the task; execution re-validates it against live state because real
// time passes before it runs.
func (that *Coordinator) maybeScheduleAIMove(room *entity.Room) {
	if room.Mode != entity.ModeAI {
		return
	}

	mover := room.NextTurn
	player := room.Players[mover]
	if player == nil || !player.IsAI() {
		return
	}

	target, ok := that.bot.ChooseMove(room.Board, mover)
	if !ok {
		return
	}

	roomID := room.ID
	that.scheduler.Schedule(that.aiDelay, func() {
		that.executeAIMove(roomID, mover, target)
	})
}

// executeAIMove is the deferred continuation. Any staleness — the room
// finished, reset, evicted, or the turn moved on during the delay —
// drops the move silently; re-validation is the only cancellation
// mechanism there is.
func (that *Coordinator) executeAIMove(roomID string, mover entity.Color, target gomoku.Point) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.registry.Get(roomID)
	if !ok {
		return
	}

	player := room.Players[mover]
	if player == nil || !player.IsAI() {
		return
	}

	if room.IsFinished() || room.NextTurn != mover || room.Board.At(target.X, target.Y) != entity.Empty {
		return
	}

	if err := room.MakeMove(mover, target.X, target.Y); err != nil {
		that.logger.Error("AI move rejected after re-validation", "roomID", roomID, "error", err)
		return
	}

	room.Touch()

	move := room.Moves[len(room.Moves)-1]
	that.broadcast(room, protocol.NewMoveDelta(move, room.NextTurn))

	if room.IsFinished() {
		that.broadcast(room, protocol.NewResult(room.Winner))
	}
}

// broadcastRoomStatus tells everyone seated where the match stands.
func (that *Coordinator) broadcastRoomStatus(room *entity.Room) {
	if room.Mode == entity.ModeAI {
		that.broadcast(room, protocol.NewStatus(
			fmt.Sprintf("AI ready in %s. Black moves first.", room.Name), false))
		return
	}

	both := room.Players[entity.Black] != nil && room.Players[entity.White] != nil
	if both {
		that.broadcast(room, protocol.NewStatus(
			fmt.Sprintf("Both players connected in %s. Black moves first.", room.Name), false))
		return
	}

	that.broadcast(room, protocol.NewStatus(
		fmt.Sprintf("Waiting for another player to join %s…", room.Name), true))
}

// broadcast pushes one payload to every live connection seated in the room.
func (that *Coordinator) broadcast(room *entity.Room, payload any) {
	for _, color := range []entity.Color{entity.Black, entity.White} {
		player := room.Players[color]
		if player == nil || player.Conn == nil {
			continue
		}
		that.sendTo(player.Conn, payload)
	}
}

// broadcastSnapshots sends each seated human their own view of the room.
func (that *Coordinator) broadcastSnapshots(room *entity.Room) {
	for _, color := range []entity.Color{entity.Black, entity.White} {
		player := room.Players[color]
		if player == nil || player.Conn == nil {
			continue
		}
		that.sendTo(player.Conn, protocol.Snapshot(room, player.SessionID))
	}
}

func (that *Coordinator) saveSessionHints(ctx context.Context, client *Client) {
	session := &entity.Session{
		ID:                 client.sessionID,
		LastRoomID:         client.roomID,
		PreferredPVPRoomID: client.prevPVPRoomID,
	}

	if err := that.sessions.Save(ctx, session); err != nil {
		that.logger.Error("failed to save session hints", "sessionID", client.sessionID, "error", err)
	}
}

func (that *Coordinator) send(client *Client, payload any) {
	that.sendTo(client.conn, payload)
}

func (that *Coordinator) sendTo(conn entity.Conn, payload any) {
	if err := conn.Send(payload); err != nil {
		that.logger.Error("failed to send payload", "error", err)
	}
}

func (that *Coordinator) sendError(client *Client, message string) {
	that.send(client, protocol.NewError(message))
}

// rejectionMessage maps state-machine violations onto the wire texts.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, apperror.ErrGameFinished):
		return "Game already finished"
	case errors.Is(err, apperror.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, apperror.ErrOutOfBounds):
		return "Out-of-bounds move"
	case errors.Is(err, apperror.ErrCellOccupied):
		return "Intersection occupied"
	default:
		return "Invalid move"
	}
}
