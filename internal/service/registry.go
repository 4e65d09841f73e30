package service

import (
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/pkg"
)

// RoomRegistry owns every room in the process and assigns sessions to
// seats. It is deliberately unsynchronized: all access runs through the
// coordinator, which serializes message handling (one mutation in flight).
type RoomRegistry struct {
	rooms []*entity.Room
	byID  map[string]*entity.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		byID: make(map[string]*entity.Room),
	}
}

func (that *RoomRegistry) Get(id string) (*entity.Room, bool) {
	room, ok := that.byID[id]
	return room, ok
}

// Assign seats a session into a reusable waiting room of the desired
// mode, creating a fresh one if nothing fits. Finished and fully seated
// rooms are never matchmaking targets.
//
// For PvP, a room with exactly one seat filled wins over an entirely
// empty room: pairing a waiting player beats colonizing a ghost room.
func (that *RoomRegistry) Assign(sessionID string, conn entity.Conn, mode entity.Mode) (*entity.Room, entity.Color) {
	var fallback *entity.Room

	for _, room := range that.rooms {
		if room.IsFinished() || room.Mode != mode {
			continue
		}

		if mode == entity.ModeAI {
			if room.Players[entity.Black] == nil {
				room.Seat(entity.Black, sessionID, conn)
				return room, entity.Black
			}
			continue
		}

		hasBlack := room.Players[entity.Black] != nil
		hasWhite := room.Players[entity.White] != nil

		switch {
		case !hasBlack && !hasWhite:
			if fallback == nil {
				fallback = room
			}
		case !hasBlack:
			room.Seat(entity.Black, sessionID, conn)
			return room, entity.Black
		case !hasWhite:
			room.Seat(entity.White, sessionID, conn)
			return room, entity.White
		}
	}

	if fallback != nil {
		fallback.Seat(entity.Black, sessionID, conn)
		return fallback, entity.Black
	}

	room := that.createRoom(mode)
	room.Seat(entity.Black, sessionID, conn)

	return room, entity.Black
}

// Rejoin reattaches a live connection to the seat the session already
// occupies in the given room, without touching board or turn state.
func (that *RoomRegistry) Rejoin(sessionID, roomID string, conn entity.Conn) (*entity.Room, entity.Color, bool) {
	room, ok := that.byID[roomID]
	if !ok {
		return nil, entity.Empty, false
	}

	seat := room.SeatOf(sessionID)
	if seat == entity.Empty {
		return nil, entity.Empty, false
	}

	room.Players[seat].Conn = conn

	return room, seat, true
}

// TrySeat seats a session into a specific PvP room if it has a free
// seat, for the "return to my previous room" path of mode switching.
func (that *RoomRegistry) TrySeat(roomID, sessionID string, conn entity.Conn) (*entity.Room, entity.Color, bool) {
	room, ok := that.byID[roomID]
	if !ok || room.Mode != entity.ModePVP {
		return nil, entity.Empty, false
	}

	if room.Players[entity.Black] == nil {
		room.Seat(entity.Black, sessionID, conn)
		return room, entity.Black, true
	}

	if room.Players[entity.White] == nil {
		room.Seat(entity.White, sessionID, conn)
		return room, entity.White, true
	}

	return nil, entity.Empty, false
}

func (that *RoomRegistry) createRoom(mode entity.Mode) *entity.Room {
	room := entity.NewRoom(pkg.GenerateRoomID(), pkg.GenerateRoomName(), mode)

	that.rooms = append(that.rooms, room)
	that.byID[room.ID] = room

	return room
}

// RemoveIdle evicts rooms that have had no live connection and no
// activity for at least ttl, and returns how many went away.
func (that *RoomRegistry) RemoveIdle(ttl time.Duration, now time.Time) int {
	kept := that.rooms[:0]
	removed := 0

	for _, room := range that.rooms {
		if !room.HasLiveConn() && now.Sub(room.LastActivity) >= ttl {
			delete(that.byID, room.ID)
			removed++
			continue
		}
		kept = append(kept, room)
	}

	that.rooms = kept

	return removed
}

// Stats reports room counts for the health endpoint.
func (that *RoomRegistry) Stats() (total, active int) {
	for _, room := range that.rooms {
		if room.IsActive() {
			active++
		}
	}
	return len(that.rooms), active
}
