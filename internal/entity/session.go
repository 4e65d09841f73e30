package entity

// Session is the durable client identity. It survives connection drops;
// the fields beyond the ID are reconnection hints only and are safe to lose.
type Session struct {
	ID                 string `json:"id"`
	LastRoomID         string `json:"last_room_id,omitempty"`
	PreferredPVPRoomID string `json:"preferred_pvp_room_id,omitempty"`
}
