package pkg

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mathrand "math/rand"

	"github.com/google/uuid"
)

// GenerateNewSessionID - generates a new unique sessionID.
func GenerateNewSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "error-generating-session-id"
	}

	return base64.RawURLEncoding.EncodeToString(b)
}

var roomAdjectives = []string{
	"brisk", "sunny", "mellow", "lucky", "bold", "quiet", "swift",
	"witty", "cosmic", "silver", "crimson", "jade", "amber", "violet",
}

var roomNouns = []string{
	"otter", "falcon", "comet", "willow", "acorn", "nebula", "lotus",
	"maple", "coral", "ember", "harbor", "lynx", "reef", "thistle",
}

// GenerateRoomName - builds a human-friendly display name like "brisk-otter-f3".
func GenerateRoomName() string {
	adjective := roomAdjectives[mathrand.Intn(len(roomAdjectives))] //nolint: gosec // display names only
	noun := roomNouns[mathrand.Intn(len(roomNouns))]                //nolint: gosec // display names only

	return fmt.Sprintf("%s-%s-%02x", adjective, noun, mathrand.Intn(256)) //nolint: gosec // display names only
}

// GenerateRoomID - generates a unique identifier for a room.
func GenerateRoomID() string {
	return uuid.NewString()
}
