package repository

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	ctx, s := suite.New(t)

	repo := NewSessionRepository(s.Storage, time.Hour)

	t.Run("Round-trips a session with its hints", func(t *testing.T) {
		// Given: a session carrying reconnect hints
		session := &entity.Session{
			ID:                 "session-a",
			LastRoomID:         "room-1",
			PreferredPVPRoomID: "room-2",
		}

		// When: it is saved and read back
		require.NoError(t, repo.Save(ctx, session))

		got, err := repo.GetByID(ctx, "session-a")

		// Then: nothing is lost
		require.NoError(t, err)
		assert.Equal(t, session, got)
	})

	t.Run("Save overwrites the previous hints", func(t *testing.T) {
		session := &entity.Session{ID: "session-b", LastRoomID: "room-1"}
		require.NoError(t, repo.Save(ctx, session))

		session.LastRoomID = "room-9"
		require.NoError(t, repo.Save(ctx, session))

		got, err := repo.GetByID(ctx, "session-b")
		require.NoError(t, err)
		assert.Equal(t, "room-9", got.LastRoomID)
	})

	t.Run("Unknown id maps onto the sentinel", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "nobody")

		assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}
