package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionRepo struct {
	sessions map[string]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entity.Session)}
}

func (that *fakeSessionRepo) Save(_ context.Context, session *entity.Session) error {
	stored := *session
	that.sessions[session.ID] = &stored
	return nil
}

func (that *fakeSessionRepo) GetByID(_ context.Context, id string) (*entity.Session, error) {
	session, ok := that.sessions[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}
	stored := *session
	return &stored, nil
}

func TestSessionService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Mints a fresh session for an empty id", func(t *testing.T) {
		repo := newFakeSessionRepo()
		service := NewSessionService(repo)

		session, err := service.Resolve(ctx, "")

		require.NoError(t, err)
		assert.NotEmpty(t, session.ID)
		assert.Contains(t, repo.sessions, session.ID)
	})

	t.Run("Mints a fresh session for an oversized id", func(t *testing.T) {
		repo := newFakeSessionRepo()
		service := NewSessionService(repo)
		oversized := strings.Repeat("x", maxSessionIDLength+1)

		session, err := service.Resolve(ctx, oversized)

		require.NoError(t, err)
		assert.NotEqual(t, oversized, session.ID)
	})

	t.Run("Adopts an unknown but well-formed id", func(t *testing.T) {
		repo := newFakeSessionRepo()
		service := NewSessionService(repo)

		session, err := service.Resolve(ctx, "returning-client")

		require.NoError(t, err)
		assert.Equal(t, "returning-client", session.ID)
		assert.Contains(t, repo.sessions, "returning-client")
	})

	t.Run("Returns the stored session for a known id", func(t *testing.T) {
		repo := newFakeSessionRepo()
		repo.sessions["known"] = &entity.Session{ID: "known", LastRoomID: "room-1"}
		service := NewSessionService(repo)

		session, err := service.Resolve(ctx, "known")

		require.NoError(t, err)
		assert.Equal(t, "room-1", session.LastRoomID)
	})
}
