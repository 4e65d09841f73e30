package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/pkg"
)

const maxSessionIDLength = 64

type SessionService interface {
	// Resolve returns the session for a client-supplied id, minting a
	// fresh identity when the id is absent or malformed.
	Resolve(ctx context.Context, clientID string) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
}

type sessionRepo interface {
	Save(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
}

type sessionService struct {
	sessionRepo sessionRepo
}

func NewSessionService(sessionRepo sessionRepo) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
	}
}

func (that *sessionService) Resolve(ctx context.Context, clientID string) (*entity.Session, error) {
	if clientID == "" || len(clientID) > maxSessionIDLength {
		return that.mint(ctx)
	}

	session, err := that.sessionRepo.GetByID(ctx, clientID)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		// The token is opaque and client-supplied; an unknown but
		// well-formed id becomes a new session under that id.
		session = &entity.Session{ID: clientID}
		if err = that.sessionRepo.Save(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
		return session, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	return session, nil
}

func (that *sessionService) Save(ctx context.Context, session *entity.Session) error {
	if err := that.sessionRepo.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (that *sessionService) mint(ctx context.Context) (*entity.Session, error) {
	session := &entity.Session{ID: pkg.GenerateNewSessionID()}

	if err := that.sessionRepo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}
