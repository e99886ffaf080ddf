package store

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/voting-session/voting/model"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAccessCodeTaken = errors.New("access code already in use")
	ErrUserNotFound    = errors.New("user not found")
	ErrCardNotFound    = errors.New("card not found")
	ErrDuplicateVote   = errors.New("user already voted on this card")
)

// Store is the durable record of sessions, participants, cards and votes.
// Users, cards and votes are always scoped by the owning session's ID.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, s *model.Session) error
	GetSessionByCode(ctx context.Context, accessCode string) (*model.Session, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)
	CloseSession(ctx context.Context, accessCode string, closedAt time.Time) (*model.Session, error)
	DeleteSession(ctx context.Context, accessCode string) error

	// Participants
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, sessionID string) ([]*model.User, error)

	// Cards
	CreateCard(ctx context.Context, c *model.Card) error
	GetCard(ctx context.Context, id string) (*model.Card, error)
	ListCards(ctx context.Context, sessionID string) ([]*model.Card, error)

	// Votes
	CreateVote(ctx context.Context, v *model.Vote) error
	ListVotes(ctx context.Context, sessionID string) ([]*model.Vote, error)

	Close() error
}
