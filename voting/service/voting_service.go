package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/voting-session/voting/model"
)

var ErrSessionClosed = errors.New("session is closed")

// VotingService defines all session, participant, card and vote operations.
// Sessions are addressed by access code.
type VotingService interface {
	// Session Management
	CreateSession(ctx context.Context, accessCode string) (*model.Session, error)
	GetSession(ctx context.Context, accessCode string) (*SessionInfo, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]*model.Session, error)
	CloseSession(ctx context.Context, accessCode string) (*model.Session, error)
	PurgeClosedSessions(ctx context.Context, maxAge time.Duration) (int, error)

	// Participants
	JoinSession(ctx context.Context, accessCode, name string, isAdmin bool) (*model.User, error)
	ListUsers(ctx context.Context, accessCode string) ([]*model.User, error)

	// Cards and Votes
	AddCard(ctx context.Context, accessCode, title, description string) (*model.Card, error)
	ListCards(ctx context.Context, accessCode string) ([]*model.Card, error)
	CastVote(ctx context.Context, accessCode, cardID, userID string, vote bool) (*model.Vote, error)
	ListVotes(ctx context.Context, accessCode string) ([]*model.Vote, error)
}
