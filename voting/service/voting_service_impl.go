package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/voting-session/voting/model"
	"github.com/wricardo/voting-session/voting/store"
)

// maxCodeAttempts bounds access code generation retries on collision
const maxCodeAttempts = 10

// votingServiceImpl implements the VotingService interface
type votingServiceImpl struct {
	store   store.Store
	now     func() time.Time
	newID   func() string
	newCode func() (string, error)
}

// NewVotingService creates a new voting service over st
func NewVotingService(st store.Store) VotingService {
	return &votingServiceImpl{
		store:   st,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
		newCode: generateAccessCode,
	}
}

// CreateSession creates a new active session. An empty accessCode asks for
// a generated one; a caller-chosen code must be free.
func (s *votingServiceImpl) CreateSession(ctx context.Context, accessCode string) (*model.Session, error) {
	if accessCode != "" {
		code := model.NormalizeAccessCode(accessCode)
		if err := model.ValidateAccessCode(code); err != nil {
			return nil, err
		}
		return s.insertSession(ctx, code)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		sess, err := s.insertSession(ctx, code)
		if errors.Is(err, store.ErrAccessCodeTaken) {
			continue
		}
		return sess, err
	}
	return nil, fmt.Errorf("no free access code after %d attempts: %w", maxCodeAttempts, store.ErrAccessCodeTaken)
}

func (s *votingServiceImpl) insertSession(ctx context.Context, code string) (*model.Session, error) {
	sess := &model.Session{
		ID:         s.newID(),
		AccessCode: code,
		Active:     true,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession returns the session with its counts and tallies
func (s *votingServiceImpl) GetSession(ctx context.Context, accessCode string) (*SessionInfo, error) {
	sess, err := s.store.GetSessionByCode(ctx, accessCode)
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	cards, err := s.store.ListCards(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	votes, err := s.store.ListVotes(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	tally := make([]CardTally, len(cards))
	index := make(map[string]int, len(cards))
	for i, c := range cards {
		tally[i] = CardTally{CardID: c.ID, Title: c.Title}
		index[c.ID] = i
	}
	for _, v := range votes {
		i, ok := index[v.CardID]
		if !ok {
			continue
		}
		if v.Vote {
			tally[i].Yes++
		} else {
			tally[i].No++
		}
	}

	return &SessionInfo{
		Session:   *sess,
		UserCount: len(users),
		CardCount: len(cards),
		VoteCount: len(votes),
		Tally:     tally,
	}, nil
}

// ListSessions returns sessions ordered and limited by opts
func (s *votingServiceImpl) ListSessions(ctx context.Context, opts ListOptions) ([]*model.Session, error) {
	var less func(a, b *model.Session) bool
	switch opts.Sort {
	case "", "created_at":
		less = func(a, b *model.Session) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case "access_code":
		less = func(a, b *model.Session) bool { return a.AccessCode < b.AccessCode }
	default:
		return nil, fmt.Errorf("%w: invalid sort field '%s' (must be 'created_at' or 'access_code')", model.ErrInvalidInput, opts.Sort)
	}

	desc := true
	switch opts.Order {
	case "", "desc":
	case "asc":
		desc = false
	default:
		return nil, fmt.Errorf("%w: invalid order '%s' (must be 'asc' or 'desc')", model.ErrInvalidInput, opts.Order)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", model.ErrInvalidInput)
	}

	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if desc {
			return less(sessions[j], sessions[i])
		}
		return less(sessions[i], sessions[j])
	})

	if opts.Limit > 0 && len(sessions) > opts.Limit {
		sessions = sessions[:opts.Limit]
	}
	return sessions, nil
}

// CloseSession marks a session inactive. Closing a closed session is a no-op.
func (s *votingServiceImpl) CloseSession(ctx context.Context, accessCode string) (*model.Session, error) {
	return s.store.CloseSession(ctx, accessCode, s.now())
}

// PurgeClosedSessions deletes sessions closed longer than maxAge ago
func (s *votingServiceImpl) PurgeClosedSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, sess := range sessions {
		if sess.Active || sess.ClosedAt == nil || !sess.ClosedAt.Before(cutoff) {
			continue
		}
		if err := s.store.DeleteSession(ctx, sess.AccessCode); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			return removed, fmt.Errorf("failed to delete session %s: %w", sess.AccessCode, err)
		}
		removed++
	}
	return removed, nil
}

// JoinSession registers a participant in an active session
func (s *votingServiceImpl) JoinSession(ctx context.Context, accessCode, name string, isAdmin bool) (*model.User, error) {
	sess, err := s.activeSession(ctx, accessCode)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:        s.newID(),
		Name:      name,
		IsAdmin:   isAdmin,
		SessionID: sess.ID,
		CreatedAt: s.now(),
	}
	if err := model.ValidateUser(user); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *votingServiceImpl) ListUsers(ctx context.Context, accessCode string) ([]*model.User, error) {
	sess, err := s.store.GetSessionByCode(ctx, accessCode)
	if err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, sess.ID)
}

// AddCard proposes a card in an active session
func (s *votingServiceImpl) AddCard(ctx context.Context, accessCode, title, description string) (*model.Card, error) {
	sess, err := s.activeSession(ctx, accessCode)
	if err != nil {
		return nil, err
	}

	card := &model.Card{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		SessionID:   sess.ID,
		CreatedAt:   s.now(),
	}
	if err := model.ValidateCard(card); err != nil {
		return nil, err
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *votingServiceImpl) ListCards(ctx context.Context, accessCode string) ([]*model.Card, error) {
	sess, err := s.store.GetSessionByCode(ctx, accessCode)
	if err != nil {
		return nil, err
	}
	return s.store.ListCards(ctx, sess.ID)
}

// CastVote records a user's vote on a card. Card and user must belong to
// the session; a second vote by the same user on the same card fails with
// store.ErrDuplicateVote.
func (s *votingServiceImpl) CastVote(ctx context.Context, accessCode, cardID, userID string, vote bool) (*model.Vote, error) {
	sess, err := s.activeSession(ctx, accessCode)
	if err != nil {
		return nil, err
	}

	v := &model.Vote{
		ID:        s.newID(),
		CardID:    cardID,
		UserID:    userID,
		Vote:      vote,
		SessionID: sess.ID,
		CreatedAt: s.now(),
	}
	if err := model.ValidateVote(v); err != nil {
		return nil, err
	}

	card, err := s.store.GetCard(ctx, cardID)
	if errors.Is(err, store.ErrCardNotFound) || (err == nil && card.SessionID != sess.ID) {
		return nil, fmt.Errorf("%w: card %s is not part of session %s", model.ErrInvalidInput, cardID, sess.AccessCode)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) || (err == nil && user.SessionID != sess.ID) {
		return nil, fmt.Errorf("%w: user %s is not part of session %s", model.ErrInvalidInput, userID, sess.AccessCode)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateVote(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *votingServiceImpl) ListVotes(ctx context.Context, accessCode string) ([]*model.Vote, error) {
	sess, err := s.store.GetSessionByCode(ctx, accessCode)
	if err != nil {
		return nil, err
	}
	return s.store.ListVotes(ctx, sess.ID)
}

func (s *votingServiceImpl) activeSession(ctx context.Context, accessCode string) (*model.Session, error) {
	sess, err := s.store.GetSessionByCode(ctx, accessCode)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, sess.AccessCode)
	}
	return sess, nil
}
