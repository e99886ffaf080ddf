package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/voting-session/voting/model"
)

// MemoryStore keeps sessions in memory, optionally mirroring each session
// to a SnapshotPersistence after every write.
type MemoryStore struct {
	sessions    map[string]*model.Snapshot // access code -> snapshot
	byID        map[string]string          // session ID -> access code
	users       map[string]string          // user ID -> access code
	cards       map[string]string          // card ID -> access code
	persistence SnapshotPersistence
	mu          sync.RWMutex
}

// NewMemoryStore creates a store with no persistence
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Snapshot),
		byID:     make(map[string]string),
		users:    make(map[string]string),
		cards:    make(map[string]string),
	}
}

// NewMemoryStoreWithPersistence creates a store backed by persistence
func NewMemoryStoreWithPersistence(persistence SnapshotPersistence) *MemoryStore {
	s := NewMemoryStore()
	s.persistence = persistence
	return s
}

func (s *MemoryStore) CreateSession(ctx context.Context, sess *model.Session) error {
	code := model.NormalizeAccessCode(sess.AccessCode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[code]; exists {
		return ErrAccessCodeTaken
	}
	if s.persistence != nil && s.persistence.Exists(code) {
		return ErrAccessCodeTaken
	}

	sess.AccessCode = code
	snap := &model.Snapshot{Session: *sess}
	s.sessions[code] = snap
	s.byID[sess.ID] = code
	s.persistLocked(snap)
	return nil
}

func (s *MemoryStore) GetSessionByCode(ctx context.Context, accessCode string) (*model.Session, error) {
	snap, err := s.snapshot(model.NormalizeAccessCode(accessCode))
	if err != nil {
		return nil, err
	}
	sess := snap.Session
	return &sess, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Session, 0, len(s.sessions))
	for _, snap := range s.sessions {
		sess := snap.Session
		result = append(result, &sess)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) CloseSession(ctx context.Context, accessCode string, closedAt time.Time) (*model.Session, error) {
	code := model.NormalizeAccessCode(accessCode)
	if _, err := s.snapshot(code); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, exists := s.sessions[code]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if snap.Session.Active {
		snap.Session.Active = false
		at := closedAt
		snap.Session.ClosedAt = &at
		s.persistLocked(snap)
	}
	sess := snap.Session
	return &sess, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, accessCode string) error {
	code := model.NormalizeAccessCode(accessCode)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, inMemory := s.sessions[code]
	if inMemory {
		s.forgetLocked(code, snap)
	}

	if s.persistence != nil && s.persistence.Exists(code) {
		if err := s.persistence.Delete(code); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.mutate(u.SessionID, func(snap *model.Snapshot) error {
		snap.Users = append(snap.Users, *u)
		s.users[u.ID] = snap.Session.AccessCode
		return nil
	})
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if snap, ok := s.sessions[s.users[id]]; ok {
		for _, u := range snap.Users {
			if u.ID == id {
				return &u, nil
			}
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context, sessionID string) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.sessions[s.byID[sessionID]]
	if !ok {
		return nil, ErrSessionNotFound
	}
	result := make([]*model.User, 0, len(snap.Users))
	for i := range snap.Users {
		u := snap.Users[i]
		result = append(result, &u)
	}
	return result, nil
}

func (s *MemoryStore) CreateCard(ctx context.Context, c *model.Card) error {
	return s.mutate(c.SessionID, func(snap *model.Snapshot) error {
		snap.Cards = append(snap.Cards, *c)
		s.cards[c.ID] = snap.Session.AccessCode
		return nil
	})
}

func (s *MemoryStore) GetCard(ctx context.Context, id string) (*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if snap, ok := s.sessions[s.cards[id]]; ok {
		for _, c := range snap.Cards {
			if c.ID == id {
				return &c, nil
			}
		}
	}
	return nil, ErrCardNotFound
}

func (s *MemoryStore) ListCards(ctx context.Context, sessionID string) ([]*model.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.sessions[s.byID[sessionID]]
	if !ok {
		return nil, ErrSessionNotFound
	}
	result := make([]*model.Card, 0, len(snap.Cards))
	for i := range snap.Cards {
		c := snap.Cards[i]
		result = append(result, &c)
	}
	return result, nil
}

func (s *MemoryStore) CreateVote(ctx context.Context, v *model.Vote) error {
	return s.mutate(v.SessionID, func(snap *model.Snapshot) error {
		for _, existing := range snap.Votes {
			if existing.CardID == v.CardID && existing.UserID == v.UserID {
				return ErrDuplicateVote
			}
		}
		snap.Votes = append(snap.Votes, *v)
		return nil
	})
}

func (s *MemoryStore) ListVotes(ctx context.Context, sessionID string) ([]*model.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.sessions[s.byID[sessionID]]
	if !ok {
		return nil, ErrSessionNotFound
	}
	result := make([]*model.Vote, 0, len(snap.Votes))
	for i := range snap.Votes {
		v := snap.Votes[i]
		result = append(result, &v)
	}
	return result, nil
}

// Close flushes every session to persistence
func (s *MemoryStore) Close() error {
	return s.SaveAll()
}

// Count returns the number of sessions held in memory
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LoadPersisted loads all persisted sessions into memory
func (s *MemoryStore) LoadPersisted() error {
	if s.persistence == nil {
		return nil
	}

	codes, err := s.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for _, code := range codes {
		if _, exists := s.sessions[code]; exists {
			continue
		}

		snap, err := s.persistence.Load(code)
		if err != nil {
			log.Printf("[STORE] failed to load persisted session code=%s err=%v", code, err)
			continue
		}

		s.indexLocked(snap)
		loaded++
	}

	if loaded > 0 {
		log.Printf("[STORE] loaded %d persisted sessions", loaded)
	}
	return nil
}

// SaveAll writes every in-memory session to persistence
func (s *MemoryStore) SaveAll() error {
	if s.persistence == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	failed := 0
	for code, snap := range s.sessions {
		if err := s.persistence.Save(snap); err != nil {
			log.Printf("[STORE] failed to save session code=%s err=%v", code, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}

// snapshot returns the in-memory snapshot for code, pulling it from
// persistence on a miss.
func (s *MemoryStore) snapshot(code string) (*model.Snapshot, error) {
	s.mu.RLock()
	snap, exists := s.sessions[code]
	s.mu.RUnlock()
	if exists {
		return snap, nil
	}

	if s.persistence == nil || !s.persistence.Exists(code) {
		return nil, ErrSessionNotFound
	}

	loaded, err := s.persistence.Load(code)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, exists := s.sessions[code]; exists {
		return snap, nil
	}
	s.indexLocked(loaded)
	return loaded, nil
}

func (s *MemoryStore) mutate(sessionID string, fn func(*model.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.sessions[s.byID[sessionID]]
	if !ok {
		return ErrSessionNotFound
	}
	if err := fn(snap); err != nil {
		return err
	}
	s.persistLocked(snap)
	return nil
}

func (s *MemoryStore) indexLocked(snap *model.Snapshot) {
	code := snap.Session.AccessCode
	s.sessions[code] = snap
	s.byID[snap.Session.ID] = code
	for _, u := range snap.Users {
		s.users[u.ID] = code
	}
	for _, c := range snap.Cards {
		s.cards[c.ID] = code
	}
}

func (s *MemoryStore) forgetLocked(code string, snap *model.Snapshot) {
	delete(s.sessions, code)
	delete(s.byID, snap.Session.ID)
	for _, u := range snap.Users {
		delete(s.users, u.ID)
	}
	for _, c := range snap.Cards {
		delete(s.cards, c.ID)
	}
}

// persistLocked saves snap; failures are logged, not returned.
func (s *MemoryStore) persistLocked(snap *model.Snapshot) {
	if s.persistence == nil {
		return
	}
	if err := s.persistence.Save(snap); err != nil {
		log.Printf("[STORE] failed to persist session code=%s err=%v", snap.Session.AccessCode, err)
	}
}
