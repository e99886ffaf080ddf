package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/voting-session/transport/websocket"
	"github.com/wricardo/voting-session/voting/model"
	"github.com/wricardo/voting-session/voting/service"
	"github.com/wricardo/voting-session/voting/store"
)

// MockVotingService implements service.VotingService for testing
type MockVotingService struct {
	// Session Management
	CreateSessionFunc       func(ctx context.Context, accessCode string) (*model.Session, error)
	GetSessionFunc          func(ctx context.Context, accessCode string) (*service.SessionInfo, error)
	ListSessionsFunc        func(ctx context.Context, opts service.ListOptions) ([]*model.Session, error)
	CloseSessionFunc        func(ctx context.Context, accessCode string) (*model.Session, error)
	PurgeClosedSessionsFunc func(ctx context.Context, maxAge time.Duration) (int, error)

	// Participants
	JoinSessionFunc func(ctx context.Context, accessCode, name string, isAdmin bool) (*model.User, error)
	ListUsersFunc   func(ctx context.Context, accessCode string) ([]*model.User, error)

	// Cards and Votes
	AddCardFunc   func(ctx context.Context, accessCode, title, description string) (*model.Card, error)
	ListCardsFunc func(ctx context.Context, accessCode string) ([]*model.Card, error)
	CastVoteFunc  func(ctx context.Context, accessCode, cardID, userID string, vote bool) (*model.Vote, error)
	ListVotesFunc func(ctx context.Context, accessCode string) ([]*model.Vote, error)
}

func (m *MockVotingService) CreateSession(ctx context.Context, accessCode string) (*model.Session, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, accessCode)
	}
	return &model.Session{ID: "sess-1", AccessCode: "ABC123", Active: true, CreatedAt: time.Now()}, nil
}

func (m *MockVotingService) GetSession(ctx context.Context, accessCode string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, accessCode)
	}
	return &service.SessionInfo{Session: model.Session{ID: "sess-1", AccessCode: accessCode, Active: true}}, nil
}

func (m *MockVotingService) ListSessions(ctx context.Context, opts service.ListOptions) ([]*model.Session, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, opts)
	}
	return []*model.Session{}, nil
}

func (m *MockVotingService) CloseSession(ctx context.Context, accessCode string) (*model.Session, error) {
	if m.CloseSessionFunc != nil {
		return m.CloseSessionFunc(ctx, accessCode)
	}
	now := time.Now()
	return &model.Session{ID: "sess-1", AccessCode: accessCode, ClosedAt: &now}, nil
}

func (m *MockVotingService) PurgeClosedSessions(ctx context.Context, maxAge time.Duration) (int, error) {
	if m.PurgeClosedSessionsFunc != nil {
		return m.PurgeClosedSessionsFunc(ctx, maxAge)
	}
	return 0, nil
}

func (m *MockVotingService) JoinSession(ctx context.Context, accessCode, name string, isAdmin bool) (*model.User, error) {
	if m.JoinSessionFunc != nil {
		return m.JoinSessionFunc(ctx, accessCode, name, isAdmin)
	}
	return &model.User{ID: "u1", Name: name, IsAdmin: isAdmin, SessionID: "sess-1"}, nil
}

func (m *MockVotingService) ListUsers(ctx context.Context, accessCode string) ([]*model.User, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, accessCode)
	}
	return []*model.User{}, nil
}

func (m *MockVotingService) AddCard(ctx context.Context, accessCode, title, description string) (*model.Card, error) {
	if m.AddCardFunc != nil {
		return m.AddCardFunc(ctx, accessCode, title, description)
	}
	return &model.Card{ID: "c1", Title: title, Description: description, SessionID: "sess-1"}, nil
}

func (m *MockVotingService) ListCards(ctx context.Context, accessCode string) ([]*model.Card, error) {
	if m.ListCardsFunc != nil {
		return m.ListCardsFunc(ctx, accessCode)
	}
	return []*model.Card{}, nil
}

func (m *MockVotingService) CastVote(ctx context.Context, accessCode, cardID, userID string, vote bool) (*model.Vote, error) {
	if m.CastVoteFunc != nil {
		return m.CastVoteFunc(ctx, accessCode, cardID, userID, vote)
	}
	return &model.Vote{ID: "v1", CardID: cardID, UserID: userID, Vote: vote, SessionID: "sess-1"}, nil
}

func (m *MockVotingService) ListVotes(ctx context.Context, accessCode string) ([]*model.Vote, error) {
	if m.ListVotesFunc != nil {
		return m.ListVotesFunc(ctx, accessCode)
	}
	return []*model.Vote{}, nil
}

// Test helpers
func setupTestServer(mockService service.VotingService, opts Options) *Server {
	return NewServer(mockService, websocket.NewHub(), opts)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockVotingService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "Generated access code",
			requestBody:    nil,
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp model.Session
				parseResponse(t, w, &resp)
				if resp.AccessCode != "ABC123" {
					t.Errorf("Expected access code ABC123, got %s", resp.AccessCode)
				}
			},
		},
		{
			name:        "Chosen access code",
			requestBody: map[string]string{"access_code": "xyz789"},
			setupMock: func(m *MockVotingService) {
				m.CreateSessionFunc = func(ctx context.Context, accessCode string) (*model.Session, error) {
					if accessCode != "xyz789" {
						t.Errorf("Expected access code 'xyz789', got %s", accessCode)
					}
					return &model.Session{ID: "s", AccessCode: "XYZ789", Active: true}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Access code taken",
			requestBody: map[string]string{"access_code": "XYZ789"},
			setupMock: func(m *MockVotingService) {
				m.CreateSessionFunc = func(ctx context.Context, accessCode string) (*model.Session, error) {
					return nil, store.ErrAccessCodeTaken
				}
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:        "Invalid access code",
			requestBody: map[string]string{"access_code": "!!"},
			setupMock: func(m *MockVotingService) {
				m.CreateSessionFunc = func(ctx context.Context, accessCode string) (*model.Session, error) {
					return nil, fmt.Errorf("%w: bad code", model.ErrInvalidInput)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockVotingService) {
				m.CreateSessionFunc = func(ctx context.Context, accessCode string) (*model.Session, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockVotingService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService, Options{})
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestCreateSession_InvalidBody(t *testing.T) {
	server := setupTestServer(&MockVotingService{}, Options{})
	req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListSessions(t *testing.T) {
	var gotOpts service.ListOptions
	mock := &MockVotingService{
		ListSessionsFunc: func(ctx context.Context, opts service.ListOptions) ([]*model.Session, error) {
			gotOpts = opts
			return []*model.Session{{AccessCode: "AAA111"}, {AccessCode: "BBB222"}}, nil
		},
	}
	server := setupTestServer(mock, Options{})

	t.Run("passes query options", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions?sort=access_code&order=asc&limit=2", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if gotOpts != (service.ListOptions{Sort: "access_code", Order: "asc", Limit: 2}) {
			t.Errorf("Unexpected options %+v", gotOpts)
		}
		var resp map[string]interface{}
		parseResponse(t, w, &resp)
		if resp["total"].(float64) != 2 {
			t.Errorf("Expected total 2, got %v", resp["total"])
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/sessions?limit=lots", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestGetSession(t *testing.T) {
	mock := &MockVotingService{
		GetSessionFunc: func(ctx context.Context, accessCode string) (*service.SessionInfo, error) {
			if accessCode == "NOPE00" {
				return nil, store.ErrSessionNotFound
			}
			return &service.SessionInfo{Session: model.Session{AccessCode: accessCode}, CardCount: 3}, nil
		},
	}
	server := setupTestServer(mock, Options{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/XYZ789", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var info service.SessionInfo
	parseResponse(t, w, &info)
	if info.AccessCode != "XYZ789" || info.CardCount != 3 {
		t.Errorf("Unexpected session info %+v", info)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/NOPE00", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCloseSession(t *testing.T) {
	server := setupTestServer(&MockVotingService{}, Options{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/XYZ789/close", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp model.Session
	parseResponse(t, w, &resp)
	if resp.ClosedAt == nil {
		t.Error("Expected closed_at to be set")
	}
}

// Participant, Card and Vote Tests

func TestCreateUser(t *testing.T) {
	server := setupTestServer(&MockVotingService{}, Options{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/XYZ789/users", map[string]interface{}{"name": "Ada", "is_admin": true}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var user model.User
	parseResponse(t, w, &user)
	if user.Name != "Ada" || !user.IsAdmin {
		t.Errorf("Unexpected user %+v", user)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sessions/XYZ789/users", nil)
	server.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty body, got %d", w.Code)
	}
}

func TestCreateCard(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"created", nil, http.StatusCreated},
		{"closed session", fmt.Errorf("%w: XYZ789", service.ErrSessionClosed), http.StatusConflict},
		{"unknown session", store.ErrSessionNotFound, http.StatusNotFound},
		{"blank title", fmt.Errorf("%w: title is required", model.ErrInvalidInput), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockVotingService{
				AddCardFunc: func(ctx context.Context, accessCode, title, description string) (*model.Card, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Card{ID: "c1", Title: title}, nil
				},
			}
			server := setupTestServer(mock, Options{})

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/XYZ789/cards", map[string]string{"title": "Retro"}))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestCreateVote(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		err            error
		expectedStatus int
	}{
		{"created", map[string]interface{}{"card_id": "c1", "user_id": "u1", "vote": true}, nil, http.StatusCreated},
		{"missing vote", map[string]interface{}{"card_id": "c1", "user_id": "u1"}, nil, http.StatusBadRequest},
		{"duplicate", map[string]interface{}{"card_id": "c1", "user_id": "u1", "vote": false}, store.ErrDuplicateVote, http.StatusConflict},
		{"foreign card", map[string]interface{}{"card_id": "x", "user_id": "u1", "vote": true}, fmt.Errorf("%w: card x", model.ErrInvalidInput), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockVotingService{
				CastVoteFunc: func(ctx context.Context, accessCode, cardID, userID string, vote bool) (*model.Vote, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Vote{ID: "v1", CardID: cardID, UserID: userID, Vote: vote}, nil
				},
			}
			server := setupTestServer(mock, Options{})

			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions/XYZ789/votes", tt.body))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestListEndpoints(t *testing.T) {
	mock := &MockVotingService{
		ListUsersFunc: func(ctx context.Context, accessCode string) ([]*model.User, error) {
			return []*model.User{{ID: "u1"}}, nil
		},
		ListCardsFunc: func(ctx context.Context, accessCode string) ([]*model.Card, error) {
			return []*model.Card{{ID: "c1"}, {ID: "c2"}}, nil
		},
		ListVotesFunc: func(ctx context.Context, accessCode string) ([]*model.Vote, error) {
			return nil, store.ErrSessionNotFound
		},
	}
	server := setupTestServer(mock, Options{})

	tests := []struct {
		path   string
		status int
		count  int
	}{
		{"/api/sessions/XYZ789/users", http.StatusOK, 1},
		{"/api/sessions/XYZ789/cards", http.StatusOK, 2},
		{"/api/sessions/XYZ789/votes", http.StatusNotFound, -1},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))
			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if tt.count >= 0 {
				var items []map[string]interface{}
				parseResponse(t, w, &items)
				if len(items) != tt.count {
					t.Errorf("Expected %d items, got %d", tt.count, len(items))
				}
			}
		})
	}
}

// Live Tests

func TestLiveEndpoints(t *testing.T) {
	server := setupTestServer(&MockVotingService{}, Options{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/live/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var stats map[string]int
	parseResponse(t, w, &stats)
	if stats["groups"] != 0 || stats["connections"] != 0 {
		t.Errorf("Expected empty stats, got %v", stats)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/live/XYZ789", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var live map[string]interface{}
	parseResponse(t, w, &live)
	if live["count"].(float64) != 0 {
		t.Errorf("Expected count 0, got %v", live["count"])
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/live/bad-id", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&MockVotingService{}, Options{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", resp["status"])
	}
}

// End-to-end over a real listener

func dialLive(t *testing.T, srv *httptest.Server, path string) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	conn, resp, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func waitForMembers(t *testing.T, hub *websocket.Hub, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count(sessionID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("session %s has %d members, want %d", sessionID, hub.Count(sessionID), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketRoute(t *testing.T) {
	hub := websocket.NewHub()
	srv := httptest.NewServer(NewServer(&MockVotingService{}, hub, Options{}))
	defer srv.Close()
	defer hub.CloseAll()

	for _, path := range []string{"/ws/voting/XYZ789", "/ws/voting/XYZ789/"} {
		if _, _, err := dialLive(t, srv, path); err != nil {
			t.Fatalf("dial %s failed: %v", path, err)
		}
	}
	waitForMembers(t, hub, "XYZ789", 2)

	_, resp, err := dialLive(t, srv, "/ws/voting/bad-id/")
	if err == nil {
		t.Fatal("expected handshake failure for invalid session id")
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketVerifySessions(t *testing.T) {
	mock := &MockVotingService{
		GetSessionFunc: func(ctx context.Context, accessCode string) (*service.SessionInfo, error) {
			if model.NormalizeAccessCode(accessCode) != "XYZ789" {
				return nil, store.ErrSessionNotFound
			}
			return &service.SessionInfo{Session: model.Session{AccessCode: "XYZ789"}}, nil
		},
	}
	hub := websocket.NewHub()
	srv := httptest.NewServer(NewServer(mock, hub, Options{VerifySessions: true}))
	defer srv.Close()
	defer hub.CloseAll()

	_, resp, err := dialLive(t, srv, "/ws/voting/NOPE00/")
	if err == nil {
		t.Fatal("expected handshake failure for unknown session")
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}

	upper, _, err := dialLive(t, srv, "/ws/voting/XYZ789/")
	if err != nil {
		t.Fatalf("dial known session failed: %v", err)
	}
	lower, _, err := dialLive(t, srv, "/ws/voting/xyz789/")
	if err != nil {
		t.Fatalf("dial lower-case spelling failed: %v", err)
	}

	// Both spellings resolve to the stored code and share one group
	waitForMembers(t, hub, "XYZ789", 2)
	if n := hub.Count("xyz789"); n != 0 {
		t.Errorf("Expected no lower-case group, got %d members", n)
	}

	vote := `{"type":"vote","card_id":"c1","vote":true,"user_id":"u1"}`
	if err := lower.WriteMessage(gorillaws.TextMessage, []byte(vote)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	upper.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := upper.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != vote {
		t.Errorf("Expected %s, got %s", vote, data)
	}
}

func TestEchoRestWrites(t *testing.T) {
	ctx := context.Background()
	svc := service.NewVotingService(store.NewMemoryStore())
	sess, err := svc.CreateSession(ctx, "XYZ789")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	user, err := svc.JoinSession(ctx, sess.AccessCode, "Ada", false)
	if err != nil {
		t.Fatalf("Failed to join session: %v", err)
	}

	hub := websocket.NewHub()
	srv := httptest.NewServer(NewServer(svc, hub, Options{EchoWrites: true}))
	defer srv.Close()
	defer hub.CloseAll()

	conn, _, err := dialLive(t, srv, "/ws/voting/XYZ789/")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	waitForMembers(t, hub, "XYZ789", 1)

	post := func(path string, body interface{}) *http.Response {
		data, _ := json.Marshal(body)
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		resp.Body.Close()
		return resp
	}

	resp := post("/api/sessions/xyz789/cards", map[string]string{"title": "Ship it"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var cardEvent struct {
		Type string     `json:"type"`
		Card model.Card `json:"card"`
	}
	if err := json.Unmarshal(data, &cardEvent); err != nil {
		t.Fatalf("bad card event %s: %v", data, err)
	}
	if cardEvent.Type != "card_added" || cardEvent.Card.Title != "Ship it" {
		t.Errorf("Unexpected card event %s", data)
	}

	resp = post("/api/sessions/XYZ789/votes", map[string]interface{}{"card_id": cardEvent.Card.ID, "user_id": user.ID, "vote": true})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := fmt.Sprintf(`{"type":"vote","card_id":%q,"vote":true,"user_id":%q}`, cardEvent.Card.ID, user.ID)
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}

	// A duplicate vote is refused and not echoed
	resp = post("/api/sessions/XYZ789/votes", map[string]interface{}{"card_id": cardEvent.Card.ID, "user_id": user.ID, "vote": false})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.StatusCode)
	}
}
