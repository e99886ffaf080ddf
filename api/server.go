package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wricardo/voting-session/transport/websocket"
	"github.com/wricardo/voting-session/voting/model"
	"github.com/wricardo/voting-session/voting/service"
	"github.com/wricardo/voting-session/voting/store"
)

// Options configures the live side of the server
type Options struct {
	// Live is the per-connection transport tuning; zero means defaults
	Live           websocket.Options
	AllowedOrigins []string
	// VerifySessions rejects WebSocket upgrades for unknown access codes
	VerifySessions bool
	// EchoWrites broadcasts cards and votes created over REST to the live group
	EchoWrites bool
}

// Server represents the REST API server
type Server struct {
	service    service.VotingService
	hub        *websocket.Hub
	gateway    *websocket.Gateway
	router     *mux.Router
	echoWrites bool
}

// NewServer creates a new API server
func NewServer(votingService service.VotingService, hub *websocket.Hub, opts Options) *Server {
	s := &Server{
		service:    votingService,
		hub:        hub,
		router:     mux.NewRouter(),
		echoWrites: opts.EchoWrites,
	}

	live := opts.Live
	if live.SendBuffer == 0 {
		live = websocket.DefaultOptions()
	}
	gwOpts := []websocket.GatewayOption{
		websocket.WithOptions(live),
		websocket.WithAllowedOrigins(opts.AllowedOrigins),
	}
	if opts.VerifySessions {
		gwOpts = append(gwOpts, websocket.WithSessionCheck(s.sessionExists))
	}
	s.gateway = websocket.NewGateway(hub, websocket.NewRouter(hub), gwOpts...)

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{code}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{code}/close", s.handleCloseSession).Methods("POST")

	// Participants, cards and votes
	api.HandleFunc("/sessions/{code}/users", s.handleListUsers).Methods("GET")
	api.HandleFunc("/sessions/{code}/users", s.handleCreateUser).Methods("POST")
	api.HandleFunc("/sessions/{code}/cards", s.handleListCards).Methods("GET")
	api.HandleFunc("/sessions/{code}/cards", s.handleCreateCard).Methods("POST")
	api.HandleFunc("/sessions/{code}/votes", s.handleListVotes).Methods("GET")
	api.HandleFunc("/sessions/{code}/votes", s.handleCreateVote).Methods("POST")

	// Live groups (stats must be before {session_id} pattern)
	api.HandleFunc("/live/stats", s.handleLiveStats).Methods("GET")
	api.HandleFunc("/live/{session_id}", s.handleLiveSession).Methods("GET")

	// WebSocket, with or without the trailing slash
	s.router.HandleFunc("/ws/voting/{session_id}", s.handleWebSocket)
	s.router.HandleFunc("/ws/voting/{session_id}/", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the mux so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and store errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSessionClosed),
		errors.Is(err, store.ErrDuplicateVote),
		errors.Is(err, store.ErrAccessCodeTaken):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] internal error: %v", err)
	}
	respondError(w, status, err.Error())
}

// decodeBody decodes a JSON body into v. An empty body is allowed when optional.
func decodeBody(r *http.Request, v interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return io.EOF
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	return err
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessCode string `json:"access_code,omitempty"`
	}
	if err := decodeBody(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.AccessCode)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[API] session created code=%s", session.AccessCode)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ListOptions{
		Sort:  query.Get("sort"),
		Order: query.Get("order"),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		opts.Limit = limit
	}

	sessions, err := s.service.ListSessions(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.CloseSession(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[API] session closed code=%s", session.AccessCode)
	respondJSON(w, http.StatusOK, session)
}

// Participant Handlers

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		IsAdmin bool   `json:"is_admin,omitempty"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.service.JoinSession(r.Context(), mux.Vars(r)["code"], req.Name, req.IsAdmin)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Card and Vote Handlers

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.service.ListCards(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	code := mux.Vars(r)["code"]
	card, err := s.service.AddCard(r.Context(), code, req.Title, req.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.echoWrites {
		if data, err := json.Marshal(card); err == nil {
			s.echo(model.NormalizeAccessCode(code), websocket.CardBroadcast{Card: data})
		}
	}
	respondJSON(w, http.StatusCreated, card)
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.service.ListVotes(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, votes)
}

func (s *Server) handleCreateVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID string `json:"card_id"`
		UserID string `json:"user_id"`
		Vote   *bool  `json:"vote"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Vote == nil {
		respondError(w, http.StatusBadRequest, "vote is required")
		return
	}

	code := mux.Vars(r)["code"]
	vote, err := s.service.CastVote(r.Context(), code, req.CardID, req.UserID, *req.Vote)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.echoWrites {
		cardID, _ := json.Marshal(vote.CardID)
		userID, _ := json.Marshal(vote.UserID)
		s.echo(model.NormalizeAccessCode(code), websocket.VoteBroadcast{CardID: cardID, Vote: vote.Vote, UserID: userID})
	}
	respondJSON(w, http.StatusCreated, vote)
}

func (s *Server) echo(sessionID string, event websocket.OutboundEvent) {
	n, err := s.hub.Broadcast(sessionID, event)
	if err != nil {
		log.Printf("[API] echo failed session=%s err=%v", sessionID, err)
		return
	}
	log.Printf("[API] echoed write session=%s delivered=%d", sessionID, n)
}

// Live Handlers

func (s *Server) handleLiveStats(w http.ResponseWriter, r *http.Request) {
	groups, connections := s.hub.Stats()
	respondJSON(w, http.StatusOK, map[string]int{
		"groups":      groups,
		"connections": connections,
	})
}

func (s *Server) handleLiveSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := websocket.ParseSessionID(mux.Vars(r)["session_id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	members := s.hub.Members(sessionID)
	if members == nil {
		members = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":  sessionID,
		"count":       len(members),
		"connections": members,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.gateway.ServeWS(w, r, mux.Vars(r)["session_id"])
}

// sessionExists backs the optional upgrade check. The path segment is
// looked up as an access code and the group is keyed by the stored code, so
// every spelling of a code lands in the same group.
func (s *Server) sessionExists(ctx context.Context, sessionID string) (string, bool, error) {
	info, err := s.service.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return info.AccessCode, true, nil
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	groups, connections := s.hub.Stats()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"groups":      groups,
		"connections": connections,
	})
}
