package websocket

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/gorilla/websocket"
)

// MaxSessionIDLength bounds the session segment of the connect path
const MaxSessionIDLength = 64

var sessionIDPattern = regexp.MustCompile(`^\w+$`)

// ParseSessionID validates the session segment of /ws/voting/{session_id}/
func ParseSessionID(raw string) (string, error) {
	id := strings.TrimSuffix(raw, "/")
	if len(id) > MaxSessionIDLength || !sessionIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: session id %q", ErrInvalidRoute, raw)
	}
	return id, nil
}

// SessionCheck resolves a session ID to the canonical ID of the group to
// join. ok is false when the session doesn't exist.
type SessionCheck func(ctx context.Context, sessionID string) (canonical string, ok bool, err error)

// Gateway upgrades HTTP requests into session members
type Gateway struct {
	hub      *Hub
	handler  Handler
	opts     Options
	check    SessionCheck
	upgrader websocket.Upgrader
}

// GatewayOption configures a Gateway
type GatewayOption func(*Gateway)

// WithOptions sets the per-connection transport options
func WithOptions(opts Options) GatewayOption {
	return func(g *Gateway) { g.opts = opts }
}

// WithAllowedOrigins restricts the Origin header. An empty list or "*"
// allows every origin.
func WithAllowedOrigins(origins []string) GatewayOption {
	return func(g *Gateway) { g.upgrader.CheckOrigin = originChecker(origins) }
}

// WithSessionCheck rejects upgrades for sessions check says don't exist and
// joins the rest under the ID check resolves them to
func WithSessionCheck(check SessionCheck) GatewayOption {
	return func(g *Gateway) { g.check = check }
}

// NewGateway creates a gateway joining clients to hub and routing their
// messages through handler
func NewGateway(hub *Hub, handler Handler, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		hub:     hub,
		handler: handler,
		opts:    DefaultOptions(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(nil),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ServeWS handles a WebSocket request for the raw session segment of the path
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request, rawSessionID string) {
	sessionID, err := ParseSessionID(rawSessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if g.check != nil {
		canonical, ok, err := g.check(r.Context(), sessionID)
		if err != nil {
			log.Printf("[WS] session check failed session=%s err=%v", sessionID, err)
			http.Error(w, "session check failed", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if canonical != "" {
			sessionID = canonical
		}
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		log.Printf("[WS] upgrade failed session=%s err=%v", sessionID, err)
		return
	}

	client := newClient(conn, sessionID, g.hub, g.handler, g.opts)
	if err := g.hub.Join(client); err != nil {
		log.Printf("[WS] join failed session=%s err=%v", sessionID, err)
		conn.Close()
		return
	}
	if !client.open() {
		client.teardown()
		return
	}

	client.start()
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}

	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}
