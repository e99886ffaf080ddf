package websocket

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is a connection's lifecycle stage
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options tunes a connection's transport
type Options struct {
	// Outbound queue length
	SendBuffer int

	// Time allowed to write a message to the peer.
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration

	// Maximum message size allowed from peer.
	MaxMessageSize int64
}

// DefaultOptions returns the stock transport settings
func DefaultOptions() Options {
	return Options{
		SendBuffer:     256,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// pingPeriod must be less than PongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// Client is one live WebSocket connection, a member of exactly one session
// group for its whole lifetime.
type Client struct {
	id        string
	sessionID string
	hub       *Hub
	handler   Handler
	conn      *websocket.Conn
	opts      Options

	// send is never closed; done signals teardown instead
	send      chan []byte
	done      chan struct{}
	state     atomic.Int32
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, sessionID string, hub *Hub, handler Handler, opts Options) *Client {
	return &Client{
		id:        uuid.NewString(),
		sessionID: sessionID,
		hub:       hub,
		handler:   handler,
		conn:      conn,
		opts:      opts,
		send:      make(chan []byte, opts.SendBuffer),
		done:      make(chan struct{}),
	}
}

func (c *Client) ID() string        { return c.id }
func (c *Client) SessionID() string { return c.sessionID }
func (c *Client) State() State      { return State(c.state.Load()) }

// Send queues data for the write pump without blocking. A full queue tears
// the connection down.
func (c *Client) Send(data []byte) error {
	if c.State() >= StateClosing {
		return ErrTransportClosed
	}

	select {
	case <-c.done:
		return ErrTransportClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		log.Printf("[WS] send queue full session=%s client=%s", c.sessionID, c.id)
		go c.teardown()
		return ErrSendQueueFull
	}
}

// Close tears the connection down. Safe to call any number of times.
func (c *Client) Close() error {
	c.teardown()
	return nil
}

// open moves Connecting to Open. It fails if teardown won the race.
func (c *Client) open() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

// teardown leaves the hub and closes the transport exactly once
func (c *Client) teardown() {
	c.closeOnce.Do(func() {
		for {
			cur := c.state.Load()
			if cur >= int32(StateClosing) || c.state.CompareAndSwap(cur, int32(StateClosing)) {
				break
			}
		}

		c.hub.Leave(c)
		close(c.done)

		deadline := time.Now().Add(c.opts.WriteWait)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.conn.Close()

		c.state.Store(int32(StateClosed))
	})
}

// readPump pumps messages from the WebSocket connection to the handler
func (c *Client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error session=%s client=%s err=%v", c.sessionID, c.id, err)
			}
			return
		}

		if err := c.handler.Handle(c, message); err != nil && !errors.Is(err, ErrMalformedEvent) {
			log.Printf("[WS] handler error session=%s client=%s err=%v", c.sessionID, c.id, err)
		}
	}
}

// writePump pumps queued messages to the WebSocket connection, one frame each
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
