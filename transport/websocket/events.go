package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"unicode/utf8"
)

// Inbound and outbound type tags
const (
	TypeVote      = "vote"
	TypeCardAdded = "card_added"
)

// InboundEvent is a decoded client message. The set of implementations is
// closed: VoteCast and CardAdded.
type InboundEvent interface {
	inbound()
}

// OutboundEvent is a message fanned out to a session. The set of
// implementations is closed: VoteBroadcast and CardBroadcast.
type OutboundEvent interface {
	outbound()
}

// VoteCast is a participant's vote on a card. IDs are kept as raw JSON.
type VoteCast struct {
	CardID json.RawMessage
	Vote   bool
	UserID json.RawMessage
}

// CardAdded announces a new card; the card body is opaque.
type CardAdded struct {
	Card json.RawMessage
}

type VoteBroadcast struct {
	CardID json.RawMessage
	Vote   bool
	UserID json.RawMessage
}

type CardBroadcast struct {
	Card json.RawMessage
}

func (VoteCast) inbound()       {}
func (CardAdded) inbound()      {}
func (VoteBroadcast) outbound() {}
func (CardBroadcast) outbound() {}

func (e VoteBroadcast) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string          `json:"type"`
		CardID json.RawMessage `json:"card_id"`
		Vote   bool            `json:"vote"`
		UserID json.RawMessage `json:"user_id"`
	}{TypeVote, e.CardID, e.Vote, e.UserID})
}

func (e CardBroadcast) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string          `json:"type"`
		Card json.RawMessage `json:"card"`
	}{TypeCardAdded, e.Card})
}

// DecodeInbound parses a client payload. Unknown or missing types, missing
// fields, non-object payloads and invalid UTF-8 fail with ErrMalformedEvent.
// Keys match exactly, and a field that is present but null counts as missing.
func DecodeInbound(payload []byte) (InboundEvent, error) {
	if !utf8.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid utf-8", ErrMalformedEvent)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedEvent)
	}

	var eventType string
	if raw := fields["type"]; !absent(raw) {
		if err := json.Unmarshal(raw, &eventType); err != nil {
			return nil, fmt.Errorf("%w: type is not a string", ErrMalformedEvent)
		}
	}

	switch eventType {
	case TypeVote:
		cardID, userID := fields["card_id"], fields["user_id"]
		if absent(cardID) {
			return nil, fmt.Errorf("%w: vote without card_id", ErrMalformedEvent)
		}
		if absent(fields["vote"]) {
			return nil, fmt.Errorf("%w: vote without vote", ErrMalformedEvent)
		}
		var vote bool
		if err := json.Unmarshal(fields["vote"], &vote); err != nil {
			return nil, fmt.Errorf("%w: vote is not a bool", ErrMalformedEvent)
		}
		if absent(userID) {
			return nil, fmt.Errorf("%w: vote without user_id", ErrMalformedEvent)
		}
		return VoteCast{CardID: cardID, Vote: vote, UserID: userID}, nil

	case TypeCardAdded:
		card := fields["card"]
		if absent(card) {
			return nil, fmt.Errorf("%w: card_added without card", ErrMalformedEvent)
		}
		return CardAdded{Card: card}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, eventType)
	}
}

func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Outbound maps an inbound event to the event broadcast for it. Fields are
// carried over unchanged.
func Outbound(in InboundEvent) (OutboundEvent, error) {
	switch e := in.(type) {
	case VoteCast:
		return VoteBroadcast{CardID: e.CardID, Vote: e.Vote, UserID: e.UserID}, nil
	case CardAdded:
		return CardBroadcast{Card: e.Card}, nil
	default:
		return nil, fmt.Errorf("%w: unhandled event %T", ErrMalformedEvent, in)
	}
}

// Handler processes one inbound payload from a member
type Handler interface {
	Handle(origin Member, payload []byte) error
}

// Broadcaster fans an event out to a session
type Broadcaster interface {
	Broadcast(sessionID string, event OutboundEvent) (int, error)
}

// Router decodes client messages and broadcasts them to the sender's session
type Router struct {
	hub Broadcaster
}

// NewRouter creates a router broadcasting through hub
func NewRouter(hub Broadcaster) *Router {
	return &Router{hub: hub}
}

// Handle routes payload from origin. Malformed payloads are dropped and
// reported; they never reach the hub.
func (r *Router) Handle(origin Member, payload []byte) error {
	in, err := DecodeInbound(payload)
	if err != nil {
		log.Printf("[WS] dropping event session=%s client=%s err=%v", origin.SessionID(), origin.ID(), err)
		return err
	}

	out, err := Outbound(in)
	if err != nil {
		return err
	}

	if _, err := r.hub.Broadcast(origin.SessionID(), out); err != nil {
		return fmt.Errorf("broadcast to session %s: %w", origin.SessionID(), err)
	}
	return nil
}
