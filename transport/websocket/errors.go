package websocket

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoute is returned for a connect path without a usable session ID
	ErrInvalidRoute = errors.New("invalid route")

	// ErrMalformedEvent is returned for inbound payloads that can't be routed
	ErrMalformedEvent = errors.New("malformed event")

	// ErrSendFailure wraps every reason a message could not be queued
	ErrSendFailure     = errors.New("send failure")
	ErrSendQueueFull   = fmt.Errorf("%w: send queue full", ErrSendFailure)
	ErrTransportClosed = fmt.Errorf("%w: transport closed", ErrSendFailure)

	ErrAlreadyJoined = errors.New("member already joined")
)
