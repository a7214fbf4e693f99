// SPDX-License-Identifier: MIT

// Package relay is the protocol core: it classifies inbound envelopes,
// runs each one inside a fresh unit of work against the event store, and
// fans accepted events out to live subscriptions.
package relay

import (
	"github.com/solstice-net/solstice/model"
)

type (
	// Client is the relay's view of one connected peer. Send must not block
	// the caller on a slow peer; the transport keeps its own outbound queue.
	// OnClose registers a callback to run once when the connection closes.
	Client interface {
		Send(envelope model.Envelope) error
		OnClose(fn func())
	}
)
