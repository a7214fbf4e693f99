// SPDX-License-Identifier: MIT

package model

import (
	"errors"

	"github.com/nbd-wtf/go-nostr"
)

type (
	Tag       = nostr.Tag
	Tags      = nostr.Tags
	TagMap    = nostr.TagMap
	Timestamp = nostr.Timestamp
	Kind      = int

	// Subscription is a named registration of a filter set, driving both the
	// stored-event replay and the live broadcast matching.
	Subscription struct {
		SubscriptionID string
		Filters        Filters
	}
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrParseMessage   = errors.New("parse message")
)

const (
	TagNonce          = "nonce"
	TagEventReference = "e"
)
