// SPDX-License-Identifier: MIT

package model

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/nbd-wtf/go-nostr"
)

type (
	Event struct {
		nostr.Event
	}
)

// ComputeID serializes the event into its canonical array form
// [0, pubkey, created_at, kind, tags, content] and hashes it with SHA-256.
// It never mutates the event.
func (e *Event) ComputeID() string {
	hash := sha256.Sum256(e.Serialize())

	return hex.EncodeToString(hash[:])
}

// Verify reports whether the event id matches its content address and the
// signature is a valid schnorr signature over it. Malformed hex anywhere is
// treated as a plain verification failure.
func (e *Event) Verify() bool {
	if e.ComputeID() != e.ID {
		return false
	}
	ok, err := e.CheckSignature()

	return err == nil && ok
}

func (e *Event) GetTag(tagName string) Tag {
	for _, tag := range e.Tags {
		if tag.Key() == tagName {
			return tag
		}
	}

	return nil
}

// TagValues collects the value (second element) of every tag of the given type.
func (e *Event) TagValues(tagName string) []string {
	var values []string
	for _, tag := range e.Tags {
		if tag.Key() == tagName && len(tag) > 1 {
			values = append(values, tag.Value())
		}
	}

	return values
}

// ReferencedEventIDs resolves the ids carried by the event's "e" tags,
// deduplicated, in tag order. For deletion events these are the retire targets.
func (e *Event) ReferencedEventIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, value := range e.TagValues(TagEventReference) {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		ids = append(ids, value)
	}

	return ids
}
