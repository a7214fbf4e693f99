// SPDX-License-Identifier: MIT

package model

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
)

type (
	Filter struct {
		nostr.Filter
	}
	Filters []Filter
)

// Match reports whether at least one filter of the set matches the event.
// An empty set matches everything, so an unconditional store scan and a
// catch-all subscription are both expressed as zero filters.
func (eff Filters) Match(event *Event) bool {
	if len(eff) == 0 {
		return true
	}
	for i := range eff {
		if eff[i].Matches(event) {
			return true
		}
	}

	return false
}

// Limit returns the effective limit of the set: the maximum limit across all
// filters that carry one, or 0 when none does.
func (eff Filters) Limit() int {
	limit := 0
	for i := range eff {
		if eff[i].Limit > limit {
			limit = eff[i].Limit
		}
	}

	return limit
}

// Matches is the conjunction over all present filter fields, each absent field
// being vacuously true. The ids and authors lists match by string prefix, a
// full 64-char value being the degenerate case. Since is inclusive, until is
// strict: an event created exactly at `until` does not match.
func (ef *Filter) Matches(event *Event) bool {
	if event == nil {
		return false
	}
	if len(ef.IDs) > 0 && !matchesAnyPrefix(ef.IDs, event.ID) {
		return false
	}
	if len(ef.Authors) > 0 && !matchesAnyPrefix(ef.Authors, event.PubKey) {
		return false
	}
	if len(ef.Kinds) > 0 && !containsKind(ef.Kinds, event.Kind) {
		return false
	}
	if ef.Since != nil && event.CreatedAt < *ef.Since {
		return false
	}
	if ef.Until != nil && event.CreatedAt >= *ef.Until {
		return false
	}
	for tagName, required := range ef.Tags {
		if !intersects(required, event.TagValues(tagName)) {
			return false
		}
	}

	return true
}

func matchesAnyPrefix(prefixes []string, value string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}

	return false
}

func containsKind(kinds []int, kind Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}

	return false
}

func intersects(required, present []string) bool {
	for _, r := range required {
		for _, p := range present {
			if r == p {
				return true
			}
		}
	}

	return false
}
