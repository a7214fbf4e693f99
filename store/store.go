// SPDX-License-Identifier: MIT

// Package store defines the event persistence contract shared by the
// transient in-memory backend and the durable sqlite one. Both expose the
// same observable semantics; only the durable backend gives the transaction
// boundary real teeth.
package store

import (
	"context"

	"github.com/solstice-net/solstice/model"
)

type (
	// Store hands out one transaction per unit of work.
	Store interface {
		Begin(ctx context.Context) (Tx, error)
	}

	// Tx is one transactional scope over the event set.
	//
	// Add is idempotent by event id: a duplicate id is a silent no-op.
	// Query returns the union of stored, non-retired events matching any of
	// the filters, deduplicated by id. Without a limit the result is ordered
	// by created_at ascending; when any filter carries a limit, the result is
	// ordered descending and truncated to the maximum limit across the set,
	// without re-sorting. Delete retires events softly; retired events vanish
	// from queries but are not erased.
	Tx interface {
		Add(ctx context.Context, event *model.Event) error
		Query(ctx context.Context, filters ...model.Filter) ([]*model.Event, error)
		Delete(ctx context.Context, eventIDs ...string) error

		Commit() error
		Rollback() error
	}
)
