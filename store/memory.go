// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/solstice-net/solstice/model"
)

type (
	// Memory keeps events in a mutex-guarded map. It is the transient
	// backend: transactions write through immediately, so Commit and
	// Rollback are no-ops and rollback atomicity is not provided.
	Memory struct {
		mx      sync.RWMutex
		records map[string]*memoryRecord
	}

	memoryRecord struct {
		event     model.Event
		deletedAt time.Time
	}

	memoryTx struct {
		store *Memory
	}
)

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*memoryRecord)}
}

func (m *Memory) Begin(_ context.Context) (Tx, error) {
	return &memoryTx{store: m}, nil
}

func (tx *memoryTx) Add(_ context.Context, event *model.Event) error {
	tx.store.mx.Lock()
	defer tx.store.mx.Unlock()

	if _, found := tx.store.records[event.ID]; found {
		return nil
	}
	tx.store.records[event.ID] = &memoryRecord{event: *event}

	return nil
}

func (tx *memoryTx) Query(_ context.Context, filters ...model.Filter) ([]*model.Event, error) {
	tx.store.mx.RLock()

	matched := make([]*model.Event, 0, len(tx.store.records))
	for _, record := range tx.store.records {
		if !record.deletedAt.IsZero() {
			continue
		}
		if model.Filters(filters).Match(&record.event) {
			event := record.event
			matched = append(matched, &event)
		}
	}
	tx.store.mx.RUnlock()

	limit := model.Filters(filters).Limit()
	if limit > 0 {
		slices.SortStableFunc(matched, func(a, b *model.Event) int {
			return int(b.CreatedAt - a.CreatedAt)
		})
		if len(matched) > limit {
			matched = matched[:limit]
		}

		return matched, nil
	}

	slices.SortStableFunc(matched, func(a, b *model.Event) int {
		return int(a.CreatedAt - b.CreatedAt)
	})

	return matched, nil
}

func (tx *memoryTx) Delete(_ context.Context, eventIDs ...string) error {
	tx.store.mx.Lock()
	defer tx.store.mx.Unlock()

	for _, id := range eventIDs {
		if record, found := tx.store.records[id]; found && record.deletedAt.IsZero() {
			record.deletedAt = time.Now()
		}
	}

	return nil
}

func (tx *memoryTx) Commit() error   { return nil }
func (tx *memoryTx) Rollback() error { return nil }
