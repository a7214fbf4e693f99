// SPDX-License-Identifier: MIT

package relay

import (
	"context"
	"log"

	"github.com/cockroachdb/errors"

	"github.com/solstice-net/solstice/store"
)

type (
	// UnitOfWork binds one store transaction and the shared subscription
	// registry for the duration of a single inbound message. Handlers must
	// broadcast only after it committed.
	UnitOfWork struct {
		events        store.Tx
		subscriptions *Registry
		finished      bool
	}
)

func newUnitOfWork(tx store.Tx, subscriptions *Registry) *UnitOfWork {
	return &UnitOfWork{events: tx, subscriptions: subscriptions}
}

func (uow *UnitOfWork) Events() store.Tx {
	return uow.events
}

func (uow *UnitOfWork) Subscriptions() *Registry {
	return uow.subscriptions
}

func (uow *UnitOfWork) Commit() error {
	uow.finish()

	return uow.events.Commit()
}

func (uow *UnitOfWork) Rollback() error {
	uow.finish()

	return uow.events.Rollback()
}

// finish guards against double commit/rollback, which is a programming
// error, not a runtime condition.
func (uow *UnitOfWork) finish() {
	if uow.finished {
		log.Panic("unit of work finished twice")
	}
	uow.finished = true
}

// withUnitOfWork runs fn inside a fresh unit of work: commit when fn
// succeeds, rollback on any error. Every inbound message gets its own scope.
func (d *Dispatcher) withUnitOfWork(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	tx, err := d.store.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin store transaction")
	}

	uow := newUnitOfWork(tx, d.registry)
	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.Printf("WARN: %v", errors.Wrap(rbErr, "rollback failed"))
		}

		return err
	}

	return uow.Commit()
}
