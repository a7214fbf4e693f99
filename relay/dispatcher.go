// SPDX-License-Identifier: MIT

package relay

import (
	"context"
	"log"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/nbd-wtf/go-nostr"

	"github.com/solstice-net/solstice/model"
	"github.com/solstice-net/solstice/store"
)

const (
	reasonInvalidSignature = "invalid: signature is wrong"
	reasonPoWTooLow        = "pow: difficulty is less than the committed target"
	reasonCreatedAtDrift   = "invalid: created_at is outside the admission window"
	reasonStorageFailure   = "error: failed to add event"
)

type (
	// Dispatcher is the per-message protocol state machine. One instance is
	// shared by all connection loops; each message runs in its own unit of
	// work.
	Dispatcher struct {
		cfg      Config
		store    store.Store
		registry *Registry
	}
)

func NewDispatcher(cfg Config, st store.Store, registry *Registry) *Dispatcher {
	return &Dispatcher{cfg: cfg, store: st, registry: registry}
}

// Dispatch routes one decoded envelope. The switch is closed: anything that
// is not a publish, subscribe or unsubscribe is a protocol-level type error
// surfaced to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, client Client, input model.Envelope) error {
	switch e := input.(type) {
	case *nostr.EventEnvelope:
		return d.handleEvent(ctx, client, &model.Event{Event: e.Event})
	case *model.ReqEnvelope:
		return d.handleReq(ctx, client, &model.Subscription{SubscriptionID: e.SubscriptionID, Filters: e.Filters})
	case *nostr.CloseEnvelope:
		return d.handleClose(ctx, string(*e))
	default:
		return errors.Wrapf(model.ErrUnknownMessage, "can't handle %v envelope", input.Label())
	}
}

// handleEvent is the publish path. Deletion targets are retired before the
// deletion event itself is checked or persisted. Rejections commit the unit
// of work normally and are reported only through the optional OK frame;
// storage failures roll it back. Broadcast happens strictly after commit.
func (d *Dispatcher) handleEvent(ctx context.Context, client Client, event *model.Event) error {
	var accepted bool
	var reason string

	err := d.withUnitOfWork(ctx, func(uow *UnitOfWork) error {
		if event.Kind == nostr.KindDeletion && !d.cfg.DisableDeletion {
			if ids := event.ReferencedEventIDs(); len(ids) > 0 {
				if err := uow.Events().Delete(ctx, ids...); err != nil {
					return errors.Wrapf(err, "failed to retire events %v", ids)
				}
			}
		}

		switch {
		case !event.Verify():
			reason = reasonInvalidSignature
		case !event.ValidateProofOfWork():
			reason = reasonPoWTooLow
		case !d.cfg.admits(time.Now(), event.CreatedAt):
			reason = reasonCreatedAtDrift
		default:
			if err := uow.Events().Add(ctx, event); err != nil {
				return errors.Wrapf(err, "failed to add event %v", event.ID)
			}
			accepted = true
		}

		return nil
	})
	if err != nil {
		log.Printf("ERROR: failed to handle event %v: %v", event.ID, err)
		accepted = false
		reason = reasonStorageFailure
	}

	if accepted {
		if bErr := d.registry.Broadcast(event); bErr != nil {
			log.Printf("WARN: failed to deliver event %v to some subscribers: %v", event.ID, bErr)
		}
	}

	if !d.cfg.DisableAcknowledge {
		resp := &nostr.OKEnvelope{EventID: event.ID, OK: accepted, Reason: reason}
		if wErr := client.Send(resp); wErr != nil {
			return errors.Wrapf(wErr, "failed to write OK response for event %v", event.ID)
		}
	}

	return nil
}

// handleReq replays stored matches, optionally marks the end of the replay,
// then registers the subscription. An event admitted between the replay
// query and the registration can be missed; the gap is accepted rather than
// papered over with a false exactly-once claim.
func (d *Dispatcher) handleReq(ctx context.Context, client Client, subscription *model.Subscription) error {
	return d.withUnitOfWork(ctx, func(uow *UnitOfWork) error {
		events, err := uow.Events().Query(ctx, subscription.Filters...)
		if err != nil {
			return errors.Wrapf(err, "failed to query events for subscription %q", subscription.SubscriptionID)
		}

		var mErr *multierror.Error
		for _, event := range events {
			mErr = multierror.Append(mErr,
				client.Send(&nostr.EventEnvelope{SubscriptionID: &subscription.SubscriptionID, Event: event.Event}))
		}
		if err := mErr.ErrorOrNil(); err != nil {
			return errors.Wrapf(err, "failed to replay events for subscription %q", subscription.SubscriptionID)
		}

		if !d.cfg.DisableEOSE {
			eose := nostr.EOSEEnvelope(subscription.SubscriptionID)
			if err := client.Send(&eose); err != nil {
				return errors.Wrapf(err, "failed to write EOSE for subscription %q", subscription.SubscriptionID)
			}
		}

		uow.Subscriptions().Subscribe(subscription, client)

		return nil
	})
}

func (d *Dispatcher) handleClose(ctx context.Context, subscriptionID string) error {
	return d.withUnitOfWork(ctx, func(uow *UnitOfWork) error {
		uow.Subscriptions().Unsubscribe(subscriptionID)

		return nil
	})
}
