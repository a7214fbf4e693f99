// SPDX-License-Identifier: MIT

package relay

import (
	"log"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/nbd-wtf/go-nostr"

	"github.com/solstice-net/solstice/model"
)

type (
	// Registry maps live subscription ids to their filter sets and owning
	// clients, process-wide. Broadcast iterates a snapshot, so subscribing
	// and unsubscribing stay safe while a fan-out is in flight.
	Registry struct {
		mx       sync.RWMutex
		subs     map[string]*registeredSubscription
		byClient map[Client]map[string]struct{}
	}

	registeredSubscription struct {
		subscription *model.Subscription
		client       Client
	}
)

func NewRegistry() *Registry {
	return &Registry{
		subs:     make(map[string]*registeredSubscription),
		byClient: make(map[Client]map[string]struct{}),
	}
}

// Subscribe inserts the subscription, replacing any previous one under the
// same id. The client's close tears down every subscription it still owns,
// not only the last registered one.
func (r *Registry) Subscribe(subscription *model.Subscription, client Client) {
	r.mx.Lock()
	defer r.mx.Unlock()

	if prev, found := r.subs[subscription.SubscriptionID]; found && prev.client != client {
		delete(r.byClient[prev.client], subscription.SubscriptionID)
	}
	r.subs[subscription.SubscriptionID] = &registeredSubscription{
		subscription: subscription,
		client:       client,
	}

	owned, found := r.byClient[client]
	if !found {
		owned = make(map[string]struct{})
		r.byClient[client] = owned
		client.OnClose(func() { r.dropClient(client) })
	}
	owned[subscription.SubscriptionID] = struct{}{}
}

// Unsubscribe removes the subscription. An unknown id is not an error.
func (r *Registry) Unsubscribe(subscriptionID string) {
	r.mx.Lock()
	defer r.mx.Unlock()

	sub, found := r.subs[subscriptionID]
	if !found {
		log.Printf("WARN: unsubscribe of unknown subscription %q ignored", subscriptionID)

		return
	}
	delete(r.subs, subscriptionID)
	delete(r.byClient[sub.client], subscriptionID)
}

// Broadcast delivers the event to every subscription whose filter set
// matches. Failures are collected per subscriber and never stop the
// iteration, one dead connection cannot starve the rest.
func (r *Registry) Broadcast(event *model.Event) error {
	r.mx.RLock()
	snapshot := make([]*registeredSubscription, 0, len(r.subs))
	for _, sub := range r.subs {
		snapshot = append(snapshot, sub)
	}
	r.mx.RUnlock()

	var mErr *multierror.Error
	for _, sub := range snapshot {
		if !sub.subscription.Filters.Match(event) {
			continue
		}
		subID := sub.subscription.SubscriptionID
		if err := sub.client.Send(&nostr.EventEnvelope{SubscriptionID: &subID, Event: event.Event}); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}

	return mErr.ErrorOrNil()
}

func (r *Registry) dropClient(client Client) {
	r.mx.Lock()
	defer r.mx.Unlock()

	for subID := range r.byClient[client] {
		if sub, found := r.subs[subID]; found && sub.client == client {
			delete(r.subs, subID)
		}
	}
	delete(r.byClient, client)
}
