// SPDX-License-Identifier: MIT

package model

import (
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
)

func helperSignedEvent(t *testing.T) (*Event, string) {
	t.Helper()

	privkey := nostr.GeneratePrivateKey()
	require.NotEmpty(t, privkey)

	var ev Event
	ev.Kind = nostr.KindTextNote
	ev.CreatedAt = nostr.Timestamp(1700000000)
	ev.Tags = Tags{{"e", "f0e1d2c3b4a5968778695a4b3c2d1e0ff0e1d2c3b4a5968778695a4b3c2d1e0f"}}
	ev.Content = "hello"
	require.NoError(t, ev.Sign(privkey))

	return &ev, privkey
}

func TestEventSignVerify(t *testing.T) {
	t.Parallel()

	ev, _ := helperSignedEvent(t)
	require.Equal(t, ev.ComputeID(), ev.ID)
	require.True(t, ev.Verify())
}

func TestEventMutationChangesIDAndBreaksSignature(t *testing.T) {
	t.Parallel()

	mutations := map[string]func(ev *Event){
		"content":    func(ev *Event) { ev.Content += "x" },
		"pubkey":     func(ev *Event) { ev.PubKey = "00" + ev.PubKey[2:] },
		"created_at": func(ev *Event) { ev.CreatedAt++ },
		"kind":       func(ev *Event) { ev.Kind = nostr.KindReaction },
		"tag":        func(ev *Event) { ev.Tags[0][1] += "f" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			ev, _ := helperSignedEvent(t)
			oldID := ev.ID

			mutate(ev)
			require.NotEqual(t, oldID, ev.ComputeID())
			require.False(t, ev.Verify())
		})
	}
}

func TestEventVerifyMalformedInput(t *testing.T) {
	t.Parallel()

	t.Run("malformed sig hex", func(t *testing.T) {
		ev, _ := helperSignedEvent(t)
		ev.Sig = "not-hex-at-all"
		require.False(t, ev.Verify())
	})
	t.Run("malformed pubkey hex", func(t *testing.T) {
		ev, _ := helperSignedEvent(t)
		ev.PubKey = "zz" + ev.PubKey[2:]
		require.False(t, ev.Verify())
	})
	t.Run("wrong id", func(t *testing.T) {
		ev, _ := helperSignedEvent(t)
		ev.ID = ev.ID[:63] + "0"
		if ev.ID == ev.ComputeID() {
			ev.ID = ev.ID[:63] + "1"
		}
		require.False(t, ev.Verify())
	})
}

func TestEventReferencedEventIDs(t *testing.T) {
	t.Parallel()

	var ev Event
	ev.Tags = Tags{
		{"e", "aa"},
		{"p", "bb"},
		{"e", "cc", "wss://relay.example.com"},
		{"e", "aa"},
		{"e"},
	}
	require.Equal(t, []string{"aa", "cc"}, ev.ReferencedEventIDs())
	require.Equal(t, []string{"bb"}, ev.TagValues("p"))
	require.Nil(t, ev.TagValues("q"))
}

func TestEventGetTag(t *testing.T) {
	t.Parallel()

	var ev Event
	ev.Tags = Tags{{"nonce", "42", "20"}, {"e", "aa"}}
	require.Equal(t, Tag{"nonce", "42", "20"}, ev.GetTag("nonce"))
	require.Nil(t, ev.GetTag("p"))
}
