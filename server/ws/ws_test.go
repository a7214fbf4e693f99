// SPDX-License-Identifier: MIT

package ws

import (
	"context"
	"net"
	"testing"
	"time"

	gobwasws "github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/solstice-net/solstice/model"
	"github.com/solstice-net/solstice/relay"
	"github.com/solstice-net/solstice/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func helperWriteFrame(t *testing.T, conn net.Conn, payload string) {
	t.Helper()
	require.NoError(t, wsutil.WriteClientMessage(conn, gobwasws.OpText, []byte(payload)))
}

func helperReadEnvelope(t *testing.T, conn net.Conn) model.Envelope {
	t.Helper()

	data, err := wsutil.ReadServerText(conn)
	require.NoError(t, err)
	envelope, err := model.ParseMessage(data)
	require.NoError(t, err)

	return envelope
}

func TestHandlerServe(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	require.NoError(t, clientConn.SetDeadline(time.Now().Add(30*time.Second)))

	dispatcher := relay.NewDispatcher(relay.Config{}, store.NewMemory(), relay.NewRegistry())
	handler := NewHandler(dispatcher)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.Serve(ctx, serverConn)
	}()

	// Subscribing to an empty relay yields only the end-of-replay marker.
	helperWriteFrame(t, clientConn, `["REQ","sub",{"kinds":[1]}]`)
	_, ok := helperReadEnvelope(t, clientConn).(*nostr.EOSEEnvelope)
	require.True(t, ok)

	// Publishing delivers to our own subscription first, then acknowledges.
	var event model.Event
	event.Kind = nostr.KindTextNote
	event.CreatedAt = nostr.Now()
	event.Content = "hello over the wire"
	require.NoError(t, event.Sign(nostr.GeneratePrivateKey()))
	payload, err := (&nostr.EventEnvelope{Event: event.Event}).MarshalJSON()
	require.NoError(t, err)
	helperWriteFrame(t, clientConn, string(payload))

	eventEnvelope, ok := helperReadEnvelope(t, clientConn).(*nostr.EventEnvelope)
	require.True(t, ok)
	require.Equal(t, event.ID, eventEnvelope.ID)
	require.NotNil(t, eventEnvelope.SubscriptionID)
	require.Equal(t, "sub", *eventEnvelope.SubscriptionID)

	okEnvelope, ok := helperReadEnvelope(t, clientConn).(*nostr.OKEnvelope)
	require.True(t, ok)
	require.True(t, okEnvelope.OK)
	require.Equal(t, event.ID, okEnvelope.EventID)

	// A frame that is not a protocol message is answered with a NOTICE and
	// the connection survives.
	helperWriteFrame(t, clientConn, `garbage`)
	_, ok = helperReadEnvelope(t, clientConn).(*nostr.NoticeEnvelope)
	require.True(t, ok)

	helperWriteFrame(t, clientConn, `["REQ","still alive",{"kinds":[1],"limit":1}]`)
	stillAlive, ok := helperReadEnvelope(t, clientConn).(*nostr.EventEnvelope)
	require.True(t, ok)
	require.Equal(t, event.ID, stillAlive.ID)
	_, ok = helperReadEnvelope(t, clientConn).(*nostr.EOSEEnvelope)
	require.True(t, ok)

	require.NoError(t, clientConn.Close())
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("read loop did not stop after the peer closed")
	}
}

func TestSessionSendAfterClose(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	s := newSession(serverConn)
	s.close()

	notice := nostr.NoticeEnvelope("too late")
	require.Error(t, s.Send(&notice))
}

func TestSessionOnCloseAfterCloseRunsImmediately(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	s := newSession(serverConn)

	var before, after bool
	s.OnClose(func() { before = true })
	s.close()
	require.True(t, before)

	s.OnClose(func() { after = true })
	require.True(t, after)
}

func TestSessionSendDropsWhenQueueIsFull(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	// The peer never reads, so the writer goroutine blocks and the queue
	// fills up.
	s := newSession(serverConn)
	defer func() {
		s.close()
		_ = clientConn.Close()
	}()

	notice := nostr.NoticeEnvelope("flood")
	var dropped bool
	for i := 0; i < outboundQueueSize+2; i++ {
		if s.Send(&notice) != nil {
			dropped = true
		}
	}
	require.True(t, dropped)
}
