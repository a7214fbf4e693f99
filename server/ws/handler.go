// SPDX-License-Identifier: MIT

// Package ws adapts raw websocket connections to the relay core: one
// sequential read-dispatch loop per connection plus a buffered writer that
// keeps slow subscribers from blocking anyone else.
package ws

import (
	"context"
	"io"
	"log"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/hashicorp/go-multierror"
	"github.com/nbd-wtf/go-nostr"

	"github.com/solstice-net/solstice/model"
	"github.com/solstice-net/solstice/relay"
)

type Handler struct {
	dispatcher *relay.Dispatcher
}

func NewHandler(dispatcher *relay.Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// Serve owns the connection until it closes: frames are read and processed
// strictly in received order, there is no pipelining within one connection.
// Closing runs the session's close callbacks, which tear down its
// subscriptions.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	s := newSession(conn)
	defer s.close()

	for ctx.Err() == nil {
		msgBytes, op, err := wsutil.ReadClientData(conn)
		if err != nil {
			closed := new(wsutil.ClosedError)
			if errors.As(err, closed) {
				if closed.Code != ws.StatusNormalClosure &&
					closed.Code != ws.StatusGoingAway &&
					closed.Code != ws.StatusAbnormalClosure &&
					closed.Code != ws.StatusNoStatusRcvd {
					log.Printf("WARN: unexpected close code %v", closed.Code)
				}
			} else if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("WARN: failed to read frame: %v", err)
			}

			return
		}
		if op == ws.OpText && len(msgBytes) > 0 {
			h.handle(ctx, s, msgBytes)
		}
	}
}

// handle decodes one frame and dispatches it. A malformed frame or a
// dispatch failure is answered with a NOTICE and the connection stays open.
func (h *Handler) handle(ctx context.Context, s *session, msgBytes []byte) {
	input, err := model.ParseMessage(msgBytes)
	if err != nil {
		notice := nostr.NoticeEnvelope(err.Error())
		log.Printf("ERROR:%v", multierror.Append(err, s.Send(&notice)).ErrorOrNil())

		return
	}

	if err := h.dispatcher.Dispatch(ctx, s, input); err != nil {
		err = errors.Wrapf(err, "failed to handle %v envelope", input.Label())
		notice := nostr.NoticeEnvelope(err.Error())
		log.Printf("ERROR:%v", multierror.Append(err, s.Send(&notice)).ErrorOrNil())
	}
}
