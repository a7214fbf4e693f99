package ws

import (
	"log"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/gookit/goutil/errorx"

	"github.com/solstice-net/solstice/model"
)

// outboundQueueSize bounds how far a slow consumer may fall behind before
// its frames are dropped instead of stalling publishers.
const outboundQueueSize = 128

type session struct {
	conn    net.Conn
	out     chan []byte
	closeCh chan struct{}

	closeMx sync.Mutex
	closed  bool
	onClose []func()
}

func newSession(conn net.Conn) *session {
	s := &session{
		conn:    conn,
		out:     make(chan []byte, outboundQueueSize),
		closeCh: make(chan struct{}),
	}
	go s.writeLoop()

	return s
}

// Send serializes the envelope and enqueues it for the writer goroutine.
// It never blocks: a full queue or a closed connection is an error for the
// caller to log, not to wait on.
func (s *session) Send(envelope model.Envelope) error {
	data, err := envelope.MarshalJSON()
	if err != nil {
		return errorx.Withf(err, "failed to serialize %+v into json", envelope)
	}

	select {
	case <-s.closeCh:
		return errorx.Errorf("connection is closed")
	case s.out <- data:
		return nil
	default:
		return errorx.Errorf("outbound queue is full, dropping frame")
	}
}

func (s *session) OnClose(fn func()) {
	s.closeMx.Lock()
	if s.closed {
		s.closeMx.Unlock()
		fn()

		return
	}
	s.onClose = append(s.onClose, fn)
	s.closeMx.Unlock()
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.closeCh:
			return
		case data := <-s.out:
			if err := wsutil.WriteServerMessage(s.conn, ws.OpText, data); err != nil {
				log.Printf("WARN: failed to write frame: %v", err)
				s.close()

				return
			}
		}
	}
}

func (s *session) close() {
	s.closeMx.Lock()
	if s.closed {
		s.closeMx.Unlock()

		return
	}
	s.closed = true
	callbacks := s.onClose
	s.onClose = nil
	s.closeMx.Unlock()

	close(s.closeCh)
	_ = s.conn.Close()
	for _, fn := range callbacks {
		fn()
	}
}
