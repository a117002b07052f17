package control

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/loghaan/cablewatch/internal/log"
)

func timeNowPlus() time.Time {
	return time.Now().Add(5 * time.Second)
}

// subscriberQueueSize bounds each subscriber's outbound buffer; a send
// past capacity drops the oldest queued frame rather than blocking the
// broadcaster, per SPEC_FULL.md §9's design note.
const subscriberQueueSize = 8

// subscriber owns one websocket connection's write side. Reads (there
// are none expected beyond command frames, handled by the caller) and
// writes never race because frames are only ever written by this
// goroutine, fed by a channel.
type subscriber struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	queue  []any
	notify chan struct{}
	closed bool
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	s := &subscriber{id: uuid.NewString(), conn: conn, notify: make(chan struct{}, 1)}
	go s.writeLoop()
	return s
}

// send enqueues frame, dropping the oldest queued frame if full.
func (s *subscriber) send(frame any) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= subscriberQueueSize {
		s.queue = s.queue[1:]
		log.WithComponent("control").Warn().Str("subscriber", s.id).Msg("subscriber queue full, dropped oldest frame")
	}
	s.queue = append(s.queue, frame)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) writeLoop() {
	for range s.notify {
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			frame := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}
}

// closeWithReason sends a websocket close frame and releases resources.
func (s *subscriber) closeWithReason(code int, text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	deadline := websocket.FormatCloseMessage(code, text)
	_ = s.conn.WriteControl(websocket.CloseMessage, deadline, timeNowPlus())
	close(s.notify)
	_ = s.conn.Close()
}
