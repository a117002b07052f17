// Package control implements the websocket control plane: a single
// /api/ingest endpoint that broadcasts Recorder status and accepts
// record/halt commands.
package control

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"

	"github.com/loghaan/cablewatch/internal/log"
	"github.com/loghaan/cablewatch/internal/recorder"
)

// ErrStateError names the "command issued in the wrong Recorder state"
// error kind. Nothing in this package returns it: handleCommand reports
// such a command to the client as a "state error: ..." command-reply
// message, and RecordingController's methods return no error.
var ErrStateError = errors.New("control: state error")

// RecordingController is the subset of *recorder.Recorder the control
// plane depends on, so it can be tested without a real Recorder.
type RecordingController interface {
	RequestRecording()
	RequestHalt()
	Snapshot() recorder.Status
}

// Hub owns every connected subscriber and fans out status broadcasts.
type Hub struct {
	controller RecordingController

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}

	upgrader websocket.Upgrader
}

// NewHub constructs a Hub wired to controller.
func NewHub(controller RecordingController) *Hub {
	return &Hub{
		controller:  controller,
		subscribers: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes mounts the /api/ingest websocket endpoint on r, rate-limited
// per-IP at the handshake: connection churn, not message volume, is the
// attack surface a websocket endpoint actually exposes.
func (h *Hub) Routes(r chi.Router) {
	r.With(httprate.LimitByIP(20, time.Minute)).Get("/api/ingest", h.handleIngest)
}

func (h *Hub) handleIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithComponent("control").Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := newSubscriber(conn)
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	log.WithComponent("control").Info().Str("subscriber", sub.id).Msg("subscriber connected")

	sub.send(newStatusFrame(h.controller.Snapshot()))

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, sub)
		h.mu.Unlock()
		sub.closeWithReason(websocket.CloseNormalClosure, "")
		log.WithComponent("control").Info().Str("subscriber", sub.id).Msg("subscriber disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleCommand(sub, string(raw))
	}
}

func (h *Hub) handleCommand(sub *subscriber, raw string) {
	var message string
	broadcast := false

	switch raw {
	case "record":
		if !h.controller.Snapshot().RecordingRequested {
			h.controller.RequestRecording()
			message = "ok"
			broadcast = true
		} else {
			message = "state error: curently recording"
		}
	case "halt":
		if h.controller.Snapshot().RecordingRequested {
			h.controller.RequestHalt()
			message = "ok"
			broadcast = true
		} else {
			message = "state error: curently not recording"
		}
	default:
		message = fmt.Sprintf("invalid command: '%s'", raw)
	}

	sub.send(CommandReplyFrame{Type: "command-reply", Message: message})
	if broadcast {
		h.Broadcast()
	}
}

// Broadcast fans the current Recorder status out to every subscriber.
func (h *Hub) Broadcast() {
	frame := newStatusFrame(h.controller.Snapshot())
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		sub.send(frame)
	}
}

// OnStatus adapts Hub.Broadcast to recorder.StatusSink, so it can be
// passed directly as the Recorder's status callback.
func (h *Hub) OnStatus(recorder.Status) {
	h.Broadcast()
}

// Shutdown closes every subscriber with GOING_AWAY, per spec.md §4.6.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.closeWithReason(websocket.CloseGoingAway, "")
	}
}
