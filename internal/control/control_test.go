package control

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loghaan/cablewatch/internal/recorder"
)

type fakeController struct {
	requested bool
	snapshots int
}

func (f *fakeController) RequestRecording() { f.requested = true }
func (f *fakeController) RequestHalt()      { f.requested = false }
func (f *fakeController) Snapshot() recorder.Status {
	f.snapshots++
	return recorder.Status{RecordingRequested: f.requested}
}

func newTestServer(t *testing.T, ctrl RecordingController) (*httptest.Server, string) {
	t.Helper()
	hub := NewHub(ctrl)
	r := chi.NewRouter()
	hub.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ingest"
	return srv, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandshakeSendsInitialStatus(t *testing.T) {
	ctrl := &fakeController{}
	_, url := newTestServer(t, ctrl)
	conn := dial(t, url)

	var frame StatusFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "status", frame.Type)
	assert.False(t, frame.RecordingRequested)
}

func TestRecordCommandTransitionsAndReplies(t *testing.T) {
	ctrl := &fakeController{}
	_, url := newTestServer(t, ctrl)
	conn := dial(t, url)

	var initial StatusFrame
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("record")))

	var reply CommandReplyFrame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "ok", reply.Message)
	assert.True(t, ctrl.requested)
}

func TestRecordWhileAlreadyRecordingReturnsStateError(t *testing.T) {
	ctrl := &fakeController{requested: true}
	_, url := newTestServer(t, ctrl)
	conn := dial(t, url)

	var initial StatusFrame
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("record")))
	var reply CommandReplyFrame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "state error: curently recording", reply.Message)
}

func TestHaltWhileNotRecordingReturnsStateError(t *testing.T) {
	ctrl := &fakeController{requested: false}
	_, url := newTestServer(t, ctrl)
	conn := dial(t, url)

	var initial StatusFrame
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("halt")))
	var reply CommandReplyFrame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "state error: curently not recording", reply.Message)
}

func TestInvalidCommandMessage(t *testing.T) {
	ctrl := &fakeController{}
	_, url := newTestServer(t, ctrl)
	conn := dial(t, url)

	var initial StatusFrame
	require.NoError(t, conn.ReadJSON(&initial))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("frobnicate")))
	var reply CommandReplyFrame
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "invalid command: 'frobnicate'", reply.Message)
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	ctrl := &fakeController{}
	_, url := newTestServer(t, ctrl)
	c1 := dial(t, url)
	c2 := dial(t, url)

	var s1, s2 StatusFrame
	require.NoError(t, c1.ReadJSON(&s1))
	require.NoError(t, c2.ReadJSON(&s2))

	require.NoError(t, c1.WriteMessage(websocket.TextMessage, []byte("record")))

	var reply CommandReplyFrame
	require.NoError(t, c1.ReadJSON(&reply))

	var broadcast StatusFrame
	c2.SetReadDeadline(timeNowPlus())
	require.NoError(t, c2.ReadJSON(&broadcast))
	assert.True(t, broadcast.RecordingRequested)
}

func TestShutdownClosesSubscribers(t *testing.T) {
	ctrl := &fakeController{}
	hub := NewHub(ctrl)
	r := chi.NewRouter()
	hub.Routes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ingest"
	conn := dial(t, wsURL)
	var initial StatusFrame
	require.NoError(t, conn.ReadJSON(&initial))

	hub.Shutdown()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	if ok {
		assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	}
}
