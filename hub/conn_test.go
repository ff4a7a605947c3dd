package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alinouri1989/chatnest-core/hubproto"
	"github.com/alinouri1989/chatnest-core/pkg"
)

// fakeHub, handshake yapan ve frame alışverişini test eden sahte sunucu.
type fakeHub struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received chan hubproto.Frame

	// onInvocation: gelen invocation'a verilecek cevap (nil = cevapsız).
	onInvocation func(f hubproto.Frame) *hubproto.Frame
}

func newFakeHub(t *testing.T) (*fakeHub, *httptest.Server) {
	h := &fakeHub{t: t, received: make(chan hubproto.Frame, 16)}
	srv := httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(srv.Close)
	return h, srv
}

func (h *fakeHub) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conns = append(h.conns, ws)
	h.mu.Unlock()

	// Handshake: client frame'i okunur, boş obje ile yanıtlanır.
	if _, _, err := ws.ReadMessage(); err != nil {
		return
	}
	if err := ws.WriteMessage(websocket.TextMessage, append([]byte(`{}`), hubproto.RecordSeparator)); err != nil {
		return
	}

	dec := hubproto.NewDecoder("fake-server")
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		for _, frame := range dec.Decode(payload) {
			if frame.Type != hubproto.FrameTypeInvocation {
				continue
			}
			select {
			case h.received <- frame:
			default:
			}
			if h.onInvocation != nil {
				if reply := h.onInvocation(frame); reply != nil {
					data, err := hubproto.Encode(*reply)
					if err != nil {
						continue
					}
					h.mu.Lock()
					ws.WriteMessage(websocket.TextMessage, data)
					h.mu.Unlock()
				}
			}
		}
	}
}

// push, sunucudan client'a bir frame gönderir.
func (h *fakeHub) push(f hubproto.Frame) {
	data, err := hubproto.Encode(f)
	require.NoError(h.t, err)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(h.t, h.conns)
	ws := h.conns[len(h.conns)-1]
	require.NoError(h.t, ws.WriteMessage(websocket.TextMessage, data))
}

// dropLatest, sunucu tarafındaki son bağlantıyı koparır.
func (h *fakeHub) dropLatest() {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(h.t, h.conns)
	h.conns[len(h.conns)-1].Close()
}

func startedConn(t *testing.T, srv *httptest.Server) *Conn {
	t.Helper()
	conn, err := NewConn("test", srv.URL, "/TestHub", "tok")
	require.NoError(t, err)
	require.NoError(t, conn.Start(context.Background()))
	t.Cleanup(conn.Close)
	return conn
}

func TestStartPerformsHandshake(t *testing.T) {
	_, srv := newFakeHub(t)

	var statuses []Status
	conn, err := NewConn("test", srv.URL, "/TestHub", "tok")
	require.NoError(t, err)
	conn.OnStatusChange(func(s Status) { statuses = append(statuses, s) })

	require.NoError(t, conn.Start(context.Background()))
	conn.Close()

	assert.Equal(t, []Status{StatusConnecting, StatusConnected, StatusDisconnected}, statuses)
}

func TestStartFailsWhenServerUnreachable(t *testing.T) {
	conn, err := NewConn("test", "http://127.0.0.1:1", "/TestHub", "tok")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = conn.Start(ctx)
	assert.ErrorIs(t, err, pkg.ErrNotConnected)
}

func TestServerInvocationDispatchedToHandler(t *testing.T) {
	h, srv := newFakeHub(t)

	received := make(chan []json.RawMessage, 1)
	conn, err := NewConn("test", srv.URL, "/TestHub", "tok")
	require.NoError(t, err)
	conn.On("ReceiveThing", func(args []json.RawMessage) { received <- args })
	require.NoError(t, conn.Start(context.Background()))
	t.Cleanup(conn.Close)

	h.push(hubproto.Frame{
		Type:      hubproto.FrameTypeInvocation,
		Target:    "ReceiveThing",
		Arguments: []json.RawMessage{json.RawMessage(`{"x":1}`)},
	})

	select {
	case args := <-received:
		require.Len(t, args, 1)
		assert.JSONEq(t, `{"x":1}`, string(args[0]))
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestSendDeliversInvocation(t *testing.T) {
	h, srv := newFakeHub(t)
	conn := startedConn(t, srv)

	require.NoError(t, conn.Send("DoThing", "arg1", 2))

	select {
	case frame := <-h.received:
		assert.Equal(t, "DoThing", frame.Target)
		assert.Empty(t, frame.InvocationID)
		require.Len(t, frame.Arguments, 2)
		assert.JSONEq(t, `"arg1"`, string(frame.Arguments[0]))
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive invocation")
	}
}

func TestInvokeWaitsForCompletion(t *testing.T) {
	h, srv := newFakeHub(t)
	h.onInvocation = func(f hubproto.Frame) *hubproto.Frame {
		return &hubproto.Frame{Type: hubproto.FrameTypeCompletion, InvocationID: f.InvocationID}
	}
	conn := startedConn(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, conn.Invoke(ctx, "DoThing", "x"))
}

func TestInvokeSurfacesCompletionError(t *testing.T) {
	h, srv := newFakeHub(t)
	h.onInvocation = func(f hubproto.Frame) *hubproto.Frame {
		return &hubproto.Frame{
			Type:         hubproto.FrameTypeCompletion,
			InvocationID: f.InvocationID,
			Error:        "boom",
		}
	}
	conn := startedConn(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := conn.Invoke(ctx, "DoThing")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrInternal)
	assert.Contains(t, err.Error(), "boom")
}

func TestInvokeHonorsContextCancel(t *testing.T) {
	_, srv := newFakeHub(t) // completion hiç gelmez
	conn := startedConn(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := conn.Invoke(ctx, "DoThing")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvokeFailsFastWhenConnectionDrops(t *testing.T) {
	h, srv := newFakeHub(t) // completion hiç gelmez
	conn := startedConn(t, srv)

	errc := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		errc <- conn.Invoke(ctx, "DoThing")
	}()

	// Invocation sunucuya ulaşınca bağlantı sunucu tarafından koparılır;
	// bekleyen invoke timeout'u beklemeden düşmelidir.
	select {
	case <-h.received:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive invocation")
	}
	h.dropLatest()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, pkg.ErrNotConnected)
	case <-time.After(2 * time.Second):
		t.Fatal("invoke did not fail after connection drop")
	}
}

func TestSendBeforeStart(t *testing.T) {
	conn, err := NewConn("test", "http://localhost:5001", "/TestHub", "tok")
	require.NoError(t, err)

	assert.ErrorIs(t, conn.Send("DoThing"), pkg.ErrNotConnected)
}

func TestAccessTokenInQuery(t *testing.T) {
	conn, err := NewConn("test", "https://example.com", "/ChatHub", "secret-token")
	require.NoError(t, err)

	assert.Contains(t, conn.wsURL, "wss://example.com/ChatHub")
	assert.Contains(t, conn.wsURL, "access_token=secret-token")
}

func TestCloseIdempotent(t *testing.T) {
	_, srv := newFakeHub(t)
	conn := startedConn(t, srv)

	conn.Close()
	conn.Close()
}
