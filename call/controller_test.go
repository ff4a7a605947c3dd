package call

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/peer"
	"github.com/alinouri1989/chatnest-core/store"
)

// ─── Sahteler ───

type endRecord struct {
	callID    string
	reason    int
	startedAt time.Time
}

type fakeSignaler struct {
	mu      sync.Mutex
	called  []string
	sdps    []peer.SessionDescription
	ends    []endRecord
	accepts []string
	cands   []peer.ICECandidate
}

func (f *fakeSignaler) CallUser(_ context.Context, calleeID string, _ models.CallType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, calleeID)
	return nil
}

func (f *fakeSignaler) AcceptCall(_ context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepts = append(f.accepts, callID)
	return nil
}

func (f *fakeSignaler) EndCall(_ context.Context, callID string, reason int, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends = append(f.ends, endRecord{callID: callID, reason: reason, startedAt: startedAt})
	return nil
}

func (f *fakeSignaler) SendSdp(_ context.Context, _ string, desc peer.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sdps = append(f.sdps, desc)
	return nil
}

func (f *fakeSignaler) SendIceCandidate(_ context.Context, _ string, cand peer.ICECandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cands = append(f.cands, cand)
	return nil
}

func (f *fakeSignaler) endCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ends)
}

func (f *fakeSignaler) lastEnd() (endRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ends) == 0 {
		return endRecord{}, false
	}
	return f.ends[len(f.ends)-1], true
}

func (f *fakeSignaler) sdpCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sdps)
}

type fakeRinger struct {
	mu       sync.Mutex
	ringing  int
	busyTone int
	stops    int
}

func (r *fakeRinger) StartRinging(bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ringing++
}

func (r *fakeRinger) StartBusyTone() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busyTone++
}

func (r *fakeRinger) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *fakeRinger) busyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busyTone
}

type fakeTrack struct {
	kind string
	id   string
}

func (t *fakeTrack) Kind() string { return t.kind }
func (t *fakeTrack) ID() string   { return t.id }
func (t *fakeTrack) Stop()        {}

type fakeStream struct{ tracks []peer.MediaTrack }

func (s *fakeStream) Tracks() []peer.MediaTrack { return s.tracks }
func (s *fakeStream) VideoTrack() (peer.MediaTrack, bool) {
	for _, t := range s.tracks {
		if t.Kind() == "video" {
			return t, true
		}
	}
	return nil, false
}
func (s *fakeStream) Close() {}

type fakeMedia struct{}

func (fakeMedia) GetUserMedia(video bool, _ peer.CameraFacing) (peer.MediaStream, error) {
	tracks := []peer.MediaTrack{&fakeTrack{kind: "audio", id: "a"}}
	if video {
		tracks = append(tracks, &fakeTrack{kind: "video", id: "v"})
	}
	return &fakeStream{tracks: tracks}, nil
}

type fakeConn struct {
	mu          sync.Mutex
	added       []peer.ICECandidate
	onCandidate func(peer.ICECandidate)
	onTrack     func(peer.RemoteTrack)
	onState     func(peer.ConnectionState)
}

func (c *fakeConn) AddTrack(peer.MediaTrack) (peer.TrackSender, error) { return noopSender{}, nil }

func (c *fakeConn) CreateOffer() (peer.SessionDescription, error) {
	return peer.SessionDescription{Type: "offer", SDP: "v=0"}, nil
}

func (c *fakeConn) CreateAnswer() (peer.SessionDescription, error) {
	return peer.SessionDescription{Type: "answer", SDP: "v=0"}, nil
}

func (c *fakeConn) SetLocalDescription(peer.SessionDescription) error  { return nil }
func (c *fakeConn) SetRemoteDescription(peer.SessionDescription) error { return nil }

func (c *fakeConn) AddICECandidate(cand peer.ICECandidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, cand)
	return nil
}

func (c *fakeConn) addedCandidates() []peer.ICECandidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]peer.ICECandidate, len(c.added))
	copy(out, c.added)
	return out
}

func (c *fakeConn) OnICECandidate(fn func(peer.ICECandidate)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCandidate = fn
}

func (c *fakeConn) OnTrack(fn func(peer.RemoteTrack)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTrack = fn
}

func (c *fakeConn) OnConnectionStateChange(fn func(peer.ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) fireTrack(t peer.RemoteTrack) {
	c.mu.Lock()
	fn := c.onTrack
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

func (c *fakeConn) fireState(st peer.ConnectionState) {
	c.mu.Lock()
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

type noopSender struct{}

func (noopSender) ReplaceTrack(peer.MediaTrack) error { return nil }

// harness, testler için bağlanmış bir controller seti.
type harness struct {
	ctrl     *Controller
	signaler *fakeSignaler
	ringer   *fakeRinger
	calls    *store.CallStore
	conn     *fakeConn
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		signaler: &fakeSignaler{},
		ringer:   &fakeRinger{},
		calls:    store.NewCallStore(),
		conn:     &fakeConn{},
	}
	factory := func(video bool) *peer.Session {
		return peer.NewSession(func() (peer.Conn, error) { return h.conn, nil }, fakeMedia{}, video)
	}
	h.ctrl = NewController(h.signaler, h.ringer, factory, h.calls, cfg)
	return h
}

func fastConfig() Config {
	return Config{AnswerTimeout: 30 * time.Millisecond, BusyToneDuration: 30 * time.Millisecond}
}

// ─── Testler ───

func TestUnansweredOutgoingEndsWithNoAnswer(t *testing.T) {
	h := newHarness(t, fastConfig())
	ctx := context.Background()

	require.NoError(t, h.ctrl.StartOutgoing(ctx, "u2", models.CallTypeVoice))
	h.ctrl.HandleOutgoingCall("call-1")
	assert.Equal(t, StateDialing, h.ctrl.State())

	// Zamanlayıcı akışı: dialing → busy tone → no-answer ile sonlanma.
	require.Eventually(t, func() bool { return h.ringer.busyCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return h.signaler.endCount() == 1 }, time.Second, 5*time.Millisecond)

	end, _ := h.signaler.lastEnd()
	assert.Equal(t, "call-1", end.callID)
	assert.Equal(t, models.CallEndReasonNoAnswer, end.reason)
	assert.True(t, end.startedAt.IsZero())
	assert.Equal(t, StateIdle, h.ctrl.State())
	_, active := h.calls.Active()
	assert.False(t, active)
}

func TestAcceptCancelsAnswerTimeout(t *testing.T) {
	h := newHarness(t, fastConfig())
	require.NoError(t, h.ctrl.StartOutgoing(context.Background(), "u2", models.CallTypeVoice))
	h.ctrl.HandleOutgoingCall("call-1")

	h.ctrl.HandleAcceptCall("")
	assert.Equal(t, StateConnecting, h.ctrl.State())

	// Timeout süresi geçse bile çağrı sonlanmaz.
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, h.signaler.endCount())
	assert.Equal(t, StateConnecting, h.ctrl.State())

	active, ok := h.calls.Active()
	require.True(t, ok)
	assert.True(t, active.AcceptWaiting)
}

func TestSecondOutgoingRejectedWhileActive(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.ctrl.StartOutgoing(context.Background(), "u2", models.CallTypeVoice))

	err := h.ctrl.StartOutgoing(context.Background(), "u3", models.CallTypeVoice)
	assert.Error(t, err)
	assert.Len(t, h.signaler.called, 1)
}

func TestIncomingWhileBusyDeclined(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.ctrl.StartOutgoing(ctx, "u2", models.CallTypeVoice))

	h.ctrl.HandleIncomingCall(ctx, "call-9", "u3", models.CallTypeVideo)

	end, ok := h.signaler.lastEnd()
	require.True(t, ok)
	assert.Equal(t, "call-9", end.callID)
	assert.Equal(t, models.CallEndReasonCancelled, end.reason)

	// Aktif çağrı etkilenmez.
	assert.Equal(t, StateDialing, h.ctrl.State())
}

func TestAcceptCreatesOfferThenSignalsAccept(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.ctrl.HandleIncomingCall(ctx, "call-1", "u2", models.CallTypeVideo)
	assert.Equal(t, StateRinging, h.ctrl.State())

	require.NoError(t, h.ctrl.Accept(ctx))
	assert.Equal(t, StateConnecting, h.ctrl.State())

	// Kabul eden taraf offer'ı üretir; kabul sinyali offer'dan SONRA gider.
	require.Len(t, h.signaler.sdps, 1)
	assert.Equal(t, "offer", h.signaler.sdps[0].Type)
	assert.Equal(t, []string{"call-1"}, h.signaler.accepts)
}

func TestCallerAnswersIncomingOffer(t *testing.T) {
	h := newHarness(t, fastConfig())
	ctx := context.Background()
	require.NoError(t, h.ctrl.StartOutgoing(ctx, "u2", models.CallTypeVoice))
	h.ctrl.HandleOutgoingCall("call-1")

	h.ctrl.HandleAcceptCall("")
	h.ctrl.HandleSdp(ctx, peer.SessionDescription{Type: "offer", SDP: "v=0"})

	require.Eventually(t, func() bool { return h.signaler.sdpCount() == 1 }, time.Second, 5*time.Millisecond)
	h.signaler.mu.Lock()
	desc := h.signaler.sdps[0]
	h.signaler.mu.Unlock()
	assert.Equal(t, "answer", desc.Type)
	assert.Equal(t, StateConnecting, h.ctrl.State())
}

func TestHangUpDuringBusyToneUsesNoAnswer(t *testing.T) {
	h := newHarness(t, Config{AnswerTimeout: 30 * time.Millisecond, BusyToneDuration: 5 * time.Second})
	ctx := context.Background()
	require.NoError(t, h.ctrl.StartOutgoing(ctx, "u2", models.CallTypeVoice))
	h.ctrl.HandleOutgoingCall("call-1")

	require.Eventually(t, func() bool { return h.ringer.busyCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, StateBusy, h.ctrl.State())

	// Meşgul tonu sırasında kapatmak no-answer sayılır, cancelled değil.
	h.ctrl.HangUp(ctx)

	end, ok := h.signaler.lastEnd()
	require.True(t, ok)
	assert.Equal(t, "call-1", end.callID)
	assert.Equal(t, models.CallEndReasonNoAnswer, end.reason)
	assert.True(t, end.startedAt.IsZero())
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, 1, h.signaler.endCount())
}

func TestHangUpBeforeAnswerUsesCancelled(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.ctrl.StartOutgoing(ctx, "u2", models.CallTypeVoice))
	h.ctrl.HandleOutgoingCall("call-1")

	h.ctrl.HangUp(ctx)

	end, ok := h.signaler.lastEnd()
	require.True(t, ok)
	assert.Equal(t, models.CallEndReasonCancelled, end.reason)
	assert.True(t, end.startedAt.IsZero())
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestHangUpAfterMediaUsesHangup(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.ctrl.HandleIncomingCall(ctx, "call-1", "u2", models.CallTypeVoice)
	require.NoError(t, h.ctrl.Accept(ctx))

	// İlk uzak medya: çağrı started'a geçer.
	h.conn.fireTrack(&fakeTrack{kind: "audio", id: "remote"})
	require.Eventually(t, func() bool { return h.ctrl.State() == StateStarted }, time.Second, 5*time.Millisecond)

	h.ctrl.HangUp(ctx)

	end, ok := h.signaler.lastEnd()
	require.True(t, ok)
	assert.Equal(t, models.CallEndReasonHangup, end.reason)
	assert.False(t, end.startedAt.IsZero())
}

func TestHandleRemoteEndIdempotent(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.ctrl.StartOutgoing(ctx, "u2", models.CallTypeVoice))
	h.ctrl.HandleOutgoingCall("call-1")

	h.ctrl.HandleRemoteEnd("call-1")
	assert.Equal(t, StateIdle, h.ctrl.State())

	// Tekrarlanan ve eşleşmeyen end event'leri no-op'tur.
	h.ctrl.HandleRemoteEnd("call-1")
	h.ctrl.HandleRemoteEnd("call-404")
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Zero(t, h.signaler.endCount())
}

func TestConnectionFailureEndsCall(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.ctrl.HandleIncomingCall(ctx, "call-1", "u2", models.CallTypeVoice)
	require.NoError(t, h.ctrl.Accept(ctx))

	h.conn.fireState(peer.ConnectionStateFailed)

	require.Eventually(t, func() bool { return h.signaler.endCount() == 1 }, time.Second, 5*time.Millisecond)
	end, _ := h.signaler.lastEnd()
	assert.Equal(t, "call-1", end.callID)
	assert.Equal(t, models.CallEndReasonHangup, end.reason)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestConnectionClosedEndsCall(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.ctrl.HandleIncomingCall(ctx, "call-1", "u2", models.CallTypeVoice)
	require.NoError(t, h.ctrl.Accept(ctx))

	// Beklenmedik "closed" da "failed" gibi çağrıyı sonlandırır.
	h.conn.fireState(peer.ConnectionStateClosed)

	require.Eventually(t, func() bool { return h.signaler.endCount() == 1 }, time.Second, 5*time.Millisecond)
	end, _ := h.signaler.lastEnd()
	assert.Equal(t, "call-1", end.callID)
	assert.Equal(t, models.CallEndReasonHangup, end.reason)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestEarlyRemoteCandidatesAppliedAfterSdp(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	// Aktif çağrı yokken gelen aday düşürülür.
	h.ctrl.HandleRemoteCandidate(peer.ICECandidate{Candidate: "stray"})

	require.NoError(t, h.ctrl.StartOutgoing(ctx, "u2", models.CallTypeVoice))
	h.ctrl.HandleOutgoingCall("call-1")

	// Adaylar SDP'den önce gelebilir; oturum yokken tamponlanır.
	h.ctrl.HandleRemoteCandidate(peer.ICECandidate{Candidate: "early-1"})
	h.ctrl.HandleRemoteCandidate(peer.ICECandidate{Candidate: "early-2"})
	assert.Empty(t, h.conn.addedCandidates())

	h.ctrl.HandleAcceptCall("")
	h.ctrl.HandleSdp(ctx, peer.SessionDescription{Type: "offer", SDP: "v=0"})

	// Remote description uygulanınca tamponlananlar geliş sırasıyla eklenir.
	added := h.conn.addedCandidates()
	require.Len(t, added, 2)
	assert.Equal(t, "early-1", added[0].Candidate)
	assert.Equal(t, "early-2", added[1].Candidate)
}

func TestLocalCandidateForwarded(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()

	h.ctrl.HandleIncomingCall(ctx, "call-1", "u2", models.CallTypeVoice)
	require.NoError(t, h.ctrl.Accept(ctx))

	h.conn.mu.Lock()
	fn := h.conn.onCandidate
	h.conn.mu.Unlock()
	require.NotNil(t, fn)
	fn(peer.ICECandidate{Candidate: "cand-1"})

	require.Eventually(t, func() bool {
		h.signaler.mu.Lock()
		defer h.signaler.mu.Unlock()
		return len(h.signaler.cands) == 1
	}, time.Second, 5*time.Millisecond)
}
