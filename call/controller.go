// Package call — Call Controller: çağrı yaşam döngüsünün state machine'i.
//
// Sinyalleşme (Signaler) ve zil/meşgul tonu (Ringer) enjekte edilir;
// WebRTC tarafı peer.Session'a delege edilir. Controller tek bir aktif
// çağrı invariant'ını korur ve her terminal geçişte peer kaynaklarının
// bırakılmasını garanti eder.
package call

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/peer"
	"github.com/alinouri1989/chatnest-core/pkg"
	"github.com/alinouri1989/chatnest-core/store"
)

// State, controller'ın çağrı durumu.
type State int

const (
	StateIdle State = iota
	// StateRinging: gelen çağrı çalıyor, lokal kullanıcı henüz karar vermedi.
	StateRinging
	// StateDialing: giden çağrı, karşı taraf henüz cevaplamadı.
	StateDialing
	// StateConnecting: çağrı kabul edildi, SDP/ICE exchange sürüyor.
	StateConnecting
	// StateStarted: medya akıyor.
	StateStarted
	// StateBusy: giden çağrı cevapsız kaldı, meşgul tonu çalıyor.
	StateBusy
)

// Varsayılan zamanlayıcılar. Testler Config üzerinden kısaltır.
const (
	DefaultAnswerTimeout    = 25 * time.Second
	DefaultBusyToneDuration = 4 * time.Second
)

// Signaler, çağrı sinyallerini sunucuya ileten taraf.
type Signaler interface {
	CallUser(ctx context.Context, calleeID string, callType models.CallType) error
	AcceptCall(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string, reason int, startedAt time.Time) error
	SendSdp(ctx context.Context, callID string, desc peer.SessionDescription) error
	SendIceCandidate(ctx context.Context, callID string, cand peer.ICECandidate) error
}

// Ringer, zil ve meşgul tonu çalan taraf. Tüm metodlar idempotent olmalıdır.
type Ringer interface {
	StartRinging(incoming bool)
	StartBusyTone()
	Stop()
}

// SessionFactory, çağrı türüne göre yeni bir peer oturumu üretir.
type SessionFactory func(video bool) *peer.Session

// Config, controller zamanlayıcıları.
type Config struct {
	// AnswerTimeout: giden çağrının cevaplanmasını bekleme süresi.
	AnswerTimeout time.Duration
	// BusyToneDuration: cevapsız çağrıda meşgul tonunun çalma süresi;
	// süre dolunca çağrı no-answer sebebiyle sonlandırılır.
	BusyToneDuration time.Duration
}

func (c *Config) applyDefaults() {
	if c.AnswerTimeout <= 0 {
		c.AnswerTimeout = DefaultAnswerTimeout
	}
	if c.BusyToneDuration <= 0 {
		c.BusyToneDuration = DefaultBusyToneDuration
	}
}

// Controller, çağrı state machine'i.
type Controller struct {
	signaler Signaler
	ringer   Ringer
	sessions SessionFactory
	calls    *store.CallStore
	cfg      Config

	mu        sync.Mutex
	state     State
	callID    string
	peerID    string
	video     bool
	startedAt time.Time
	session   *peer.Session

	// earlyCands: oturum henüz kurulmadan gelen uzak ICE adayları.
	// Oturum kurulunca sırayla oturuma devredilir.
	earlyCands []peer.ICECandidate

	// timerGen: aktif zamanlayıcı nesli. Her state geçişinde artar;
	// eski neslin zamanlayıcısı ateşlense bile etkisizdir. Böylece
	// "cevap geldi ama timeout da ateşledi" yarışı kapanır.
	timerGen uint64

	// pumpDone: aktif oturumun event pump'ı kapandığında kapanır.
	pumpDone chan struct{}
}

// NewController, yeni bir Controller oluşturur.
func NewController(signaler Signaler, ringer Ringer, sessions SessionFactory, calls *store.CallStore, cfg Config) *Controller {
	cfg.applyDefaults()
	return &Controller{
		signaler: signaler,
		ringer:   ringer,
		sessions: sessions,
		calls:    calls,
		cfg:      cfg,
	}
}

// State, anlık durumu döner.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session, aktif peer oturumunu döner (kamera değişimi gibi medya
// operasyonları için).
func (c *Controller) Session() (*peer.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.session != nil
}

// ─── Giden çağrı ───

// StartOutgoing, verilen kullanıcıya çağrı başlatır.
// Aktif çağrı varken ikinci çağrı başlatılamaz.
func (c *Controller) StartOutgoing(ctx context.Context, calleeID string, callType models.CallType) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return pkg.ErrCallActive
	}
	c.state = StateDialing
	c.peerID = calleeID
	c.video = callType == models.CallTypeVideo
	gen := c.bumpTimerLocked()
	c.mu.Unlock()

	if !c.calls.StartOutgoing("", calleeID, callType) {
		c.reset()
		return pkg.ErrCallActive
	}

	if err := c.signaler.CallUser(ctx, calleeID, callType); err != nil {
		c.reset()
		return err
	}

	c.ringer.StartRinging(false)
	time.AfterFunc(c.cfg.AnswerTimeout, func() { c.onAnswerTimeout(gen) })
	return nil
}

// HandleOutgoingCall, sunucunun atadığı çağrı id'sini bağlar
// (ReceiveOutgoingCall event'i).
func (c *Controller) HandleOutgoingCall(callID string) {
	c.mu.Lock()
	bound := c.state == StateDialing || c.state == StateBusy
	if bound {
		c.callID = callID
	}
	c.mu.Unlock()

	if bound {
		c.calls.BindID(callID)
	}
}

// onAnswerTimeout, cevap süresi dolunca meşgul tonuna geçer.
func (c *Controller) onAnswerTimeout(gen uint64) {
	c.mu.Lock()
	if c.timerGen != gen || c.state != StateDialing {
		c.mu.Unlock()
		return
	}
	c.state = StateBusy
	next := c.bumpTimerLocked()
	c.mu.Unlock()

	c.ringer.Stop()
	c.ringer.StartBusyTone()
	time.AfterFunc(c.cfg.BusyToneDuration, func() { c.onBusyToneDone(next) })
}

// onBusyToneDone, meşgul tonu bitince çağrıyı no-answer sebebiyle kapatır.
func (c *Controller) onBusyToneDone(gen uint64) {
	c.mu.Lock()
	if c.timerGen != gen || c.state != StateBusy {
		c.mu.Unlock()
		return
	}
	callID := c.callID
	c.mu.Unlock()

	if callID != "" {
		if err := c.signaler.EndCall(context.Background(), callID, models.CallEndReasonNoAnswer, time.Time{}); err != nil {
			log.Printf("[call] no-answer end signal failed: %v", err)
		}
	}
	c.reset()
}

// HandleAcceptCall, karşı tarafın kabulünü işler (caller tarafı).
// Offer'ı kabul eden taraf üretir; caller burada sadece beklemeye geçer
// ve cevap zamanlayıcısını iptal eder. SDP exchange ReceiveSdp üzerinden
// devam eder.
func (c *Controller) HandleAcceptCall(callID string) {
	c.mu.Lock()
	if c.state != StateDialing && c.state != StateBusy {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	if callID != "" {
		c.callID = callID
	}
	c.bumpTimerLocked()
	c.mu.Unlock()

	c.ringer.Stop()
	c.calls.SetAcceptWaiting(true)
}

// ─── Gelen çağrı ───

// HandleIncomingCall, gelen çağrı event'ini işler. Lokal kullanıcı zaten
// bir çağrıdaysa gelen çağrı cancelled sebebiyle reddedilir.
func (c *Controller) HandleIncomingCall(ctx context.Context, callID, callerID string, callType models.CallType) {
	c.mu.Lock()
	busy := c.state != StateIdle
	c.mu.Unlock()

	if busy || !c.calls.StartIncoming(callID, callerID, callType) {
		log.Printf("[call] busy, declining incoming call %s from %s", callID, callerID)
		if err := c.signaler.EndCall(ctx, callID, models.CallEndReasonCancelled, time.Time{}); err != nil {
			log.Printf("[call] decline signal failed: %v", err)
		}
		return
	}

	c.mu.Lock()
	c.state = StateRinging
	c.callID = callID
	c.peerID = callerID
	c.video = callType == models.CallTypeVideo
	c.bumpTimerLocked()
	c.mu.Unlock()

	c.ringer.StartRinging(true)
}

// Accept, çalan gelen çağrıyı kabul eder. Offer'ı kabul eden taraf üretir:
// peer oturumu (ve medya) burada kurulur, offer gönderilir, sonra kabul
// sinyali iletilir. Medya edinilemezse çağrı KURULMAZ ve hata döner.
func (c *Controller) Accept(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRinging {
		c.mu.Unlock()
		return fmt.Errorf("%w: no ringing call", pkg.ErrBadRequest)
	}
	c.state = StateConnecting
	callID := c.callID
	sess := c.ensureSessionLocked()
	c.mu.Unlock()

	c.ringer.Stop()
	c.calls.SetAcceptWaiting(true)

	offer, err := sess.CreateOffer()
	if err != nil {
		c.calls.SetAcceptWaiting(false)
		c.reset()
		return err
	}
	if err := c.signaler.SendSdp(ctx, callID, offer); err != nil {
		c.calls.SetAcceptWaiting(false)
		c.reset()
		return err
	}
	if err := c.signaler.AcceptCall(ctx, callID); err != nil {
		c.endWithFailure(ctx, callID)
		return err
	}
	return nil
}

// ─── Sinyalleşme girişleri ───

// HandleSdp, karşı taraftan gelen SDP'yi işler. Offer gelen taraf (caller)
// burada peer oturumunu kurar ve answer üretir; answer olduğu gibi uygulanır.
func (c *Controller) HandleSdp(ctx context.Context, desc peer.SessionDescription) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		log.Printf("[call] SDP with no active call, ignoring")
		return
	}
	callID := c.callID
	if desc.Type == "offer" && (c.state == StateDialing || c.state == StateBusy) {
		c.state = StateConnecting
		c.bumpTimerLocked()
	}
	sess := c.ensureSessionLocked()
	c.mu.Unlock()

	switch desc.Type {
	case "offer":
		c.ringer.Stop()
		answer, err := sess.CreateAnswerFor(desc)
		if err != nil {
			log.Printf("[call] answer creation failed: %v", err)
			c.endWithFailure(ctx, callID)
			return
		}
		if err := c.signaler.SendSdp(ctx, callID, answer); err != nil {
			log.Printf("[call] answer signal failed: %v", err)
			c.endWithFailure(ctx, callID)
		}
	case "answer":
		if err := sess.HandleRemoteDescription(desc); err != nil {
			log.Printf("[call] remote answer failed: %v", err)
			c.endWithFailure(ctx, callID)
		}
	default:
		log.Printf("[call] unknown SDP type %q, ignoring", desc.Type)
	}
}

// HandleRemoteCandidate, karşı taraftan gelen ICE adayını aktif oturuma
// iletir. Adaylar SDP'den önce gelebilir; oturum henüz yoksa aday
// tamponlanır ve oturum kurulunca sırayla devredilir. Aktif çağrı yoksa
// aday düşürülür.
func (c *Controller) HandleRemoteCandidate(cand peer.ICECandidate) {
	c.mu.Lock()
	if c.session == nil {
		if c.state != StateIdle {
			c.earlyCands = append(c.earlyCands, cand)
		}
		c.mu.Unlock()
		return
	}
	sess := c.session
	c.mu.Unlock()

	sess.AddRemoteCandidate(cand)
}

// ─── Sonlanma ───

// HangUp, lokal kullanıcının çağrıyı bitirmesi. Sebep duruma göre seçilir:
// medya akmaya başladıysa hangup, meşgul tonu sırasında no-answer,
// aksi halde cancelled.
func (c *Controller) HangUp(ctx context.Context) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	callID := c.callID
	startedAt := c.startedAt
	reason := models.CallEndReasonCancelled
	switch c.state {
	case StateStarted:
		reason = models.CallEndReasonHangup
	case StateBusy:
		reason = models.CallEndReasonNoAnswer
	}
	c.mu.Unlock()

	if callID != "" {
		if err := c.signaler.EndCall(ctx, callID, reason, startedAt); err != nil {
			log.Printf("[call] end signal failed: %v", err)
		}
	}
	c.reset()
}

// HandleRemoteEnd, karşı tarafın veya sunucunun çağrıyı bitirmesini işler.
// Idempotent — bilinmeyen/bitmiş çağrı id'si için no-op.
func (c *Controller) HandleRemoteEnd(callID string) {
	c.mu.Lock()
	if c.state == StateIdle || (callID != "" && c.callID != "" && c.callID != callID) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.reset()
}

// endWithFailure, kurtarılamaz bir sinyalleşme/medya hatasında çağrıyı
// kapatır ve karşı tarafa bildirir.
func (c *Controller) endWithFailure(ctx context.Context, callID string) {
	c.mu.Lock()
	startedAt := c.startedAt
	c.mu.Unlock()

	if callID != "" {
		if err := c.signaler.EndCall(ctx, callID, models.CallEndReasonHangup, startedAt); err != nil {
			log.Printf("[call] failure end signal failed: %v", err)
		}
	}
	c.reset()
}

// reset, state machine'i Idle'a döndürür ve tüm kaynakları bırakır.
// Her terminal geçiş buradan geçer — idempotent.
func (c *Controller) reset() {
	c.mu.Lock()
	sess := c.session
	done := c.pumpDone
	c.state = StateIdle
	c.callID = ""
	c.peerID = ""
	c.video = false
	c.startedAt = time.Time{}
	c.session = nil
	c.pumpDone = nil
	c.earlyCands = nil
	c.bumpTimerLocked()
	c.mu.Unlock()

	if done != nil {
		close(done)
	}

	c.ringer.Stop()
	if sess != nil {
		sess.Teardown()
	}
	c.calls.ResetActive()
}

// ─── Oturum yönetimi ───

// ensureSessionLocked, aktif çağrı için peer oturumunu (ve event pump'ını)
// hazır eder. c.mu tutulmuş olmalıdır.
func (c *Controller) ensureSessionLocked() *peer.Session {
	if c.session == nil {
		c.session = c.sessions(c.video)
		done := make(chan struct{})
		c.pumpDone = done
		go c.pump(c.session, done)

		// Oturum öncesi tamponlanan adaylar sırayla devredilir; oturum
		// bunları remote description uygulanana kadar kendi kuyruğunda tutar.
		for _, cand := range c.earlyCands {
			c.session.AddRemoteCandidate(cand)
		}
		c.earlyCands = nil
	}
	return c.session
}

// pump, peer oturumunun event'lerini tüketir. Oturum değişince veya
// çağrı bitince done kapanır ve pump çıkar.
func (c *Controller) pump(sess *peer.Session, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev := <-sess.Events():
			c.handleSessionEvent(sess, ev)
		}
	}
}

func (c *Controller) handleSessionEvent(sess *peer.Session, ev peer.Event) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	callID := c.callID
	c.mu.Unlock()

	switch ev.Kind {
	case peer.EventLocalCandidate:
		if err := c.signaler.SendIceCandidate(context.Background(), callID, ev.Candidate); err != nil {
			log.Printf("[call] ICE candidate signal failed: %v", err)
		}

	case peer.EventRemoteTrack:
		c.markStarted()

	case peer.EventConnectionState:
		switch ev.State {
		case peer.ConnectionStateConnected:
			// Bağlantı kuruldu; medya track event'i started geçişini yapar.
		case peer.ConnectionStateFailed, peer.ConnectionStateClosed:
			// Teardown handler'ları önce söktüğü için buraya düşen "closed"
			// her zaman beklenmedik bir kopuştur.
			log.Printf("[call] peer connection %s, ending call %s", ev.State, callID)
			c.endWithFailure(context.Background(), callID)
		}
	}
}

// markStarted, ilk uzak medya geldiğinde çağrıyı started durumuna geçirir.
func (c *Controller) markStarted() {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateStarted
	c.startedAt = time.Now()
	c.bumpTimerLocked()
	c.mu.Unlock()

	c.ringer.Stop()
	c.calls.SetStarted()
}

// bumpTimerLocked, zamanlayıcı neslini ilerletir; eski zamanlayıcıları
// etkisizleştirir. c.mu tutulmuş olmalıdır.
func (c *Controller) bumpTimerLocked() uint64 {
	c.timerGen++
	return c.timerGen
}
