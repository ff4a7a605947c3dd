package peer

import (
	"fmt"
	"log"
	"sync"

	"github.com/alinouri1989/chatnest-core/pkg"
)

// eventBuffer, Session event kanalının tamponu. Tüketici yavaşsa event
// düşürülür ve loglanır — yayın tarafı asla bloklanmaz.
const eventBuffer = 32

// Session, tek bir çağrı için peer oturumu. Her çağrıda yeni bir Session
// oluşturulur; çağrı bitince Teardown ile kapatılır ve tekrar kullanılmaz.
type Session struct {
	factory ConnFactory
	media   MediaDevices
	video   bool

	mu          sync.Mutex
	conn        Conn
	stream      MediaStream
	videoSender TrackSender
	videoTrack  MediaTrack
	facing      CameraFacing

	// pending: remote description set edilmeden gelen ICE adayları.
	// Geliş sırası korunur; remote description set edilince aynı sırayla
	// flush edilir.
	pending   []ICECandidate
	remoteSet bool

	// initWait: non-nil ise bir initialization devam ediyor demektir.
	// Eşzamanlı caller'lar aynı sonucu bekler — ikinci bir medya edinimi
	// veya ikinci bir bağlantı ASLA başlatılmaz.
	initWait chan struct{}
	initErr  error

	closed bool

	events chan Event
}

// NewSession, verilen çağrı türü için yeni bir Session oluşturur.
func NewSession(factory ConnFactory, media MediaDevices, video bool) *Session {
	return &Session{
		factory: factory,
		media:   media,
		video:   video,
		facing:  CameraFacingUser,
		events:  make(chan Event, eventBuffer),
	}
}

// Events, oturum event kanalını döner. Kanal kapatılmaz — çağrı bitince
// tüketici okumayı bırakır.
func (s *Session) Events() <-chan Event {
	return s.events
}

// emit, event'i kanala bırakır; tampon doluysa düşürür.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		log.Printf("[peer] event buffer full, dropping event kind=%d", ev.Kind)
	}
}

// ensureConn, bağlantıyı ve lokal medyayı hazır eder (lazy, tek sefer).
// Eşzamanlı çağrılar tek bir initialization paylaşır.
func (s *Session) ensureConn() (Conn, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, pkg.ErrSessionClosed
	}
	if s.conn != nil {
		c := s.conn
		s.mu.Unlock()
		return c, nil
	}
	if s.initWait != nil {
		wait := s.initWait
		s.mu.Unlock()
		<-wait

		s.mu.Lock()
		c, err := s.conn, s.initErr
		s.mu.Unlock()
		if c == nil && err == nil {
			err = pkg.ErrSessionClosed
		}
		return c, err
	}

	wait := make(chan struct{})
	s.initWait = wait
	s.mu.Unlock()

	conn, stream, sender, track, err := s.initialize()

	s.mu.Lock()
	s.initWait = nil
	if err != nil {
		s.initErr = err
		s.mu.Unlock()
		close(wait)
		return nil, err
	}
	if s.closed {
		// Teardown init ile yarıştı: kaynaklar hemen bırakılır.
		s.mu.Unlock()
		close(wait)
		conn.Close()
		stream.Close()
		return nil, pkg.ErrSessionClosed
	}
	s.conn = conn
	s.stream = stream
	s.videoSender = sender
	s.videoTrack = track
	s.mu.Unlock()
	close(wait)
	return conn, nil
}

// initialize, medyayı edinir, bağlantıyı kurar ve track'leri ekler.
// Medya edinim hatası kalıcıdır: retry yapılmaz, hata olduğu gibi döner.
func (s *Session) initialize() (Conn, MediaStream, TrackSender, MediaTrack, error) {
	stream, err := s.media.GetUserMedia(s.video, s.facing)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: %v", pkg.ErrMediaUnavailable, err)
	}

	conn, err := s.factory()
	if err != nil {
		stream.Close()
		return nil, nil, nil, nil, err
	}

	conn.OnICECandidate(func(c ICECandidate) {
		s.emit(Event{Kind: EventLocalCandidate, Candidate: c})
	})
	conn.OnTrack(func(t RemoteTrack) {
		s.emit(Event{Kind: EventRemoteTrack, Track: t})
	})
	conn.OnConnectionStateChange(func(st ConnectionState) {
		s.emit(Event{Kind: EventConnectionState, State: st})
	})

	var videoSender TrackSender
	var videoTrack MediaTrack
	for _, track := range stream.Tracks() {
		sender, err := conn.AddTrack(track)
		if err != nil {
			conn.Close()
			stream.Close()
			return nil, nil, nil, nil, err
		}
		if track.Kind() == "video" {
			videoSender = sender
			videoTrack = track
		}
	}
	return conn, stream, videoSender, videoTrack, nil
}

// CreateAnswerFor, gelen offer'ı işler ve answer üretir (callee tarafı).
// Bağlantı ve medya gerekiyorsa burada hazırlanır.
func (s *Session) CreateAnswerFor(offer SessionDescription) (SessionDescription, error) {
	conn, err := s.ensureConn()
	if err != nil {
		return SessionDescription{}, err
	}
	if err := s.setRemote(conn, offer); err != nil {
		return SessionDescription{}, err
	}
	answer, err := conn.CreateAnswer()
	if err != nil {
		return SessionDescription{}, err
	}
	if err := conn.SetLocalDescription(answer); err != nil {
		return SessionDescription{}, err
	}
	return answer, nil
}

// CreateOffer, offer üretir (caller tarafı).
func (s *Session) CreateOffer() (SessionDescription, error) {
	conn, err := s.ensureConn()
	if err != nil {
		return SessionDescription{}, err
	}
	offer, err := conn.CreateOffer()
	if err != nil {
		return SessionDescription{}, err
	}
	if err := conn.SetLocalDescription(offer); err != nil {
		return SessionDescription{}, err
	}
	return offer, nil
}

// HandleRemoteDescription, karşı tarafın answer'ını işler (caller tarafı).
func (s *Session) HandleRemoteDescription(desc SessionDescription) error {
	conn, err := s.ensureConn()
	if err != nil {
		return err
	}
	return s.setRemote(conn, desc)
}

// setRemote, remote description'ı set eder ve bekleyen ICE adaylarını
// geliş sırasıyla flush eder. Tek bir adayın başarısızlığı loglanır ve
// kalan adayların eklenmesini engellemez.
func (s *Session) setRemote(conn Conn, desc SessionDescription) error {
	if err := conn.SetRemoteDescription(desc); err != nil {
		return err
	}

	s.mu.Lock()
	s.remoteSet = true
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, cand := range queued {
		if err := conn.AddICECandidate(cand); err != nil {
			log.Printf("[peer] queued ICE candidate rejected: %v", err)
		}
	}
	return nil
}

// AddRemoteCandidate, karşı taraftan gelen ICE adayını işler.
// Remote description henüz set edilmemişse aday kuyruğa alınır.
func (s *Session) AddRemoteCandidate(cand ICECandidate) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.remoteSet || s.conn == nil {
		s.pending = append(s.pending, cand)
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.mu.Unlock()

	if err := conn.AddICECandidate(cand); err != nil {
		log.Printf("[peer] ICE candidate rejected: %v", err)
	}
}

// SwitchCamera, video track'ini karşı yöndeki kamerayla değiştirir.
// Yeni kamera edinilemezse veya track değişimi başarısız olursa aktif
// yön DEĞİŞMEZ ve eski track akmaya devam eder.
func (s *Session) SwitchCamera() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return pkg.ErrSessionClosed
	}
	if !s.video || s.videoSender == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: no active video track", pkg.ErrBadRequest)
	}
	sender := s.videoSender
	oldFacing := s.facing
	s.mu.Unlock()

	newFacing := oldFacing.Toggle()
	newStream, err := s.media.GetUserMedia(true, newFacing)
	if err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrMediaUnavailable, err)
	}
	newTrack, ok := newStream.VideoTrack()
	if !ok {
		newStream.Close()
		return fmt.Errorf("%w: camera stream has no video track", pkg.ErrMediaUnavailable)
	}

	if err := sender.ReplaceTrack(newTrack); err != nil {
		newStream.Close()
		return err
	}

	s.mu.Lock()
	oldTrack := s.videoTrack
	s.videoTrack = newTrack
	s.facing = newFacing
	s.mu.Unlock()

	if oldTrack != nil {
		oldTrack.Stop()
	}
	return nil
}

// Facing, aktif kamera yönünü döner.
func (s *Session) Facing() CameraFacing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// Teardown, oturumu kapatır. Idempotent — kaç kez hangi sebeple
// çağrılırsa çağrılsın sonuç aynıdır. Önce handler'lar sökülür ki
// kapanışın tetiklediği event'ler dışarı sızmasın.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	stream := s.stream
	s.conn = nil
	s.stream = nil
	s.videoSender = nil
	s.videoTrack = nil
	s.pending = nil
	s.remoteSet = false
	s.mu.Unlock()

	if conn != nil {
		conn.OnICECandidate(nil)
		conn.OnTrack(nil)
		conn.OnConnectionStateChange(nil)
		if err := conn.Close(); err != nil {
			log.Printf("[peer] connection close: %v", err)
		}
	}
	if stream != nil {
		stream.Close()
	}
}
