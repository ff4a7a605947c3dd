// Package peer — Peer Session: tek bir uzak taraf ile WebRTC oturumunun
// yaşam döngüsü. SDP/ICE sinyalleşme payload'ları burada üretilir ve
// tüketilir; taşınması (hub invoke) caller'ın işidir.
package peer

// SessionDescription, SDP offer/answer payload'ı.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidate, tek bir ICE adayının sinyalleşme şekli.
type ICECandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// ConnectionState, peer bağlantısının durumu.
type ConnectionState string

const (
	ConnectionStateNew          ConnectionState = "new"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateFailed       ConnectionState = "failed"
	ConnectionStateClosed       ConnectionState = "closed"
)

// CameraFacing, aktif kameranın yönü.
type CameraFacing string

const (
	CameraFacingUser        CameraFacing = "user"
	CameraFacingEnvironment CameraFacing = "environment"
)

// Toggle, karşı yönü döner.
func (f CameraFacing) Toggle() CameraFacing {
	if f == CameraFacingEnvironment {
		return CameraFacingUser
	}
	return CameraFacingEnvironment
}

// Conn, altta yatan peer bağlantısının soyutlaması.
// Prod implementasyonu pion/webrtc üzerinedir (bkz. pion.go); testler
// sahte Conn enjekte eder.
type Conn interface {
	AddTrack(track MediaTrack) (TrackSender, error)
	CreateOffer() (SessionDescription, error)
	CreateAnswer() (SessionDescription, error)
	SetLocalDescription(desc SessionDescription) error
	SetRemoteDescription(desc SessionDescription) error
	AddICECandidate(candidate ICECandidate) error

	// Handler setter'ları: nil geçmek handler'ı söker. Teardown sırasında
	// önce handler'lar sökülür, sonra bağlantı kapatılır — kapanışın
	// tetiklediği state-change event'leri yeni oturuma sızmaz.
	OnICECandidate(fn func(ICECandidate))
	OnTrack(fn func(RemoteTrack))
	OnConnectionStateChange(fn func(ConnectionState))

	Close() error
}

// ConnFactory, yeni bir peer bağlantısı üretir.
type ConnFactory func() (Conn, error)

// MediaTrack, lokal bir medya track'i (mikrofon veya kamera).
type MediaTrack interface {
	Kind() string // "audio" | "video"
	ID() string
	Stop()
}

// MediaStream, birlikte alınan lokal track seti.
type MediaStream interface {
	Tracks() []MediaTrack
	VideoTrack() (MediaTrack, bool)
	Close()
}

// MediaDevices, lokal medya edinimi. Edinim başarısızlığı kalıcı kabul
// edilir — retry YAPILMAZ, hata caller'a döner ve çağrı kurulmaz.
type MediaDevices interface {
	GetUserMedia(video bool, facing CameraFacing) (MediaStream, error)
}

// TrackSender, bağlantıya eklenmiş bir track'in göndericisi.
// Kamera değişiminde track, sender üzerinden yerinde değiştirilir —
// yeniden müzakere gerekmez.
type TrackSender interface {
	ReplaceTrack(track MediaTrack) error
}

// RemoteTrack, karşı taraftan gelen medya track'i.
type RemoteTrack interface {
	Kind() string
	ID() string
}

// EventKind, Session'ın dışarı yayınladığı event türü.
type EventKind int

const (
	// EventLocalCandidate: lokal ICE adayı üretildi, karşı tarafa
	// sinyallenmeli.
	EventLocalCandidate EventKind = iota
	// EventRemoteTrack: karşı taraftan ilk medya geldi.
	EventRemoteTrack
	// EventConnectionState: bağlantı durumu değişti.
	EventConnectionState
)

// Event, Session event'i. Kind'a göre ilgili alan doludur.
type Event struct {
	Kind      EventKind
	Candidate ICECandidate
	Track     RemoteTrack
	State     ConnectionState
}
