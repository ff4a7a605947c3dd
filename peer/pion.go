package peer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/alinouri1989/chatnest-core/pkg"
)

// NewPionConnFactory, pion/webrtc üzerinde çalışan ConnFactory döner.
func NewPionConnFactory(stunServers []string) ConnFactory {
	return func() (Conn, error) {
		cfg := webrtc.Configuration{}
		if len(stunServers) > 0 {
			cfg.ICEServers = []webrtc.ICEServer{{URLs: stunServers}}
		}
		pc, err := webrtc.NewPeerConnection(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: peer connection: %v", pkg.ErrInternal, err)
		}
		return &pionConn{pc: pc}, nil
	}
}

// pionConn, Conn'un pion implementasyonu.
type pionConn struct {
	pc *webrtc.PeerConnection
}

func (c *pionConn) AddTrack(track MediaTrack) (TrackSender, error) {
	pt, ok := track.(*pionTrack)
	if !ok {
		return nil, fmt.Errorf("%w: foreign media track", pkg.ErrBadRequest)
	}
	sender, err := c.pc.AddTrack(pt.local)
	if err != nil {
		return nil, err
	}
	return &pionSender{sender: sender}, nil
}

func (c *pionConn) CreateOffer() (SessionDescription, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return SessionDescription{}, err
	}
	return fromPionSDP(offer), nil
}

func (c *pionConn) CreateAnswer() (SessionDescription, error) {
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return SessionDescription{}, err
	}
	return fromPionSDP(answer), nil
}

func (c *pionConn) SetLocalDescription(desc SessionDescription) error {
	return c.pc.SetLocalDescription(toPionSDP(desc))
}

func (c *pionConn) SetRemoteDescription(desc SessionDescription) error {
	return c.pc.SetRemoteDescription(toPionSDP(desc))
}

func (c *pionConn) AddICECandidate(cand ICECandidate) error {
	return c.pc.AddICECandidate(webrtc.ICECandidateInit{
		Candidate:     cand.Candidate,
		SDPMid:        cand.SDPMid,
		SDPMLineIndex: cand.SDPMLineIndex,
	})
}

func (c *pionConn) OnICECandidate(fn func(ICECandidate)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if fn == nil || cand == nil {
			return
		}
		init := cand.ToJSON()
		fn(ICECandidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})
}

func (c *pionConn) OnTrack(fn func(RemoteTrack)) {
	c.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if fn == nil {
			return
		}
		fn(&pionRemoteTrack{track: track})
	})
}

func (c *pionConn) OnConnectionStateChange(fn func(ConnectionState)) {
	c.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		if fn == nil {
			return
		}
		fn(ConnectionState(state.String()))
	})
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}

func toPionSDP(desc SessionDescription) webrtc.SessionDescription {
	return webrtc.SessionDescription{
		Type: webrtc.NewSDPType(desc.Type),
		SDP:  desc.SDP,
	}
}

func fromPionSDP(desc webrtc.SessionDescription) SessionDescription {
	return SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}

// pionTrack, lokal track'in pion implementasyonu.
type pionTrack struct {
	local webrtc.TrackLocal
	stop  func()
}

func (t *pionTrack) Kind() string { return t.local.Kind().String() }
func (t *pionTrack) ID() string   { return t.local.ID() }
func (t *pionTrack) Stop() {
	if t.stop != nil {
		t.stop()
	}
}

// pionSender, TrackSender'ın pion implementasyonu.
type pionSender struct {
	sender *webrtc.RTPSender
}

func (s *pionSender) ReplaceTrack(track MediaTrack) error {
	pt, ok := track.(*pionTrack)
	if !ok {
		return fmt.Errorf("%w: foreign media track", pkg.ErrBadRequest)
	}
	return s.sender.ReplaceTrack(pt.local)
}

// pionRemoteTrack, uzak track'in pion implementasyonu.
type pionRemoteTrack struct {
	track *webrtc.TrackRemote
}

func (t *pionRemoteTrack) Kind() string { return t.track.Kind().String() }
func (t *pionRemoteTrack) ID() string   { return t.track.ID() }

// PionMediaDevices, MediaDevices'ın pion tabanlı implementasyonu.
// Track'ler sample-based local track olarak oluşturulur; medya kaynağı
// (mikrofon/kamera pipeline'ı) bu katmanın dışında track'lere beslenir.
type PionMediaDevices struct{}

func (PionMediaDevices) GetUserMedia(video bool, facing CameraFacing) (MediaStream, error) {
	streamID := uuid.NewString()

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio-"+uuid.NewString(), streamID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: audio track: %v", pkg.ErrMediaUnavailable, err)
	}

	tracks := []MediaTrack{&pionTrack{local: audio}}
	if video {
		cam, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			fmt.Sprintf("camera-%s-%s", facing, uuid.NewString()), streamID,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: video track: %v", pkg.ErrMediaUnavailable, err)
		}
		tracks = append(tracks, &pionTrack{local: cam})
	}
	return &pionStream{tracks: tracks}, nil
}

// pionStream, MediaStream'in pion implementasyonu.
type pionStream struct {
	tracks []MediaTrack
}

func (s *pionStream) Tracks() []MediaTrack { return s.tracks }

func (s *pionStream) VideoTrack() (MediaTrack, bool) {
	for _, t := range s.tracks {
		if t.Kind() == "video" {
			return t, true
		}
	}
	return nil, false
}

func (s *pionStream) Close() {
	for _, t := range s.tracks {
		t.Stop()
	}
}
