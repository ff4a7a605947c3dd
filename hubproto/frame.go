// Package hubproto, hub wire protokolünün frame codec'idir.
//
// Protokol SignalR JSON hub protokolüyle uyumludur:
// - Her frame bir JSON objesidir, frame'ler 0x1E (record separator)
//   byte'ı ile ayrılır. Tek bir transport payload'ı birden fazla frame
//   taşıyabilir.
// - Her frame numeric bir "type" alanı taşır (1=invocation, 3=completion,
//   6=ping, 7=close).
// - Bağlantı kurulduğunda client bir handshake frame'i gönderir
//   ({"protocol":"json","version":1}), sunucu boş obje ile yanıtlar.
package hubproto

import "encoding/json"

// RecordSeparator, frame'leri ayıran byte (ASCII RS, 0x1E).
const RecordSeparator = 0x1E

// Frame tipleri.
const (
	FrameTypeInvocation = 1
	FrameTypeCompletion = 3
	FrameTypePing       = 6
	FrameTypeClose      = 7
)

// Frame, hub wire protokolündeki tek bir mesajı temsil eder.
//
// Invocation (type 1): Target = event adı, Arguments = payload'lar.
// Completion (type 3): bir invoke'un sonucu — InvocationID ile eşleşir.
// Ping (type 6): keepalive, iki yönlü.
// Close (type 7): sunucu bağlantıyı kapatıyor; AllowReconnect yeniden
// bağlanmanın anlamlı olup olmadığını söyler.
type Frame struct {
	Type           int               `json:"type"`
	InvocationID   string            `json:"invocationId,omitempty"`
	Target         string            `json:"target,omitempty"`
	Arguments      []json.RawMessage `json:"arguments,omitempty"`
	Result         json.RawMessage   `json:"result,omitempty"`
	Error          string            `json:"error,omitempty"`
	AllowReconnect bool              `json:"allowReconnect,omitempty"`
}

// Encode, frame'i record separator ile sonlanan wire formatına çevirir.
func Encode(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return append(data, RecordSeparator), nil
}

// EncodePing, hazır ping frame'i döner.
func EncodePing() []byte {
	return []byte{'{', '"', 't', 'y', 'p', 'e', '"', ':', '6', '}', RecordSeparator}
}

// EncodeHandshake, bağlantı açılışında gönderilen handshake frame'ini döner.
func EncodeHandshake() []byte {
	return append([]byte(`{"protocol":"json","version":1}`), RecordSeparator)
}

// handshakeResponse, sunucunun handshake yanıtı. Başarıda boş obje,
// hatada error alanı dolu gelir.
type handshakeResponse struct {
	Error string `json:"error"`
}

// ParseHandshakeResponse, handshake yanıtını doğrular.
// Dönen değerler: (hata mesajı, ok). ok=false ise handshake reddedilmiştir
// veya yanıt parse edilememiştir.
func ParseHandshakeResponse(payload []byte) (string, bool) {
	payload = trimSeparators(payload)
	var resp handshakeResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "malformed handshake response", false
	}
	if resp.Error != "" {
		return resp.Error, false
	}
	return "", true
}

// trimSeparators, payload'ın sonundaki record separator'ları temizler.
func trimSeparators(payload []byte) []byte {
	for len(payload) > 0 && payload[len(payload)-1] == RecordSeparator {
		payload = payload[:len(payload)-1]
	}
	return payload
}
