package hubproto

import (
	"bytes"
	"encoding/json"
	"log"
	"unicode/utf8"
)

// previewLimit, loglanan bozuk frame önizlemesinin üst sınırı.
// Tam içerik asla loglanmaz — mesaj gövdeleri hassastır.
const previewLimit = 300

// Decoder, bir hub bağlantısının toleranslı frame parser'ıdır.
//
// Kontrat:
// - Well-formed payload'da standart decode yolu çalışır.
// - Herhangi bir frame bozuksa fallback devreye girer: payload record
//   separator'dan bölünür, her aday frame bağımsız parse edilir, parse
//   edilemeyen veya "type" alanı olmayan frame'ler atılır (frame uzunluğu
//   ve sınırlı bir önizleme loglanır), parse edilebilenler döner.
// - Tek bir bozuk frame, aynı payload'daki kardeş frame'lerin teslimini
//   asla engellemez.
// - Decode asla panic etmez ve hata dönmez — çağıran her zaman
//   (muhtemelen boş) bir frame listesi alır.
type Decoder struct {
	// name, log satırlarında bağlantıyı ayırt eden etiket ("chat" vb.).
	name string
}

// NewDecoder, verilen bağlantı adıyla decoder oluşturur.
func NewDecoder(name string) *Decoder {
	if name == "" {
		name = "hub"
	}
	return &Decoder{name: name}
}

// Decode, raw transport payload'ından frame listesi üretir.
func (d *Decoder) Decode(payload []byte) []Frame {
	payload = trimSeparators(payload)
	if len(payload) == 0 {
		return nil
	}

	parts := split(payload)

	// Strict yol: tüm frame'ler sorunsuz parse oluyorsa doğrudan dön.
	frames, ok := decodeStrict(parts)
	if ok {
		return frames
	}

	// Fallback yol: frame'leri tek tek dene, bozukları atla.
	return d.decodeTolerant(parts)
}

// split, payload'ı record separator'dan böler ve boş parçaları atar.
func split(payload []byte) [][]byte {
	raw := bytes.Split(payload, []byte{RecordSeparator})
	parts := raw[:0]
	for _, p := range raw {
		if len(bytes.TrimSpace(p)) > 0 {
			parts = append(parts, p)
		}
	}
	return parts
}

// decodeStrict, tüm parçaların geçerli olduğu mutlu yolu dener.
func decodeStrict(parts [][]byte) ([]Frame, bool) {
	frames := make([]Frame, 0, len(parts))
	for _, part := range parts {
		var f Frame
		if err := json.Unmarshal(part, &f); err != nil {
			return nil, false
		}
		if !hasNumericType(part) {
			return nil, false
		}
		frames = append(frames, f)
	}
	return frames, true
}

// decodeTolerant, her parçayı bağımsız parse eder; bozuklar loglanıp atlanır.
func (d *Decoder) decodeTolerant(parts [][]byte) []Frame {
	frames := make([]Frame, 0, len(parts))

	for _, part := range parts {
		var f Frame
		if err := json.Unmarshal(part, &f); err != nil {
			log.Printf("[hubproto:%s] ignored malformed frame: %v (len=%d, preview=%q)",
				d.name, err, len(part), preview(part))
			continue
		}
		if !hasNumericType(part) {
			log.Printf("[hubproto:%s] ignored frame with missing 'type' (len=%d, preview=%q)",
				d.name, len(part), preview(part))
			continue
		}
		frames = append(frames, f)
	}

	return frames
}

// hasNumericType, raw frame'de numeric bir "type" alanı olup olmadığını
// kontrol eder. Frame struct'ına unmarshal zero value ile ayırt edemez —
// "type" alanı hiç olmayan bir obje de Type=0 üretir.
func hasNumericType(part []byte) bool {
	var probe struct {
		Type *json.Number `json:"type"`
	}
	if err := json.Unmarshal(part, &probe); err != nil {
		return false
	}
	return probe.Type != nil
}

// preview, frame içeriğinin sınırlı ve UTF-8 güvenli bir önizlemesini döner.
func preview(part []byte) string {
	if len(part) <= previewLimit {
		return string(part)
	}
	cut := part[:previewLimit]
	// Çok byte'lı karakterin ortasından kesme.
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return string(cut)
}
