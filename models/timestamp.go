// Package models — core domain modelleri.
//
// Bu paket, hub'dan gelen her türlü wire varyantını tek bir kanonik iç
// şekle indirger. Reducer'lar asla wire şekline göre branch etmez —
// normalizasyon tamamen sistem sınırında (bu pakette) yapılır.
package models

import (
	"strings"
	"time"
)

// Timestamp, sunucudan gelen tarih string'lerini toleranslı parse eden
// time.Time sarmalayıcısıdır.
//
// Sunucu her zaman RFC3339 göndermez — özellikle "online" sentinel'i
// "0001-01-01T00:00:00" zone bilgisi olmadan gelir. Standart time.Time
// unmarshal'ı bunu hata sayar; burada degrade edilir: parse edilemeyen
// değer zero time olur, asla hata dönmez (reducer'lar total fonksiyondur).
type Timestamp struct {
	time.Time
}

// timestampLayouts, denenen formatlar — sıralama önemli, en yaygın önce.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NewTimestamp, time.Time'dan Timestamp oluşturur.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp, string'i toleranslı parse eder. Başarısızlıkta zero döner.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}
		}
	}
	return Timestamp{}
}

// UnmarshalJSON, JSON string veya null'ı toleranslı parse eder.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(raw)
	return nil
}

// MarshalJSON, RFC3339 string üretir; zero time için sunucunun
// "online" sentinel formatı korunur.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`"0001-01-01T00:00:00"`), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}
