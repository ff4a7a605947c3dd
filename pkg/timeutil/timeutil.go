// Package timeutil — presence ve tarih sunum yardımcıları.
//
// Buradaki fonksiyonlar stateless ve idempotent'tir: store state'ini
// DEĞİŞTİRMEZ, sadece render için türetilmiş değer üretir.
package timeutil

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alinouri1989/chatnest-core/models"
)

// Ürün metinleri Farsça'dır; sunucu tarafıyla aynı dil paketi kullanılır.
const (
	labelOnline        = "آنلاین"
	labelToday         = "امروز"
	labelYesterday     = "دیروز"
	labelSavedMessages = "پیام‌های ذخیره‌شده"

	labelHour   = "ساعت"
	labelMinute = "دقیقه"
	labelSecond = "ثانیه"
)

// FormatLastConnection, kullanıcının son görülme etiketini üretir.
// Zero timestamp online sentinel'idir.
func FormatLastConnection(ts models.Timestamp, now time.Time) string {
	if ts.IsZero() {
		return labelOnline
	}
	t := ts.Time
	switch {
	case sameDay(t, now):
		return labelToday + " " + t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return labelYesterday + " " + t.Format("15:04")
	default:
		return t.Format("2006/01/02")
	}
}

// FormatLastMessageDate, chat listesindeki son mesaj zamanı etiketi.
// Bugünse saat, dünse "دیروز", daha eskiyse tarih gösterilir.
func FormatLastMessageDate(ts models.Timestamp, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	t := ts.Time
	switch {
	case sameDay(t, now):
		return t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return labelYesterday
	default:
		return t.Format("2006/01/02")
	}
}

// DayLabel, mesaj grup başlığı etiketi ("امروز", "دیروز" veya tarih).
func DayLabel(ts models.Timestamp, now time.Time) string {
	t := ts.Time
	switch {
	case sameDay(t, now):
		return labelToday
	case sameDay(t, now.AddDate(0, 0, -1)):
		return labelYesterday
	default:
		return t.Format("2006/01/02")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MessageGroup, aynı güne ait mesajların render grubu.
type MessageGroup struct {
	Label    string
	Messages []models.Message
}

// GroupMessagesByDate, mesajları gönderim zamanına göre sıralar ve takvim
// gününe göre gruplar. Girdi mutate edilmez; aynı girdi için aynı çıktı
// üretilir (eşit zamanlar id ile kırılır).
func GroupMessagesByDate(messages []models.Message, now time.Time) []MessageGroup {
	if len(messages) == 0 {
		return nil
	}

	sorted := make([]models.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		it, jt := sorted[i].Status.SentTime(), sorted[j].Status.SentTime()
		if !it.Equal(jt.Time) {
			return it.Before(jt.Time)
		}
		return sorted[i].ID < sorted[j].ID
	})

	var groups []MessageGroup
	for _, msg := range sorted {
		label := DayLabel(msg.Status.SentTime(), now)
		if len(groups) == 0 || groups[len(groups)-1].Label != label {
			groups = append(groups, MessageGroup{Label: label})
		}
		last := &groups[len(groups)-1]
		last.Messages = append(last.Messages, msg)
	}
	return groups
}

// FormatCallDuration, çağrı süresini okunur etikete çevirir.
// Sıfır bileşenler atlanır; sıfır süre "0 ثانیه" döner.
func FormatCallDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", hours, labelHour))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, labelMinute))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d %s", seconds, labelSecond))
	}
	return strings.Join(parts, " ")
}

// ChatDisplayLabel, individual chat'in liste etiketini üretir.
// Kullanıcının kendisiyle olan chat'i "kaydedilmiş mesajlar" olarak görünür.
func ChatDisplayLabel(participants []string, localUserID string, displayName func(userID string) string) string {
	other := ""
	for _, id := range participants {
		if id != localUserID {
			other = id
			break
		}
	}
	if other == "" {
		return labelSavedMessages
	}
	if displayName != nil {
		if name := displayName(other); name != "" {
			return name
		}
	}
	return other
}
