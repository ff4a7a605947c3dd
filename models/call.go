package models

// CallType, arama türünü temsil eder. Wire'da numeric gelir (0=voice, 1=video).
type CallType int

const (
	CallTypeVoice CallType = 0
	CallTypeVideo CallType = 1
)

// End-call reason kodları. EndCall invoke'unda sunucuya gönderilir.
const (
	CallEndReasonHangup    = 1 // Aktif katılımcı kapattı
	CallEndReasonCancelled = 3 // Yanıtlanmadan önce arayan iptal etti
	CallEndReasonNoAnswer  = 4 // Cevapsız / meşgul timeout'u
)

// Call, kanonik arama kaydı (arama geçmişi listesinin elemanı).
//
// Participants sıralı set'tir — index 0 her zaman aramayı başlatan taraftır.
type Call struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Type         CallType  `json:"type"`
	Status       int       `json:"status"`
	CallDuration string    `json:"callDuration"`
	CreatedDate  Timestamp `json:"createdDate"`
}

// Initiator, aramayı başlatan kullanıcıyı döner ("" = bilinmiyor).
func (c *Call) Initiator() string {
	if len(c.Participants) == 0 {
		return ""
	}
	return c.Participants[0]
}
