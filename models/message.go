package models

import "strings"

// MessageType, mesaj içerik türünü temsil eden typed constant.
// Wire'da numeric gelir (0=text, 1=image, ...).
type MessageType int

const (
	MessageTypeText  MessageType = 0
	MessageTypeImage MessageType = 1
	MessageTypeVideo MessageType = 2
	MessageTypeAudio MessageType = 3
	MessageTypeFile  MessageType = 4
)

// Tombstone sabitleri.
//
// Sunucu bir mesaj silindiğinde yeni içerik yerine sabit bir Farsça
// "bu mesaj silindi" metni gönderir. Bu metin asla görünür mesaj olarak
// materialize edilmez — sadece ilgili id'nin lokal store'dan silinmesini
// tetikler. Keyword fallback'i, sunucu metni küçük farklarla değiştirse
// bile tombstone'un yakalanmasını sağlar.
const (
	TombstoneContent = "این پیام حذف شده است."

	tombstoneKeywordDelete  = "حذف"
	tombstoneKeywordMessage = "پیام"
)

// MessageStatus, bir mesajın kullanıcı bazlı acknowledgement durumu.
// Her map userID → timestamp taşır.
//
// Invariant (monotonic acknowledgement): read'de bulunan bir userID,
// delivered ve sent'te de bulunmalıdır. Bu invariant sunucu tarafında
// korunur; client reducer'ları map'leri olduğu gibi taşır.
type MessageStatus struct {
	Sent      map[string]Timestamp `json:"sent"`
	Delivered map[string]Timestamp `json:"delivered"`
	Read      map[string]Timestamp `json:"read"`
}

// NewMessageStatus, boş ama non-nil map'lerle status oluşturur.
func NewMessageStatus() MessageStatus {
	return MessageStatus{
		Sent:      make(map[string]Timestamp),
		Delivered: make(map[string]Timestamp),
		Read:      make(map[string]Timestamp),
	}
}

// SentTime, mesajın gönderim zamanını döner (sent map'indeki ilk değer).
// Mesaj sıralaması bu zamana göre yapılır — insertion order'a göre değil.
func (s MessageStatus) SentTime() Timestamp {
	for _, ts := range s.Sent {
		return ts
	}
	return Timestamp{}
}

// Message, kanonik iç mesaj modeli.
type Message struct {
	ID              string          `json:"id"`
	SenderID        string          `json:"senderId"`
	Type            MessageType     `json:"type"`
	Content         string          `json:"content"`
	Status          MessageStatus   `json:"status"`
	DeletedFor      map[string]bool `json:"deletedFor,omitempty"`
	ClientMessageID string          `json:"clientMessageId,omitempty"`
}

// IsDeletedForOthers, mesajın lokal kullanıcı DIŞINDA biri için silinmiş
// olup olmadığını döner. Bu durumda boş content ile gelen güncelleme
// lokal korunan içeriğin üzerine yazılmaz ("hide for others, preserve
// locally" semantiği).
func (m *Message) IsDeletedForOthers(localUserID string) bool {
	for id := range m.DeletedFor {
		if id != localUserID {
			return true
		}
	}
	return false
}

// isTombstoneContent, içeriğin silme tombstone'u olup olmadığını kontrol eder.
func isTombstoneContent(content string) bool {
	if content == TombstoneContent {
		return true
	}
	return strings.Contains(content, tombstoneKeywordDelete) &&
		strings.Contains(content, tombstoneKeywordMessage)
}
