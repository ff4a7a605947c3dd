package models

// ChatType, sohbet türünü temsil eder. Wire'da string olarak taşınır.
type ChatType string

const (
	ChatTypeIndividual ChatType = "Individual"
	ChatTypeGroup      ChatType = "Group"
)

// ArchiveMarker, bir kullanıcının chat'i arşivlediğini gösteren kayıt.
// archivedFor map'inde userID → ArchiveMarker olarak tutulur.
type ArchiveMarker struct {
	ArchivedDate Timestamp `json:"archivedDate,omitzero"`
}

// Chat, kanonik iç sohbet modeli (Individual veya Group).
//
// Invariant'lar:
// - Messages sıralaması mantıksal gönderim zamanına göredir, insertion
//   order'a göre değil; id bazlı duplicate yasaktır — reconciler id
//   çakışmasında append değil merge yapar.
// - Participants sıralı bir set'tir; Group chat için boş katılımcı
//   listesi geçersizdir ve oluşturma sırasında reddedilir.
type Chat struct {
	ID           string                   `json:"id"`
	Participants []string                 `json:"participants"`
	ArchivedFor  map[string]ArchiveMarker `json:"archivedFor"`
	CreatedDate  Timestamp                `json:"createdDate"`
	Messages     []Message                `json:"messages"`
}

// FindMessage, id'ye göre mesaj index'i döner (-1 = yok).
func (c *Chat) FindMessage(messageID string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

// IsArchivedFor, chat'in verilen kullanıcı için arşivli olup olmadığını döner.
func (c *Chat) IsArchivedFor(userID string) bool {
	_, ok := c.ArchivedFor[userID]
	return ok
}

// HasParticipant, kullanıcının katılımcı listesinde olup olmadığını döner.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
