// Package store — Reconciliation Store: chat, contact, grup ve arama
// verisinin normalize, invariant koruyan lokal state'i.
//
// Tasarım kuralları:
// - State SADECE reducer entry point'leri üzerinden mutate edilir;
//   dışarıdan doğrudan mutation yoktur. Accessor'lar kopya döner.
// - Tüm reducer'lar defensively-defaulted input üzerinde total
//   fonksiyondur: hiçbir operasyon panic etmez veya hata dönmez —
//   geçersiz girdi en yakın güvenli boş state'e degrade edilir ve loglanır.
// - Wire şekli normalizasyonu models paketinde, sistem sınırında yapılır;
//   buradaki reducer'lar sadece kanonik şekilleri görür.
package store

import (
	"log"
	"sync"
	"time"

	"github.com/alinouri1989/chatnest-core/models"
)

// DecryptFunc, text mesaj içeriğini chat anahtarıyla çözen opak fonksiyon.
// nil verilirse içerik olduğu gibi bırakılır (test kolaylığı).
type DecryptFunc func(content, chatID string) string

// ChatSnapshot, initial-chats snapshot'ının kanonik şekli:
// chat türü → chatID → chat verisi.
type ChatSnapshot struct {
	Individual map[string]*models.WireChat
	Group      map[string]*models.WireChat
}

// ChatStore, Individual ve Group sohbetlerin reconciliation store'u.
type ChatStore struct {
	mu          sync.RWMutex
	individual  []models.Chat
	group       []models.Chat
	initialized bool

	decrypt DecryptFunc

	// listeners: her mutasyondan sonra çağrılan change callback'leri.
	// Delivery tracker'ın poll-on-state-change tetiklemesi buradan beslenir.
	listeners []func()
}

// NewChatStore, yeni bir ChatStore oluşturur.
func NewChatStore(decrypt DecryptFunc) *ChatStore {
	return &ChatStore{decrypt: decrypt}
}

// OnChange, her mutating reducer'dan sonra çağrılacak callback kaydeder.
// Start öncesi kaydedilmelidir — kayıt thread-safe değildir.
func (s *ChatStore) OnChange(fn func()) {
	s.listeners = append(s.listeners, fn)
}

// notify, change listener'ları lock dışında çağırır.
func (s *ChatStore) notify() {
	for _, fn := range s.listeners {
		fn()
	}
}

// decryptContent, text içeriği çözer; decrypt fonksiyonu yoksa içerik
// aynen kalır. Tombstone içerikleri asla decrypt edilmez.
func (s *ChatStore) decryptContent(msg *models.Message, chatID string) {
	if s.decrypt == nil || msg.Type != models.MessageTypeText || msg.Content == "" {
		return
	}
	msg.Content = s.decrypt(msg.Content, chatID)
}

// ─── Reducer'lar ───

// Initialize, initial-chats snapshot'ını sıralı chat listesi modeline dönüştürür.
//
// Eksik/nil per-chat verisi defensive işlenir: hata yerine boş ama geçerli
// bir chat üretilir. initialized flag'i HER DURUMDA true olur — UI,
// snapshot bozuk bile olsa sonsuza kadar beklememelidir.
func (s *ChatStore) Initialize(snapshot ChatSnapshot) {
	s.mu.Lock()
	s.individual = transformChats(snapshot.Individual, s.decrypt)
	s.group = transformChats(snapshot.Group, s.decrypt)
	s.initialized = true
	s.mu.Unlock()

	s.notify()
}

// transformChats, chatID → wire map'ini kanonik chat listesine çevirir.
func transformChats(chats map[string]*models.WireChat, decrypt DecryptFunc) []models.Chat {
	if len(chats) == 0 {
		return nil
	}

	out := make([]models.Chat, 0, len(chats))
	for chatID, wire := range chats {
		if wire == nil {
			log.Printf("[store] nil chat data for chat %s, defaulting to empty chat", chatID)
			out = append(out, emptyChat(chatID))
			continue
		}
		out = append(out, transformChat(chatID, wire, decrypt))
	}
	return out
}

// emptyChat, boş ama geçerli bir chat shell'i döner.
func emptyChat(chatID string) models.Chat {
	return models.Chat{
		ID:           chatID,
		Participants: []string{},
		ArchivedFor:  map[string]models.ArchiveMarker{},
		CreatedDate:  models.NewTimestamp(time.Now()),
		Messages:     []models.Message{},
	}
}

// transformChat, tek bir wire chat'i kanonik şekle çevirir.
// Tombstone mesajlar atılır; nil mesaj verisi boş placeholder olur.
func transformChat(chatID string, wire *models.WireChat, decrypt DecryptFunc) models.Chat {
	chat := models.Chat{
		ID:           chatID,
		Participants: wire.ParticipantIDs(),
		ArchivedFor:  wire.ArchivedFor,
		CreatedDate:  wire.CreatedDate,
		Messages:     make([]models.Message, 0, len(wire.Messages)),
	}
	if chat.Participants == nil {
		chat.Participants = []string{}
	}
	if chat.ArchivedFor == nil {
		chat.ArchivedFor = map[string]models.ArchiveMarker{}
	}
	if chat.CreatedDate.IsZero() {
		chat.CreatedDate = models.NewTimestamp(time.Now())
	}

	for messageID, wm := range wire.Messages {
		if wm == nil {
			chat.Messages = append(chat.Messages, models.Message{
				ID:     messageID,
				Status: models.NewMessageStatus(),
			})
			continue
		}
		if wm.IsTombstone() {
			continue
		}
		msg := wm.ToMessage(messageID)
		if decrypt != nil && msg.Type == models.MessageTypeText && msg.Content != "" {
			msg.Content = decrypt(msg.Content, chatID)
		}
		chat.Messages = append(chat.Messages, msg)
	}

	sortMessagesBySentTime(chat.Messages)
	return chat
}

// sortMessagesBySentTime, mesajları gönderim zamanına göre stabil sıralar.
// Eşit zamanlarda id sıralaması belirleyicidir — sıralama idempotent'tir.
func sortMessagesBySentTime(messages []models.Message) {
	if len(messages) < 2 {
		return
	}
	// Insertion sort — listeler zaten büyük oranda sıralı gelir.
	for i := 1; i < len(messages); i++ {
		for j := i; j > 0 && messageBefore(messages[j], messages[j-1]); j-- {
			messages[j], messages[j-1] = messages[j-1], messages[j]
		}
	}
}

func messageBefore(a, b models.Message) bool {
	at, bt := a.Status.SentTime(), b.Status.SentTime()
	if !at.Equal(bt.Time) {
		return at.Before(bt.Time)
	}
	return a.ID < b.ID
}

// AddIndividualChat, yeni bir individual chat ekler.
// Aynı id ile chat zaten varsa işlem no-op'tur (idempotent).
func (s *ChatStore) AddIndividualChat(chatID string, wire *models.WireChat) bool {
	if chatID == "" {
		return false
	}

	s.mu.Lock()
	if findChat(s.individual, chatID) >= 0 {
		s.mu.Unlock()
		return false
	}
	if wire == nil {
		wire = &models.WireChat{}
	}
	s.individual = append(s.individual, transformChat(chatID, wire, s.decrypt))
	s.mu.Unlock()

	s.notify()
	return true
}

// AddGroupChat, yeni bir group chat ekler.
//
// Çözümlenebilir katılımcısı olmayan bir group creation event'i düşürülür —
// sıfır katılımcılı grup geçersizdir. Var olan id için no-op (idempotent).
func (s *ChatStore) AddGroupChat(chatID string, wire *models.WireChat) bool {
	if chatID == "" || wire == nil {
		return false
	}
	if len(wire.ParticipantIDs()) == 0 {
		log.Printf("[store] dropping group chat %s with no resolvable participants", chatID)
		return false
	}

	s.mu.Lock()
	if findChat(s.group, chatID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.group = append(s.group, transformChat(chatID, wire, s.decrypt))
	s.mu.Unlock()

	s.notify()
	return true
}

// AddMessage, bir mesaj event'ini ilgili chat'e reconcile eder.
//
// Akış:
//  1. Mesaj silme tombstone'u ise eşleşen id kaldırılır ve durulur
//     (var olmayan id için no-op; iki kez uygulamak bir kezle aynıdır).
//  2. Id çakışması varsa gelen alanlar mevcut mesajın üzerine merge edilir —
//     TEK İSTİSNA: başkaları-için-silinmiş bir mesaja boş content ile gelen
//     güncelleme, lokal korunan içeriğin üzerine yazılmaz.
//  3. Aksi halde mesaj append edilir.
//  4. Chat henüz yoksa minimal bir chat shell'i sentezlenir (boş katılımcı
//     listesi, şimdiki createdDate) — kanonik katılımcı listesi ve metadata
//     ayrı event'le sonradan gelir ve düzeltir.
func (s *ChatStore) AddMessage(chatType models.ChatType, chatID, messageID string, wire *models.WireMessage, localUserID string) {
	if chatID == "" || messageID == "" {
		return
	}

	s.mu.Lock()
	chats := s.chatsFor(chatType)
	idx := findChat(*chats, chatID)
	tombstone := wire.IsTombstone()

	if idx < 0 {
		if tombstone {
			s.mu.Unlock()
			return
		}
		shell := emptyChat(chatID)
		msg := wire.ToMessage(messageID)
		s.decryptContent(&msg, chatID)
		shell.Messages = append(shell.Messages, msg)
		*chats = append(*chats, shell)
		s.mu.Unlock()
		s.notify()
		return
	}

	chat := &(*chats)[idx]

	if tombstone {
		removed := removeMessage(chat, messageID)
		s.mu.Unlock()
		if removed {
			s.notify()
		}
		return
	}

	if msgIdx := chat.FindMessage(messageID); msgIdx >= 0 {
		existing := &chat.Messages[msgIdx]

		// "Hide for others, preserve locally": gelen payload başkası için
		// silinmişse ve content'i boş string ise lokal içerik korunur.
		if wire != nil && deletedForOthers(wire.DeletedFor, localUserID) &&
			wire.Content != nil && *wire.Content == "" {
			s.mu.Unlock()
			return
		}

		wire.ApplyTo(existing)
		s.decryptContent(existing, chatID)
	} else {
		msg := wire.ToMessage(messageID)
		s.decryptContent(&msg, chatID)
		chat.Messages = append(chat.Messages, msg)
	}
	s.mu.Unlock()

	s.notify()
}

// deletedForOthers, deletedFor map'inde lokal kullanıcı dışında bir id
// olup olmadığını döner.
func deletedForOthers(deletedFor map[string]bool, localUserID string) bool {
	for id := range deletedFor {
		if id != localUserID {
			return true
		}
	}
	return false
}

// removeMessage, chat'ten id'ye göre mesaj siler. Silindi mi döner.
func removeMessage(chat *models.Chat, messageID string) bool {
	idx := chat.FindMessage(messageID)
	if idx < 0 {
		return false
	}
	chat.Messages = append(chat.Messages[:idx], chat.Messages[idx+1:]...)
	return true
}

// Archive, verilen chat için kullanıcı bazlı arşiv marker'larını merge eder.
func (s *ChatStore) Archive(chatID string, markers map[string]models.ArchiveMarker) {
	if chatID == "" || len(markers) == 0 {
		return
	}

	s.mu.Lock()
	idx := findChat(s.individual, chatID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	chat := &s.individual[idx]
	if chat.ArchivedFor == nil {
		chat.ArchivedFor = make(map[string]models.ArchiveMarker, len(markers))
	}
	for userID, marker := range markers {
		chat.ArchivedFor[userID] = marker
	}
	s.mu.Unlock()

	s.notify()
}

// Unarchive, verilen chat'lerin arşiv map'ini BÜTÜNÜYLE temizler.
//
// Dikkat: arşivleme kullanıcı bazlı merge iken unarchive per-user silme
// değil komple reset'tir. Gözlemlenen sunucu wire semantiği budur —
// asimetri bilinçli olarak korunur (bkz. DESIGN.md).
func (s *ChatStore) Unarchive(chatIDs ...string) {
	if len(chatIDs) == 0 {
		return
	}

	s.mu.Lock()
	changed := false
	for _, chatID := range chatIDs {
		if idx := findChat(s.individual, chatID); idx >= 0 {
			s.individual[idx].ArchivedFor = map[string]models.ArchiveMarker{}
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// ClearChat, individual chat'in mesaj geçmişini boşaltır (chat kalır).
func (s *ChatStore) ClearChat(chatID string) {
	s.mu.Lock()
	idx := findChat(s.individual, chatID)
	if idx >= 0 {
		s.individual[idx].Messages = []models.Message{}
	}
	s.mu.Unlock()

	if idx >= 0 {
		s.notify()
	}
}

// RemoveGroupChat, group chat'i listeden kaldırır ("gruptan çıkarıldın" akışı).
func (s *ChatStore) RemoveGroupChat(groupID string) {
	s.mu.Lock()
	idx := findChat(s.group, groupID)
	if idx >= 0 {
		s.group = append(s.group[:idx], s.group[idx+1:]...)
	}
	s.mu.Unlock()

	if idx >= 0 {
		s.notify()
	}
}

// Reset, tüm chat state'ini ve initialized flag'ini sıfırlar (logout akışı).
func (s *ChatStore) Reset() {
	s.mu.Lock()
	s.individual = nil
	s.group = nil
	s.initialized = false
	s.mu.Unlock()

	s.notify()
}

// ForceInitialized, initialized flag'ini set eder.
// Snapshot hiç gelmese bile UI'ın beklemede kalmaması için kullanılır.
func (s *ChatStore) ForceInitialized() {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
}

// ─── Accessor'lar ───

// chatsFor, türe göre ilgili slice'ın pointer'ını döner. Lock altında çağrılır.
func (s *ChatStore) chatsFor(chatType models.ChatType) *[]models.Chat {
	if chatType == models.ChatTypeGroup {
		return &s.group
	}
	return &s.individual
}

// findChat, id'ye göre chat index'i döner (-1 = yok).
func findChat(chats []models.Chat, chatID string) int {
	for i := range chats {
		if chats[i].ID == chatID {
			return i
		}
	}
	return -1
}

// Individual, individual chat listesinin kopyasını döner.
func (s *ChatStore) Individual() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChats(s.individual)
}

// Group, group chat listesinin kopyasını döner.
func (s *ChatStore) Group() []models.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChats(s.group)
}

// copyChats, mesaj slice'ları dahil kopya üretir — accessor'dan dönen
// veri üzerinde okuma, store mutasyonlarıyla yarışmaz.
func copyChats(chats []models.Chat) []models.Chat {
	if chats == nil {
		return nil
	}
	out := make([]models.Chat, len(chats))
	copy(out, chats)
	for i := range out {
		msgs := make([]models.Message, len(out[i].Messages))
		copy(msgs, out[i].Messages)
		out[i].Messages = msgs
	}
	return out
}

// ChatByID, türe ve id'ye göre chat'in kopyasını döner.
func (s *ChatStore) ChatByID(chatType models.ChatType, chatID string) (models.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := s.individual
	if chatType == models.ChatTypeGroup {
		chats = s.group
	}
	idx := findChat(chats, chatID)
	if idx < 0 {
		return models.Chat{}, false
	}
	copied := copyChats(chats[idx : idx+1])
	return copied[0], true
}

// FindIndividualChatID, iki kullanıcı arasındaki individual chat'in
// id'sini döner ("" = yok).
func (s *ChatStore) FindIndividualChatID(authID, receiverID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.individual {
		chat := &s.individual[i]
		if chat.HasParticipant(authID) && chat.HasParticipant(receiverID) {
			return chat.ID
		}
	}
	return ""
}

// IsInitialized, initial snapshot'ın işlenip işlenmediğini döner.
func (s *ChatStore) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}
