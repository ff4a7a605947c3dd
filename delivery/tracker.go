// Package delivery — Delivery Tracker: delivered/read makbuzlarının
// state-driven gönderimi.
//
// Tracker event-driven değil, state-driven çalışır: her chat state
// değişiminde store'un güncel hali taranır ve makbuz eksiği olan mesajlar
// için acknowledgement gönderilir. Böylece kaçan bir event kalıcı makbuz
// kaybına yol açmaz — eksik, bir sonraki taramada yakalanır.
package delivery

import (
	"context"
	"log"
	"sync"

	"github.com/alinouri1989/chatnest-core/models"
)

// Acknowledger, makbuz gönderen taraf (hub üzerinden sunucuya invoke).
type Acknowledger interface {
	DeliverMessage(ctx context.Context, chatType models.ChatType, chatID, messageID string) error
	ReadMessage(ctx context.Context, chatType models.ChatType, chatID, messageID string) error
}

// ChatSource, taranacak chat state'inin kaynağı.
type ChatSource interface {
	Individual() []models.Chat
	Group() []models.Chat
}

// Tracker, delivered/read makbuz eksiklerini tarayıp gönderir.
type Tracker struct {
	ack         Acknowledger
	chats       ChatSource
	localUserID string

	mu sync.Mutex
	// inflight: şu anda gönderilmekte olan makbuzların anahtarları.
	// Anahtar gönderim BAŞLAMADAN claim edilir ve sonuç ne olursa olsun
	// gönderim bitince release edilir — başarısız gönderim bir sonraki
	// taramada yeniden denenir, başarılı gönderim state güncellenince
	// zaten eligible olmaktan çıkar.
	inflight map[string]struct{}

	// focused: şu anda açık olan chat. Read makbuzu sadece açık chat'in
	// mesajları için gönderilir.
	focusedType models.ChatType
	focusedChat string
}

// NewTracker, yeni bir Tracker oluşturur.
func NewTracker(ack Acknowledger, chats ChatSource, localUserID string) *Tracker {
	return &Tracker{
		ack:         ack,
		chats:       chats,
		localUserID: localUserID,
		inflight:    make(map[string]struct{}),
	}
}

// SetFocused, açık chat'i set eder ("" = hiçbir chat açık değil).
func (t *Tracker) SetFocused(chatType models.ChatType, chatID string) {
	t.mu.Lock()
	t.focusedType = chatType
	t.focusedChat = chatID
	t.mu.Unlock()
}

// Recheck, store'un güncel halini tarar ve makbuz eksiği olan her mesaj
// için gönderim başlatır. Gönderimler asenkron yapılır; Recheck bloklamaz.
// Her state değişiminde çağrılması güvenlidir — in-flight set aynı makbuzun
// üst üste gönderimini engeller.
func (t *Tracker) Recheck(ctx context.Context) {
	t.scan(ctx, models.ChatTypeIndividual, t.chats.Individual())
	t.scan(ctx, models.ChatTypeGroup, t.chats.Group())
}

func (t *Tracker) scan(ctx context.Context, chatType models.ChatType, chats []models.Chat) {
	for i := range chats {
		chat := &chats[i]
		for j := range chat.Messages {
			msg := &chat.Messages[j]
			if msg.SenderID == "" || msg.SenderID == t.localUserID {
				continue
			}
			if msg.DeletedFor[t.localUserID] {
				continue
			}

			_, delivered := msg.Status.Delivered[t.localUserID]
			if !delivered {
				t.dispatch(ctx, "deliver", chatType, chat.ID, msg.ID)
			}

			if t.readEligible(chatType, chat.ID, msg, delivered) {
				t.dispatch(ctx, "read", chatType, chat.ID, msg.ID)
			}
		}
	}
}

// readEligible, read makbuzu gönderilmeli mi kararını verir.
//
// Individual chat'te read makbuzu delivered makbuzunun arkasından gider —
// delivered henüz işlenmemişse read bir sonraki taramayı bekler. Group
// chat'te bu sıralama aranmaz; read doğrudan gönderilir.
func (t *Tracker) readEligible(chatType models.ChatType, chatID string, msg *models.Message, delivered bool) bool {
	t.mu.Lock()
	focused := t.focusedChat == chatID && t.focusedType == chatType
	t.mu.Unlock()
	if !focused {
		return false
	}
	if _, read := msg.Status.Read[t.localUserID]; read {
		return false
	}
	if chatType == models.ChatTypeIndividual && !delivered {
		return false
	}
	return true
}

// dispatch, makbuzu in-flight set'e claim edip asenkron gönderir.
// Anahtar zaten claim edilmişse no-op.
func (t *Tracker) dispatch(ctx context.Context, kind string, chatType models.ChatType, chatID, messageID string) {
	key := kind + "|" + string(chatType) + "|" + chatID + "|" + messageID

	t.mu.Lock()
	if _, busy := t.inflight[key]; busy {
		t.mu.Unlock()
		return
	}
	t.inflight[key] = struct{}{}
	t.mu.Unlock()

	go func() {
		defer func() {
			t.mu.Lock()
			delete(t.inflight, key)
			t.mu.Unlock()
		}()

		var err error
		if kind == "deliver" {
			err = t.ack.DeliverMessage(ctx, chatType, chatID, messageID)
		} else {
			err = t.ack.ReadMessage(ctx, chatType, chatID, messageID)
		}
		if err != nil {
			log.Printf("[delivery] %s failed for message %s in chat %s: %v", kind, messageID, chatID, err)
		}
	}()
}
