package session

import (
	"encoding/json"
	"log"

	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/store"
)

// decodeArg, event argümanını decode eder. Bozuk payload loglanır ve
// false döner — handler'lar hata fırlatmaz, event'i atlar.
func decodeArg(name string, args []json.RawMessage, v any) bool {
	if len(args) == 0 {
		log.Printf("[session] %s arrived with no payload, ignoring", name)
		return false
	}
	if err := json.Unmarshal(args[0], v); err != nil {
		log.Printf("[session] malformed %s payload, ignoring: %v", name, err)
		return false
	}
	return true
}

// initialChatsPayload, initial-chats snapshot'ının wire şekli.
type initialChatsPayload struct {
	Individual map[string]*models.WireChat `json:"individual"`
	Group      map[string]*models.WireChat `json:"group"`
}

// messagesPayload, mesaj event'lerinin wire şekli:
// chat türü → chatID → messageID → mesaj.
type messagesPayload struct {
	Individual map[string]map[string]*models.WireMessage `json:"individual"`
	Group      map[string]map[string]*models.WireMessage `json:"group"`
}

// archivePayload, arşiv event'lerinin wire şekli.
type archivePayload struct {
	Individual map[string]map[string]models.ArchiveMarker `json:"individual"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (c *Client) registerChatHandlers() {
	c.chatHub.On("ReceiveInitialChats", func(args []json.RawMessage) {
		var payload initialChatsPayload
		if !decodeArg("ReceiveInitialChats", args, &payload) {
			// Snapshot bozuk olsa bile initialized flag set edilir —
			// UI sonsuza kadar beklememelidir.
			c.stores.Chats.Initialize(store.ChatSnapshot{})
			return
		}
		c.stores.Chats.Initialize(store.ChatSnapshot{
			Individual: payload.Individual,
			Group:      payload.Group,
		})
	})

	c.chatHub.On("ReceiveInitialRecipientChatProfiles", func(args []json.RawMessage) {
		var profiles map[string]models.WireContactProfile
		if decodeArg("ReceiveInitialRecipientChatProfiles", args, &profiles) {
			c.stores.Contacts.Initialize(profiles)
		}
	})

	c.chatHub.On("ReceiveInitialGroupProfiles", func(args []json.RawMessage) {
		var profiles map[string]store.WireGroupProfile
		if decodeArg("ReceiveInitialGroupProfiles", args, &profiles) {
			c.stores.Groups.Initialize(profiles)
		}
	})

	c.chatHub.On("ReceiveGetMessages", func(args []json.RawMessage) {
		var payload messagesPayload
		if !decodeArg("ReceiveGetMessages", args, &payload) {
			return
		}
		c.applyIncomingMessages(models.ChatTypeIndividual, payload.Individual)
		c.applyIncomingMessages(models.ChatTypeGroup, payload.Group)
	})

	c.chatHub.On("ReceiveRecipientProfiles", func(args []json.RawMessage) {
		var profiles map[string]models.WireContactProfile
		if decodeArg("ReceiveRecipientProfiles", args, &profiles) {
			c.stores.Contacts.Merge(profiles)
		}
	})

	c.chatHub.On("ReceiveCreateChat", func(args []json.RawMessage) {
		var payload initialChatsPayload
		if !decodeArg("ReceiveCreateChat", args, &payload) {
			return
		}

		for chatID, wire := range payload.Individual {
			if !c.stores.Chats.AddIndividualChat(chatID, wire) {
				continue
			}
			// Karşı tarafın profili henüz yoksa placeholder açılır;
			// gerçek profil ReceiveRecipientProfiles ile gelir.
			if wire != nil {
				for _, id := range wire.ParticipantIDs() {
					if id != c.userID {
						c.ensureContact(id)
					}
				}
			}
		}
		for chatID, wire := range payload.Group {
			c.stores.Chats.AddGroupChat(chatID, wire)
		}
	})

	c.chatHub.On("ReceiveArchiveChat", func(args []json.RawMessage) {
		var payload archivePayload
		if !decodeArg("ReceiveArchiveChat", args, &payload) {
			return
		}
		for chatID, markers := range payload.Individual {
			c.stores.Chats.Archive(chatID, markers)
		}
	})

	c.chatHub.On("ReceiveUnarchiveChat", func(args []json.RawMessage) {
		var payload archivePayload
		if !decodeArg("ReceiveUnarchiveChat", args, &payload) {
			return
		}
		for chatID := range payload.Individual {
			c.stores.Chats.Unarchive(chatID)
		}
	})

	c.chatHub.On("ReceiveClearChat", func(args []json.RawMessage) {
		var chatID string
		if decodeArg("ReceiveClearChat", args, &chatID) {
			c.stores.Chats.ClearChat(chatID)
		}
	})

	for _, event := range []string{"UnexpectedError", "ValidationError", "ConnectionError", "Error"} {
		c.chatHub.On(event, func(args []json.RawMessage) {
			var payload errorPayload
			if decodeArg("chat error", args, &payload) {
				c.reportError("chat", payload.Message)
			}
		})
	}
}

// applyIncomingMessages, mesaj event'lerini store'a reconcile eder ve
// yan etkilerini işletir: gönderen için profil placeholder'ı, arşivden
// otomatik çıkarma ve pending upload eşleşmesi.
func (c *Client) applyIncomingMessages(chatType models.ChatType, chats map[string]map[string]*models.WireMessage) {
	for chatID, messages := range chats {
		for messageID, wire := range messages {
			if wire != nil && chatType == models.ChatTypeIndividual {
				if wire.SenderID != nil && *wire.SenderID != "" && *wire.SenderID != c.userID {
					c.ensureContact(*wire.SenderID)
					c.autoUnarchive(chatID)
				}
			}
			if wire != nil && wire.ClientMessageID != nil && *wire.ClientMessageID != "" {
				c.uploads.Resolve(*wire.ClientMessageID)
			}
			c.stores.Chats.AddMessage(chatType, chatID, messageID, wire, c.userID)
		}
	}
}

// ensureContact, kullanıcı için boş bir profil kaydı açar (varsa no-op).
func (c *Client) ensureContact(userID string) {
	c.stores.Contacts.Merge(map[string]models.WireContactProfile{userID: {}})
}

// autoUnarchive, arşivli bir chat'e karşı taraftan mesaj gelince chat'i
// hem lokalde hem sunucuda arşivden çıkarır — gelen mesaj ana listede
// hemen görünür olmalıdır. Sunucu invoke'u başarısız olsa da lokal
// durum geri alınmaz; bir sonraki state sync düzeltir.
func (c *Client) autoUnarchive(chatID string) {
	chat, ok := c.stores.Chats.ChatByID(models.ChatTypeIndividual, chatID)
	if !ok || !chat.IsArchivedFor(c.userID) {
		return
	}

	c.stores.Chats.Unarchive(chatID)
	if err := c.chatHub.Send("UnarchiveChat", chatID); err != nil {
		log.Printf("[session] auto-unarchive invoke failed for chat %s: %v", chatID, err)
	}
}
