package session

import (
	"encoding/json"
	"log"

	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/store"
)

func (c *Client) registerNotificationHandlers() {
	// Profil güncellemeleri tek havuza merge edilir; chat listesi, grup
	// üyeleri ve çağrı katılımcıları aynı havuzdan okur.
	c.notifHub.On("ReceiveRecipientProfiles", func(args []json.RawMessage) {
		var profiles map[string]models.WireContactProfile
		if decodeArg("ReceiveRecipientProfiles", args, &profiles) {
			c.stores.Contacts.Merge(profiles)
		}
	})

	c.notifHub.On("ReceiveNewGroupProfiles", func(args []json.RawMessage) {
		var profiles map[string]store.WireGroupProfile
		if !decodeArg("ReceiveNewGroupProfiles", args, &profiles) {
			return
		}
		c.stores.Groups.Initialize(profiles)

		// Yeni grup profili geldi; chat tarafında da grubun chat'i açılır.
		for groupID := range profiles {
			if err := c.chatHub.Send("CreateChat", "Group", groupID); err != nil {
				log.Printf("[session] group chat create failed for %s: %v", groupID, err)
			}
		}
	})

	c.notifHub.On("ReceiveGroupProfiles", func(args []json.RawMessage) {
		var profiles map[string]store.WireGroupProfile
		if !decodeArg("ReceiveGroupProfiles", args, &profiles) {
			return
		}

		for groupID, wire := range profiles {
			_, known := c.stores.Groups.Get(groupID)
			profile := c.stores.Groups.Apply(groupID, wire)

			// Lokal kullanıcının rolü sentinel'e çekildiyse kullanıcı
			// gruptan çıkarılmıştır: grup ve chat'i listeden düşer.
			if role, ok := profile.RoleOf(c.userID); ok && role == models.GroupRoleRemoved {
				c.stores.Groups.Remove(groupID)
				c.stores.Chats.RemoveGroupChat(groupID)
				continue
			}

			if !known {
				if err := c.chatHub.Send("CreateChat", "Group", groupID); err != nil {
					log.Printf("[session] group chat create failed for %s: %v", groupID, err)
				}
			}
		}
	})

	c.notifHub.On("NotificationHubInitialized", func(args []json.RawMessage) {
		log.Printf("[session] notification hub initialized")
	})

	c.notifHub.On("ReceiveSearchUsers", func(args []json.RawMessage) {
		var results map[string]models.WireContactProfile
		if !decodeArg("ReceiveSearchUsers", args, &results) {
			return
		}
		c.deliverSearchResults(results)
	})

	for _, event := range []string{"UnexpectedError", "ValidationError", "ConnectionError", "Error"} {
		c.notifHub.On(event, func(args []json.RawMessage) {
			var payload errorPayload
			if decodeArg("notification error", args, &payload) {
				c.reportError("notification", payload.Message)
			}
		})
	}
}

// deliverSearchResults, arama cevabını bekleyen SearchUsers çağrısına
// teslim eder ve cache'ler. Bekleyen çağrı yoksa sonuç sadece loglanır.
func (c *Client) deliverSearchResults(results map[string]models.WireContactProfile) {
	c.searchMu.Lock()
	query := c.searchPending
	wait := c.searchWait
	c.searchPending = ""
	c.searchWait = nil
	c.searchMu.Unlock()

	if wait == nil {
		log.Printf("[session] search results with no pending query (%d users)", len(results))
		return
	}
	if query != "" {
		c.searchCache.Set(query, results)
	}
	wait <- results
}
