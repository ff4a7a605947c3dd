package models

import "encoding/json"

// Bu dosya, hub payload'larının "büyüyen union" şekillerini tek kanonik
// iç şekle indirger. Sunucu aynı kavramı farklı alan adlarıyla gönderir
// (participants / chatParticipants / callParticipants; string listesi /
// {userId} objesi listesi). Normalizasyon SADECE burada yapılır —
// reducer'lar wire şekli bilmez.

// ParticipantRefs, katılımcı listesinin her wire varyantını kabul eden tip:
//
//	["u1", "u2"]                        → düz string listesi
//	[{"userId": "u1"}, {"userId":"u2"}] → obje listesi
//
// Parse edilemeyen varyant boş listeye degrade olur — reducer'lar total'dır.
type ParticipantRefs []string

// UnmarshalJSON, her iki varyantı da dener; boş/geçersiz girdiler sessizce
// boş listeye düşer.
func (p *ParticipantRefs) UnmarshalJSON(data []byte) error {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*p = filterEmpty(plain)
		return nil
	}

	var objs []struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &objs); err == nil {
		ids := make([]string, 0, len(objs))
		for _, o := range objs {
			ids = append(ids, o.UserID)
		}
		*p = filterEmpty(ids)
		return nil
	}

	// Karışık liste: elemanları tek tek dene.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		ids := make([]string, 0, len(raw))
		for _, item := range raw {
			var s string
			if json.Unmarshal(item, &s) == nil {
				ids = append(ids, s)
				continue
			}
			var o struct {
				UserID string `json:"userId"`
			}
			if json.Unmarshal(item, &o) == nil {
				ids = append(ids, o.UserID)
			}
		}
		*p = filterEmpty(ids)
		return nil
	}

	*p = nil
	return nil
}

func filterEmpty(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// WireMessage, mesaj event'lerinin wire şekli.
// Pointer alanlar partial update taşır — id çakışmasında sadece gelen
// alanlar mevcut mesajın üzerine merge edilir (JS spread semantiği).
type WireMessage struct {
	SenderID        *string         `json:"senderId"`
	Type            *MessageType    `json:"type"`
	Content         *string         `json:"content"`
	Status          *MessageStatus  `json:"status"`
	DeletedFor      map[string]bool `json:"deletedFor"`
	ClientMessageID *string         `json:"clientMessageId"`
}

// IsTombstone, wire mesajın silme tombstone'u olup olmadığını döner.
// Sadece text (type 0) mesajlar tombstone olabilir.
func (w *WireMessage) IsTombstone() bool {
	if w == nil {
		return false
	}
	if w.Type == nil || *w.Type != MessageTypeText {
		return false
	}
	if w.Content == nil {
		return false
	}
	return isTombstoneContent(*w.Content)
}

// ToMessage, wire mesajı verilen id ile kanonik Message'a dönüştürür.
// Eksik alanlar güvenli default alır.
func (w *WireMessage) ToMessage(id string) Message {
	msg := Message{ID: id, Status: NewMessageStatus()}
	if w == nil {
		return msg
	}
	if w.SenderID != nil {
		msg.SenderID = *w.SenderID
	}
	if w.Type != nil {
		msg.Type = *w.Type
	}
	if w.Content != nil {
		msg.Content = *w.Content
	}
	if w.Status != nil {
		msg.Status = *w.Status
	}
	if w.DeletedFor != nil {
		msg.DeletedFor = w.DeletedFor
	}
	if w.ClientMessageID != nil {
		msg.ClientMessageID = *w.ClientMessageID
	}
	return msg
}

// ApplyTo, wire mesajı mevcut mesajın üzerine merge eder (gelen alan kazanır).
// Status geldiğinde bütün olarak değiştirilir — sub-map'ler merge edilmez.
func (w *WireMessage) ApplyTo(msg *Message) {
	if w == nil {
		return
	}
	if w.SenderID != nil {
		msg.SenderID = *w.SenderID
	}
	if w.Type != nil {
		msg.Type = *w.Type
	}
	if w.Content != nil {
		msg.Content = *w.Content
	}
	if w.Status != nil {
		msg.Status = *w.Status
	}
	if w.DeletedFor != nil {
		msg.DeletedFor = w.DeletedFor
	}
	if w.ClientMessageID != nil {
		msg.ClientMessageID = *w.ClientMessageID
	}
}

// WireChat, chat snapshot/create event'lerinin wire şekli.
type WireChat struct {
	Participants     ParticipantRefs          `json:"participants"`
	ChatParticipants ParticipantRefs          `json:"chatParticipants"`
	ArchivedFor      map[string]ArchiveMarker `json:"archivedFor"`
	CreatedDate      Timestamp                `json:"createdDate"`
	Messages         map[string]*WireMessage  `json:"messages"`
}

// ParticipantIDs, iki varyanttan dolu olanı döner.
func (w *WireChat) ParticipantIDs() []string {
	if w == nil {
		return nil
	}
	if len(w.Participants) > 0 {
		return w.Participants
	}
	return w.ChatParticipants
}

// WireCall, arama snapshot/result event'lerinin wire şekli.
type WireCall struct {
	Participants     ParticipantRefs `json:"participants"`
	CallParticipants ParticipantRefs `json:"callParticipants"`
	Type             CallType        `json:"type"`
	Status           int             `json:"status"`
	CallDuration     string          `json:"callDuration"`
	CreatedDate      Timestamp       `json:"createdDate"`
}

// ToCall, wire aramayı verilen id ile kanonik Call'a normalize eder.
func (w *WireCall) ToCall(id string) Call {
	call := Call{ID: id}
	if w == nil {
		return call
	}
	call.Type = w.Type
	call.Status = w.Status
	call.CallDuration = w.CallDuration
	call.CreatedDate = w.CreatedDate
	if len(w.Participants) > 0 {
		call.Participants = w.Participants
	} else {
		call.Participants = w.CallParticipants
	}
	return call
}
