package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/peer"
	"github.com/alinouri1989/chatnest-core/pkg"
)

// outboundMessage, SendMessage invoke payload'ı. Alan isimleri sunucunun
// beklediği wire şeklidir.
type outboundMessage struct {
	ContentType     models.MessageType `json:"ContentType"`
	Content         string             `json:"content"`
	FileName        string             `json:"FileName,omitempty"`
	ClientMessageID string             `json:"clientMessageId,omitempty"`
}

// ─── Chat operasyonları ───

// SendTextMessage, text mesajı şifreleyip gönderir.
// Mesaj lokal store'a eklenmez; sunucu echo'su ReceiveGetMessages ile
// gelir ve tek doğruluk kaynağı odur.
func (c *Client) SendTextMessage(chatType models.ChatType, chatID, content string) error {
	if content == "" {
		return fmt.Errorf("%w: empty message", pkg.ErrBadRequest)
	}
	encrypted, err := c.cipher.EncryptMessage(content, chatID)
	if err != nil {
		return err
	}

	ctx, cancel := c.opCtx()
	defer cancel()
	return c.chatHub.Invoke(ctx, "SendMessage", string(chatType), chatID, outboundMessage{
		ContentType: models.MessageTypeText,
		Content:     encrypted,
	})
}

// SendFileMessage, dosya mesajını pending upload kaydıyla gönderir.
// Dönen id clientMessageId'dir; sunucu echo'su gelince pending kayıt
// otomatik düşer. İptal, Uploads üzerinden yapılır.
func (c *Client) SendFileMessage(chatType models.ChatType, chatID string, contentType models.MessageType, fileName, payload string, fileSize int64, previewURL string, releasePreview func()) (string, error) {
	id, uploadCtx := c.uploads.Begin(chatType, chatID, contentType, fileName, fileSize, previewURL, releasePreview)

	go func() {
		c.uploads.SetProgress(id, 0)

		ctx, cancel := context.WithTimeout(uploadCtx, 2*time.Minute)
		defer cancel()

		err := c.chatHub.Invoke(ctx, "SendMessage", string(chatType), chatID, outboundMessage{
			ContentType:     contentType,
			Content:         payload,
			FileName:        fileName,
			ClientMessageID: id,
		})
		if err != nil {
			if uploadCtx.Err() != nil {
				// Kullanıcı iptali; kayıt zaten cancelled fazında.
				return
			}
			log.Printf("[session] file message failed for chat %s: %v", chatID, err)
			c.uploads.Cancel(id)
			if c.notifier != nil {
				c.notifier.Error(alertGenericError)
			}
			return
		}
		c.uploads.MarkSent(id)
	}()

	return id, nil
}

// Uploads, pending upload manager'ı döner (iptal ve listeleme için).
func (c *Client) Uploads() interface {
	Cancel(id string)
	List(chatID string) []models.PendingUpload
} {
	return c.uploads
}

// CreateIndividualChat, karşı kullanıcıyla chat açar. Chat zaten varsa
// id'si döner ve sunucuya gidilmez.
func (c *Client) CreateIndividualChat(receiverID string) (string, error) {
	if existing := c.stores.Chats.FindIndividualChatID(c.userID, receiverID); existing != "" {
		return existing, nil
	}
	return "", c.chatHub.Send("CreateChat", "Individual", receiverID)
}

// ArchiveChat, chat'i lokal kullanıcı için arşivler.
func (c *Client) ArchiveChat(chatID string) error {
	return c.chatHub.Send("ArchiveChat", chatID)
}

// UnarchiveChat, chat'i arşivden çıkarır.
func (c *Client) UnarchiveChat(chatID string) error {
	return c.chatHub.Send("UnarchiveChat", chatID)
}

// ClearChat, chat geçmişini temizler.
func (c *Client) ClearChat(chatID string) error {
	return c.chatHub.Send("ClearChat", chatID)
}

// ─── Arama ───

// SearchUsers, kullanıcı arar. Sonuçlar kısa süreli cache'lenir —
// debounce edilmiş ardışık aynı sorgular sunucuya gitmez.
func (c *Client) SearchUsers(ctx context.Context, query string) (map[string]models.WireContactProfile, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", pkg.ErrBadRequest)
	}
	if cached, ok := c.searchCache.Get(query); ok {
		return cached, nil
	}

	wait := make(chan map[string]models.WireContactProfile, 1)
	c.searchMu.Lock()
	c.searchPending = query
	c.searchWait = wait
	c.searchMu.Unlock()

	if err := c.notifHub.Send("SearchUsers", query); err != nil {
		c.searchMu.Lock()
		c.searchPending = ""
		c.searchWait = nil
		c.searchMu.Unlock()
		return nil, err
	}

	select {
	case results := <-wait:
		return results, nil
	case <-ctx.Done():
		c.searchMu.Lock()
		c.searchPending = ""
		c.searchWait = nil
		c.searchMu.Unlock()
		return nil, errNoSearchResult
	}
}

// ─── Çağrı operasyonları (kullanıcı aksiyonları) ───

// StartCall, karşı kullanıcıya sesli/görüntülü çağrı başlatır.
func (c *Client) StartCall(calleeID string, callType models.CallType) error {
	ctx, cancel := c.opCtx()
	defer cancel()

	if err := c.calls.StartOutgoing(ctx, calleeID, callType); err != nil {
		if c.notifier != nil {
			c.notifier.Error(alertCallUnavailable)
		}
		return err
	}
	return nil
}

// AnswerCall, çalan çağrıyı kabul eder (kullanıcı aksiyonu).
func (c *Client) AnswerCall() error {
	ctx, cancel := c.opCtx()
	defer cancel()

	if err := c.calls.Accept(ctx); err != nil {
		if c.notifier != nil {
			if errors.Is(err, pkg.ErrMediaUnavailable) {
				c.notifier.Error(alertMediaUnavailable)
			} else {
				c.notifier.Error(alertAcceptFailed)
			}
		}
		return err
	}
	return nil
}

// HangUp, aktif çağrıyı bitirir (çalıyorsa reddeder).
func (c *Client) HangUp() {
	ctx, cancel := c.opCtx()
	defer cancel()
	c.calls.HangUp(ctx)
}

// SwitchCamera, aktif görüntülü çağrıda kamerayı değiştirir.
func (c *Client) SwitchCamera() error {
	sess, ok := c.calls.Session()
	if !ok {
		return fmt.Errorf("%w: no active call", pkg.ErrBadRequest)
	}
	return sess.SwitchCamera()
}

// DeleteCallHistory, çağrı kaydını siler. Lokal silme sunucu echo'suyla
// (ReceiveDeleteCall) yapılır.
func (c *Client) DeleteCallHistory(callID string) error {
	return c.callHub.Send("DeleteCall", callID)
}

// ─── Call controller'ın Signaler implementasyonu ───

// CallUser, çağrı başlatma sinyali.
func (c *Client) CallUser(ctx context.Context, calleeID string, callType models.CallType) error {
	return c.callHub.Invoke(ctx, "CallUser", calleeID, callType)
}

// AcceptCall, kabul sinyalini sunucuya iletir.
func (c *Client) AcceptCall(ctx context.Context, callID string) error {
	return c.callHub.Invoke(ctx, "AcceptCall", callID)
}

// EndCall, çağrı bitirme sinyali. startedAt zero ise null gönderilir —
// sunucu süre hesaplamaz.
func (c *Client) EndCall(ctx context.Context, callID string, reason int, startedAt time.Time) error {
	var started any
	if !startedAt.IsZero() {
		started = models.NewTimestamp(startedAt)
	}
	return c.callHub.Invoke(ctx, "EndCall", callID, reason, started)
}

// SendSdp, SDP payload'ını karşı tarafa iletir.
func (c *Client) SendSdp(ctx context.Context, callID string, desc peer.SessionDescription) error {
	return c.callHub.Invoke(ctx, "SendSdp", callID, desc)
}

// SendIceCandidate, lokal ICE adayını karşı tarafa iletir.
func (c *Client) SendIceCandidate(ctx context.Context, callID string, cand peer.ICECandidate) error {
	return c.callHub.Invoke(ctx, "SendIceCandidate", callID, cand)
}
