// Package crypto — MessageCipher: chat bazlı mesaj şifreleme/çözme.
//
// Her chat'in kendi türetilmiş anahtarı vardır (DeriveChatKey).
// PBKDF2 türetimi pahalı olduğu için anahtarlar cache'lenir.
package crypto

import (
	"sync"
)

// MessageCipher, chat ID'sine göre anahtar türetip mesaj içeriği
// şifreleyen/çözen yapı. Core'un geri kalanı için opak bir
// encrypt(text, chatID) / decrypt(blob, chatID) çiftidir.
type MessageCipher struct {
	secret []byte

	// keys: chatID → türetilmiş 32-byte anahtar.
	// Türetim deterministik olduğu için invalidation gerekmez.
	keys map[string][]byte
	mu   sync.RWMutex
}

// NewMessageCipher, uygulama secret'ı ile yeni bir MessageCipher oluşturur.
func NewMessageCipher(secret string) *MessageCipher {
	return &MessageCipher{
		secret: []byte(secret),
		keys:   make(map[string][]byte),
	}
}

// keyFor, chat anahtarını cache'ten döner, yoksa türetip cache'ler.
func (c *MessageCipher) keyFor(chatID string) []byte {
	c.mu.RLock()
	key, ok := c.keys[chatID]
	c.mu.RUnlock()
	if ok {
		return key
	}

	key = DeriveChatKey(chatID, c.secret)

	c.mu.Lock()
	c.keys[chatID] = key
	c.mu.Unlock()
	return key
}

// EncryptMessage, text mesaj içeriğini chat anahtarıyla şifreler.
func (c *MessageCipher) EncryptMessage(content, chatID string) (string, error) {
	return Encrypt(content, c.keyFor(chatID))
}

// DecryptMessage, şifreli içeriği çözer.
// Çözme başarısız olursa orijinal içerik aynen döner — bozuk veya
// şifrelenmemiş bir mesaj UI'da boşluk yerine ham haliyle görünür.
func (c *MessageCipher) DecryptMessage(content, chatID string) string {
	plain, err := Decrypt(content, c.keyFor(chatID))
	if err != nil {
		return content
	}
	return plain
}
