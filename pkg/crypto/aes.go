// Package crypto — AES-256-GCM şifreleme/çözümleme fonksiyonları.
//
// Mesaj içerikleri sunucuda düz metin olarak durmasın diye chat bazında
// türetilmiş anahtarlarla şifrelenir. Bu paket core'un geri kalanı için
// opak bir encrypt/decrypt çiftidir — hangi algoritmanın kullanıldığı
// store veya session katmanını ilgilendirmez.
//
// AES-256-GCM nedir?
// - AES-256: 256-bit anahtar ile şifreleme (symmetric encryption)
// - GCM (Galois/Counter Mode): hem gizlilik hem bütünlük sağlar (authenticated encryption)
// - Nonce: her şifreleme için rastgele üretilen 12-byte değer — aynı key ile bile
//   her ciphertext farklı olur (replay attack koruması)
//
// Kullanım:
//   key := crypto.DeriveChatKey(chatID, secret)
//   encrypted, _ := crypto.Encrypt("merhaba", key)
//   decrypted, _ := crypto.Decrypt(encrypted, key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// keyIterations, PBKDF2 iterasyon sayısı.
// Chat anahtarı sık türetilir (her decrypt'te değil — session cache'ler),
// bu yüzden yüksek tutmak maliyet sorunu yaratmaz.
const keyIterations = 4096

// DeriveChatKey, chat ID'sinden 32-byte AES-256 anahtarı türetir.
// Aynı (chatID, secret) çifti her zaman aynı anahtarı üretir —
// iki taraf da kendi tarafında aynı anahtara ulaşır, anahtar hiçbir
// zaman wire üzerinden taşınmaz.
func DeriveChatKey(chatID string, secret []byte) []byte {
	return pbkdf2.Key(secret, []byte(chatID), keyIterations, 32, sha256.New)
}

// Encrypt, plaintext'i AES-256-GCM ile şifreler.
// Dönen string base64-encoded: nonce (12 byte) + ciphertext.
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	// Nonce: her şifreleme için rastgele 12-byte değer.
	// GCM standard nonce size = 12 byte.
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}

	// Seal: nonce + ciphertext + authentication tag birleştirilir.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt, AES-256-GCM ile şifrelenmiş base64 string'i çözer.
func Decrypt(encoded string, key []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	// İlk 12 byte = nonce, gerisi = ciphertext + auth tag
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open (decryption failed — wrong key or corrupted data): %w", err)
	}

	return string(plaintext), nil
}
