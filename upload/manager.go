// Package upload — Upload Manager: devam eden dosya gönderimlerinin
// yaşam döngüsü. Optimistic UI kaydı, ilerleme, iptal ve sunucu
// echo'suyla eşleşme burada yönetilir.
package upload

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alinouri1989/chatnest-core/models"
)

// cleanupDelay: terminal duruma geçen kaydın UI'da görünür kalma süresi.
// Süre dolunca kayıt silinir ve preview kaynağı bırakılır.
const cleanupDelay = 2 * time.Second

// Manager, bekleyen upload kayıtlarının store'u.
type Manager struct {
	mu      sync.Mutex
	items   map[string]*models.PendingUpload
	cancels map[string]context.CancelFunc

	// removeAfter test edilebilirlik için değiştirilebilir.
	removeAfter time.Duration
}

// NewManager, boş bir Manager oluşturur.
func NewManager() *Manager {
	return &Manager{
		items:       make(map[string]*models.PendingUpload),
		cancels:     make(map[string]context.CancelFunc),
		removeAfter: cleanupDelay,
	}
}

// Begin, yeni bir upload kaydı açar. Dönen id aynı zamanda mesajın
// clientMessageId'sidir — sunucu echo'su bu id ile eşleşir. Dönen
// context upload I/O'suna verilir; Cancel bu context'i iptal eder.
func (m *Manager) Begin(chatType models.ChatType, chatID string, contentType models.MessageType, fileName string, fileSize int64, previewURL string, releasePreview func()) (string, context.Context) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.items[id] = &models.PendingUpload{
		ID:             id,
		ChatID:         chatID,
		ChatType:       chatType,
		ContentType:    contentType,
		FileName:       fileName,
		FileSize:       fileSize,
		Phase:          models.UploadPhasePreparing,
		PreviewURL:     previewURL,
		ReleasePreview: releasePreview,
	}
	m.cancels[id] = cancel
	m.mu.Unlock()

	return id, ctx
}

// SetProgress, upload ilerlemesini günceller (0-100). Terminal fazdaki
// kayıt için no-op — geciken progress callback'i iptali geri almaz.
func (m *Manager) SetProgress(id string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Phase.IsTerminal() {
		return
	}
	item.Phase = models.UploadPhaseSending
	item.Progress = percent
}

// MarkSent, gönderimin tamamlandığını işaretler. Kayıt, sunucu echo'su
// gelene kadar (veya cleanup süresi dolana kadar) görünür kalır.
func (m *Manager) MarkSent(id string) {
	m.mu.Lock()
	item, ok := m.items[id]
	if !ok || item.Phase.IsTerminal() {
		m.mu.Unlock()
		return
	}
	item.Phase = models.UploadPhaseSent
	item.Progress = 100
	delete(m.cancels, id)
	m.mu.Unlock()

	time.AfterFunc(m.removeAfter, func() { m.remove(id) })
}

// Cancel, upload'ı iptal eder: I/O context'i iptal edilir, kayıt cancelled
// fazına geçer ve kısa süre sonra kaldırılır. Idempotent.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	item, ok := m.items[id]
	if !ok || item.Phase.IsTerminal() {
		m.mu.Unlock()
		return
	}
	item.Phase = models.UploadPhaseCancelled
	cancel := m.cancels[id]
	delete(m.cancels, id)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	time.AfterFunc(m.removeAfter, func() { m.remove(id) })
}

// Resolve, sunucunun mesaj echo'suyla eşleşen kaydı hemen kaldırır.
// Echo geldiyse optimistic kayda artık gerek yoktur. Bilinmeyen id no-op.
func (m *Manager) Resolve(clientMessageID string) {
	m.remove(clientMessageID)
}

// remove, kaydı siler ve preview kaynağını bırakır.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	item, ok := m.items[id]
	if ok {
		delete(m.items, id)
		delete(m.cancels, id)
	}
	m.mu.Unlock()

	if ok && item.ReleasePreview != nil {
		item.ReleasePreview()
	}
}

// List, verilen chat'in bekleyen upload kayıtlarının kopyasını döner.
func (m *Manager) List(chatID string) []models.PendingUpload {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PendingUpload
	for _, item := range m.items {
		if item.ChatID == chatID {
			out = append(out, *item)
		}
	}
	return out
}

// Get, tek bir kaydın kopyasını döner.
func (m *Manager) Get(id string) (models.PendingUpload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return models.PendingUpload{}, false
	}
	return *item, true
}
