package models

// UploadPhase, pending upload'ın yaşam döngüsü fazı.
//
// preparing → sending → sent   (başarılı akış)
//          ↘ cancelled          (kullanıcı iptali — terminal)
//
// sent ve cancelled terminal'dir; terminal faza geçen upload kısa bir
// cleanup gecikmesinden sonra listeden kaldırılır.
type UploadPhase string

const (
	UploadPhasePreparing UploadPhase = "preparing"
	UploadPhaseSending   UploadPhase = "sending"
	UploadPhaseSent      UploadPhase = "sent"
	UploadPhaseCancelled UploadPhase = "cancelled"
)

// IsTerminal, fazın terminal olup olmadığını döner.
func (p UploadPhase) IsTerminal() bool {
	return p == UploadPhaseSent || p == UploadPhaseCancelled
}

// PendingUpload, gönderimi devam eden bir dosya mesajının ephemeral kaydı.
// Persist edilmez — sadece gönderen client'ta, terminal faza kadar yaşar.
//
// ID aynı zamanda clientMessageId olarak sunucuya gider; sunucu mesaj
// echo'sunda bu id'yi geri gönderir ve pending kayıt o anda düşürülür
// (optimistic bubble → gerçek mesaj geçişi).
type PendingUpload struct {
	ID          string      `json:"id"`
	ChatID      string      `json:"chatId"`
	ChatType    ChatType    `json:"chatType"`
	ContentType MessageType `json:"contentType"`
	FileName    string      `json:"fileName"`
	FileSize    int64       `json:"fileSize"`
	Progress    int         `json:"progress"` // 0-100
	Phase       UploadPhase `json:"phase"`
	StatusText  string      `json:"statusText"`

	// PreviewURL sahipli bir kaynaktır (object URL benzeri) —
	// kayıt listeden kaldırılırken ReleasePreview çağrılarak bırakılır.
	PreviewURL     string `json:"previewUrl"`
	ReleasePreview func() `json:"-"`
}
