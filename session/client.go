// Package session — Session Client: üç hub kanalını (chat, notification,
// call) store'lara, delivery tracker'a ve call controller'a bağlayan
// entegrasyon katmanı. Sunucudan gelen event'ler burada decode edilip
// ilgili reducer'lara dağıtılır; dışa dönük operasyonlar hub invoke'larına
// çevrilir.
package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/alinouri1989/chatnest-core/call"
	"github.com/alinouri1989/chatnest-core/config"
	"github.com/alinouri1989/chatnest-core/delivery"
	"github.com/alinouri1989/chatnest-core/hub"
	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/pkg"
	"github.com/alinouri1989/chatnest-core/pkg/cache"
	"github.com/alinouri1989/chatnest-core/pkg/crypto"
	"github.com/alinouri1989/chatnest-core/store"
	"github.com/alinouri1989/chatnest-core/upload"
)

// Kullanıcıya gösterilen ürün metinleri Farsça'dır.
const (
	alertGenericError     = "خطایی رخ داده است"
	alertInternalError    = "یک خطای داخلی رخ داده است. لطفاً دوباره تلاش کنید."
	alertCallUnavailable  = "برقراری تماس امکان‌پذیر نیست. دوباره تلاش کنید."
	alertMediaUnavailable = "دسترسی به میکروفون/دوربین یا اتصال تماس برقرار نشد."
	alertAcceptFailed     = "پذیرش تماس انجام نشد."
)

// Notifier, kullanıcıya dönük bildirim yüzeyi (alert/toast).
type Notifier interface {
	Error(message string)
}

// Stores, client'ın beslediği reconciliation store'ları.
type Stores struct {
	Chats    *store.ChatStore
	Contacts *store.ContactStore
	Groups   *store.GroupStore
	Calls    *store.CallStore
}

// Client, oturumun tamamını yöneten üst seviye yapı.
type Client struct {
	userID string

	chatHub  *hub.Conn
	notifHub *hub.Conn
	callHub  *hub.Conn

	stores   Stores
	cipher   *crypto.MessageCipher
	tracker  *delivery.Tracker
	calls    *call.Controller
	uploads  *upload.Manager
	notifier Notifier

	searchCache *cache.TTLCache[string, map[string]models.WireContactProfile]

	searchMu      sync.Mutex
	searchPending string
	searchWait    chan map[string]models.WireContactProfile

	ctx    context.Context
	cancel context.CancelFunc
}

// Options, New'in bağımlılıkları. Call controller sinyalleşme için
// Client'a ihtiyaç duyduğundan sonradan BindCalls ile bağlanır.
type Options struct {
	Config   *config.Config
	UserID   string
	Stores   Stores
	Cipher   *crypto.MessageCipher
	Uploads  *upload.Manager
	Notifier Notifier
}

// New, üç hub bağlantısını kurar ve event handler'larını bağlar.
// Bağlantılar Start çağrılana kadar açılmaz.
func New(opts Options) (*Client, error) {
	cfg := opts.Config

	chatHub, err := hub.NewConn("chat", cfg.Server.BaseURL, cfg.Server.ChatHubPath, cfg.Auth.AccessToken)
	if err != nil {
		return nil, err
	}
	notifHub, err := hub.NewConn("notification", cfg.Server.BaseURL, cfg.Server.NotificationPath, cfg.Auth.AccessToken)
	if err != nil {
		return nil, err
	}
	callHub, err := hub.NewConn("call", cfg.Server.BaseURL, cfg.Server.CallHubPath, cfg.Auth.AccessToken)
	if err != nil {
		return nil, err
	}

	c := &Client{
		userID:      opts.UserID,
		chatHub:     chatHub,
		notifHub:    notifHub,
		callHub:     callHub,
		stores:      opts.Stores,
		cipher:      opts.Cipher,
		uploads:     opts.Uploads,
		notifier:    opts.Notifier,
		searchCache: cache.New[string, map[string]models.WireContactProfile](cfg.Search.CacheTTL, cfg.Search.CacheTTL),
	}

	c.tracker = delivery.NewTracker(c, opts.Stores.Chats, opts.UserID)
	opts.Stores.Chats.OnChange(func() {
		if c.ctx != nil {
			c.tracker.Recheck(c.ctx)
		}
	})

	c.registerChatHandlers()
	c.registerNotificationHandlers()
	c.registerCallHandlers()
	return c, nil
}

// BindCalls, call controller'ı bağlar. Start'tan önce çağrılmalıdır —
// Client, controller'ın Signaler'ı olduğundan ikisi ayrı kurulur.
func (c *Client) BindCalls(controller *call.Controller) {
	c.calls = controller
}

// UserID, lokal kullanıcının id'sini döner.
func (c *Client) UserID() string {
	return c.userID
}

// Tracker, delivery tracker'ı döner (odak değişimi için).
func (c *Client) Tracker() *delivery.Tracker {
	return c.tracker
}

// Start, üç hub bağlantısını açar ve her kanalda initial snapshot ister.
// Herhangi bir kanalın ilk bağlantısı başarısızsa hepsi kapatılır.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	conns := []*hub.Conn{c.chatHub, c.notifHub, c.callHub}
	for _, conn := range conns {
		conn.OnReconnected(c.requestInitial)
		if err := conn.Start(c.ctx); err != nil {
			c.Close()
			return err
		}
	}

	c.requestInitial()
	return nil
}

// requestInitial, her kanaldan initial snapshot ister. Reconnect sonrası
// da çağrılır — kopukluk sırasında kaçan event'ler snapshot'la telafi edilir.
func (c *Client) requestInitial() {
	for _, conn := range []*hub.Conn{c.chatHub, c.notifHub, c.callHub} {
		if err := conn.Send("Initial"); err != nil {
			log.Printf("[session] initial request failed: %v", err)
		}
	}
}

// Close, oturumu kapatır. Idempotent.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.chatHub.Close()
	c.notifHub.Close()
	c.callHub.Close()
	c.searchCache.Close()
}

// SetFocusedChat, açık chat'i delivery tracker'a bildirir ve read
// makbuzlarını tetikler.
func (c *Client) SetFocusedChat(chatType models.ChatType, chatID string) {
	c.tracker.SetFocused(chatType, chatID)
	if c.ctx != nil {
		c.tracker.Recheck(c.ctx)
	}
}

// reportError, sunucu hata mesajını kullanıcıya gösterir.
// Sunucu iç sorgu hatalarını olduğu gibi göstermek yerine generic bir
// mesaja çevirir.
func (c *Client) reportError(channel, message string) {
	log.Printf("[session] %s hub error: %s", channel, message)
	if c.notifier == nil {
		return
	}
	if strings.Contains(message, "LINQ expression") {
		c.notifier.Error(alertInternalError)
		return
	}
	if message == "" {
		c.notifier.Error(alertGenericError)
		return
	}
	c.notifier.Error(message)
}

// Reset, logout akışında tüm lokal state'i sıfırlar.
func (c *Client) Reset() {
	c.stores.Chats.Reset()
	c.stores.Contacts.Reset()
	c.stores.Groups.Reset()
	c.stores.Calls.Reset()
	c.searchCache.Clear()
}

// ─── Delivery tracker'ın Acknowledger implementasyonu ───

// DeliverMessage, delivered makbuzunu gönderir.
func (c *Client) DeliverMessage(ctx context.Context, chatType models.ChatType, chatID, messageID string) error {
	return c.chatHub.Invoke(ctx, "DeliverMessage", string(chatType), chatID, messageID)
}

// ReadMessage, read makbuzunu gönderir.
func (c *Client) ReadMessage(ctx context.Context, chatType models.ChatType, chatID, messageID string) error {
	return c.chatHub.Invoke(ctx, "ReadMessage", string(chatType), chatID, messageID)
}

// invokeTimeout, kullanıcı aksiyonu kaynaklı invoke'ların üst sınırı.
const invokeTimeout = 15 * time.Second

func (c *Client) opCtx() (context.Context, context.CancelFunc) {
	base := c.ctx
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, invokeTimeout)
}

// errNoSearchResult: arama cevabı zaman aşımına uğradı.
var errNoSearchResult = fmt.Errorf("%w: search timed out", pkg.ErrInternal)
