// Package hub — Hub Connection: sunucudaki event hub'larına websocket
// bağlantısı. Her kanal (chat, notification, call) kendi Conn'unu kullanır;
// handshake, ping, otomatik reconnect ve typed event dispatch burada yaşar.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alinouri1989/chatnest-core/hubproto"
	"github.com/alinouri1989/chatnest-core/pkg"
)

const (
	writeWait = 10 * time.Second
	// readWait: bu süre içinde hiçbir mesaj (ping dahil) gelmezse
	// bağlantı kopmuş sayılır.
	readWait     = 60 * time.Second
	pingInterval = 15 * time.Second
)

// reconnectDelays, kopuş sonrası yeniden bağlanma denemelerinin aralıkları.
// Liste tükenince bağlantı kalıcı failed durumuna geçer.
var reconnectDelays = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

// Status, bağlantı durumu.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusFailed
)

// Handler, sunucudan gelen bir event invocation'ının işleyicisi.
// Handler'lar read loop üzerinde SENKRON çağrılır — aynı bağlantının
// event'leri geliş sırasıyla işlenir. Uzun işler handler içinde
// goroutine'e alınmalıdır.
type Handler func(args []json.RawMessage)

// Conn, tek bir hub kanalına client bağlantısı.
type Conn struct {
	name   string
	wsURL  string
	dec    *hubproto.Decoder
	dialer *websocket.Dialer
	delays []time.Duration

	handlers map[string]Handler

	onStatus      func(Status)
	onReconnected func()

	mu      sync.Mutex
	ws      *websocket.Conn
	seq     uint64
	pending map[string]chan hubproto.Frame
	closed  bool
	done    chan struct{}
}

// NewConn, verilen hub path'i için bağlantı oluşturur.
// Token, SignalR konvansiyonuyla access_token query parametresinde taşınır.
func NewConn(name, baseURL, hubPath, accessToken string) (*Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", pkg.ErrBadRequest, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = hubPath
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	return &Conn{
		name:     name,
		wsURL:    u.String(),
		dec:      hubproto.NewDecoder(name),
		dialer:   websocket.DefaultDialer,
		delays:   reconnectDelays,
		handlers: make(map[string]Handler),
		pending:  make(map[string]chan hubproto.Frame),
		done:     make(chan struct{}),
	}, nil
}

// On, verilen event için handler kaydeder. Start öncesi çağrılmalıdır.
func (c *Conn) On(target string, h Handler) {
	c.handlers[target] = h
}

// OnStatusChange, durum değişim callback'ini kaydeder. Start öncesi çağrılmalıdır.
func (c *Conn) OnStatusChange(fn func(Status)) {
	c.onStatus = fn
}

// OnReconnected, başarılı yeniden bağlanma sonrası çağrılır. Caller bu
// callback'te initial state'i yeniden ister — kopukluk sırasında kaçan
// event'ler snapshot'la telafi edilir.
func (c *Conn) OnReconnected(fn func()) {
	c.onReconnected = fn
}

func (c *Conn) setStatus(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

// Start, bağlantıyı kurar ve pump'ları başlatır. İlk bağlantı hatası
// olduğu gibi döner; sonraki kopuşlar otomatik reconnect ile yönetilir.
func (c *Conn) Start(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	ws, err := c.connect(ctx)
	if err != nil {
		c.setStatus(StatusDisconnected)
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	c.setStatus(StatusConnected)

	go c.run(ctx, ws)
	go c.pingLoop()
	return nil
}

// connect, websocket'i açar ve SignalR handshake'ini tamamlar.
func (c *Conn) connect(ctx context.Context) (*websocket.Conn, error) {
	ws, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", pkg.ErrNotConnected, c.name, err)
	}

	ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteMessage(websocket.TextMessage, hubproto.EncodeHandshake()); err != nil {
		ws.Close()
		return nil, fmt.Errorf("%w: handshake write: %v", pkg.ErrNotConnected, err)
	}

	ws.SetReadDeadline(time.Now().Add(readWait))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("%w: handshake read: %v", pkg.ErrNotConnected, err)
	}
	if msg, ok := hubproto.ParseHandshakeResponse(payload); !ok || msg != "" {
		ws.Close()
		return nil, fmt.Errorf("%w: handshake rejected: %s", pkg.ErrNotConnected, msg)
	}
	return ws, nil
}

// run, read loop'u işletir; kopuşta reconnect dener.
func (c *Conn) run(ctx context.Context, ws *websocket.Conn) {
	for {
		err := c.readLoop(ws)
		if c.isClosed() {
			return
		}
		log.Printf("[hub:%s] connection lost: %v", c.name, err)
		c.dropConn()
		c.setStatus(StatusReconnecting)

		ws = c.reconnect(ctx)
		if ws == nil {
			c.setStatus(StatusFailed)
			return
		}

		c.mu.Lock()
		c.ws = ws
		c.mu.Unlock()
		c.setStatus(StatusConnected)
		if c.onReconnected != nil {
			go c.onReconnected()
		}
	}
}

// reconnect, backoff aralıklarıyla yeniden bağlanmayı dener.
// Tüm denemeler tükenirse nil döner.
func (c *Conn) reconnect(ctx context.Context) *websocket.Conn {
	for attempt, delay := range c.delays {
		select {
		case <-time.After(delay):
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		}

		ws, err := c.connect(ctx)
		if err == nil {
			log.Printf("[hub:%s] reconnected (attempt %d)", c.name, attempt+1)
			return ws
		}
		log.Printf("[hub:%s] reconnect attempt %d failed: %v", c.name, attempt+1, err)
	}
	log.Printf("[hub:%s] reconnect attempts exhausted, giving up", c.name)
	return nil
}

// readLoop, frame'leri okur ve dispatch eder. Bağlantı kopana kadar bloklar.
func (c *Conn) readLoop(ws *websocket.Conn) error {
	for {
		ws.SetReadDeadline(time.Now().Add(readWait))
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		for _, frame := range c.dec.Decode(payload) {
			switch frame.Type {
			case hubproto.FrameTypeInvocation:
				c.dispatch(frame)
			case hubproto.FrameTypeCompletion:
				c.complete(frame)
			case hubproto.FrameTypePing:
				// Sunucu ping'i; read deadline zaten ilerledi.
			case hubproto.FrameTypeClose:
				return fmt.Errorf("server close: %s", frame.Error)
			}
		}
	}
}

// dispatch, invocation frame'ini kayıtlı handler'a iletir.
// Tanınmayan event loglanır ve atlanır.
func (c *Conn) dispatch(frame hubproto.Frame) {
	h, ok := c.handlers[frame.Target]
	if !ok {
		log.Printf("[hub:%s] no handler for event %q, ignoring", c.name, frame.Target)
		return
	}
	h(frame.Arguments)
}

// complete, completion frame'ini bekleyen invoke'a teslim eder.
func (c *Conn) complete(frame hubproto.Frame) {
	c.mu.Lock()
	ch, ok := c.pending[frame.InvocationID]
	if ok {
		delete(c.pending, frame.InvocationID)
	}
	c.mu.Unlock()
	if ok {
		ch <- frame
	}
}

// pingLoop, bağlantı açık olduğu sürece periyodik ping yollar.
func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(hubproto.EncodePing()); err != nil {
				// Kopuk durumda ping atlanır; reconnect read tarafında yönetilir.
				continue
			}
		}
	}
}

// write, payload'ı aktif websocket'e yazar. Gorilla tek eşzamanlı yazar
// ister; tüm yazımlar c.mu üzerinden serileştirilir.
func (c *Conn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return fmt.Errorf("%w: %s hub", pkg.ErrNotConnected, c.name)
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Send, sonucu beklenmeyen bir hub metodu çağırır (fire-and-forget).
func (c *Conn) Send(target string, args ...any) error {
	frame, err := marshalInvocation("", target, args)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Invoke, hub metodunu çağırır ve sunucunun completion cevabını bekler.
func (c *Conn) Invoke(ctx context.Context, target string, args ...any) error {
	c.mu.Lock()
	c.seq++
	id := strconv.FormatUint(c.seq, 10)
	ch := make(chan hubproto.Frame, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	frame, err := marshalInvocation(id, target, args)
	if err != nil {
		c.abandon(id)
		return err
	}
	if err := c.write(frame); err != nil {
		c.abandon(id)
		return err
	}

	select {
	case <-ctx.Done():
		c.abandon(id)
		return ctx.Err()
	case <-c.done:
		return pkg.ErrNotConnected
	case completion, ok := <-ch:
		if !ok {
			// Bağlantı completion gelmeden koptu (dropConn).
			return fmt.Errorf("%w: %s hub dropped during invoke of %s", pkg.ErrNotConnected, c.name, target)
		}
		if completion.Error != "" {
			return fmt.Errorf("%w: %s: %s", pkg.ErrInternal, target, completion.Error)
		}
		return nil
	}
}

func (c *Conn) abandon(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func marshalInvocation(id, target string, args []any) ([]byte, error) {
	rawArgs := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("%w: argument for %s: %v", pkg.ErrBadRequest, target, err)
		}
		rawArgs = append(rawArgs, data)
	}
	return hubproto.Encode(hubproto.Frame{
		Type:         hubproto.FrameTypeInvocation,
		InvocationID: id,
		Target:       target,
		Arguments:    rawArgs,
	})
}

// dropConn, aktif websocket'i kapatır ve temizler. Kopan bağlantının
// completion'ı artık gelmeyeceği için bekleyen invoke'lar hemen
// düşürülür; caller timeout beklemeden ErrNotConnected alır.
func (c *Conn) dropConn() {
	c.mu.Lock()
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	pending := c.pending
	c.pending = make(map[string]chan hubproto.Frame)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close, bağlantıyı kalıcı olarak kapatır. Idempotent.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()
	c.setStatus(StatusDisconnected)
}
