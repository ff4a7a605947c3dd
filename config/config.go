// Package config, client core'un tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, client'ın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	Server Server
	Auth   Auth
	Crypto Crypto
	WebRTC WebRTC
	Call   Call
	Search Search
}

// Server, hub sunucusunun adresi ve kanal path'leri.
type Server struct {
	BaseURL          string
	ChatHubPath      string
	NotificationPath string
	CallHubPath      string
}

// Auth, oturum kimlik bilgileri.
type Auth struct {
	AccessToken string // Bearer token — GİZLİ TUTULMALI
}

// Crypto, mesaj şifreleme ayarları.
type Crypto struct {
	MessageSecret string // Chat anahtarı türetiminde kullanılan secret
}

// WebRTC, peer bağlantısı ayarları.
type WebRTC struct {
	StunServers []string
}

// Call, çağrı zamanlayıcıları.
type Call struct {
	AnswerTimeout    time.Duration // Giden çağrının cevap bekleme süresi
	BusyToneDuration time.Duration // Meşgul tonunun çalma süresi
}

// Search, kullanıcı arama cache ayarları.
type Search struct {
	CacheTTL time.Duration
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	_ = godotenv.Load()

	accessToken := getEnv("ACCESS_TOKEN", "")
	if accessToken == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN environment variable is required")
	}

	messageSecret := getEnv("MESSAGE_SECRET", "")
	if messageSecret == "" {
		return nil, fmt.Errorf("MESSAGE_SECRET environment variable is required")
	}

	answerTimeout, err := strconv.Atoi(getEnv("CALL_ANSWER_TIMEOUT_SECONDS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid CALL_ANSWER_TIMEOUT_SECONDS: %w", err)
	}

	busyTone, err := strconv.Atoi(getEnv("CALL_BUSY_TONE_SECONDS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid CALL_BUSY_TONE_SECONDS: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("SEARCH_CACHE_TTL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEARCH_CACHE_TTL_SECONDS: %w", err)
	}

	cfg := &Config{
		Server: Server{
			BaseURL:          getEnv("BASE_URL", "https://localhost:5001"),
			ChatHubPath:      getEnv("CHAT_HUB_PATH", "/ChatHub"),
			NotificationPath: getEnv("NOTIFICATION_HUB_PATH", "/NotificationHub"),
			CallHubPath:      getEnv("CALL_HUB_PATH", "/CallHub"),
		},
		Auth: Auth{
			AccessToken: accessToken,
		},
		Crypto: Crypto{
			MessageSecret: messageSecret,
		},
		WebRTC: WebRTC{
			StunServers: splitList(getEnv("STUN_SERVERS", "stun:stun.l.google.com:19302")),
		},
		Call: Call{
			AnswerTimeout:    time.Duration(answerTimeout) * time.Second,
			BusyToneDuration: time.Duration(busyTone) * time.Second,
		},
		Search: Search{
			CacheTTL: time.Duration(cacheTTL) * time.Second,
		},
	}

	return cfg, nil
}

// splitList, virgülle ayrılmış listeyi parse eder; boş öğeler atılır.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
