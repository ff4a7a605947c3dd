// Package main, chatnest client core'un giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Access token'dan kullanıcı kimliğini çıkar
//  3. Mesaj şifreleme katmanını kur
//  4. Reconciliation store'ları oluştur
//  5. Upload manager'ı oluştur
//  6. Session client'ı kur (üç hub bağlantısı + handler'lar)
//  7. Call controller'ı kur ve client'a bağla
//  8. Bağlantıları aç, initial snapshot'ları iste
//  9. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alinouri1989/chatnest-core/call"
	"github.com/alinouri1989/chatnest-core/config"
	"github.com/alinouri1989/chatnest-core/peer"
	"github.com/alinouri1989/chatnest-core/pkg/crypto"
	"github.com/alinouri1989/chatnest-core/pkg/token"
	"github.com/alinouri1989/chatnest-core/session"
	"github.com/alinouri1989/chatnest-core/store"
	"github.com/alinouri1989/chatnest-core/upload"
)

// logNotifier, kullanıcı alert'lerini log'a yazar. Gerçek UI katmanı
// kendi Notifier implementasyonunu bağlar.
type logNotifier struct{}

func (logNotifier) Error(message string) {
	log.Printf("[alert] %s", message)
}

// logRinger, zil/meşgul tonu event'lerini log'a yazar. Ses çıkışı UI
// katmanının işidir.
type logRinger struct{}

func (logRinger) StartRinging(incoming bool) {
	if incoming {
		log.Printf("[ringer] incoming call ringing")
		return
	}
	log.Printf("[ringer] outgoing call ringing")
}

func (logRinger) StartBusyTone() {
	log.Printf("[ringer] busy tone")
}

func (logRinger) Stop() {}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] chatnest core starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (server=%s)", cfg.Server.BaseURL)

	// ─── 2. Kullanıcı Kimliği ───
	userID, err := token.UserID(cfg.Auth.AccessToken)
	if err != nil {
		log.Fatalf("[main] failed to resolve user id: %v", err)
	}
	log.Printf("[main] session user: %s", userID)

	// ─── 3. Mesaj Şifreleme ───
	cipher := crypto.NewMessageCipher(cfg.Crypto.MessageSecret)

	// ─── 4. Store Layer ───
	stores := session.Stores{
		Chats:    store.NewChatStore(cipher.DecryptMessage),
		Contacts: store.NewContactStore(),
		Groups:   store.NewGroupStore(),
		Calls:    store.NewCallStore(),
	}

	// ─── 5. Upload Manager ───
	uploads := upload.NewManager()

	// ─── 6. Session Client ───
	client, err := session.New(session.Options{
		Config:   cfg,
		UserID:   userID,
		Stores:   stores,
		Cipher:   cipher,
		Uploads:  uploads,
		Notifier: logNotifier{},
	})
	if err != nil {
		log.Fatalf("[main] failed to build session client: %v", err)
	}

	// ─── 7. Call Controller ───
	connFactory := peer.NewPionConnFactory(cfg.WebRTC.StunServers)
	sessions := func(video bool) *peer.Session {
		return peer.NewSession(connFactory, peer.PionMediaDevices{}, video)
	}
	controller := call.NewController(client, logRinger{}, sessions, stores.Calls, call.Config{
		AnswerTimeout:    cfg.Call.AnswerTimeout,
		BusyToneDuration: cfg.Call.BusyToneDuration,
	})
	client.BindCalls(controller)

	// ─── 8. Bağlantılar ───
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Start(ctx); err != nil {
		log.Fatalf("[main] failed to connect: %v", err)
	}
	log.Println("[main] connected, session ready")

	// ─── 9. Graceful Shutdown ───
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[main] shutting down...")
	client.HangUp()
	client.Close()
	log.Println("[main] goodbye")
}
