package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alinouri1989/chatnest-core/config"
	"github.com/alinouri1989/chatnest-core/models"
	"github.com/alinouri1989/chatnest-core/store"
	"github.com/alinouri1989/chatnest-core/upload"
)

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Error(message string) {
	n.messages = append(n.messages, message)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{
			BaseURL:          "http://localhost:5001",
			ChatHubPath:      "/ChatHub",
			NotificationPath: "/NotificationHub",
			CallHubPath:      "/CallHub",
		},
		Auth:   config.Auth{AccessToken: "test-token"},
		Search: config.Search{CacheTTL: time.Minute},
	}
}

// newTestClient, hub bağlantısı AÇMADAN bir client kurar.
// Handler ve reconciliation mantığı doğrudan test edilir.
func newTestClient(t *testing.T) (*Client, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	c, err := New(Options{
		Config: testConfig(),
		UserID: "me",
		Stores: Stores{
			Chats:    store.NewChatStore(nil),
			Contacts: store.NewContactStore(),
			Groups:   store.NewGroupStore(),
			Calls:    store.NewCallStore(),
		},
		Uploads:  upload.NewManager(),
		Notifier: notifier,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, notifier
}

func TestApplyIncomingMessagesCreatesContactPlaceholder(t *testing.T) {
	c, _ := newTestClient(t)

	sender := "peer"
	content := "hi"
	c.applyIncomingMessages(models.ChatTypeIndividual, map[string]map[string]*models.WireMessage{
		"c1": {"m1": {SenderID: &sender, Content: &content}},
	})

	chat, ok := c.stores.Chats.ChatByID(models.ChatTypeIndividual, "c1")
	require.True(t, ok)
	assert.Len(t, chat.Messages, 1)

	// Gönderen için placeholder profil açılmış olmalı.
	_, known := c.stores.Contacts.Get("peer")
	assert.True(t, known)
}

func TestApplyIncomingMessagesOwnMessageNoContact(t *testing.T) {
	c, _ := newTestClient(t)

	sender := "me"
	content := "hi"
	c.applyIncomingMessages(models.ChatTypeIndividual, map[string]map[string]*models.WireMessage{
		"c1": {"m1": {SenderID: &sender, Content: &content}},
	})

	_, known := c.stores.Contacts.Get("me")
	assert.False(t, known)
}

func TestAutoUnarchiveOnForeignMessage(t *testing.T) {
	c, _ := newTestClient(t)

	c.stores.Chats.AddIndividualChat("c1", &models.WireChat{
		Participants: models.ParticipantRefs{"me", "peer"},
	})
	c.stores.Chats.Archive("c1", map[string]models.ArchiveMarker{
		"me": {ArchivedDate: models.NewTimestamp(time.Now())},
	})

	sender := "peer"
	content := "yeni mesaj"
	c.applyIncomingMessages(models.ChatTypeIndividual, map[string]map[string]*models.WireMessage{
		"c1": {"m1": {SenderID: &sender, Content: &content}},
	})

	// Gelen foreign mesaj chat'i lokalde arşivden çıkarır
	// (sunucu invoke'u bağlantı olmadığı için loglanıp geçilir).
	chat, _ := c.stores.Chats.ChatByID(models.ChatTypeIndividual, "c1")
	assert.False(t, chat.IsArchivedFor("me"))
}

func TestIncomingEchoResolvesPendingUpload(t *testing.T) {
	c, _ := newTestClient(t)

	id, _ := c.uploads.Begin(models.ChatTypeIndividual, "c1", models.MessageTypeImage, "a.png", 10, "", nil)
	_, ok := c.uploads.Get(id)
	require.True(t, ok)

	sender := "me"
	c.applyIncomingMessages(models.ChatTypeIndividual, map[string]map[string]*models.WireMessage{
		"c1": {"m1": {SenderID: &sender, ClientMessageID: &id}},
	})

	_, ok = c.uploads.Get(id)
	assert.False(t, ok)
}

func TestReportErrorMasksInternalQueryErrors(t *testing.T) {
	c, notifier := newTestClient(t)

	c.reportError("chat", "The LINQ expression could not be translated")
	c.reportError("chat", "")
	c.reportError("chat", "نام گروه الزامی است")

	require.Len(t, notifier.messages, 3)
	assert.Equal(t, alertInternalError, notifier.messages[0])
	assert.Equal(t, alertGenericError, notifier.messages[1])
	assert.Equal(t, "نام گروه الزامی است", notifier.messages[2])
}

func TestDecodeCallEventExtractsPeerProfile(t *testing.T) {
	c, _ := newTestClient(t)

	raw := json.RawMessage(`{
		"callId": "call-1",
		"callType": 1,
		"peer-9": {"displayName": "سارا", "lastConnectionDate": "0001-01-01T00:00:00"},
		"me": {"displayName": "ben"}
	}`)

	payload, peerID, ok := c.decodeCallEvent("ReceiveIncomingCall", []json.RawMessage{raw})
	require.True(t, ok)
	assert.Equal(t, "call-1", payload.CallID)
	assert.Equal(t, models.CallTypeVideo, payload.CallType)
	assert.Equal(t, "peer-9", peerID)

	profile, known := c.stores.Contacts.Get("peer-9")
	require.True(t, known)
	assert.Equal(t, "سارا", profile.DisplayName)
	assert.True(t, profile.IsOnline())

	// Lokal kullanıcının anahtarı profil olarak işlenmez.
	_, known = c.stores.Contacts.Get("me")
	assert.False(t, known)
}

func TestDecodeCallEventRequiresCallID(t *testing.T) {
	c, _ := newTestClient(t)

	_, _, ok := c.decodeCallEvent("ReceiveIncomingCall", []json.RawMessage{
		json.RawMessage(`{"callType": 0}`),
	})
	assert.False(t, ok)

	_, _, ok = c.decodeCallEvent("ReceiveIncomingCall", nil)
	assert.False(t, ok)

	_, _, ok = c.decodeCallEvent("ReceiveIncomingCall", []json.RawMessage{
		json.RawMessage(`not json`),
	})
	assert.False(t, ok)
}

func TestMergeExtraProfilesSkipsMalformedEntries(t *testing.T) {
	c, _ := newTestClient(t)

	raw := json.RawMessage(`{
		"callId": "call-1",
		"peer-1": {"displayName": "الف"},
		"peer-2": 42
	}`)
	peerID := c.mergeExtraProfiles("test", []json.RawMessage{raw}, "callId")

	assert.Equal(t, "peer-1", peerID)
	_, known := c.stores.Contacts.Get("peer-2")
	assert.False(t, known)
}
