package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantRefsVariants(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"plain strings", `["u1","u2"]`, []string{"u1", "u2"}},
		{"object refs", `[{"userId":"u1"},{"userId":"u2"}]`, []string{"u1", "u2"}},
		{"mixed", `["u1",{"userId":"u2"}]`, []string{"u1", "u2"}},
		{"empty entries dropped", `["u1","",{"userId":""}]`, []string{"u1"}},
		{"null", `null`, nil},
		{"garbage degrades to empty", `{"not":"a list"}`, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var refs ParticipantRefs
			require.NoError(t, json.Unmarshal([]byte(tc.in), &refs))
			assert.Equal(t, tc.want, []string(refs))
		})
	}
}

func TestWireChatPrefersParticipantsOverChatParticipants(t *testing.T) {
	var wire WireChat
	require.NoError(t, json.Unmarshal([]byte(`{
		"participants": ["a","b"],
		"chatParticipants": [{"userId":"c"}]
	}`), &wire))
	assert.Equal(t, []string{"a", "b"}, wire.ParticipantIDs())

	var fallback WireChat
	require.NoError(t, json.Unmarshal([]byte(`{
		"chatParticipants": [{"userId":"c"},{"userId":"d"}]
	}`), &fallback))
	assert.Equal(t, []string{"c", "d"}, fallback.ParticipantIDs())
}

func TestTombstoneDetection(t *testing.T) {
	text := MessageTypeText
	image := MessageTypeImage
	exact := TombstoneContent
	keywords := "متاسفانه این پیام توسط فرستنده حذف گردید"
	plain := "سلام"

	cases := []struct {
		name    string
		msg     WireMessage
		deleted bool
	}{
		{"exact tombstone", WireMessage{Type: &text, Content: &exact}, true},
		{"keyword fallback", WireMessage{Type: &text, Content: &keywords}, true},
		{"plain text", WireMessage{Type: &text, Content: &plain}, false},
		{"non-text never tombstone", WireMessage{Type: &image, Content: &exact}, false},
		{"missing type", WireMessage{Content: &exact}, false},
		{"nil message", WireMessage{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.deleted, tc.msg.IsTombstone())
		})
	}
}

func TestTimestampOnlineSentinel(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"0001-01-01T00:00:00"`), &ts))
	assert.True(t, ts.IsZero())

	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"0001-01-01T00:00:00"`, string(out))
}

func TestTimestampTolerantParsing(t *testing.T) {
	cases := []string{
		`"2025-03-01T10:30:00Z"`,
		`"2025-03-01T10:30:00.123456789Z"`,
		`"2025-03-01T10:30:00"`,
		`"2025-03-01 10:30:00"`,
	}
	for _, in := range cases {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.Equal(t, 2025, ts.Year(), in)
	}

	// Parse edilemeyen değer hata değil, zero time olur.
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"not a date"`), &ts))
	assert.True(t, ts.IsZero())
}

func TestMergeContactProfile(t *testing.T) {
	existing := ContactProfile{
		DisplayName:  "Ali",
		ProfilePhoto: "https://example.test/ali.png",
	}

	name := "Ali Nouri"
	empty := ""
	merged := MergeContactProfile(existing, WireContactProfile{
		DisplayName:  &name,
		ProfilePhoto: &empty,
	})

	assert.Equal(t, "Ali Nouri", merged.DisplayName)
	// Boş foto mevcut değerin üzerine yazmaz.
	assert.Equal(t, "https://example.test/ali.png", merged.ProfilePhoto)

	// Hiç fotoğrafı olmayan profil default'a düşer.
	fresh := MergeContactProfile(ContactProfile{}, WireContactProfile{DisplayName: &name})
	assert.Equal(t, DefaultProfilePhoto, fresh.ProfilePhoto)
}

func TestGroupRoleSentinelFiltering(t *testing.T) {
	g := GroupProfile{
		Participants: map[string]GroupParticipant{
			"admin":   {Role: GroupRoleAdmin},
			"member":  {Role: GroupRoleMember},
			"removed": {Role: GroupRoleRemoved},
		},
	}

	ids := g.ActiveParticipantIDs()
	assert.ElementsMatch(t, []string{"admin", "member"}, ids)
	assert.Equal(t, 2, g.ActiveParticipantCount())

	// Sentinel kayıt silinmez — rol sorgusu hâlâ çalışır.
	role, ok := g.RoleOf("removed")
	require.True(t, ok)
	assert.Equal(t, GroupRoleRemoved, role)
}

func TestWireMessageApplyToMergesFields(t *testing.T) {
	msg := Message{
		ID:       "m1",
		SenderID: "u1",
		Content:  "hello",
		Status:   NewMessageStatus(),
	}
	msg.Status.Sent["u1"] = NewTimestamp(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	newStatus := NewMessageStatus()
	newStatus.Delivered["u2"] = NewTimestamp(time.Date(2025, 3, 1, 10, 1, 0, 0, time.UTC))

	update := WireMessage{Status: &newStatus}
	update.ApplyTo(&msg)

	// Gelmeyen alanlar korunur, Status bütün olarak değişir.
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "u1", msg.SenderID)
	assert.Contains(t, msg.Status.Delivered, "u2")
	assert.NotContains(t, msg.Status.Sent, "u1")
}
