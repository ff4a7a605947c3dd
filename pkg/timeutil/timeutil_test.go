package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alinouri1989/chatnest-core/models"
)

var now = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func TestFormatLastConnection(t *testing.T) {
	// Zero timestamp = online sentinel'i.
	assert.Equal(t, "آنلاین", FormatLastConnection(models.Timestamp{}, now))

	today := models.NewTimestamp(time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC))
	assert.Equal(t, "امروز 09:05", FormatLastConnection(today, now))

	yesterday := models.NewTimestamp(time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "دیروز 23:59", FormatLastConnection(yesterday, now))

	older := models.NewTimestamp(time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025/01/02", FormatLastConnection(older, now))
}

func TestFormatLastMessageDate(t *testing.T) {
	assert.Equal(t, "", FormatLastMessageDate(models.Timestamp{}, now))

	today := models.NewTimestamp(time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC))
	assert.Equal(t, "09:05", FormatLastMessageDate(today, now))

	yesterday := models.NewTimestamp(time.Date(2025, 3, 9, 9, 5, 0, 0, time.UTC))
	assert.Equal(t, "دیروز", FormatLastMessageDate(yesterday, now))

	older := models.NewTimestamp(time.Date(2024, 12, 31, 9, 5, 0, 0, time.UTC))
	assert.Equal(t, "2024/12/31", FormatLastMessageDate(older, now))
}

func timedMessage(id string, sentAt time.Time) models.Message {
	status := models.NewMessageStatus()
	status.Sent["peer"] = models.NewTimestamp(sentAt)
	return models.Message{ID: id, SenderID: "peer", Status: status}
}

func TestGroupMessagesByDate(t *testing.T) {
	messages := []models.Message{
		timedMessage("m3", time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)),  // bugün
		timedMessage("m1", time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)),  // eski
		timedMessage("m2", time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)),  // dün
		timedMessage("m4", time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)), // bugün
	}

	groups := GroupMessagesByDate(messages, now)
	require.Len(t, groups, 3)

	assert.Equal(t, "2025/03/08", groups[0].Label)
	assert.Equal(t, "دیروز", groups[1].Label)
	assert.Equal(t, "امروز", groups[2].Label)
	require.Len(t, groups[2].Messages, 2)
	assert.Equal(t, "m3", groups[2].Messages[0].ID)
	assert.Equal(t, "m4", groups[2].Messages[1].ID)

	// Girdi mutate edilmez.
	assert.Equal(t, "m3", messages[0].ID)
}

func TestGroupMessagesByDateDeterministicTiebreak(t *testing.T) {
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	messages := []models.Message{
		timedMessage("b", at),
		timedMessage("a", at),
	}

	groups := GroupMessagesByDate(messages, now)
	require.Len(t, groups, 1)
	assert.Equal(t, "a", groups[0].Messages[0].ID)
	assert.Equal(t, "b", groups[0].Messages[1].ID)
}

func TestGroupMessagesByDateEmpty(t *testing.T) {
	assert.Nil(t, GroupMessagesByDate(nil, now))
}

func TestFormatCallDuration(t *testing.T) {
	assert.Equal(t, "0 ثانیه", FormatCallDuration(0))
	assert.Equal(t, "0 ثانیه", FormatCallDuration(-5*time.Second))
	assert.Equal(t, "42 ثانیه", FormatCallDuration(42*time.Second))
	assert.Equal(t, "2 دقیقه", FormatCallDuration(2*time.Minute))
	assert.Equal(t, "1 ساعت 1 دقیقه 1 ثانیه", FormatCallDuration(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "1 ساعت 5 ثانیه", FormatCallDuration(time.Hour+5*time.Second))
}

func TestChatDisplayLabel(t *testing.T) {
	names := func(id string) string {
		if id == "u2" {
			return "سارا"
		}
		return ""
	}

	assert.Equal(t, "سارا", ChatDisplayLabel([]string{"u1", "u2"}, "u1", names))
	// Resolver isim bulamazsa id gösterilir.
	assert.Equal(t, "u3", ChatDisplayLabel([]string{"u1", "u3"}, "u1", names))
	assert.Equal(t, "u3", ChatDisplayLabel([]string{"u1", "u3"}, "u1", nil))
	// Kendisiyle olan chat.
	assert.Equal(t, "پیام‌های ذخیره‌شده", ChatDisplayLabel([]string{"u1", "u1"}, "u1", names))
	assert.Equal(t, "پیام‌های ذخیره‌شده", ChatDisplayLabel(nil, "u1", names))
}
