package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alinouri1989/chatnest-core/models"
)

func TestCallInitializeSkipsInvalidEntries(t *testing.T) {
	s := NewCallStore()

	s.Initialize(map[string]*models.WireCall{
		"call-1": {Participants: models.ParticipantRefs{"u1", "u2"}, Type: models.CallTypeVoice},
		"":       {Participants: models.ParticipantRefs{"u1", "u2"}},
		"call-2": nil,
	})

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)
}

func TestApplyResultPreservesParticipantsWhenIncomingEmpty(t *testing.T) {
	s := NewCallStore()
	s.Initialize(map[string]*models.WireCall{
		"call-1": {Participants: models.ParticipantRefs{"u1", "u2"}, Type: models.CallTypeVideo},
	})

	// EndCall sonucu çoğunlukla katılımcı listesi olmadan gelir.
	s.ApplyResult("call-1", &models.WireCall{
		Type:         models.CallTypeVideo,
		Status:       models.CallEndReasonNoAnswer,
		CallDuration: "00:00:42",
		CreatedDate:  models.NewTimestamp(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
	})

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"u1", "u2"}, calls[0].Participants)
	assert.Equal(t, "00:00:42", calls[0].CallDuration)
	assert.Equal(t, models.CallEndReasonNoAnswer, calls[0].Status)
}

func TestApplyResultInsertsUnknownCall(t *testing.T) {
	s := NewCallStore()

	s.ApplyResult("call-9", &models.WireCall{
		CallParticipants: models.ParticipantRefs{"u1", "u3"},
		Type:             models.CallTypeVoice,
	})

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"u1", "u3"}, calls[0].Participants)
}

func TestDeleteCall(t *testing.T) {
	s := NewCallStore()
	s.Initialize(map[string]*models.WireCall{
		"call-1": {Participants: models.ParticipantRefs{"u1", "u2"}},
		"call-2": {Participants: models.ParticipantRefs{"u1", "u3"}},
	})

	s.Delete("call-1")
	s.Delete("call-404") // no-op

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call-2", calls[0].ID)
}

func TestSingleActiveCall(t *testing.T) {
	s := NewCallStore()

	require.True(t, s.StartOutgoing("", "u2", models.CallTypeVoice))
	assert.False(t, s.StartIncoming("call-x", "u3", models.CallTypeVideo))
	assert.False(t, s.StartOutgoing("", "u4", models.CallTypeVoice))

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "u2", active.PeerID)
	assert.Equal(t, CallDirectionOutgoing, active.Direction)

	s.ResetActive()
	_, ok = s.Active()
	assert.False(t, ok)

	// Reset sonrası yeni çağrı açılabilir.
	assert.True(t, s.StartIncoming("call-y", "u3", models.CallTypeVideo))
}

func TestBindIDOnlyFillsEmpty(t *testing.T) {
	s := NewCallStore()
	require.True(t, s.StartOutgoing("", "u2", models.CallTypeVoice))

	s.BindID("call-1")
	active, _ := s.Active()
	assert.Equal(t, "call-1", active.ID)

	// Atanmış id üzerine yazılmaz.
	s.BindID("call-2")
	active, _ = s.Active()
	assert.Equal(t, "call-1", active.ID)
}

func TestActiveCallFlags(t *testing.T) {
	s := NewCallStore()
	require.True(t, s.StartIncoming("call-1", "u2", models.CallTypeVideo))

	s.SetAcceptWaiting(true)
	active, _ := s.Active()
	assert.True(t, active.AcceptWaiting)

	s.SetStarted()
	active, _ = s.Active()
	assert.True(t, active.Started)
	assert.False(t, active.AcceptWaiting)
}
