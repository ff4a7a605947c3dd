package store

import (
	"sync"

	"github.com/alinouri1989/chatnest-core/models"
)

// CallDirection, aktif çağrının yönü.
type CallDirection int

const (
	CallDirectionIncoming CallDirection = iota
	CallDirectionOutgoing
)

// ActiveCall, devam eden çağrının UI'a dönük özeti.
// Çağrı state machine'inin asıl sahibi call.Controller'dır; buradaki
// kayıt render ve "meşgul mü" kararı için tutulur.
type ActiveCall struct {
	ID        string
	PeerID    string
	Type      models.CallType
	Direction CallDirection

	// Started: medya akmaya başladı (ilk remote track geldi).
	Started bool
	// AcceptWaiting: lokal kullanıcı kabul etti, SDP exchange bekleniyor.
	AcceptWaiting bool
}

// CallStore, çağrı geçmişi ve aktif çağrı kaydının store'u.
type CallStore struct {
	mu     sync.RWMutex
	calls  []models.Call
	active *ActiveCall
}

// NewCallStore, boş bir CallStore oluşturur.
func NewCallStore() *CallStore {
	return &CallStore{}
}

// ─── Çağrı geçmişi ───

// Initialize, initial çağrı geçmişi snapshot'ını yükler.
// Aynı id birden fazla gelirse tek kayıt tutulur.
func (s *CallStore) Initialize(calls map[string]*models.WireCall) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = nil
	for callID, wire := range calls {
		if callID == "" || wire == nil {
			continue
		}
		if s.findCallLocked(callID) >= 0 {
			continue
		}
		s.calls = append(s.calls, wire.ToCall(callID))
	}
}

// ApplyResult, tamamlanan/güncellenen bir çağrı kaydını geçmişe merge eder.
// Var olan kayıt güncellenir; gelen payload'da katılımcı listesi boşsa
// mevcut katılımcılar korunur. Kayıt yoksa eklenir.
func (s *CallStore) ApplyResult(callID string, wire *models.WireCall) {
	if callID == "" || wire == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := wire.ToCall(callID)
	idx := s.findCallLocked(callID)
	if idx < 0 {
		s.calls = append(s.calls, incoming)
		return
	}

	existing := &s.calls[idx]
	if len(incoming.Participants) > 0 {
		existing.Participants = incoming.Participants
	}
	existing.Type = incoming.Type
	existing.Status = incoming.Status
	if incoming.CallDuration != "" {
		existing.CallDuration = incoming.CallDuration
	}
	if !incoming.CreatedDate.IsZero() {
		existing.CreatedDate = incoming.CreatedDate
	}
}

// Delete, çağrı kaydını geçmişten kaldırır.
func (s *CallStore) Delete(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.findCallLocked(callID); idx >= 0 {
		s.calls = append(s.calls[:idx], s.calls[idx+1:]...)
	}
}

// Calls, çağrı geçmişinin kopyasını döner.
func (s *CallStore) Calls() []models.Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *CallStore) findCallLocked(callID string) int {
	for i := range s.calls {
		if s.calls[i].ID == callID {
			return i
		}
	}
	return -1
}

// ─── Aktif çağrı ───

// StartIncoming, gelen çağrı kaydını açar. Zaten aktif çağrı varsa
// false döner — caller meşgul sinyali göndermelidir.
func (s *CallStore) StartIncoming(callID, callerID string, callType models.CallType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return false
	}
	s.active = &ActiveCall{ID: callID, PeerID: callerID, Type: callType, Direction: CallDirectionIncoming}
	return true
}

// StartOutgoing, giden çağrı kaydını açar. Zaten aktif çağrı varsa false döner.
func (s *CallStore) StartOutgoing(callID, calleeID string, callType models.CallType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return false
	}
	s.active = &ActiveCall{ID: callID, PeerID: calleeID, Type: callType, Direction: CallDirectionOutgoing}
	return true
}

// BindID, sunucunun atadığı çağrı id'sini aktif kayda bağlar.
// Giden çağrıda id, ReceiveOutgoingCall event'iyle sonradan gelir.
func (s *CallStore) BindID(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.ID == "" {
		s.active.ID = callID
	}
}

// SetStarted, aktif çağrıyı "medya akıyor" durumuna geçirir.
func (s *CallStore) SetStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Started = true
		s.active.AcceptWaiting = false
	}
}

// SetAcceptWaiting, kabul-sonrası SDP bekleme flag'ini set eder.
func (s *CallStore) SetAcceptWaiting(waiting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.AcceptWaiting = waiting
	}
}

// Active, aktif çağrı kaydının kopyasını döner.
func (s *CallStore) Active() (ActiveCall, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return ActiveCall{}, false
	}
	return *s.active, true
}

// ResetActive, aktif çağrı kaydını temizler. Çağrı hangi sebeple biterse
// bitsin (hangup, timeout, ICE failure, remote end) çağrılır — idempotent.
func (s *CallStore) ResetActive() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

// Reset, geçmiş dahil tüm çağrı state'ini sıfırlar.
func (s *CallStore) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.active = nil
	s.mu.Unlock()
}
