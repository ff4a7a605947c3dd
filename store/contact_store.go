package store

import (
	"sync"

	"github.com/alinouri1989/chatnest-core/models"
)

// ContactStore, userID → profil map'inin reconciliation store'u.
// Individual chat karşı tarafları, arama sonuçları ve call katılımcıları
// aynı profil havuzundan beslenir.
type ContactStore struct {
	mu       sync.RWMutex
	profiles map[string]models.ContactProfile
}

// NewContactStore, boş bir ContactStore oluşturur.
func NewContactStore() *ContactStore {
	return &ContactStore{profiles: make(map[string]models.ContactProfile)}
}

// Initialize, initial profil snapshot'ını yükler. Var olan profiller
// üzerine merge edilir — snapshot birden fazla hub'dan gelebilir
// (chat tarafı ve call tarafı ayrı initial liste yollar).
func (s *ContactStore) Initialize(profiles map[string]models.WireContactProfile) {
	s.Merge(profiles)
}

// Merge, gelen profil güncellemelerini mevcut profillerin üzerine
// alan bazlı merge eder. Eksik alanlar default ile doldurulur —
// merge sonrası profil her zaman görüntülenebilir durumdadır.
func (s *ContactStore) Merge(profiles map[string]models.WireContactProfile) {
	if len(profiles) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, incoming := range profiles {
		if userID == "" {
			continue
		}
		existing, ok := s.profiles[userID]
		if !ok {
			existing = models.DefaultContactProfile()
		}
		s.profiles[userID] = models.MergeContactProfile(existing, incoming)
	}
}

// Get, kullanıcının profilini döner. Profil yoksa default profil ve
// false döner — caller her durumda render edilebilir bir profil alır.
func (s *ContactStore) Get(userID string) (models.ContactProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p, true
	}
	return models.DefaultContactProfile(), false
}

// All, profil map'inin kopyasını döner.
func (s *ContactStore) All() map[string]models.ContactProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.ContactProfile, len(s.profiles))
	for id, p := range s.profiles {
		out[id] = p
	}
	return out
}

// Reset, profil havuzunu sıfırlar.
func (s *ContactStore) Reset() {
	s.mu.Lock()
	s.profiles = make(map[string]models.ContactProfile)
	s.mu.Unlock()
}
