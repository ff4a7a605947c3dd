package store

import (
	"sync"

	"github.com/alinouri1989/chatnest-core/models"
)

// WireGroupProfile, grup profil güncellemelerinin wire şekli.
// Pointer alanlar partial update taşır; Participants geldiğinde
// map bütün olarak değiştirilir (sunucu her zaman tam set yollar).
type WireGroupProfile struct {
	Name         *string                            `json:"name"`
	Description  *string                            `json:"description"`
	Photo        *string                            `json:"photoUrl"`
	CreatedDate  *models.Timestamp                  `json:"createdDate"`
	Participants map[string]models.GroupParticipant `json:"participants"`
}

// GroupStore, groupID → grup profili map'inin reconciliation store'u.
type GroupStore struct {
	mu       sync.RWMutex
	profiles map[string]models.GroupProfile
}

// NewGroupStore, boş bir GroupStore oluşturur.
func NewGroupStore() *GroupStore {
	return &GroupStore{profiles: make(map[string]models.GroupProfile)}
}

// Initialize, initial grup profil snapshot'ını merge eder.
func (s *GroupStore) Initialize(profiles map[string]WireGroupProfile) {
	for groupID, wire := range profiles {
		s.Apply(groupID, wire)
	}
}

// Apply, gelen grup profil güncellemesini mevcut profilin üzerine merge
// eder; profil yoksa oluşturur. Güncelleme sonrası lokal kullanıcının
// rolünü döner — rolü sentinel (removed) olan kullanıcı gruptan
// çıkarılmıştır ve caller chat'i listeden kaldırmalıdır.
func (s *GroupStore) Apply(groupID string, wire WireGroupProfile) models.GroupProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.profiles[groupID]
	if wire.Name != nil {
		profile.Name = *wire.Name
	}
	if wire.Description != nil {
		profile.Description = *wire.Description
	}
	if wire.Photo != nil {
		profile.Photo = *wire.Photo
	}
	if wire.CreatedDate != nil {
		profile.CreatedDate = *wire.CreatedDate
	}
	if wire.Participants != nil {
		profile.Participants = wire.Participants
	}
	if profile.Participants == nil {
		profile.Participants = map[string]models.GroupParticipant{}
	}
	s.profiles[groupID] = profile
	return profile
}

// Remove, grup profilini kaldırır (lokal kullanıcı gruptan çıkarıldığında).
func (s *GroupStore) Remove(groupID string) {
	s.mu.Lock()
	delete(s.profiles, groupID)
	s.mu.Unlock()
}

// Get, grup profilini döner.
func (s *GroupStore) Get(groupID string) (models.GroupProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[groupID]
	return p, ok
}

// All, grup profil map'inin kopyasını döner.
func (s *GroupStore) All() map[string]models.GroupProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.GroupProfile, len(s.profiles))
	for id, p := range s.profiles {
		out[id] = p
	}
	return out
}

// Reset, grup profillerini sıfırlar.
func (s *GroupStore) Reset() {
	s.mu.Lock()
	s.profiles = make(map[string]models.GroupProfile)
	s.mu.Unlock()
}
