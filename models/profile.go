package models

// DefaultProfilePhoto, profil fotoğrafı olmayan kullanıcılar için
// kullanılan placeholder URL'i.
const DefaultProfilePhoto = "https://res.cloudinary.com/chatnest/image/upload/default-profile-photo.png"

// ContactProfile, bir kullanıcının chat listesinde görünen profil bilgisi.
// LastConnectionDate zero time ise kullanıcı şu anda online demektir
// (sunucu online kullanıcılar için "0001-01-01T00:00:00" sentinel'i gönderir).
type ContactProfile struct {
	DisplayName        string    `json:"displayName"`
	Email              string    `json:"email"`
	Biography          string    `json:"biography"`
	ProfilePhoto       string    `json:"profilePhoto"`
	LastConnectionDate Timestamp `json:"lastConnectionDate"`
}

// DefaultContactProfile, boş ama geçerli bir profil döner.
// Henüz profili gelmemiş kullanıcılar için placeholder olarak kullanılır.
func DefaultContactProfile() ContactProfile {
	return ContactProfile{ProfilePhoto: DefaultProfilePhoto}
}

// IsOnline, kullanıcının şu anda online olup olmadığını döner.
func (p ContactProfile) IsOnline() bool {
	return p.LastConnectionDate.IsZero()
}

// WireContactProfile, profil güncellemelerinin wire şekli.
// Pointer alanlar partial update taşır — nil olan alan mevcut değeri korur.
type WireContactProfile struct {
	DisplayName        *string    `json:"displayName"`
	Email              *string    `json:"email"`
	Biography          *string    `json:"biography"`
	ProfilePhoto       *string    `json:"profilePhoto"`
	LastConnectionDate *Timestamp `json:"lastConnectionDate"`
}

// MergeContactProfile, gelen partial profili mevcut profille birleştirir.
// Gelen alan kazanır; gelmeyen alan mevcut değeri korur; ikisi de boşsa
// güvenli default'a düşer (boş string, default foto).
func MergeContactProfile(existing ContactProfile, incoming WireContactProfile) ContactProfile {
	merged := existing
	if incoming.DisplayName != nil {
		merged.DisplayName = *incoming.DisplayName
	}
	if incoming.Email != nil {
		merged.Email = *incoming.Email
	}
	if incoming.Biography != nil {
		merged.Biography = *incoming.Biography
	}
	if incoming.ProfilePhoto != nil && *incoming.ProfilePhoto != "" {
		merged.ProfilePhoto = *incoming.ProfilePhoto
	}
	if incoming.LastConnectionDate != nil {
		merged.LastConnectionDate = *incoming.LastConnectionDate
	}
	if merged.ProfilePhoto == "" {
		merged.ProfilePhoto = DefaultProfilePhoto
	}
	return merged
}

// ─── Group profilleri ───

// GroupRole, grup katılımcısının rolü.
//
// GroupRoleRemoved bir sentinel'dir: katılımcı map'ten silinmek yerine
// bu role geçirilir. Kayıt korunur — tekrar davet tespiti ve geçmiş
// için gereklidir. UI'a dönük sayım/iterasyon ve sunucuya gönderilen
// katılımcı listesi sentinel rolleri filtreler.
type GroupRole int

const (
	GroupRoleAdmin   GroupRole = 0
	GroupRoleMember  GroupRole = 1
	GroupRoleRemoved GroupRole = 2
)

// GroupParticipant, grup profilindeki tek bir katılımcı kaydı.
type GroupParticipant struct {
	Role GroupRole `json:"role"`
}

// GroupProfile, bir grubun profil bilgisi.
type GroupProfile struct {
	Name         string                      `json:"name"`
	Description  string                      `json:"description"`
	Photo        string                      `json:"photoUrl"`
	CreatedDate  Timestamp                   `json:"createdDate"`
	Participants map[string]GroupParticipant `json:"participants"`
}

// ActiveParticipantIDs, sentinel (removed) rolü filtrelenmiş katılımcı
// id'lerini döner. Sunucuya submit edilen katılımcı seti de budur.
func (g GroupProfile) ActiveParticipantIDs() []string {
	ids := make([]string, 0, len(g.Participants))
	for id, p := range g.Participants {
		if p.Role != GroupRoleRemoved {
			ids = append(ids, id)
		}
	}
	return ids
}

// ActiveParticipantCount, UI'da gösterilen katılımcı sayısı (sentinel hariç).
func (g GroupProfile) ActiveParticipantCount() int {
	n := 0
	for _, p := range g.Participants {
		if p.Role != GroupRoleRemoved {
			n++
		}
	}
	return n
}

// RoleOf, kullanıcının gruptaki rolünü döner.
// Kayıt yoksa (GroupRoleRemoved, false) yerine (GroupRoleMember, false) döner —
// ikinci dönüş değeri kaydın varlığını belirtir.
func (g GroupProfile) RoleOf(userID string) (GroupRole, bool) {
	p, ok := g.Participants[userID]
	if !ok {
		return GroupRoleMember, false
	}
	return p.Role, true
}
