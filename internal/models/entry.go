package models

import (
	"time"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
)

// Entry is a stored vault entry. Password and Notes are sealed under the
// owner's data key; Notes is nil when the entry has none.
type Entry struct {
	ID           string
	OwnerID      string
	Title        string
	Username     string
	Email        string
	URL          string
	Category     string
	Password     cryptox.Sealed
	Notes        *cryptox.Sealed
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastAccessed *time.Time
}

// EntryFields is the plaintext input of a new entry.
type EntryFields struct {
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	URL      string `json:"url,omitempty"`
	Category string `json:"category,omitempty"`
	Password string `json:"password"`
	Notes    string `json:"notes,omitempty"`
}

// EntryUpdate carries the fields a caller wants to change; nil means keep.
// An empty Notes clears the notes.
type EntryUpdate struct {
	Title    *string
	Username *string
	Email    *string
	URL      *string
	Category *string
	Password *string
	Notes    *string
}

// IsEmpty reports whether no field is set.
func (u EntryUpdate) IsEmpty() bool {
	return u.Title == nil && u.Username == nil && u.Email == nil && u.URL == nil &&
		u.Category == nil && u.Password == nil && u.Notes == nil
}

// EntryPatch is the store-level form of EntryUpdate with secrets sealed.
// UpdatedAt is always written.
type EntryPatch struct {
	Title      *string
	Username   *string
	Email      *string
	URL        *string
	Category   *string
	Password   *cryptox.Sealed
	Notes      *cryptox.Sealed
	ClearNotes bool
	UpdatedAt  time.Time
}

// EntryPlaintext is a decrypted entry as handed to callers.
type EntryPlaintext struct {
	ID           string     `json:"id,omitempty"`
	Title        string     `json:"title"`
	Username     string     `json:"username,omitempty"`
	Email        string     `json:"email,omitempty"`
	URL          string     `json:"url,omitempty"`
	Category     string     `json:"category"`
	Password     string     `json:"password"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
}

// Fields returns the user-editable part of p.
func (p EntryPlaintext) Fields() EntryFields {
	return EntryFields{
		Title:    p.Title,
		Username: p.Username,
		Email:    p.Email,
		URL:      p.URL,
		Category: p.Category,
		Password: p.Password,
		Notes:    p.Notes,
	}
}

// EntrySummary is an entry without its secrets, for listings.
type EntrySummary struct {
	ID        string
	Title     string
	Username  string
	Email     string
	URL       string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary drops the sealed fields of e.
func (e *Entry) Summary() EntrySummary {
	return EntrySummary{
		ID:        e.ID,
		Title:     e.Title,
		Username:  e.Username,
		Email:     e.Email,
		URL:       e.URL,
		Category:  e.Category,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
