package models

import "time"

// Settings are per-user preferences, one row per owner.
type Settings struct {
	OwnerID                 string
	ClipboardTimeoutSeconds int
	AutoLockTimeoutSeconds  int
	Theme                   string
	Language                string
}

func (s Settings) ClipboardTimeout() time.Duration {
	return time.Duration(s.ClipboardTimeoutSeconds) * time.Second
}

func (s Settings) AutoLockTimeout() time.Duration {
	return time.Duration(s.AutoLockTimeoutSeconds) * time.Second
}

// SettingsUpdate changes the non-nil fields only.
type SettingsUpdate struct {
	ClipboardTimeoutSeconds *int
	AutoLockTimeoutSeconds  *int
	Theme                   *string
	Language                *string
}

// Apply returns s with u applied.
func (u SettingsUpdate) Apply(s Settings) Settings {
	if u.ClipboardTimeoutSeconds != nil {
		s.ClipboardTimeoutSeconds = *u.ClipboardTimeoutSeconds
	}
	if u.AutoLockTimeoutSeconds != nil {
		s.AutoLockTimeoutSeconds = *u.AutoLockTimeoutSeconds
	}
	if u.Theme != nil {
		s.Theme = *u.Theme
	}
	if u.Language != nil {
		s.Language = *u.Language
	}
	return s
}
