package models

import "time"

// Audit actions.
const (
	ActionLogin                = "LOGIN"
	ActionLogout               = "LOGOUT"
	ActionAddPassword          = "ADD_PASSWORD"
	ActionUpdatePassword       = "UPDATE_PASSWORD"
	ActionDeletePassword       = "DELETE_PASSWORD"
	ActionCopyToClipboard      = "COPY_TO_CLIPBOARD"
	ActionExport               = "EXPORT"
	ActionImport               = "IMPORT"
	ActionChangeMasterPassword = "CHANGE_MASTER_PASSWORD"
)

// AuditLogEntry is an append-only record of a vault action.
type AuditLogEntry struct {
	ID        int64
	OwnerID   string
	Action    string
	Details   string
	Timestamp time.Time
}

// FailedAttempt is a failed login for a username, kept before any owner is known.
type FailedAttempt struct {
	ID        int64
	Username  string
	Timestamp time.Time
}
