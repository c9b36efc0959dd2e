// Package models contains the vault's domain records as stored and returned
// by the credential store.
package models

import (
	"time"

	"github.com/dmitrijs2005/passvault/internal/cryptox"
)

// KDFParams records the cost parameters a user's credentials were made with.
type KDFParams struct {
	Scrypt           cryptox.ScryptParams
	PBKDF2Iterations int
}

// MasterUser is the single credential record per vault owner. Only the
// hash, salt and KDF parameters change after creation.
type MasterUser struct {
	ID           string
	Username     string
	PasswordHash []byte
	PasswordSalt []byte
	KDF          KDFParams
	CreatedAt    time.Time
}
