// Package common defines the error taxonomy and small helpers shared by the
// vault packages. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Taxonomy roots.
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication failed")
	ErrLockout        = errors.New("locked out")
	ErrNotFound       = errors.New("not found")
	ErrPersistence    = errors.New("storage failure")
	ErrCodec          = errors.New("export codec error")

	// validation
	ErrUsernameTaken     = fmt.Errorf("%w: username already taken", ErrValidation)
	ErrMissingUsername   = fmt.Errorf("%w: username is required", ErrValidation)
	ErrMissingPassphrase = fmt.Errorf("%w: master password is required", ErrValidation)
	ErrMissingTitle      = fmt.Errorf("%w: title is required", ErrValidation)
	ErrMissingPassword   = fmt.Errorf("%w: password is required", ErrValidation)
	ErrWeakPassphrase    = fmt.Errorf("%w: passphrase is too weak", ErrValidation)

	// authentication; never distinguishes an unknown user from a wrong password
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid username or password", ErrAuthentication)
	ErrNotAuthenticated     = fmt.Errorf("%w: vault is locked", ErrAuthentication)
	ErrWrongCurrentPassword = fmt.Errorf("%w: current password is incorrect", ErrAuthentication)
	ErrDecryptionFailed     = fmt.Errorf("%w: message authentication failed", ErrAuthentication)

	ErrTooManyAttempts = fmt.Errorf("%w: too many failed attempts, try again later", ErrLockout)

	// export/import
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported envelope version", ErrCodec)
	ErrCorruptEnvelope    = fmt.Errorf("%w: corrupt envelope", ErrCodec)
	ErrImportDecryption   = fmt.Errorf("%w: envelope could not be decrypted", ErrCodec)
)

// Persistence marks err as a storage failure while keeping the driver error
// reachable through errors.Is / errors.As.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
