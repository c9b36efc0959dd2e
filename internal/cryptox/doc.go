// Package cryptox implements the vault's stateless cryptography: passphrase
// based key derivation (scrypt), login verification hashes (PBKDF2-SHA512),
// AES-256-GCM sealing of individual fields and passphrase generation.
//
// Nothing in this package keeps key material after a call returns. Callers
// own every slice they pass in and are responsible for wiping it.
package cryptox
