// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package crypto

import "errors"

var (
	// ErrKeyDerivationFailed is returned when the KDF cannot be set up, e.g.
	// the random source fails while generating a salt.
	ErrKeyDerivationFailed = errors.New("key derivation failed")

	// ErrAuthenticationFailed covers a wrong key, wrong nonce and any
	// tampering alike. Callers must not try to tell these apart.
	ErrAuthenticationFailed = errors.New("decryption failed: wrong password or corrupted data")

	// ErrEncryptionFailed is returned when sealing cannot proceed.
	ErrEncryptionFailed = errors.New("encryption failed")
)
