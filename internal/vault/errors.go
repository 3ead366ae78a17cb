// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import "errors"

var (
	// ErrNotInitialized is returned when no identity container exists yet.
	ErrNotInitialized = errors.New("vault not initialized")

	// ErrAlreadyInitialized guards against overwriting an existing identity.
	ErrAlreadyInitialized = errors.New("vault already initialized")

	// ErrUnsupportedVersion is returned for containers with an unknown
	// format version. No decryption is attempted for them.
	ErrUnsupportedVersion = errors.New("unsupported container version")

	// ErrSaltMismatch is returned when a secondary container was not sealed
	// with the identity's salt.
	ErrSaltMismatch = errors.New("container salt does not match identity salt")

	// ErrInvalidBackup is returned when a backup archive is malformed or
	// lacks the identity container.
	ErrInvalidBackup = errors.New("invalid backup archive")
)
