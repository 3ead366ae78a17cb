// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import "errors"

var (
	// ErrTransportFailure covers network and protocol failures.
	ErrTransportFailure = errors.New("ssh connection failed")
	// ErrAuthRejected is returned when the server refuses every offered key.
	ErrAuthRejected = errors.New("ssh authentication rejected")
	// ErrHostKeyMismatch is returned when a pinned host presents another key.
	ErrHostKeyMismatch = errors.New("host key mismatch")
)
