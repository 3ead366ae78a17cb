//go:build unix

// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import "golang.org/x/sys/unix"

// lockMemory asks the kernel to keep b out of swap. It commonly fails without
// CAP_IPC_LOCK or with a low RLIMIT_MEMLOCK, which callers treat as best effort.
func lockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Mlock(b)
}

func unlockMemory(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munlock(b)
}
