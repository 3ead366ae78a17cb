//go:build !unix && !windows

// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package security

func lockMemory([]byte) error   { return nil }
func unlockMemory([]byte) error { return nil }
