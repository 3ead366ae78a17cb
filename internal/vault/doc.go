// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package vault owns the on-disk container format and the data directory
// that holds the encrypted identity, its public half and the encrypted
// server list.
//
// A container is laid out as
//
//	version (u32, big-endian) || salt (32) || nonce (12) || ciphertext+tag
//
// The identity container's salt is the canonical salt: one password
// derivation per command unlocks both the identity and the server list.
package vault
