// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package crypto provides the password-based key derivation (Argon2id) and
// authenticated encryption (ChaCha20-Poly1305) used by the vault containers.
// The cost parameters are fixed so every installation produces containers
// with identical security properties.
package crypto
