// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package crypto

import (
	"fmt"
	"io"

	"github.com/toeirei/securessh/internal/security"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// NonceLen is the ChaCha20-Poly1305 nonce size.
	NonceLen = chacha20poly1305.NonceSize
	// TagLen is the Poly1305 authentication tag size.
	TagLen = chacha20poly1305.Overhead
)

// Encrypt seals plaintext under key with a fresh random nonce. The returned
// ciphertext carries the 16-byte tag at its end.
func Encrypt(key, plaintext []byte) (nonce [NonceLen]byte, ciphertext []byte, err error) {
	if len(key) != KeyLen {
		return nonce, nil, fmt.Errorf("%w: invalid key length %d", ErrEncryptionFailed, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nonce, nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if _, err := io.ReadFull(randReader, nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("%w: generate nonce: %v", ErrEncryptionFailed, err)
	}
	ciphertext = aead.Seal(nil, nonce[:], plaintext, nil)
	return nonce, ciphertext, nil
}

// Decrypt opens ciphertext. Every failure maps to ErrAuthenticationFailed.
func Decrypt(key, nonce, ciphertext []byte) (*security.Buffer, error) {
	if len(key) != KeyLen || len(nonce) != NonceLen {
		return nil, ErrAuthenticationFailed
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return security.NewBuffer(plaintext), nil
}
