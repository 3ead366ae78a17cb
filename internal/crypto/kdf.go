// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/toeirei/securessh/internal/security"
	"golang.org/x/crypto/argon2"
)

const (
	// SaltLen is the salt length in bytes.
	SaltLen = 32
	// KeyLen is the derived key length in bytes.
	KeyLen = 32

	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// randReader is the entropy source for salts and nonces.
var randReader io.Reader = rand.Reader

// DerivedKey is a symmetric key together with the salt it was derived from.
type DerivedKey struct {
	Key  *security.Buffer
	Salt [SaltLen]byte
}

// Destroy wipes the key and the salt.
func (k *DerivedKey) Destroy() {
	if k == nil {
		return
	}
	k.Key.Destroy()
	security.Zero(k.Salt[:])
}

// DeriveKey runs Argon2id over password and salt. When salt is nil a fresh
// random salt is generated. Identical inputs always yield identical keys.
func DeriveKey(password []byte, salt *[SaltLen]byte) (*DerivedKey, error) {
	dk := &DerivedKey{}
	if salt != nil {
		dk.Salt = *salt
	} else if _, err := io.ReadFull(randReader, dk.Salt[:]); err != nil {
		return nil, fmt.Errorf("%w: generate salt: %v", ErrKeyDerivationFailed, err)
	}

	key := argon2.IDKey(password, dk.Salt[:], argonTime, argonMemory, argonThreads, KeyLen)
	dk.Key = security.NewBuffer(key)
	return dk, nil
}
