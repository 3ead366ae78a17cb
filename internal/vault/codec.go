// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/toeirei/securessh/internal/crypto"
	"github.com/toeirei/securessh/internal/security"
)

const (
	// FormatVersion is the only container version this build reads or writes.
	FormatVersion uint32 = 1
	// HeaderLen is the size of version, salt and nonce together.
	HeaderLen = 4 + crypto.SaltLen + crypto.NonceLen
	// MinContainerLen is a header plus an empty payload's tag.
	MinContainerLen = HeaderLen + crypto.TagLen
)

// deriveKey is swapped in tests to observe KDF invocations.
var deriveKey = crypto.DeriveKey

// Container is a parsed, still encrypted container.
type Container struct {
	Version    uint32
	Salt       [crypto.SaltLen]byte
	Nonce      [crypto.NonceLen]byte
	Ciphertext []byte
}

// Marshal serializes the container.
func (c *Container) Marshal() []byte {
	out := make([]byte, HeaderLen+len(c.Ciphertext))
	binary.BigEndian.PutUint32(out[0:4], c.Version)
	copy(out[4:4+crypto.SaltLen], c.Salt[:])
	copy(out[4+crypto.SaltLen:HeaderLen], c.Nonce[:])
	copy(out[HeaderLen:], c.Ciphertext)
	return out
}

// Parse splits raw into its fields. Truncated input is reported as an
// authentication failure so corruption looks the same as a wrong password.
// The version is checked before any key material is touched.
func Parse(raw []byte) (*Container, error) {
	if len(raw) < MinContainerLen {
		return nil, crypto.ErrAuthenticationFailed
	}
	version := binary.BigEndian.Uint32(raw[0:4])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	c := &Container{Version: version}
	copy(c.Salt[:], raw[4:4+crypto.SaltLen])
	copy(c.Nonce[:], raw[4+crypto.SaltLen:HeaderLen])
	c.Ciphertext = append([]byte(nil), raw[HeaderLen:]...)
	return c, nil
}

// Encode seals payload under dk and embeds dk's salt.
func Encode(payload []byte, dk *crypto.DerivedKey) ([]byte, error) {
	nonce, ct, err := crypto.Encrypt(dk.Key.Bytes(), payload)
	if err != nil {
		return nil, err
	}
	c := &Container{Version: FormatVersion, Salt: dk.Salt, Nonce: nonce, Ciphertext: ct}
	return c.Marshal(), nil
}

// Open derives a key from password and the embedded salt and decrypts the
// payload. The derived key is returned so the caller can reuse it for other
// containers sealed with the same salt; the caller owns both results.
func Open(raw, password []byte) (*security.Buffer, *crypto.DerivedKey, error) {
	c, err := Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	dk, err := deriveKey(password, &c.Salt)
	if err != nil {
		return nil, nil, err
	}
	pt, err := crypto.Decrypt(dk.Key.Bytes(), c.Nonce[:], c.Ciphertext)
	if err != nil {
		dk.Destroy()
		return nil, nil, err
	}
	return pt, dk, nil
}

// OpenWithKey decrypts raw with an already derived key. The embedded salt
// must equal the key's salt.
func OpenWithKey(raw []byte, dk *crypto.DerivedKey) (*security.Buffer, error) {
	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(c.Salt[:], dk.Salt[:]) != 1 {
		return nil, ErrSaltMismatch
	}
	return crypto.Decrypt(dk.Key.Bytes(), c.Nonce[:], c.Ciphertext)
}
