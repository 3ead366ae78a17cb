// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/toeirei/securessh/internal/crypto"
)

const (
	testPassword = "correct horse battery staple1"
	testPayload  = "test-private-key-32-bytes-long!"
)

func mustDerive(t *testing.T, password string, salt *[crypto.SaltLen]byte) *crypto.DerivedKey {
	t.Helper()
	dk, err := crypto.DeriveKey([]byte(password), salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	t.Cleanup(dk.Destroy)
	return dk
}

func TestContainerRoundTripWithFixedSalt(t *testing.T) {
	var zero [crypto.SaltLen]byte
	dk := mustDerive(t, testPassword, &zero)

	raw, err := Encode([]byte(testPayload), dk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	pt, got, err := Open(raw, []byte(testPassword))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer got.Destroy()
	defer pt.Destroy()
	if !bytes.Equal(pt.Bytes(), []byte(testPayload)) {
		t.Fatalf("payload mismatch: got %q", pt.Bytes())
	}
	if got.Salt != zero {
		t.Fatalf("returned key carries wrong salt")
	}
	if !bytes.Equal(got.Key.Bytes(), dk.Key.Bytes()) {
		t.Fatalf("re-derived key differs from original")
	}

	if _, _, err := Open(raw, []byte("wrong password")); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestEncodeLayout(t *testing.T) {
	var salt [crypto.SaltLen]byte
	for i := range salt {
		salt[i] = byte(i)
	}
	dk := mustDerive(t, testPassword, &salt)

	payload := []byte("hello")
	raw, err := Encode(payload, dk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if HeaderLen != 48 {
		t.Fatalf("HeaderLen = %d, want 48", HeaderLen)
	}
	if len(raw) != HeaderLen+len(payload)+crypto.TagLen {
		t.Fatalf("unexpected container length %d", len(raw))
	}
	if v := binary.BigEndian.Uint32(raw[:4]); v != FormatVersion {
		t.Fatalf("version = %d", v)
	}
	if !bytes.Equal(raw[4:4+crypto.SaltLen], salt[:]) {
		t.Fatalf("salt not embedded at offset 4")
	}

	c, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(c.Marshal(), raw) {
		t.Fatalf("Marshal(Parse(raw)) != raw")
	}

	again, err := Encode(payload, dk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bytes.Equal(raw[4+crypto.SaltLen:HeaderLen], again[4+crypto.SaltLen:HeaderLen]) {
		t.Fatalf("nonce reused across encryptions")
	}
}

func TestVersionMismatchRejectedBeforeDecryption(t *testing.T) {
	var zero [crypto.SaltLen]byte
	dk := mustDerive(t, testPassword, &zero)
	raw, err := Encode([]byte(testPayload), dk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	binary.BigEndian.PutUint32(raw[:4], FormatVersion+1)

	calls := 0
	prev := deriveKey
	deriveKey = func(p []byte, s *[crypto.SaltLen]byte) (*crypto.DerivedKey, error) {
		calls++
		return prev(p, s)
	}
	defer func() { deriveKey = prev }()

	if _, _, err := Open(raw, []byte(testPassword)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("key derivation ran %d times for a rejected container", calls)
	}
	if _, err := OpenWithKey(raw, dk); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("OpenWithKey: expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestParseTruncated(t *testing.T) {
	var zero [crypto.SaltLen]byte
	dk := mustDerive(t, testPassword, &zero)

	empty, err := Encode(nil, dk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(empty) != MinContainerLen {
		t.Fatalf("empty payload container length %d, want %d", len(empty), MinContainerLen)
	}
	if _, err := OpenWithKey(empty, dk); err != nil {
		t.Fatalf("empty payload should open: %v", err)
	}

	for _, n := range []int{0, 3, HeaderLen, MinContainerLen - 1} {
		if _, err := Parse(empty[:n]); !errors.Is(err, crypto.ErrAuthenticationFailed) {
			t.Fatalf("len %d: expected ErrAuthenticationFailed, got %v", n, err)
		}
	}
}

func TestOpenWithKey(t *testing.T) {
	var zero [crypto.SaltLen]byte
	dk := mustDerive(t, testPassword, &zero)
	raw, err := Encode([]byte(testPayload), dk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	pt, err := OpenWithKey(raw, dk)
	if err != nil {
		t.Fatalf("OpenWithKey: %v", err)
	}
	if string(pt.Bytes()) != testPayload {
		t.Fatalf("payload mismatch")
	}
	pt.Destroy()

	var other [crypto.SaltLen]byte
	other[0] = 1
	otherKey := mustDerive(t, testPassword, &other)
	if _, err := OpenWithKey(raw, otherKey); !errors.Is(err, ErrSaltMismatch) {
		t.Fatalf("expected ErrSaltMismatch, got %v", err)
	}

	tampered := append([]byte(nil), raw...)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := OpenWithKey(tampered, dk); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for tampered tag, got %v", err)
	}
}
