// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ssh manages the vault's Ed25519 identity: generation, rebuilding
// from the stored seed, OpenSSH public key export and signer construction.
package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/toeirei/securessh/internal/security"
	"golang.org/x/crypto/ssh"
)

// PrivateKeyLen is the length of the stored private half (the Ed25519 seed).
const PrivateKeyLen = ed25519.SeedSize

// ErrInvalidKeyMaterial is returned for private key bytes of the wrong size.
var ErrInvalidKeyMaterial = errors.New("invalid private key material")

var randReader io.Reader = rand.Reader

// Identity is an Ed25519 keypair. The private half is the 32-byte seed kept
// in a security.Buffer; the public half is derived from it.
type Identity struct {
	private *security.Buffer
	public  ed25519.PublicKey
	sshPub  ssh.PublicKey
}

// Generate creates a fresh keypair from the system random source.
func Generate() (*Identity, error) {
	seed := make([]byte, PrivateKeyLen)
	if _, err := io.ReadFull(randReader, seed); err != nil {
		return nil, fmt.Errorf("generate ed25519 seed: %w", err)
	}
	return newIdentity(security.NewBuffer(seed))
}

// FromPrivate rebuilds an identity from a stored seed. The bytes are copied;
// the caller keeps ownership of priv.
func FromPrivate(priv []byte) (*Identity, error) {
	if len(priv) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyMaterial, PrivateKeyLen, len(priv))
	}
	seed := make([]byte, PrivateKeyLen)
	copy(seed, priv)
	return newIdentity(security.NewBuffer(seed))
}

func newIdentity(seed *security.Buffer) (*Identity, error) {
	expanded := ed25519.NewKeyFromSeed(seed.Bytes())
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, expanded.Public().(ed25519.PublicKey))
	security.Zero(expanded)
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		seed.Destroy()
		return nil, fmt.Errorf("wrap public key: %w", err)
	}
	return &Identity{private: seed, public: pub, sshPub: sshPub}, nil
}

// Private exposes the seed for encryption into the vault.
func (id *Identity) Private() []byte { return id.private.Bytes() }

// PublicKey returns the public half.
func (id *Identity) PublicKey() ed25519.PublicKey { return id.public }

// ExportPublic formats the public key as an authorized_keys line.
func (id *Identity) ExportPublic(comment string) string {
	return FormatAuthorizedKey(id.sshPub, comment)
}

// SSHPublicKey wraps the public half for x/crypto/ssh.
func (id *Identity) SSHPublicKey() (ssh.PublicKey, error) {
	return id.sshPub, nil
}

// Signer returns an ssh.Signer backed by the expanded private key and a wipe
// function. Call wipe as soon as the handshake is done; the signer is
// unusable afterwards.
func (id *Identity) Signer() (ssh.Signer, func(), error) {
	expanded := ed25519.NewKeyFromSeed(id.private.Bytes())
	wipe := func() { security.Zero(expanded) }
	signer, err := ssh.NewSignerFromKey(expanded)
	if err != nil {
		wipe()
		return nil, func() {}, fmt.Errorf("create signer: %w", err)
	}
	return signer, wipe, nil
}

// Destroy wipes the private half.
func (id *Identity) Destroy() {
	if id == nil {
		return
	}
	id.private.Destroy()
}
