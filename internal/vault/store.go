// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/toeirei/securessh/internal/crypto"
	"github.com/toeirei/securessh/internal/crypto/ssh"
	"github.com/toeirei/securessh/internal/logging"
	"github.com/toeirei/securessh/internal/model"
	"github.com/toeirei/securessh/internal/security"
)

// File names inside the data directory.
const (
	IdentityFile   = "key.enc"
	PublicKeyFile  = "key.pub"
	ServersFile    = "servers.enc"
	KnownHostsFile = "known_hosts"

	// DataDirName is the default data directory next to the executable.
	DataDirName = "data"

	secretPerm = 0o600
	publicPerm = 0o644
	dirPerm    = 0o700
)

// renameFile is swapped in tests.
var renameFile = os.Rename

// Store is the data directory holding the vault files.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// ExecutableDir returns the directory the running binary lives in, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// DefaultDataDir is <executable dir>/data.
func DefaultDataDir() (string, error) {
	dir, err := ExecutableDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DataDirName), nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) IdentityPath() string   { return filepath.Join(s.dir, IdentityFile) }
func (s *Store) PublicKeyPath() string  { return filepath.Join(s.dir, PublicKeyFile) }
func (s *Store) ServersPath() string    { return filepath.Join(s.dir, ServersFile) }
func (s *Store) KnownHostsPath() string { return filepath.Join(s.dir, KnownHostsFile) }

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// IsInitialized reports whether an identity container exists.
func (s *Store) IsInitialized() (bool, error) {
	return fileExists(s.IdentityPath())
}

// SaveIdentity seals the identity's private key under dk and writes the
// public key file alongside it.
func (s *Store) SaveIdentity(id *ssh.Identity, comment string, dk *crypto.DerivedKey) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	sealed, err := Encode(id.Private(), dk)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.IdentityPath(), sealed, secretPerm); err != nil {
		return err
	}
	if err := writeFileAtomic(s.PublicKeyPath(), []byte(id.ExportPublic(comment)+"\n"), publicPerm); err != nil {
		return err
	}
	logging.Debugf("wrote identity to %s", s.dir)
	return nil
}

// Unlocked is an opened vault: the identity plus the key derived from the
// canonical salt. Close wipes both.
type Unlocked struct {
	Identity *ssh.Identity
	Key      *crypto.DerivedKey
}

// Close wipes the identity and the derived key.
func (u *Unlocked) Close() {
	if u == nil {
		return
	}
	u.Identity.Destroy()
	u.Key.Destroy()
}

// Unlock reads the identity container and decrypts it with password. A wrong
// password and a corrupted container both yield crypto.ErrAuthenticationFailed.
func (s *Store) Unlock(password []byte) (*Unlocked, error) {
	raw, err := os.ReadFile(s.IdentityPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}
	seed, dk, err := Open(raw, password)
	if err != nil {
		return nil, err
	}
	defer seed.Destroy()

	id, err := ssh.FromPrivate(seed.Bytes())
	if err != nil {
		dk.Destroy()
		return nil, err
	}
	return &Unlocked{Identity: id, Key: dk}, nil
}

// ReadPublicKey returns the stored authorized_keys line without unlocking.
func (s *Store) ReadPublicKey() (string, error) {
	data, err := os.ReadFile(s.PublicKeyPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotInitialized
		}
		return "", fmt.Errorf("read public key: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveServers seals the server list under dk.
func (s *Store) SaveServers(list *model.ServerList, dk *crypto.DerivedKey) error {
	sealed, err := sealServers(list, dk)
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	return writeFileAtomic(s.ServersPath(), sealed, secretPerm)
}

// LoadServers decrypts the server list with dk. A missing file is an empty list.
func (s *Store) LoadServers(dk *crypto.DerivedKey) (*model.ServerList, error) {
	raw, err := os.ReadFile(s.ServersPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &model.ServerList{}, nil
		}
		return nil, fmt.Errorf("read server list: %w", err)
	}
	pt, err := OpenWithKey(raw, dk)
	if err != nil {
		return nil, err
	}
	defer pt.Destroy()
	return model.UnmarshalServerList(pt.Bytes())
}

// Rekey re-encrypts the identity and the server list under a key derived
// from newPassword with a fresh salt. Both containers are staged before
// either is renamed into place, and the previous server list is put back if
// the identity cannot be replaced. The new key replaces u.Key; the old key
// is wiped.
func (s *Store) Rekey(u *Unlocked, servers *model.ServerList, newPassword []byte) error {
	newKey, err := deriveKey(newPassword, nil)
	if err != nil {
		return err
	}
	sealedID, err := Encode(u.Identity.Private(), newKey)
	if err != nil {
		newKey.Destroy()
		return err
	}
	sealedServers, err := sealServers(servers, newKey)
	if err != nil {
		newKey.Destroy()
		return err
	}

	idTmp, err := stageFile(s.IdentityPath(), sealedID, secretPerm)
	if err != nil {
		newKey.Destroy()
		return err
	}
	srvTmp, err := stageFile(s.ServersPath(), sealedServers, secretPerm)
	if err != nil {
		_ = os.Remove(idTmp)
		newKey.Destroy()
		return err
	}
	// A copy rather than a hard link: removable drives are often FAT.
	var oldTmp string
	old, err := readIfExists(s.ServersPath())
	if err == nil && old != nil {
		oldTmp, err = stageFile(s.ServersPath(), old, secretPerm)
	}
	if err != nil {
		_ = os.Remove(idTmp)
		_ = os.Remove(srvTmp)
		newKey.Destroy()
		return fmt.Errorf("keep previous server list: %w", err)
	}

	if err := renameFile(srvTmp, s.ServersPath()); err != nil {
		_ = os.Remove(idTmp)
		_ = os.Remove(srvTmp)
		if oldTmp != "" {
			_ = os.Remove(oldTmp)
		}
		newKey.Destroy()
		return fmt.Errorf("replace server list: %w", err)
	}
	if err := renameFile(idTmp, s.IdentityPath()); err != nil {
		_ = os.Remove(idTmp)
		s.rollbackServers(oldTmp)
		newKey.Destroy()
		return fmt.Errorf("replace identity: %w", err)
	}
	if oldTmp != "" {
		_ = os.Remove(oldTmp)
	}

	u.Key.Destroy()
	u.Key = newKey
	logging.Debugf("re-encrypted vault in %s", s.dir)
	return nil
}

// rollbackServers restores the server list saved before a failed rekey. An
// empty oldTmp means there was none.
func (s *Store) rollbackServers(oldTmp string) {
	if oldTmp == "" {
		_ = os.Remove(s.ServersPath())
		return
	}
	if err := renameFile(oldTmp, s.ServersPath()); err != nil {
		logging.Errorf("could not restore previous server list, a copy is kept at %s: %v", oldTmp, err)
	}
}

func sealServers(list *model.ServerList, dk *crypto.DerivedKey) ([]byte, error) {
	plain, err := model.MarshalServerList(list)
	if err != nil {
		return nil, fmt.Errorf("encode server list: %w", err)
	}
	defer security.Zero(plain)
	return Encode(plain, dk)
}
