// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/securessh/internal/logging"
)

// BackupVersion is the schema version of BackupData.
const BackupVersion = 1

// maxBackupSize bounds the decompressed backup document.
const maxBackupSize = 4 << 20

// BackupData is the document stored inside a backup. Containers stay
// encrypted; a backup is only as sensitive as the vault itself.
type BackupData struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Files     map[string][]byte `json:"files"`
}

// backupFiles lists what a backup carries and the mode each file is restored with.
var backupFiles = []struct {
	name string
	perm os.FileMode
}{
	{IdentityFile, secretPerm},
	{PublicKeyFile, publicPerm},
	{ServersFile, secretPerm},
	{KnownHostsFile, secretPerm},
}

// CreateBackup writes a zstd-compressed JSON backup of the vault files to w.
func (s *Store) CreateBackup(w io.Writer) error {
	ok, err := s.IsInitialized()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}

	data := BackupData{Version: BackupVersion, CreatedAt: time.Now().UTC(), Files: map[string][]byte{}}
	for _, f := range backupFiles {
		raw, err := readIfExists(filepath.Join(s.dir, f.name))
		if err != nil {
			return err
		}
		if raw != nil {
			data.Files[f.name] = raw
		}
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(&data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish backup: %w", err)
	}
	logging.Debugf("backed up %d files from %s", len(data.Files), s.dir)
	return nil
}

// RestoreBackup replaces the vault files with the ones in r. An existing
// identity is only overwritten when force is set. Every container is parsed
// before anything is written.
func (s *Store) RestoreBackup(r io.Reader, force bool) error {
	ok, err := s.IsInitialized()
	if err != nil {
		return err
	}
	if ok && !force {
		return ErrAlreadyInitialized
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	var data BackupData
	if err := json.NewDecoder(io.LimitReader(zr, maxBackupSize)).Decode(&data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if data.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported backup version %d", ErrInvalidBackup, data.Version)
	}
	if err := validateBackup(&data); err != nil {
		return err
	}

	if err := s.ensureDir(); err != nil {
		return err
	}
	// Files absent from the backup are removed; left behind they would be
	// sealed under another vault's salt.
	for _, f := range backupFiles {
		path := filepath.Join(s.dir, f.name)
		raw, ok := data.Files[f.name]
		if !ok {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove stale %s: %w", f.name, err)
			}
			continue
		}
		if err := writeFileAtomic(path, raw, f.perm); err != nil {
			return err
		}
	}
	logging.Debugf("restored %d files into %s", len(data.Files), s.dir)
	return nil
}

func validateBackup(data *BackupData) error {
	known := map[string]bool{}
	for _, f := range backupFiles {
		known[f.name] = true
	}
	for name := range data.Files {
		if !known[name] {
			return fmt.Errorf("%w: unexpected file %q", ErrInvalidBackup, name)
		}
	}
	if _, ok := data.Files[IdentityFile]; !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidBackup, IdentityFile)
	}
	for name, raw := range data.Files {
		if !strings.HasSuffix(name, ".enc") {
			continue
		}
		if _, err := Parse(raw); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidBackup, name, err)
		}
	}
	return nil
}
