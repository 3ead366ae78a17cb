// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/toeirei/securessh/internal/crypto"
	"github.com/toeirei/securessh/internal/crypto/ssh"
	"github.com/toeirei/securessh/internal/model"
)

// initStore creates an initialized vault in a temp dir.
func initStore(t *testing.T, password string) (*Store, *ssh.Identity) {
	t.Helper()
	st := NewStore(filepath.Join(t.TempDir(), DataDirName))
	id, err := ssh.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	t.Cleanup(id.Destroy)
	dk := mustDerive(t, password, nil)
	if err := st.SaveIdentity(id, "test-key", dk); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	return st, id
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestUnlockNotInitialized(t *testing.T) {
	st := NewStore(t.TempDir())
	if ok, err := st.IsInitialized(); err != nil || ok {
		t.Fatalf("IsInitialized = %v, %v", ok, err)
	}
	if _, err := st.Unlock([]byte(testPassword)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := st.ReadPublicKey(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from ReadPublicKey, got %v", err)
	}
}

func TestSaveIdentityAndUnlock(t *testing.T) {
	st, id := initStore(t, testPassword)

	if ok, err := st.IsInitialized(); err != nil || !ok {
		t.Fatalf("IsInitialized = %v, %v", ok, err)
	}

	u, err := st.Unlock([]byte(testPassword))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	defer u.Close()
	if !bytes.Equal(u.Identity.Private(), id.Private()) {
		t.Fatalf("unlocked private key differs")
	}

	pub, err := st.ReadPublicKey()
	if err != nil {
		t.Fatalf("ReadPublicKey: %v", err)
	}
	if pub != id.ExportPublic("test-key") {
		t.Fatalf("public key file = %q", pub)
	}

	if _, err := st.Unlock([]byte("wrong password")); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}

	if runtime.GOOS != "windows" {
		for path, want := range map[string]os.FileMode{
			st.IdentityPath():  0o600,
			st.PublicKeyPath(): 0o644,
		} {
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if got := info.Mode().Perm(); got != want {
				t.Fatalf("%s mode = %o, want %o", filepath.Base(path), got, want)
			}
		}
	}
	assertNoTempFiles(t, st.Dir())
}

func TestServersRoundTrip(t *testing.T) {
	st, _ := initStore(t, testPassword)
	u, err := st.Unlock([]byte(testPassword))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	defer u.Close()

	empty, err := st.LoadServers(u.Key)
	if err != nil {
		t.Fatalf("LoadServers on missing file: %v", err)
	}
	if !empty.IsEmpty() {
		t.Fatalf("expected empty list")
	}

	list := &model.ServerList{}
	for _, s := range []model.Server{
		{Name: "web", Host: "10.0.0.1", Port: 22, User: "root"},
		{Name: "db", Host: "db.internal", Port: 2222, User: "admin", Description: "primary"},
		{Name: "bastion", Host: "192.0.2.7", Port: 22, User: "ops"},
	} {
		if err := list.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := st.SaveServers(list, u.Key); err != nil {
		t.Fatalf("SaveServers: %v", err)
	}

	got, err := st.LoadServers(u.Key)
	if err != nil {
		t.Fatalf("LoadServers: %v", err)
	}
	if len(got.Servers) != len(list.Servers) {
		t.Fatalf("got %d servers", len(got.Servers))
	}
	for i := range list.Servers {
		if got.Servers[i] != list.Servers[i] {
			t.Fatalf("server %d: got %+v want %+v", i, got.Servers[i], list.Servers[i])
		}
	}

	stranger := mustDerive(t, testPassword, nil)
	if _, err := st.LoadServers(stranger); !errors.Is(err, ErrSaltMismatch) {
		t.Fatalf("expected ErrSaltMismatch, got %v", err)
	}
	assertNoTempFiles(t, st.Dir())
}

func TestRekey(t *testing.T) {
	st, id := initStore(t, testPassword)
	u, err := st.Unlock([]byte(testPassword))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	defer u.Close()

	list := &model.ServerList{}
	if err := list.Add(model.Server{Name: "web", Host: "example.com", Port: 22, User: "deploy"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := st.SaveServers(list, u.Key); err != nil {
		t.Fatalf("SaveServers: %v", err)
	}
	oldSalt := u.Key.Salt

	const newPassword = "a much better passphrase"
	if err := st.Rekey(u, list, []byte(newPassword)); err != nil {
		t.Fatalf("Rekey: %v", err)
	}
	if u.Key.Salt == oldSalt {
		t.Fatalf("rekey kept the old salt")
	}
	assertNoTempFiles(t, st.Dir())

	if _, err := st.Unlock([]byte(testPassword)); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("old password still works: %v", err)
	}
	u2, err := st.Unlock([]byte(newPassword))
	if err != nil {
		t.Fatalf("Unlock with new password: %v", err)
	}
	defer u2.Close()
	if !bytes.Equal(u2.Identity.Private(), id.Private()) {
		t.Fatalf("identity changed across rekey")
	}
	got, err := st.LoadServers(u2.Key)
	if err != nil {
		t.Fatalf("LoadServers after rekey: %v", err)
	}
	if s, err := got.Get("web"); err != nil || s.Host != "example.com" {
		t.Fatalf("server list not carried over: %+v, %v", s, err)
	}
}

func TestRekeyRestoresServersWhenIdentityReplaceFails(t *testing.T) {
	st, _ := initStore(t, testPassword)
	u, err := st.Unlock([]byte(testPassword))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	defer u.Close()
	list := &model.ServerList{}
	if err := list.Add(model.Server{Name: "web", Host: "example.com", Port: 22, User: "deploy"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := st.SaveServers(list, u.Key); err != nil {
		t.Fatalf("SaveServers: %v", err)
	}

	renameFile = func(from, to string) error {
		if to == st.IdentityPath() {
			return errors.New("disk full")
		}
		return os.Rename(from, to)
	}
	defer func() { renameFile = os.Rename }()

	if err := st.Rekey(u, list, []byte("a much better passphrase")); err == nil {
		t.Fatalf("Rekey should fail")
	}
	assertNoTempFiles(t, st.Dir())

	u2, err := st.Unlock([]byte(testPassword))
	if err != nil {
		t.Fatalf("old password must still unlock: %v", err)
	}
	defer u2.Close()
	got, err := st.LoadServers(u2.Key)
	if err != nil {
		t.Fatalf("server list unreadable after failed rekey: %v", err)
	}
	if _, err := got.Get("web"); err != nil {
		t.Fatalf("server list lost: %v", err)
	}
}
