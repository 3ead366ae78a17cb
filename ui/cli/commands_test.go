// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toeirei/securessh/internal/crypto"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/model"
	"github.com/toeirei/securessh/internal/presence"
	"github.com/toeirei/securessh/internal/remote"
	"github.com/toeirei/securessh/internal/vault"
)

func TestInitCreatesVault(t *testing.T) {
	e, p := newTestEnv(t)
	out := initVault(t, e, p)

	if !strings.Contains(out, "ssh-ed25519 ") || !strings.Contains(out, "SHA256:") {
		t.Fatalf("init should print the public key and fingerprint:\n%s", out)
	}
	for _, name := range []string{vault.IdentityFile, vault.PublicKeyFile, vault.ServersFile} {
		if _, err := os.Stat(filepath.Join(e.exeDir, vault.DataDirName, name)); err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
	if _, err := os.Stat(presence.MarkerPath(e.exeDir)); err != nil {
		t.Fatalf("marker not written: %v", err)
	}

	if _, err := run(t, e, p, nil, "init"); !errors.Is(err, vault.ErrAlreadyInitialized) {
		t.Fatalf("second init: %v", err)
	}
}

func TestInitPasswordRules(t *testing.T) {
	e, p := newTestEnv(t)

	if _, err := run(t, e, p, []string{"short"}, "init"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password: %v", err)
	}
	if _, err := run(t, e, p, []string{testPassword, otherPassword}, "init"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("mismatch: %v", err)
	}
	// Length is counted in characters: 10 runes, 19 bytes.
	if _, err := run(t, e, p, []string{"пароль-кот"}, "init"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("rune count: %v", err)
	}
	if ok, _ := e.store.IsInitialized(); ok {
		t.Fatal("rejected passwords must not create a vault")
	}
}

func TestInitWithFirstServer(t *testing.T) {
	e, p := newTestEnv(t)
	mustRun(t, e, p, []string{testPassword, testPassword, "y", "web", "web.example.com", "", "deploy", ""}, "init")

	out := mustRun(t, e, p, []string{testPassword}, "server", "list")
	if !strings.Contains(out, "web") || !strings.Contains(out, "deploy@web.example.com") {
		t.Fatalf("server from init missing:\n%s", out)
	}
}

func TestInitForce(t *testing.T) {
	e, p := newTestEnv(t)
	initVault(t, e, p)
	before, err := e.store.ReadPublicKey()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, e, p, []string{"n"}, "init", "--force"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("declined force: %v", err)
	}
	mustRun(t, e, p, []string{"y", otherPassword, otherPassword, "n"}, "init", "--force")

	after, err := e.store.ReadPublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Fatal("forced init should generate a new key")
	}
	if _, err := run(t, e, p, []string{testPassword}, "server", "list"); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("old password should fail: %v", err)
	}
	mustRun(t, e, p, []string{otherPassword}, "server", "list")
}

func TestPubkey(t *testing.T) {
	e, p := newTestEnv(t)
	if _, err := run(t, e, p, nil, "pubkey"); !errors.Is(err, vault.ErrNotInitialized) {
		t.Fatalf("pubkey before init: %v", err)
	}
	initVault(t, e, p)
	p.asked = nil

	out := mustRun(t, e, p, nil, "pubkey")
	line := strings.TrimSpace(out)
	if !strings.HasPrefix(line, "ssh-ed25519 ") || !strings.HasSuffix(line, " secure-ssh-key") {
		t.Fatalf("unexpected pubkey line %q", line)
	}
	if len(p.asked) != 0 {
		t.Fatalf("pubkey must not prompt, asked %v", p.asked)
	}

	out = mustRun(t, e, p, nil, "pubkey", "--fingerprint")
	if !strings.Contains(out, "SHA256:") {
		t.Fatalf("fingerprint missing:\n%s", out)
	}

	orig := clipboardWrite
	defer func() { clipboardWrite = orig }()
	var copied string
	clipboardWrite = func(s string) error { copied = s; return nil }
	mustRun(t, e, p, nil, "pubkey", "--copy")
	if copied != line {
		t.Fatalf("clipboard got %q", copied)
	}
}

func TestServerLifecycle(t *testing.T) {
	e, p := newTestEnv(t)
	initVault(t, e, p)

	mustRun(t, e, p, []string{testPassword, "", ""}, "server", "add", "web", "--host", "web.example.com", "--user", "deploy")
	mustRun(t, e, p, []string{testPassword}, "server", "add", "db", "--host", "10.0.0.5", "--port", "2222", "--user", "postgres", "-d", "primary")

	if _, err := run(t, e, p, []string{testPassword, "", ""}, "server", "add", "web", "--host", "x", "--user", "y"); !errors.Is(err, model.ErrServerAlreadyExists) {
		t.Fatalf("duplicate add: %v", err)
	}
	if _, err := run(t, e, p, []string{testPassword}, "server", "add", "bad", "--host", "x", "--user", "y", "--port", "70000", "-d", "z"); !errors.Is(err, model.ErrInvalidServer) {
		t.Fatalf("invalid port: %v", err)
	}

	out := mustRun(t, e, p, []string{testPassword}, "server", "list")
	for _, want := range []string{"web", "deploy@web.example.com", "db", "postgres@10.0.0.5:2222", "primary"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list missing %q:\n%s", want, out)
		}
	}

	mustRun(t, e, p, []string{testPassword}, "server", "remove", "web")
	if _, err := run(t, e, p, []string{testPassword}, "server", "remove", "web"); !errors.Is(err, model.ErrServerNotFound) {
		t.Fatalf("remove twice: %v", err)
	}
	mustRun(t, e, p, []string{testPassword}, "server", "remove", "db")

	out = mustRun(t, e, p, []string{testPassword}, "server", "list")
	if !strings.Contains(out, i18n.T("server.list_empty")) {
		t.Fatalf("expected empty list message:\n%s", out)
	}
}

func TestWrongPassword(t *testing.T) {
	e, p := newTestEnv(t)
	if _, err := run(t, e, p, nil, "server", "list"); !errors.Is(err, vault.ErrNotInitialized) {
		t.Fatalf("list before init: %v", err)
	}
	initVault(t, e, p)
	if _, err := run(t, e, p, []string{"wrong password!"}, "server", "list"); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("wrong password: %v", err)
	}
}

func TestChangePass(t *testing.T) {
	e, p := newTestEnv(t)
	initVault(t, e, p)
	mustRun(t, e, p, []string{testPassword}, "server", "add", "web", "--host", "web.example.com", "--port", "22", "--user", "deploy", "-d", "x")
	before, _ := e.store.ReadPublicKey()

	if _, err := run(t, e, p, []string{testPassword, otherPassword, "mismatch!!!!!"}, "change-pass"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("mismatch: %v", err)
	}
	mustRun(t, e, p, []string{testPassword, otherPassword, otherPassword}, "change-pass")

	if _, err := run(t, e, p, []string{testPassword}, "server", "list"); !errors.Is(err, crypto.ErrAuthenticationFailed) {
		t.Fatalf("old password should fail: %v", err)
	}
	out := mustRun(t, e, p, []string{otherPassword}, "server", "list")
	if !strings.Contains(out, "deploy@web.example.com") {
		t.Fatalf("servers lost after change-pass:\n%s", out)
	}
	after, _ := e.store.ReadPublicKey()
	if before != after {
		t.Fatal("change-pass must keep the key")
	}
}

func TestBackupRoundTrip(t *testing.T) {
	e, p := newTestEnv(t)
	initVault(t, e, p)
	mustRun(t, e, p, []string{testPassword}, "server", "add", "web", "--host", "web.example.com", "--port", "22", "--user", "deploy", "-d", "x")
	pub, _ := e.store.ReadPublicKey()

	target := filepath.Join(t.TempDir(), "vault-backup")
	out := mustRun(t, e, p, nil, "backup", "create", target)
	if !strings.Contains(out, target+".zst") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := run(t, e, p, nil, "backup", "create", target); err == nil {
		t.Fatal("create must not overwrite an existing file")
	}

	if _, err := run(t, e, p, nil, "backup", "restore", target+".zst"); !errors.Is(err, vault.ErrAlreadyInitialized) {
		t.Fatalf("restore over vault: %v", err)
	}

	fresh, fp := newTestEnv(t)
	mustRun(t, fresh, fp, nil, "backup", "restore", target+".zst")
	got, err := fresh.store.ReadPublicKey()
	if err != nil || got != pub {
		t.Fatalf("restored key %q, %v", got, err)
	}
	out = mustRun(t, fresh, fp, []string{testPassword}, "server", "list")
	if !strings.Contains(out, "web") {
		t.Fatalf("restored servers missing:\n%s", out)
	}

	if _, err := run(t, fresh, fp, []string{"n"}, "backup", "restore", "--force", target+".zst"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("declined forced restore: %v", err)
	}
	mustRun(t, fresh, fp, []string{"y"}, "backup", "restore", "--force", target+".zst")
}

func TestRemoteCommandsReportTransportFailure(t *testing.T) {
	e, p := newTestEnv(t)
	initVault(t, e, p)
	port := closedPort(t)
	mustRun(t, e, p, []string{testPassword}, "server", "add", "local", "--host", "127.0.0.1", "--port", port, "--user", "nobody", "-d", "x")

	if _, err := run(t, e, p, []string{testPassword}, "connect"); !errors.Is(err, remote.ErrTransportFailure) {
		t.Fatalf("connect: %v", err)
	}
	if _, err := run(t, e, p, []string{testPassword}, "connect", "missing"); !errors.Is(err, model.ErrServerNotFound) {
		t.Fatalf("connect unknown: %v", err)
	}

	t.Setenv("SSH_AUTH_SOCK", "")
	if _, err := run(t, e, p, []string{testPassword}, "server", "install-key", "local"); !errors.Is(err, remote.ErrTransportFailure) {
		t.Fatalf("install-key: %v", err)
	}

	out := mustRun(t, e, p, []string{testPassword}, "server", "forget-host", "local")
	if !strings.Contains(out, "0") {
		t.Fatalf("forget-host output:\n%s", out)
	}
}

func TestConnectWithoutServers(t *testing.T) {
	e, p := newTestEnv(t)
	initVault(t, e, p)
	if _, err := run(t, e, p, []string{testPassword}, "connect"); !errors.Is(err, model.ErrNoServers) {
		t.Fatalf("connect: %v", err)
	}
}

func TestChooseServer(t *testing.T) {
	e, p := newTestEnv(t)
	list := &model.ServerList{}
	for _, s := range []model.Server{
		{Name: "web", Host: "web.example.com", Port: 22, User: "deploy"},
		{Name: "db", Host: "10.0.0.5", Port: 22, User: "postgres"},
	} {
		if err := list.Add(s); err != nil {
			t.Fatal(err)
		}
	}
	var out strings.Builder

	got, err := e.chooseServer(&out, list, "db")
	if err != nil || got.Name != "db" {
		t.Fatalf("by name: %v %v", got, err)
	}

	p.answers = []string{"2"}
	got, err = e.chooseServer(&out, list, "")
	if err != nil || got.Name != "db" {
		t.Fatalf("numbered: %v %v", got, err)
	}
	if !strings.Contains(out.String(), "[1] web") {
		t.Fatalf("menu not printed:\n%s", out.String())
	}

	for _, bad := range []string{"0", "3", "db"} {
		p.answers = []string{bad}
		if _, err := e.chooseServer(&out, list, ""); !errors.Is(err, ErrInvalidChoice) {
			t.Fatalf("choice %q: %v", bad, err)
		}
	}

	e.isTTY = func() bool { return true }
	e.pickServer = func(s []model.Server) (model.Server, error) { return s[0], nil }
	got, err = e.chooseServer(&out, list, "")
	if err != nil || got.Name != "web" {
		t.Fatalf("picker: %v %v", got, err)
	}

	single := &model.ServerList{}
	_ = single.Add(model.Server{Name: "only", Host: "h", Port: 22, User: "u"})
	e.pickServer = nil
	got, err = e.chooseServer(&out, single, "")
	if err != nil || got.Name != "only" {
		t.Fatalf("single: %v %v", got, err)
	}
}

func TestInstallKeyContextCancelled(t *testing.T) {
	e, p := newTestEnv(t)
	initVault(t, e, p)
	mustRun(t, e, p, []string{testPassword}, "server", "add", "local", "--host", "127.0.0.1", "--port", closedPort(t), "--user", "nobody", "-d", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.answers = []string{testPassword}
	var out strings.Builder
	if err := e.runInstallKey(ctx, &out, "local"); !errors.Is(err, remote.ErrTransportFailure) {
		t.Fatalf("cancelled install-key: %v", err)
	}
}

func TestConfigShowAndWrite(t *testing.T) {
	e, p := newTestEnv(t)

	out := mustRun(t, e, p, nil, "config", "show")
	if !strings.Contains(out, "language: en") || !strings.Contains(out, "key_comment: secure-ssh-key") {
		t.Fatalf("config show:\n%s", out)
	}

	mustRun(t, e, p, nil, "--log-level", "warn", "config", "write")
	written := filepath.Join(e.exeDir, "securessh.yaml")
	data, err := os.ReadFile(written)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "log_level: warn") {
		t.Fatalf("flag value not persisted:\n%s", data)
	}
	if strings.Contains(string(data), e.exeDir) {
		t.Fatalf("resolved data_dir must not be persisted:\n%s", data)
	}

	// The written file is picked up from the executable directory.
	out = mustRun(t, e, p, nil, "config", "show")
	if !strings.Contains(out, "log_level: warn") || !strings.Contains(out, written) {
		t.Fatalf("config file not loaded:\n%s", out)
	}
}

func TestDataDirFlag(t *testing.T) {
	e, p := newTestEnv(t)
	dir := filepath.Join(t.TempDir(), "elsewhere")
	mustRun(t, e, p, []string{testPassword, testPassword, "n"}, "--data-dir", dir, "init")
	if _, err := os.Stat(filepath.Join(dir, vault.IdentityFile)); err != nil {
		t.Fatalf("vault not in --data-dir: %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	e, p := newTestEnv(t)
	if _, err := run(t, e, p, nil, "--language", "xx", "pubkey"); err == nil {
		t.Fatal("unsupported language must be rejected")
	}
	if _, err := run(t, e, p, nil, "--config", filepath.Join(e.exeDir, "missing.yaml"), "pubkey"); err == nil {
		t.Fatal("missing --config file must be rejected")
	}
}

func TestLanguageSwitch(t *testing.T) {
	e, p := newTestEnv(t)
	defer i18n.Init("en")

	_, err := run(t, e, p, nil, "--language", "ru", "pubkey")
	if !errors.Is(err, vault.ErrNotInitialized) {
		t.Fatalf("pubkey: %v", err)
	}
	if msg := DescribeError(err); !strings.Contains(msg, "Хранилище") {
		t.Fatalf("expected russian message, got %q", msg)
	}
}

func TestVersionCommand(t *testing.T) {
	e, p := newTestEnv(t)
	out := mustRun(t, e, p, nil, "version")
	if strings.TrimSpace(out) == "" {
		t.Fatal("version printed nothing")
	}
}
