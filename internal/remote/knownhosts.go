// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/toeirei/securessh/internal/logging"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// KnownHosts pins host keys in an OpenSSH known_hosts file. Unknown hosts
// are trusted on first use and appended; a changed key is rejected.
type KnownHosts struct {
	path string
	mu   sync.Mutex
}

// NewKnownHosts uses the file at path, creating it when missing.
func NewKnownHosts(path string) (*KnownHosts, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create known_hosts directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open known_hosts: %w", err)
	}
	_ = f.Close()
	return &KnownHosts{path: path}, nil
}

// Path returns the backing file.
func (k *KnownHosts) Path() string { return k.path }

// Callback is an ssh.HostKeyCallback implementing trust-on-first-use.
func (k *KnownHosts) Callback(hostname string, remote net.Addr, key ssh.PublicKey) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	check, err := knownhosts.New(k.path)
	if err != nil {
		return fmt.Errorf("load known_hosts: %w", err)
	}
	err = check(hostname, remote, key)
	if err == nil {
		return nil
	}

	var revoked *knownhosts.RevokedError
	if errors.As(err, &revoked) {
		return fmt.Errorf("%w: %s presented a revoked key", ErrHostKeyMismatch, hostname)
	}
	var keyErr *knownhosts.KeyError
	if !errors.As(err, &keyErr) {
		return err
	}
	if len(keyErr.Want) > 0 {
		return fmt.Errorf("%w for %s: presented %s, pinned %s",
			ErrHostKeyMismatch, hostname, ssh.FingerprintSHA256(key), ssh.FingerprintSHA256(keyErr.Want[0].Key))
	}

	if err := k.appendLocked(hostname, key); err != nil {
		return err
	}
	logging.Warnf("permanently added %s (%s) to known hosts", hostname, ssh.FingerprintSHA256(key))
	return nil
}

func (k *KnownHosts) appendLocked(hostname string, key ssh.PublicKey) error {
	f, err := os.OpenFile(k.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open known_hosts: %w", err)
	}
	defer func() { _ = f.Close() }()
	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append known_hosts: %w", err)
	}
	return f.Sync()
}

// Forget removes every line pinning host:port and reports how many were dropped.
func (k *KnownHosts) Forget(host string, port uint16) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	data, err := os.ReadFile(k.path)
	if err != nil {
		return 0, fmt.Errorf("read known_hosts: %w", err)
	}
	target := knownhosts.Normalize(net.JoinHostPort(host, strconv.Itoa(int(port))))

	var out bytes.Buffer
	removed := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if matchesHost(line, target) {
			removed++
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scan known_hosts: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}
	tmp := k.path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o600); err != nil {
		return 0, fmt.Errorf("write known_hosts: %w", err)
	}
	if err := os.Rename(tmp, k.path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("replace known_hosts: %w", err)
	}
	return removed, nil
}

// matchesHost reports whether the plain host list of a known_hosts line
// contains target. Hashed and marker lines never match.
func matchesHost(line, target string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") {
		return false
	}
	hosts, _, ok := strings.Cut(line, " ")
	if !ok {
		return false
	}
	for _, h := range strings.Split(hosts, ",") {
		if h == target {
			return true
		}
	}
	return false
}
