// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package deploy installs the vault's public key into a server's
// authorized_keys file over SFTP, so later connections can use the vault
// identity instead of a password.
package deploy

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"github.com/toeirei/securessh/internal/logging"
	"golang.org/x/crypto/ssh"
)

// sshAgentGetter is swapped in tests.
var sshAgentGetter = getSSHAgent

// Deployer edits authorized_keys on one remote host.
type Deployer struct {
	sftp *sftp.Client
	dir  string
}

// NewDeployer opens an SFTP session on an established connection. Paths are
// relative to the login directory.
func NewDeployer(client *ssh.Client) (*Deployer, error) {
	sc, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	return &Deployer{sftp: sc, dir: ".ssh"}, nil
}

// BootstrapAuth returns the auth methods used before the vault key is
// installed: keys from a running SSH agent, then the account password.
func BootstrapAuth(password func() (string, error)) []ssh.AuthMethod {
	var methods []ssh.AuthMethod
	if a := sshAgentGetter(); a != nil {
		methods = append(methods, ssh.PublicKeysCallback(a.Signers))
	}
	methods = append(methods,
		ssh.PasswordCallback(password),
		ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				pw, err := password()
				if err != nil {
					return nil, err
				}
				answers[i] = pw
			}
			return answers, nil
		}),
	)
	return methods
}

func (d *Deployer) authorizedKeysPath() string {
	return path.Join(d.dir, "authorized_keys")
}

// GetAuthorizedKeys returns the remote authorized_keys content. A missing
// file yields nil.
func (d *Deployer) GetAuthorizedKeys() ([]byte, error) {
	finalPath := d.authorizedKeysPath()
	f, err := d.sftp.Open(finalPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open remote file %s: %w", finalPath, err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read from remote file %s: %w", finalPath, err)
	}
	return content, nil
}

// HasKey reports whether content already authorizes pub.
func HasKey(content []byte, pub ssh.PublicKey) bool {
	want := pub.Marshal()
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey(line)
		if err != nil {
			continue
		}
		if bytes.Equal(key.Marshal(), want) {
			return true
		}
	}
	return false
}

// InstallAuthorizedKey appends line to authorized_keys unless the key is
// already present. It reports whether the file was changed.
func (d *Deployer) InstallAuthorizedKey(line string) (bool, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return false, fmt.Errorf("invalid public key line: %w", err)
	}
	current, err := d.GetAuthorizedKeys()
	if err != nil {
		return false, err
	}
	if HasKey(current, pub) {
		return false, nil
	}

	var buf bytes.Buffer
	buf.Write(current)
	if len(current) > 0 && current[len(current)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(line)
	buf.WriteByte('\n')

	if err := d.writeAuthorizedKeys(buf.Bytes()); err != nil {
		return false, err
	}
	logging.Debugf("installed %s key into %s", pub.Type(), d.authorizedKeysPath())
	return true, nil
}

// writeAuthorizedKeys uploads content to a temp file and moves it into place.
func (d *Deployer) writeAuthorizedKeys(content []byte) error {
	_ = d.sftp.Mkdir(d.dir) // may already exist
	if err := d.sftp.Chmod(d.dir, 0o700); err != nil {
		return fmt.Errorf("failed to chmod %s directory: %w", d.dir, err)
	}

	tmpPath := path.Join(d.dir, fmt.Sprintf("authorized_keys.securessh.%d", time.Now().UnixNano()))
	f, err := d.sftp.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file on remote: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = d.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to write to temporary file on remote: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = d.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file on remote: %w", err)
	}
	if err := d.sftp.Chmod(tmpPath, 0o600); err != nil {
		_ = d.sftp.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temporary file: %w", err)
	}

	// Plain SFTP rename refuses to replace an existing file on most servers.
	finalPath := d.authorizedKeysPath()
	if err := d.sftp.PosixRename(tmpPath, finalPath); err != nil {
		_ = d.sftp.Remove(finalPath)
		if err := d.sftp.Rename(tmpPath, finalPath); err != nil {
			_ = d.sftp.Remove(tmpPath)
			return fmt.Errorf("failed to move authorized_keys into place: %w", err)
		}
	}
	return nil
}

// Close ends the SFTP session. The SSH connection stays open.
func (d *Deployer) Close() error {
	if d.sftp == nil {
		return nil
	}
	return d.sftp.Close()
}
