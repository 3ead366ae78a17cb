// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package ssh

import (
	"strings"

	"golang.org/x/crypto/ssh"
)

// FormatAuthorizedKey renders "<type> <base64 wire blob> <comment>".
func FormatAuthorizedKey(pub ssh.PublicKey, comment string) string {
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
	return line + " " + comment
}

// FingerprintSHA256 returns the OpenSSH SHA256 fingerprint of a public key.
func FingerprintSHA256(pub ssh.PublicKey) string {
	return ssh.FingerprintSHA256(pub)
}
