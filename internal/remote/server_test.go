// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"testing"

	"github.com/toeirei/securessh/internal/testutil"
	"golang.org/x/crypto/ssh"
)

type testServer struct {
	addr    string
	hostKey ssh.Signer
	port    uint16
}

func newSigner(t *testing.T) ssh.Signer { return testutil.NewSigner(t) }

// startTestServer runs an in-process SSH server that accepts only authorized.
func startTestServer(t *testing.T, authorized ssh.PublicKey) *testServer {
	t.Helper()
	s := testutil.StartSSHServer(t, testutil.SSHServerOptions{AuthorizedKeys: []ssh.PublicKey{authorized}})
	return &testServer{addr: s.Addr, hostKey: s.HostKey, port: s.Port}
}
