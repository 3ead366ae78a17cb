// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil provides an in-process SSH server for tests. Shell
// sessions report whether a PTY was requested, echo input with an "echo:"
// prefix, report window changes as "resize:COLSxROWS" and exit with status 0
// when the input contains "exit". The sftp subsystem serves a home directory.
package testutil

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSHServerOptions configure StartSSHServer.
type SSHServerOptions struct {
	// AuthorizedKeys are always accepted.
	AuthorizedKeys []ssh.PublicKey
	// Password enables password authentication when set.
	Password string
	// Home is served over sftp when set, and keys listed in its
	// .ssh/authorized_keys are accepted.
	Home string
}

// SSHServer is a running test server.
type SSHServer struct {
	Addr    string
	Host    string
	Port    uint16
	HostKey ssh.Signer

	opts SSHServerOptions
}

// NewSigner returns a fresh Ed25519 signer.
func NewSigner(t testing.TB) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return signer
}

// StartSSHServer listens on a loopback port until the test ends.
func StartSSHServer(t testing.TB, opts SSHServerOptions) *SSHServer {
	t.Helper()
	s := &SSHServer{HostKey: NewSigner(t), opts: opts}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if s.acceptsKey(key) {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	if opts.Password != "" {
		config.PasswordCallback = func(_ ssh.ConnMetadata, pw []byte) (*ssh.Permissions, error) {
			if subtle.ConstantTimeCompare(pw, []byte(opts.Password)) == 1 {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("wrong password")
		}
	}
	config.AddHostKey(s.HostKey)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go s.handleConn(conn, config)
		}
	}()
	t.Cleanup(func() {
		_ = listener.Close()
		<-done
	})

	tcp := listener.Addr().(*net.TCPAddr)
	s.Addr = listener.Addr().String()
	s.Host = tcp.IP.String()
	s.Port = uint16(tcp.Port)
	return s
}

func (s *SSHServer) acceptsKey(key ssh.PublicKey) bool {
	for _, k := range s.opts.AuthorizedKeys {
		if bytes.Equal(k.Marshal(), key.Marshal()) {
			return true
		}
	}
	if s.opts.Home == "" {
		return false
	}
	f, err := os.Open(filepath.Join(s.opts.Home, ".ssh", "authorized_keys"))
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		pub, _, _, _, err := ssh.ParseAuthorizedKey(sc.Bytes())
		if err == nil && bytes.Equal(pub.Marshal(), key.Marshal()) {
			return true
		}
	}
	return false
}

func (s *SSHServer) handleConn(netConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, config)
	if err != nil {
		_ = netConn.Close()
		return
	}
	defer func() { _ = sshConn.Close() }()
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
}

func (s *SSHServer) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	var hasPTY bool
	for req := range requests {
		switch req.Type {
		case "pty-req":
			hasPTY = true
			_ = req.Reply(true, nil)
		case "window-change":
			if len(req.Payload) >= 8 {
				cols := binary.BigEndian.Uint32(req.Payload[0:4])
				rows := binary.BigEndian.Uint32(req.Payload[4:8])
				_, _ = fmt.Fprintf(ch, "resize:%dx%d\n", cols, rows)
			}
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
		case "shell":
			_ = req.Reply(true, nil)
			_, _ = fmt.Fprintf(ch, "PTY:%v\n", hasPTY)
			go echoUntilExit(ch)
		case "subsystem":
			var sub struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &sub); err != nil || sub.Name != "sftp" || s.opts.Home == "" {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go serveSFTP(ch, s.opts.Home)
		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func serveSFTP(ch ssh.Channel, home string) {
	defer func() { _ = ch.Close() }()
	server, err := sftp.NewServer(ch, sftp.WithServerWorkingDirectory(home))
	if err != nil {
		return
	}
	_ = server.Serve()
}

func echoUntilExit(ch ssh.Channel) {
	buf := make([]byte, 4096)
	for {
		n, err := ch.Read(buf)
		if n > 0 {
			if bytes.Contains(buf[:n], []byte("exit")) {
				status := struct{ Status uint32 }{0}
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&status))
				_ = ch.Close()
				return
			}
			_, _ = ch.Write([]byte("echo:"))
			_, _ = ch.Write(buf[:n])
		}
		if err != nil {
			_ = ch.Close()
			return
		}
	}
}
