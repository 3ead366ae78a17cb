// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package remote is the SSH transport: it dials servers with the vault
// identity, pins host keys, keeps the connection alive and exposes an
// interactive shell channel to the session pipeline.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/toeirei/securessh/internal/logging"
	"golang.org/x/crypto/ssh"
)

const (
	DefaultConnectTimeout    = 10 * time.Second
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultKeepaliveMax      = 3

	keepaliveRequest = "keepalive@openssh.com"
)

// Options describe one connection.
type Options struct {
	Host string
	Port uint16
	User string

	HostKeys *KnownHosts

	ConnectTimeout    time.Duration
	KeepaliveInterval time.Duration
	KeepaliveMax      int
}

func (o Options) addr() string {
	port := o.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(o.Host, strconv.Itoa(int(port)))
}

// Client is an established connection.
type Client struct {
	conn *ssh.Client

	stop      context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// Dial connects and authenticates with signer.
func Dial(ctx context.Context, opts Options, signer ssh.Signer) (*Client, error) {
	return DialAuth(ctx, opts, ssh.PublicKeys(signer))
}

// DialAuth connects with arbitrary auth methods. Authentication failures map
// to ErrAuthRejected, a changed host key to ErrHostKeyMismatch, anything else
// to ErrTransportFailure.
func DialAuth(ctx context.Context, opts Options, methods ...ssh.AuthMethod) (*Client, error) {
	if opts.HostKeys == nil {
		return nil, fmt.Errorf("%w: no host key store configured", ErrTransportFailure)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	var hostErr error
	config := &ssh.ClientConfig{
		User: opts.User,
		Auth: methods,
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			err := opts.HostKeys.Callback(hostname, remote, key)
			hostErr = err
			return err
		},
		Timeout: timeout,
	}

	addr := opts.addr()
	dialer := net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransportFailure, addr, err)
	}
	_ = netConn.SetDeadline(time.Now().Add(timeout))

	// Abort the handshake when ctx is cancelled.
	handshakeDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = netConn.Close()
		case <-handshakeDone:
		}
	}()
	c, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	close(handshakeDone)
	if err != nil {
		_ = netConn.Close()
		return nil, classifyDialError(addr, err, hostErr)
	}
	_ = netConn.SetDeadline(time.Time{})

	client := &Client{conn: ssh.NewClient(c, chans, reqs)}
	interval := opts.KeepaliveInterval
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	maxMisses := opts.KeepaliveMax
	if maxMisses <= 0 {
		maxMisses = DefaultKeepaliveMax
	}
	kctx, stop := context.WithCancel(context.Background())
	client.stop = stop
	go keepalive(kctx, client.conn, interval, maxMisses)

	logging.Debugf("connected to %s as %s", addr, opts.User)
	return client, nil
}

func classifyDialError(addr string, err, hostErr error) error {
	if hostErr != nil {
		if errors.Is(hostErr, ErrHostKeyMismatch) {
			return hostErr
		}
		return fmt.Errorf("%w: %s: %v", ErrTransportFailure, addr, hostErr)
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %s: %v", ErrAuthRejected, addr, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransportFailure, addr, err)
}

// SSH exposes the underlying client for subsystems such as sftp.
func (c *Client) SSH() *ssh.Client { return c.conn }

// Close stops the keepalive and closes the connection. Safe to call twice.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.stop != nil {
			c.stop()
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// requester is the part of ssh.Client the keepalive needs.
type requester interface {
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)
	Close() error
}

// keepalive probes the server every interval and closes the connection after
// maxMisses consecutive failures.
func keepalive(ctx context.Context, conn requester, interval time.Duration, maxMisses int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	misses := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A "request failed" reply still proves the peer is alive.
			if _, _, err := conn.SendRequest(keepaliveRequest, true, nil); err != nil {
				misses++
				logging.Debugf("keepalive failed (%d/%d): %v", misses, maxMisses, err)
				if misses >= maxMisses {
					logging.Warnf("server stopped answering keepalives, closing connection")
					_ = conn.Close()
					return
				}
				continue
			}
			misses = 0
		}
	}
}
