// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package remote

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/toeirei/securessh/internal/session"
	"golang.org/x/crypto/ssh"
)

const eventQueue = 64

// Shell adapts an ssh.Session to session.Remote.
type Shell struct {
	client *Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader

	events    chan session.Event
	done      chan struct{}
	closeOnce sync.Once
}

var _ session.Remote = (*Shell)(nil)

// OpenShell opens a session channel. The shell itself starts with Shell().
func (c *Client) OpenShell() (*Shell, error) {
	sess, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: open session: %v", ErrTransportFailure, err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	return &Shell{
		client: c,
		sess:   sess,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		events: make(chan session.Event, eventQueue),
		done:   make(chan struct{}),
	}, nil
}

func (s *Shell) RequestPTY(term string, cols, rows int) error {
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	return s.sess.RequestPty(term, rows, cols, modes)
}

// Shell starts the login shell and begins delivering events.
func (s *Shell) Shell() error {
	if err := s.sess.Shell(); err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go s.pump(&wg, s.stdout, session.EventData)
	go s.pump(&wg, s.stderr, session.EventExtendedData)
	go func() {
		wg.Wait()
		s.emit(exitEvent(s.sess.Wait()))
		close(s.events)
	}()
	return nil
}

func (s *Shell) pump(wg *sync.WaitGroup, r io.Reader, kind session.EventKind) {
	defer wg.Done()
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if !s.emit(session.Event{Kind: kind, Data: append([]byte(nil), buf[:n]...)}) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// emit delivers ev unless the channel was closed locally.
func (s *Shell) emit(ev session.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func exitEvent(err error) session.Event {
	if err == nil {
		return session.Event{Kind: session.EventExitStatus}
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		if sig := exitErr.Signal(); sig != "" {
			return session.Event{Kind: session.EventExitSignal, Signal: sig, Status: uint32(exitErr.ExitStatus())}
		}
		return session.Event{Kind: session.EventExitStatus, Status: uint32(exitErr.ExitStatus())}
	}
	return session.Event{Kind: session.EventClosed}
}

func (s *Shell) Send(p []byte) error {
	_, err := s.stdin.Write(p)
	return err
}

func (s *Shell) Events() <-chan session.Event { return s.events }

func (s *Shell) Resize(cols, rows int) error {
	return s.sess.WindowChange(rows, cols)
}

// CloseChannel closes the session channel. Safe to call twice.
func (s *Shell) CloseChannel() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.stdin.Close()
		err = s.sess.Close()
		if errors.Is(err, io.EOF) {
			err = nil
		}
	})
	return err
}

func (s *Shell) Disconnect() error {
	return s.client.Close()
}
