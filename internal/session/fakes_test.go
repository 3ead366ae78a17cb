// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package session

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

type resizeCall struct{ cols, rows int }

type fakeRemote struct {
	events chan Event

	mu        sync.Mutex
	sent      [][]byte
	resizes   []resizeCall
	ptyTerm   string
	ptyCols   int
	ptyRows   int
	shell     bool
	closed    bool
	dropped   bool
	ptyErr    error
	resizeErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{events: make(chan Event, 16)}
}

func (r *fakeRemote) RequestPTY(term string, cols, rows int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ptyTerm, r.ptyCols, r.ptyRows = term, cols, rows
	return r.ptyErr
}

func (r *fakeRemote) Shell() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shell = true
	return nil
}

func (r *fakeRemote) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, append([]byte(nil), p...))
	return nil
}

func (r *fakeRemote) Events() <-chan Event { return r.events }

func (r *fakeRemote) Resize(cols, rows int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resizes = append(r.resizes, resizeCall{cols, rows})
	return r.resizeErr
}

func (r *fakeRemote) CloseChannel() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRemote) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = true
	return errors.New("already gone")
}

func (r *fakeRemote) sentBytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Join(r.sent, nil)
}

func (r *fakeRemote) resizeCalls() []resizeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]resizeCall(nil), r.resizes...)
}

func (r *fakeRemote) shellStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shell
}

func (r *fakeRemote) tornDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed && r.dropped
}

type fakeTerminal struct {
	stdin  *io.PipeReader
	input  *io.PipeWriter
	stdout bytes.Buffer
	stderr bytes.Buffer

	size     atomic.Uint32
	rawCalls atomic.Int32
	restored atomic.Int32
}

func newFakeTerminal(cols, rows int) *fakeTerminal {
	r, w := io.Pipe()
	t := &fakeTerminal{stdin: r, input: w}
	t.setSize(cols, rows)
	return t
}

func (t *fakeTerminal) setSize(cols, rows int) { t.size.Store(packSize(cols, rows)) }

func (t *fakeTerminal) Size() (int, int, error) {
	v := t.size.Load()
	return int(v >> 16), int(v & 0xffff), nil
}

func (t *fakeTerminal) MakeRaw() (func() error, error) {
	t.rawCalls.Add(1)
	return func() error {
		t.restored.Add(1)
		return nil
	}, nil
}

func (t *fakeTerminal) Stdin() io.Reader  { return t.stdin }
func (t *fakeTerminal) Stdout() io.Writer { return &t.stdout }
func (t *fakeTerminal) Stderr() io.Writer { return &t.stderr }

func (t *fakeTerminal) close() { _ = t.input.Close() }

// fakePresence goes absent once flip is called and remembers when it first
// reported the device missing.
type fakePresence struct {
	gone      atomic.Bool
	mu        sync.Mutex
	firstMiss time.Time
}

func (f *fakePresence) flip() { f.gone.Store(true) }

func (f *fakePresence) IsPresent() bool {
	if !f.gone.Load() {
		return true
	}
	f.mu.Lock()
	if f.firstMiss.IsZero() {
		f.firstMiss = time.Now()
	}
	f.mu.Unlock()
	return false
}

func (f *fakePresence) firstMissAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firstMiss
}

// eventually polls cond until it holds or the deadline passes.
func eventually(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
