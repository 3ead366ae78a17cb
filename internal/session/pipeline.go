// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/toeirei/securessh/internal/logging"
	"github.com/toeirei/securessh/internal/presence"
)

const (
	DefaultTerm             = "xterm-256color"
	DefaultPresenceInterval = 500 * time.Millisecond
	DefaultResizeInterval   = 250 * time.Millisecond

	defaultCols = 80
	defaultRows = 24

	stdinQueue  = 100
	stdinBufLen = 1024

	// endOfTransmission (Ctrl+D) in a local chunk ends the session.
	endOfTransmission = 0x04
)

// Outcome says why a session ended.
type Outcome int

const (
	// OutcomeFailed accompanies a non-nil error.
	OutcomeFailed Outcome = iota
	OutcomeRemoteClosed
	OutcomeLocalEOF
	OutcomeDeviceRemoved
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRemoteClosed:
		return "remote closed"
	case OutcomeLocalEOF:
		return "local end of input"
	case OutcomeDeviceRemoved:
		return "device removed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Options tune a Pipeline. Zero values select the defaults.
type Options struct {
	Term string
	// Presence is polled while the session runs; nil disables the check.
	Presence         presence.Monitor
	PresenceInterval time.Duration
	ResizeInterval   time.Duration
}

// Pipeline runs one interactive session over a Remote.
type Pipeline struct {
	remote Remote
	term   Terminal
	opts   Options

	removed atomic.Bool
	// size packs the last seen cols<<16 | rows.
	size atomic.Uint32
}

// New builds a pipeline. It takes over remote: Run always closes the channel
// and disconnects.
func New(remote Remote, term Terminal, opts Options) *Pipeline {
	if opts.Term == "" {
		opts.Term = DefaultTerm
	}
	if opts.PresenceInterval <= 0 {
		opts.PresenceInterval = DefaultPresenceInterval
	}
	if opts.ResizeInterval <= 0 {
		opts.ResizeInterval = DefaultResizeInterval
	}
	return &Pipeline{remote: remote, term: term, opts: opts}
}

type geometry struct{ cols, rows int }

func packSize(cols, rows int) uint32 { return uint32(uint16(cols))<<16 | uint32(uint16(rows)) }

// Run sets up the remote shell, drives the event loop until one side ends
// the session, and tears everything down. DeviceRemoved is an outcome, not
// an error.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	ctx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	restore := func() error { return nil }
	defer func() { p.teardown(restore, stop, &wg) }()

	cols, rows, err := p.term.Size()
	if err != nil || cols <= 0 || rows <= 0 {
		cols, rows = defaultCols, defaultRows
	}
	p.size.Store(packSize(cols, rows))

	if err := p.remote.RequestPTY(p.opts.Term, cols, rows); err != nil {
		return OutcomeFailed, fmt.Errorf("request pty: %w", err)
	}
	if err := p.remote.Shell(); err != nil {
		return OutcomeFailed, fmt.Errorf("start shell: %w", err)
	}
	r, err := p.term.MakeRaw()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("enter raw mode: %w", err)
	}
	restore = r

	wake := make(chan struct{}, 1)
	if p.opts.Presence != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.watchPresence(ctx, wake)
		}()
	}
	resizes := make(chan geometry, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.watchGeometry(ctx, resizes)
	}()
	// The stdin reader may stay blocked in Read after the session ends; it is
	// not joined.
	input := make(chan []byte, stdinQueue)
	go p.readInput(ctx, input)

	return p.loop(ctx, wake, resizes, input)
}

func (p *Pipeline) loop(ctx context.Context, wake <-chan struct{}, resizes <-chan geometry, input <-chan []byte) (Outcome, error) {
	events := p.remote.Events()
	for {
		if p.removed.Load() {
			logging.Warnf("device removed, disconnecting")
			return OutcomeDeviceRemoved, nil
		}

		select {
		case <-ctx.Done():
			return OutcomeCancelled, nil

		case <-wake:

		case ev, ok := <-events:
			if !ok {
				return OutcomeRemoteClosed, nil
			}
			if done := p.handleEvent(ev); done {
				return OutcomeRemoteClosed, nil
			}

		case chunk, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			if bytes.IndexByte(chunk, endOfTransmission) >= 0 {
				return OutcomeLocalEOF, nil
			}
			if err := p.remote.Send(chunk); err != nil {
				return OutcomeFailed, fmt.Errorf("send input: %w", err)
			}

		case g := <-resizes:
			if err := p.remote.Resize(g.cols, g.rows); err != nil {
				logging.Debugf("window change to %dx%d failed: %v", g.cols, g.rows, err)
			}
		}
	}
}

// handleEvent writes remote output locally and reports whether the session
// is over.
func (p *Pipeline) handleEvent(ev Event) bool {
	switch ev.Kind {
	case EventData:
		_, _ = p.term.Stdout().Write(ev.Data)
	case EventExtendedData:
		_, _ = p.term.Stderr().Write(ev.Data)
	case EventExitSignal:
		_, _ = fmt.Fprintf(p.term.Stderr(), "\r\n[process terminated by signal %s]\r\n", ev.Signal)
		return true
	case EventEOF, EventExitStatus, EventClosed:
		logging.Debugf("remote ended session: %s", ev.Kind)
		return true
	}
	return false
}

func (p *Pipeline) teardown(restore func() error, stop context.CancelFunc, wg *sync.WaitGroup) {
	if err := restore(); err != nil {
		logging.Warnf("restore terminal: %v", err)
	}
	stop()
	wg.Wait()
	if err := p.remote.CloseChannel(); err != nil {
		logging.Debugf("close channel: %v", err)
	}
	if err := p.remote.Disconnect(); err != nil {
		logging.Debugf("disconnect: %v", err)
	}
}

func (p *Pipeline) watchPresence(ctx context.Context, wake chan<- struct{}) {
	ticker := time.NewTicker(p.opts.PresenceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.opts.Presence.IsPresent() {
				continue
			}
			p.removed.Store(true)
			select {
			case wake <- struct{}{}:
			default:
			}
			return
		}
	}
}

func (p *Pipeline) watchGeometry(ctx context.Context, out chan geometry) {
	ticker := time.NewTicker(p.opts.ResizeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cols, rows, err := p.term.Size()
			if err != nil || cols <= 0 || rows <= 0 {
				continue
			}
			packed := packSize(cols, rows)
			if p.size.Swap(packed) == packed {
				continue
			}
			offerLatest(out, geometry{cols: cols, rows: rows})
		}
	}
}

// offerLatest replaces any pending value in a capacity-1 channel. Only one
// goroutine may send on ch.
func offerLatest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func (p *Pipeline) readInput(ctx context.Context, out chan<- []byte) {
	defer close(out)
	buf := make([]byte, stdinBufLen)
	in := p.term.Stdin()
	for {
		n, err := in.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
