// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package session

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal is the local side of the session.
type Terminal interface {
	Size() (cols, rows int, err error)
	// MakeRaw switches to raw mode and returns a function restoring the
	// previous mode.
	MakeRaw() (restore func() error, err error)
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer
}

// StdTerminal is the process's own terminal.
type StdTerminal struct {
	in, out, errOut *os.File
}

// NewStdTerminal wraps os.Stdin, os.Stdout and os.Stderr.
func NewStdTerminal() *StdTerminal {
	return &StdTerminal{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
}

func (t *StdTerminal) Size() (int, int, error) {
	return term.GetSize(int(t.out.Fd()))
}

// MakeRaw is a no-op when stdin is not a terminal.
func (t *StdTerminal) MakeRaw() (func() error, error) {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error { return term.Restore(fd, state) }, nil
}

func (t *StdTerminal) Stdin() io.Reader  { return t.in }
func (t *StdTerminal) Stdout() io.Writer { return t.out }
func (t *StdTerminal) Stderr() io.Writer { return t.errOut }
