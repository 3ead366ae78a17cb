// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/security"
	"github.com/toeirei/securessh/internal/vault"
	"golang.org/x/term"
)

// MinPasswordLength is the minimum master password length in characters.
const MinPasswordLength = 12

var (
	// ErrPasswordTooShort is returned when a new master password is shorter
	// than MinPasswordLength.
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrPasswordMismatch is returned when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrCancelled is returned when the user declines or closes input.
	ErrCancelled = errors.New("cancelled")
	// ErrInvalidChoice is returned for an out-of-range server selection.
	ErrInvalidChoice = errors.New("invalid choice")
)

// Prompter reads answers from the user.
type Prompter interface {
	// Password reads a secret without echo. The caller owns and must zero
	// the returned slice.
	Password(label string) ([]byte, error)
	Line(label string) (string, error)
	Confirm(label string) (bool, error)
}

type termPrompter struct {
	in  *os.File
	rd  *bufio.Reader
	out io.Writer
}

func newTermPrompter(in *os.File, out io.Writer) *termPrompter {
	return &termPrompter{in: in, rd: bufio.NewReader(in), out: out}
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (p *termPrompter) Password(label string) ([]byte, error) {
	printf(p.out, "%s", label)
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		return []byte(line), nil
	}
	pw, err := term.ReadPassword(fd)
	printf(p.out, "\n")
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}

func (p *termPrompter) Line(label string) (string, error) {
	printf(p.out, "%s", label)
	return p.readLine()
}

func (p *termPrompter) Confirm(label string) (bool, error) {
	answer, err := p.Line(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func (p *termPrompter) readLine() (string, error) {
	line, err := p.rd.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", ErrCancelled
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", strings.ToLower(i18n.T("common.yes")), strings.ToLower(i18n.T("common.yes_short")):
		return true
	}
	return false
}

// readNewPassword asks for a new master password twice and enforces the
// minimum length.
func readNewPassword(p Prompter) ([]byte, error) {
	pw, err := p.Password(i18n.T("prompt.new_password", MinPasswordLength))
	if err != nil {
		return nil, err
	}
	if utf8.RuneCount(pw) < MinPasswordLength {
		security.Zero(pw)
		return nil, ErrPasswordTooShort
	}
	confirm, err := p.Password(i18n.T("prompt.confirm_password"))
	defer security.Zero(confirm)
	if err != nil {
		security.Zero(pw)
		return nil, err
	}
	if subtle.ConstantTimeCompare(pw, confirm) != 1 {
		security.Zero(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}

// unlock prompts for the master password and opens the vault.
func (e *env) unlock() (*vault.Unlocked, error) {
	if ok, err := e.store.IsInitialized(); err != nil {
		return nil, err
	} else if !ok {
		return nil, vault.ErrNotInitialized
	}
	pw, err := e.prompt.Password(i18n.T("prompt.password"))
	if err != nil {
		return nil, err
	}
	defer security.Zero(pw)
	return e.store.Unlock(pw)
}
