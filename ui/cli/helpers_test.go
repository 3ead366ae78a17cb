// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"net"
	"strconv"
	"testing"

	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/model"
)

const (
	testPassword  = "correct horse battery staple"
	otherPassword = "another long passphrase"
)

// scriptedPrompter answers prompts from a fixed queue and fails with
// ErrCancelled once it runs dry.
type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) next(label string) (string, error) {
	p.asked = append(p.asked, label)
	if len(p.answers) == 0 {
		return "", ErrCancelled
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) Password(label string) ([]byte, error) {
	a, err := p.next(label)
	if err != nil {
		return nil, err
	}
	return []byte(a), nil
}

func (p *scriptedPrompter) Line(label string) (string, error) { return p.next(label) }

func (p *scriptedPrompter) Confirm(label string) (bool, error) {
	a, err := p.next(label)
	if err != nil {
		return false, err
	}
	return isYes(a), nil
}

func newTestEnv(t *testing.T) (*env, *scriptedPrompter) {
	t.Helper()
	i18n.Init("en")
	p := &scriptedPrompter{}
	e := &env{
		exeDir: t.TempDir(),
		prompt: p,
		pickServer: func([]model.Server) (model.Server, error) {
			t.Fatal("picker must not run in tests")
			return model.Server{}, nil
		},
		isTTY: func() bool { return false },
	}
	return e, p
}

// run executes one command line against e with the given prompt answers.
func run(t *testing.T, e *env, p *scriptedPrompter, answers []string, args ...string) (string, error) {
	t.Helper()
	p.answers = answers
	var out, errOut bytes.Buffer
	root := newRootCmd(e)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, e *env, p *scriptedPrompter, answers []string, args ...string) string {
	t.Helper()
	out, err := run(t, e, p, answers, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

// initVault creates a vault protected by testPassword without adding a server.
func initVault(t *testing.T, e *env, p *scriptedPrompter) string {
	t.Helper()
	return mustRun(t, e, p, []string{testPassword, testPassword, "n"}, "init")
}

// closedPort returns a localhost port nothing listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return strconv.Itoa(port)
}
