// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/logging"
	"github.com/toeirei/securessh/internal/model"
	"github.com/toeirei/securessh/internal/presence"
	"github.com/toeirei/securessh/internal/remote"
	"github.com/toeirei/securessh/internal/session"
	"github.com/toeirei/securessh/internal/tui"
)

func runPicker(servers []model.Server) (model.Server, error) {
	return tui.Pick(servers, os.Stdin, os.Stderr)
}

func newConnectCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "connect [name]",
		Short: "Open an interactive shell on a configured server",
		Long: `Unlock the vault, connect to the named server and open an interactive
shell. Without a name the only server is used, or a picker is shown.
The session ends when the drive holding securessh is removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return e.runConnect(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), name)
		},
	}
}

func (e *env) runConnect(ctx context.Context, out, errOut io.Writer, name string) error {
	u, err := e.unlock()
	if err != nil {
		return err
	}
	list, err := e.store.LoadServers(u.Key)
	if err != nil {
		u.Close()
		return err
	}
	if list.IsEmpty() {
		u.Close()
		return model.ErrNoServers
	}
	srv, err := e.chooseServer(out, list, name)
	if err != nil {
		u.Close()
		return err
	}
	opts, err := e.remoteOptions(srv)
	if err != nil {
		u.Close()
		return err
	}

	signer, wipe, err := u.Identity.Signer()
	if err != nil {
		u.Close()
		return err
	}
	printf(out, "%s\n", i18n.T("connect.connecting", tui.AccentStyle.Render(srv.String())))
	client, err := remote.Dial(ctx, opts, signer)
	wipe()
	u.Close()
	if err != nil {
		return err
	}

	shell, err := client.OpenShell()
	if err != nil {
		_ = client.Close()
		return err
	}

	mon := presence.New(e.exeDir, presence.MarkerPath(e.exeDir))
	if mon != nil {
		printf(out, "%s\n", tui.HelpStyle.Render(i18n.T("connect.watchdog_active")))
	} else {
		logging.Warnf("drive presence monitoring is not supported on this platform")
	}

	p := session.New(shell, e.newTerminal(), session.Options{
		Term:     e.cfg.SSH.Term,
		Presence: mon,
	})
	outcome, err := p.Run(ctx)
	logging.Debugf("session ended: %s", outcome)

	switch outcome {
	case session.OutcomeDeviceRemoved:
		printf(errOut, "\r\n%s\r\n", tui.WarnStyle.Render(i18n.T("connect.device_removed")))
		return nil
	case session.OutcomeFailed:
		return err
	default:
		printf(out, "\r\n%s\n", tui.SuccessStyle.Render(i18n.T("connect.disconnected")))
		return err
	}
}

// chooseServer resolves name, falls back to the only server, and otherwise
// asks the user.
func (e *env) chooseServer(out io.Writer, list *model.ServerList, name string) (model.Server, error) {
	if name != "" {
		return list.Get(name)
	}
	servers := list.All()
	if len(servers) == 1 {
		return servers[0], nil
	}
	if e.isTTY() {
		return e.pickServer(servers)
	}

	printf(out, "%s\n", tui.TitleStyle.Render(i18n.T("connect.available")))
	for i, s := range servers {
		printf(out, "  [%d] %s - %s\n", i+1, s.Name, s.String())
	}
	answer, err := e.prompt.Line(i18n.T("connect.choose", len(servers)))
	if err != nil {
		return model.Server{}, err
	}
	choice, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || choice < 1 || choice > len(servers) {
		return model.Server{}, ErrInvalidChoice
	}
	return servers[choice-1], nil
}
