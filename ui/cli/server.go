// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/toeirei/securessh/internal/deploy"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/model"
	"github.com/toeirei/securessh/internal/remote"
	"github.com/toeirei/securessh/internal/tui"
)

type serverFlags struct {
	name string
	host string
	port string
	user string
	desc string
}

func newServerCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "server",
		Aliases: []string{"servers"},
		Short:   "Manage the encrypted server list",
	}
	cmd.AddCommand(
		newServerAddCmd(e),
		newServerListCmd(e),
		newServerRemoveCmd(e),
		newServerInstallKeyCmd(e),
		newServerForgetHostCmd(e),
	)
	return cmd
}

func newServerAddCmd(e *env) *cobra.Command {
	var f serverFlags
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a server; missing fields are prompted for",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.name = args[0]
			}
			return e.runServerAdd(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&f.host, "host", "", "hostname or IP address")
	cmd.Flags().StringVarP(&f.port, "port", "p", "", "SSH port (default 22)")
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "remote user name")
	cmd.Flags().StringVarP(&f.desc, "description", "d", "", "free-form description")
	return cmd
}

func (e *env) runServerAdd(out io.Writer, f serverFlags) error {
	u, err := e.unlock()
	if err != nil {
		return err
	}
	defer u.Close()

	list, err := e.store.LoadServers(u.Key)
	if err != nil {
		return err
	}
	srv, err := e.promptServer(f)
	if err != nil {
		return err
	}
	if err := list.Add(srv); err != nil {
		return err
	}
	if err := e.store.SaveServers(list, u.Key); err != nil {
		return err
	}
	printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("server.added", srv.Name)))
	return nil
}

// promptServer fills every field not given in f interactively.
func (e *env) promptServer(f serverFlags) (model.Server, error) {
	ask := func(value *string, id string) error {
		if strings.TrimSpace(*value) != "" {
			return nil
		}
		answer, err := e.prompt.Line(i18n.T(id))
		if err != nil {
			return err
		}
		*value = strings.TrimSpace(answer)
		return nil
	}
	for _, q := range []struct {
		value *string
		id    string
	}{
		{&f.name, "server.prompt.name"},
		{&f.host, "server.prompt.host"},
		{&f.port, "server.prompt.port"},
		{&f.user, "server.prompt.user"},
		{&f.desc, "server.prompt.desc"},
	} {
		if err := ask(q.value, q.id); err != nil {
			return model.Server{}, err
		}
	}

	port, err := model.ParsePort(f.port)
	if err != nil {
		return model.Server{}, err
	}
	srv := model.Server{
		Name:        strings.TrimSpace(f.name),
		Host:        strings.TrimSpace(f.host),
		Port:        port,
		User:        strings.TrimSpace(f.user),
		Description: strings.TrimSpace(f.desc),
	}
	return srv, srv.Validate()
}

func newServerListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured servers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runServerList(cmd.OutOrStdout())
		},
	}
}

func (e *env) runServerList(out io.Writer) error {
	u, err := e.unlock()
	if err != nil {
		return err
	}
	list, err := e.store.LoadServers(u.Key)
	u.Close()
	if err != nil {
		return err
	}
	if list.IsEmpty() {
		printf(out, "%s\n", tui.HelpStyle.Render(i18n.T("server.list_empty")))
		return nil
	}
	printf(out, "%s\n", renderServers(list.All()))
	return nil
}

func renderServers(servers []model.Server) string {
	nameWidth := 0
	for _, s := range servers {
		nameWidth = max(nameWidth, lipgloss.Width(s.Name))
	}
	nameStyle := tui.AccentStyle.Width(nameWidth + 2)
	rows := []string{tui.TitleStyle.Render(i18n.T("server.list_title", len(servers)))}
	for _, s := range servers {
		row := nameStyle.Render(s.Name) + s.String()
		if s.Description != "" {
			row += tui.HelpStyle.Render("  " + s.Description)
		}
		rows = append(rows, "  "+row)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func newServerRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runServerRemove(cmd.OutOrStdout(), args[0])
		},
	}
}

func (e *env) runServerRemove(out io.Writer, name string) error {
	u, err := e.unlock()
	if err != nil {
		return err
	}
	defer u.Close()

	list, err := e.store.LoadServers(u.Key)
	if err != nil {
		return err
	}
	if _, err := list.Remove(name); err != nil {
		return err
	}
	if err := e.store.SaveServers(list, u.Key); err != nil {
		return err
	}
	printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("server.removed", name)))
	return nil
}

func newServerInstallKeyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "install-key <name>",
		Short: "Append the vault public key to the server's authorized_keys",
		Long: `Connect with an SSH agent or the account password and append the vault
public key to ~/.ssh/authorized_keys. Nothing is written when the key is
already present.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runInstallKey(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func (e *env) runInstallKey(ctx context.Context, out io.Writer, name string) error {
	u, err := e.unlock()
	if err != nil {
		return err
	}
	list, err := e.store.LoadServers(u.Key)
	if err != nil {
		u.Close()
		return err
	}
	pub := u.Identity.ExportPublic(e.cfg.KeyComment)
	u.Close()

	srv, err := list.Get(name)
	if err != nil {
		return err
	}
	opts, err := e.remoteOptions(srv)
	if err != nil {
		return err
	}

	printf(out, "%s\n", i18n.T("connect.connecting", srv.String()))
	password := func() (string, error) {
		pw, err := e.prompt.Password(i18n.T("prompt.remote_password", srv.String()))
		return string(pw), err
	}
	client, err := remote.DialAuth(ctx, opts, deploy.BootstrapAuth(password)...)
	if err != nil {
		return err
	}
	defer client.Close()

	d, err := deploy.NewDeployer(client.SSH())
	if err != nil {
		return err
	}
	defer d.Close()

	changed, err := d.InstallAuthorizedKey(pub)
	if err != nil {
		return err
	}
	if changed {
		printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("server.key_installed", srv.String())))
	} else {
		printf(out, "%s\n", tui.HelpStyle.Render(i18n.T("server.key_present", srv.String())))
	}
	return nil
}

func newServerForgetHostCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "forget-host <name>",
		Short: "Drop the remembered host key of a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runForgetHost(cmd.OutOrStdout(), args[0])
		},
	}
}

func (e *env) runForgetHost(out io.Writer, name string) error {
	u, err := e.unlock()
	if err != nil {
		return err
	}
	list, err := e.store.LoadServers(u.Key)
	u.Close()
	if err != nil {
		return err
	}
	srv, err := list.Get(name)
	if err != nil {
		return err
	}
	kh, err := remote.NewKnownHosts(e.store.KnownHostsPath())
	if err != nil {
		return err
	}
	n, err := kh.Forget(srv.Host, srv.Port)
	if err != nil {
		return err
	}
	printf(out, "%s\n", i18n.T("server.host_forgotten", n, srv.Address()))
	return nil
}

// remoteOptions builds connection options for srv from the configuration.
func (e *env) remoteOptions(srv model.Server) (remote.Options, error) {
	kh, err := remote.NewKnownHosts(e.store.KnownHostsPath())
	if err != nil {
		return remote.Options{}, err
	}
	return remote.Options{
		Host:              srv.Host,
		Port:              srv.Port,
		User:              srv.User,
		HostKeys:          kh,
		ConnectTimeout:    e.cfg.SSH.ConnectTimeoutDuration(),
		KeepaliveInterval: e.cfg.SSH.KeepaliveIntervalDuration(),
		KeepaliveMax:      e.cfg.SSH.KeepaliveMax,
	}, nil
}
