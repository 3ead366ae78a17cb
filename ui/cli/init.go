// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/toeirei/securessh/internal/crypto"
	cryptossh "github.com/toeirei/securessh/internal/crypto/ssh"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/logging"
	"github.com/toeirei/securessh/internal/model"
	"github.com/toeirei/securessh/internal/presence"
	"github.com/toeirei/securessh/internal/security"
	"github.com/toeirei/securessh/internal/tui"
	"github.com/toeirei/securessh/internal/vault"
)

func newInitCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the vault with a new master password and SSH key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runInit(cmd.OutOrStdout(), force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing vault")
	return cmd
}

func (e *env) runInit(out io.Writer, force bool) error {
	initialized, err := e.store.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		if !force {
			return vault.ErrAlreadyInitialized
		}
		printf(out, "%s\n", tui.WarnStyle.Render(i18n.T("init.overwrite_warning")))
		ok, err := e.prompt.Confirm(i18n.T("init.confirm_overwrite"))
		if err != nil {
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	if !presence.IsRemovable(e.exeDir) {
		printf(out, "%s\n", tui.WarnStyle.Render(i18n.T("init.not_removable")))
	}

	pw, err := readNewPassword(e.prompt)
	if err != nil {
		return err
	}
	defer security.Zero(pw)

	printf(out, "%s\n", i18n.T("init.generating"))
	id, err := cryptossh.Generate()
	if err != nil {
		return err
	}
	defer id.Destroy()

	dk, err := crypto.DeriveKey(pw, nil)
	if err != nil {
		return err
	}
	defer dk.Destroy()

	if err := e.store.SaveIdentity(id, e.cfg.KeyComment, dk); err != nil {
		return err
	}
	// A new salt makes any previous server list unreadable; start empty.
	servers := &model.ServerList{}
	if err := e.store.SaveServers(servers, dk); err != nil {
		return err
	}

	if err := presence.WriteMarker(presence.MarkerPath(e.exeDir)); err != nil {
		logging.Warnf("could not write presence marker: %v", err)
	}

	printf(out, "%s\n\n", tui.SuccessStyle.Render(i18n.T("init.done", e.store.Dir())))
	printf(out, "%s\n", tui.TitleStyle.Render(i18n.T("pubkey.title")))
	printf(out, "%s\n", id.ExportPublic(e.cfg.KeyComment))
	if pub, err := id.SSHPublicKey(); err == nil {
		printf(out, "%s\n", tui.HelpStyle.Render(cryptossh.FingerprintSHA256(pub)))
	}
	printf(out, "\n%s\n", tui.HelpStyle.Render(i18n.T("init.next_steps")))

	add, err := e.prompt.Confirm(i18n.T("init.add_server"))
	if err != nil || !add {
		return nil
	}
	srv, err := e.promptServer(serverFlags{})
	if err != nil {
		return err
	}
	if err := servers.Add(srv); err != nil {
		return err
	}
	if err := e.store.SaveServers(servers, dk); err != nil {
		return err
	}
	printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("server.added", srv.Name)))
	return nil
}
