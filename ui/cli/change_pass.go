// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/security"
	"github.com/toeirei/securessh/internal/tui"
)

func newChangePassCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "change-pass",
		Short: "Change the master password",
		Long:  "Re-encrypt the identity and the server list under a new master password and a fresh salt.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runChangePass(cmd.OutOrStdout())
		},
	}
}

func (e *env) runChangePass(out io.Writer) error {
	u, err := e.unlock()
	if err != nil {
		return err
	}
	defer u.Close()

	list, err := e.store.LoadServers(u.Key)
	if err != nil {
		return err
	}

	pw, err := readNewPassword(e.prompt)
	if err != nil {
		return err
	}
	defer security.Zero(pw)

	if err := e.store.Rekey(u, list, pw); err != nil {
		return err
	}
	printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("change_pass.done")))
	return nil
}
