// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	cryptossh "github.com/toeirei/securessh/internal/crypto/ssh"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/logging"
	"github.com/toeirei/securessh/internal/tui"
	"golang.org/x/crypto/ssh"
)

var clipboardWrite = clipboard.WriteAll

func newPubkeyCmd(e *env) *cobra.Command {
	var copyToClipboard, fingerprint bool
	cmd := &cobra.Command{
		Use:   "pubkey",
		Short: "Print the public SSH key",
		Long:  "Print the public key in authorized_keys format. No password is needed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runPubkey(cmd.OutOrStdout(), cmd.ErrOrStderr(), copyToClipboard, fingerprint)
		},
	}
	cmd.Flags().BoolVarP(&copyToClipboard, "copy", "c", false, "copy the key to the clipboard")
	cmd.Flags().BoolVarP(&fingerprint, "fingerprint", "f", false, "also print the SHA256 fingerprint")
	return cmd
}

func (e *env) runPubkey(out, errOut io.Writer, copyToClipboard, fingerprint bool) error {
	line, err := e.store.ReadPublicKey()
	if err != nil {
		return err
	}
	printf(out, "%s\n", line)

	if fingerprint {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			return fmt.Errorf("parse stored public key: %w", err)
		}
		printf(out, "%s\n", cryptossh.FingerprintSHA256(pub))
	}

	if copyToClipboard {
		if err := clipboardWrite(line); err != nil {
			logging.Warnf("clipboard unavailable: %v", err)
			return nil
		}
		printf(errOut, "%s\n", tui.SuccessStyle.Render(i18n.T("pubkey.copied")))
	}
	return nil
}
