// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/tui"
)

func newBackupCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up or restore the encrypted vault files",
	}
	cmd.AddCommand(newBackupCreateCmd(e), newBackupRestoreCmd(e))
	return cmd
}

func newBackupCreateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "create [output-file]",
		Short: "Write a compressed backup of the vault",
		Long: `Write the encrypted vault files into a zstd-compressed archive. The files
stay encrypted; the master password is needed to use a restored vault.

If an output file is specified, '.zst' is appended when missing. Without
one, 'securessh-backup-YYYY-MM-DD.json.zst' is written to the current
directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 1 {
				name = args[0]
			}
			return e.runBackupCreate(cmd.OutOrStdout(), name)
		},
	}
}

func backupFileName(arg string, now time.Time) string {
	if arg == "" {
		return fmt.Sprintf("securessh-backup-%s.json.zst", now.Format("2006-01-02"))
	}
	if !strings.HasSuffix(arg, ".zst") {
		return arg + ".zst"
	}
	return arg
}

func (e *env) runBackupCreate(out io.Writer, arg string) (err error) {
	name := backupFileName(arg, time.Now())
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("could not create backup file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(name)
		}
	}()

	if err := e.store.CreateBackup(f); err != nil {
		return err
	}
	printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("backup.created", name)))
	return nil
}

func newBackupRestoreCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore the vault from a backup",
		Long: `Restore the vault files from a backup written by 'backup create'. An
existing vault is only replaced with --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runBackupRestore(cmd.OutOrStdout(), args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing vault")
	return cmd
}

func (e *env) runBackupRestore(out io.Writer, name string, force bool) error {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("backup file %s not found", name)
		}
		return err
	}
	defer func() { _ = f.Close() }()

	if force {
		initialized, err := e.store.IsInitialized()
		if err != nil {
			return err
		}
		if initialized {
			ok, err := e.prompt.Confirm(i18n.T("backup.confirm_overwrite"))
			if err != nil {
				return err
			}
			if !ok {
				return ErrCancelled
			}
		}
	}

	if err := e.store.RestoreBackup(f, force); err != nil {
		return err
	}
	printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("backup.restored", e.store.Dir())))
	return nil
}
