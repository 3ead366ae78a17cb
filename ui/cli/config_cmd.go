// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"io"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/toeirei/securessh/internal/config"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/tui"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runConfigShow(cmd.OutOrStdout())
		},
	}

	var path string
	write := &cobra.Command{
		Use:   "write",
		Short: "Write the current settings to a config file",
		Long:  "Write the current settings to securessh.yaml next to the executable, or to --path.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runConfigWrite(cmd.OutOrStdout(), path)
		},
	}
	write.Flags().StringVar(&path, "path", "", "destination file")

	cmd.AddCommand(show, write)
	return cmd
}

func (e *env) runConfigShow(out io.Writer) error {
	if e.used != "" {
		printf(out, "%s\n", tui.HelpStyle.Render("# "+e.used))
	}
	data, err := yaml.Marshal(e.cfg)
	if err != nil {
		return err
	}
	printf(out, "%s", data)
	return nil
}

func (e *env) runConfigWrite(out io.Writer, path string) error {
	if path == "" {
		path = filepath.Join(e.exeDir, config.FileName+".yaml")
	}
	// data_dir is written as configured, not resolved.
	if err := config.WriteConfigFile(&e.rawCfg, path); err != nil {
		return err
	}
	printf(out, "%s\n", tui.SuccessStyle.Render(i18n.T("config.written", path)))
	return nil
}
