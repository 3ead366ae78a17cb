// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the root command, global flags and the configuration
// bootstrap shared by every subcommand.

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/toeirei/securessh/buildvars"
	"github.com/toeirei/securessh/internal/config"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/logging"
	"github.com/toeirei/securessh/internal/model"
	"github.com/toeirei/securessh/internal/session"
	"github.com/toeirei/securessh/internal/vault"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)

const modulePath = "github.com/toeirei/securessh"

// env carries the state shared by all commands of one invocation.
type env struct {
	cfg    config.Config // effective config, data_dir resolved
	rawCfg config.Config // as loaded, for config write
	used   string        // config file in use, empty when none

	exeDir string
	store  *vault.Store
	prompt Prompter

	verbose bool

	// Seams for tests.
	pickServer  func([]model.Server) (model.Server, error)
	newTerminal func() session.Terminal
	isTTY       func() bool
}

func newEnv() *env {
	return &env{
		prompt:      newTermPrompter(os.Stdin, os.Stderr),
		pickServer:  runPicker,
		newTerminal: func() session.Terminal { return session.NewStdTerminal() },
		isTTY:       stdinIsTerminal,
	}
}

// setup loads the configuration and initialises logging, translations and
// the vault store.
func (e *env) setup(cmd *cobra.Command) error {
	if e.exeDir == "" {
		dir, err := vault.ExecutableDir()
		if err != nil {
			return err
		}
		e.exeDir = dir
	}

	path, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}
	c, used, err := config.LoadConfig[config.Config](cmd, config.Defaults(), path, e.exeDir)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	e.rawCfg = c
	e.used = used

	if e.verbose {
		logging.SetDebug(true)
	} else if err := logging.SetLevel(c.LogLevel); err != nil {
		return err
	}
	i18n.Init(c.Language)

	if c.DataDir == "" {
		c.DataDir = filepath.Join(e.exeDir, vault.DataDirName)
	} else if !filepath.IsAbs(c.DataDir) {
		c.DataDir = filepath.Join(e.exeDir, c.DataDir)
	}
	e.cfg = c
	e.store = vault.NewStore(c.DataDir)

	if used != "" {
		logging.Debugf("config file: %s", used)
	}
	logging.Debugf("data dir: %s", c.DataDir)
	return nil
}

// Execute runs the CLI entrypoint. The root main package should call this
// function and handle process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newEnv())
}

func newRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "securessh",
		Short: "SecureSSH keeps an SSH identity encrypted on a removable drive.",
		Long: `SecureSSH stores an Ed25519 identity and a list of servers in
password-encrypted files next to the executable. Sessions opened with
'connect' are torn down as soon as the drive is removed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}
	cmd.Version = compositeVersion()

	cmd.PersistentFlags().String("config", "", "config file (default: securessh.yaml next to the executable)")
	cmd.PersistentFlags().String("data-dir", "", "directory holding the encrypted vault")
	cmd.PersistentFlags().String("language", "", "interface language (en, ru)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newInitCmd(e),
		newPubkeyCmd(e),
		newServerCmd(e),
		newConnectCmd(e),
		newChangePassCmd(e),
		newBackupCmd(e),
		newConfigCmd(e),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), compositeVersion())
			return err
		},
	}
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil, it reads build info from the
// runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, found := debug.ReadBuildInfo(); found {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module as a dependency.
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}

// printf writes to w, ignoring errors; terminal output failures are not
// actionable.
func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
