// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads securessh.yaml, SECURESSH_* environment variables
// and command-line flags into a Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file name without extension.
const FileName = "securessh"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the application configuration.
type Config struct {
	DataDir    string    `mapstructure:"data_dir" yaml:"data_dir"`
	Language   string    `mapstructure:"language" yaml:"language"`
	LogLevel   string    `mapstructure:"log_level" yaml:"log_level"`
	KeyComment string    `mapstructure:"key_comment" yaml:"key_comment"`
	SSH        SSHConfig `mapstructure:"ssh" yaml:"ssh"`
}

// SSHConfig holds transport settings. Durations are whole seconds.
type SSHConfig struct {
	ConnectTimeout    int    `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	KeepaliveInterval int    `mapstructure:"keepalive_interval" yaml:"keepalive_interval"`
	KeepaliveMax      int    `mapstructure:"keepalive_max" yaml:"keepalive_max"`
	Term              string `mapstructure:"term" yaml:"term"`
}

func (s SSHConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(s.ConnectTimeout) * time.Second
}

func (s SSHConfig) KeepaliveIntervalDuration() time.Duration {
	return time.Duration(s.KeepaliveInterval) * time.Second
}

// Defaults returns the built-in values. data_dir is left empty and resolved
// next to the executable by the caller.
func Defaults() map[string]any {
	return map[string]any{
		"data_dir":               "",
		"language":               "en",
		"log_level":              "info",
		"key_comment":            "secure-ssh-key",
		"ssh.connect_timeout":    10,
		"ssh.keepalive_interval": 30,
		"ssh.keepalive_max":      3,
		"ssh.term":               "xterm-256color",
	}
}

// flagKeys maps dashed flag names to config keys.
var flagKeys = map[string]string{
	"data-dir":  "data_dir",
	"log-level": "log_level",
	"language":  "language",
}

// SupportedLanguages lists the bundled translations.
var SupportedLanguages = []string{"en", "ru"}

// Validate checks value ranges.
func (c *Config) Validate() error {
	ok := false
	for _, l := range SupportedLanguages {
		if c.Language == l {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidConfig, c.Language)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.SSH.ConnectTimeout <= 0 || c.SSH.KeepaliveInterval <= 0 || c.SSH.KeepaliveMax <= 0 {
		return fmt.Errorf("%w: ssh timeouts and keepalive settings must be positive", ErrInvalidConfig)
	}
	if c.SSH.Term == "" {
		return fmt.Errorf("%w: ssh.term must not be empty", ErrInvalidConfig)
	}
	return nil
}

// searchDirs returns the directories searched for securessh.yaml, in order.
// exeDir may be empty.
func searchDirs(exeDir string) []string {
	var dirs []string
	if exeDir != "" {
		dirs = append(dirs, exeDir)
	}
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, FileName))
	}
	return append(dirs, ".")
}

// LoadConfig merges defaults, the config file, SECURESSH_* environment
// variables and cmd's flags into T. explicitPath, when set, replaces the
// search. The returned string names the file used, empty when none was found.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string, exeDir string) (T, string, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}
	for _, dir := range searchDirs(exeDir) {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, "", err
		}
	}

	v.SetEnvPrefix("securessh")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := bindFlags(v, cmd.Flags()); err != nil {
			return c, "", err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, "", err
	}
	return c, v.ConfigFileUsed(), nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	return bindErr
}

// WriteConfigFile persists c as YAML at path with owner-only permissions.
func WriteConfigFile[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	return os.WriteFile(path, data, 0o600)
}
