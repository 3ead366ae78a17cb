// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"

	"github.com/toeirei/securessh/internal/config"
	"github.com/toeirei/securessh/internal/crypto"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/model"
	"github.com/toeirei/securessh/internal/remote"
	"github.com/toeirei/securessh/internal/tui"
	"github.com/toeirei/securessh/internal/vault"
)

// errorMessages maps sentinel errors to translated explanations. The first
// match wins, so more specific errors come first.
var errorMessages = []struct {
	err error
	id  string
}{
	{crypto.ErrAuthenticationFailed, "errors.auth_failed"},
	{vault.ErrNotInitialized, "errors.not_initialized"},
	{vault.ErrAlreadyInitialized, "errors.already_initialized"},
	{vault.ErrUnsupportedVersion, "errors.unsupported_version"},
	{vault.ErrSaltMismatch, "errors.salt_mismatch"},
	{vault.ErrInvalidBackup, "errors.invalid_backup"},
	{model.ErrServerNotFound, "errors.server_not_found"},
	{model.ErrServerAlreadyExists, "errors.server_exists"},
	{model.ErrNoServers, "errors.no_servers"},
	{remote.ErrHostKeyMismatch, "errors.host_key_mismatch"},
	{remote.ErrAuthRejected, "errors.auth_rejected"},
	{remote.ErrTransportFailure, "errors.transport"},
	{ErrPasswordTooShort, "errors.password_too_short"},
	{ErrPasswordMismatch, "errors.password_mismatch"},
	{ErrCancelled, "errors.cancelled"},
	{tui.ErrCancelled, "errors.cancelled"},
	{ErrInvalidChoice, "errors.invalid_choice"},
	{config.ErrInvalidConfig, "errors.invalid_config"},
}

// DescribeError renders err for the user: a translated summary followed by
// the underlying detail.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			msg := i18n.T(m.id)
			if m.err == ErrPasswordTooShort {
				msg = i18n.T(m.id, MinPasswordLength)
			}
			if err.Error() != m.err.Error() {
				msg += " (" + err.Error() + ")"
			}
			return msg
		}
	}
	return err.Error()
}
