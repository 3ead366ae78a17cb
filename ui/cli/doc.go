// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the securessh command-line interface using Cobra.
// Commands stay thin: they prompt, unlock the vault and hand off to the
// vault, remote, deploy and session packages.
package cli
