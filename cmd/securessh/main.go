// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Command securessh is the installable entrypoint:
//
//	go install github.com/toeirei/securessh/cmd/securessh@latest
package main

import (
	"os"

	"github.com/toeirei/securessh/internal/logging"
	"github.com/toeirei/securessh/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("%s", cli.DescribeError(err))
		os.Exit(1)
	}
}
