// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package presence

import "strings"

func isRemovable(dir string) bool {
	for _, prefix := range []string{"/media/", "/mnt/", "/run/media/"} {
		if strings.HasPrefix(dir, prefix) {
			return true
		}
	}
	return false
}
