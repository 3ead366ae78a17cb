// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build linux || darwin

package presence

func newPlatformMonitor(exeDir, markerPath string) Monitor {
	return newPathMonitor(markerPath, exeDir)
}
