// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package presence

import (
	"path/filepath"

	"golang.org/x/sys/windows"
)

// driveRoot turns C:\some\dir into C:\.
func driveRoot(dir string) string {
	vol := filepath.VolumeName(dir)
	if vol == "" {
		return dir
	}
	return vol + `\`
}

func newPlatformMonitor(exeDir, markerPath string) Monitor {
	return newPathMonitor(markerPath, driveRoot(exeDir))
}

func isRemovable(dir string) bool {
	root, err := windows.UTF16PtrFromString(driveRoot(dir))
	if err != nil {
		return false
	}
	return windows.GetDriveType(root) == windows.DRIVE_REMOVABLE
}
