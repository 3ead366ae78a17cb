// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package presence reports whether the removable drive the program runs
// from is still attached. The check is a plain stat and has no side effects.
package presence

import (
	"fmt"
	"os"
	"path/filepath"
)

// MarkerFileName is written next to the executable by `init`.
const MarkerFileName = ".secure-ssh-marker"

const markerContent = "secure-ssh marker file\nDo not delete - used for USB detection\n"

// Monitor reports device presence.
type Monitor interface {
	IsPresent() bool
}

// pathMonitor checks the marker when it existed at construction time and
// the fallback path otherwise.
type pathMonitor struct {
	marker   string
	fallback string
}

func (m *pathMonitor) IsPresent() bool {
	if m.marker != "" {
		return exists(m.marker)
	}
	return exists(m.fallback)
}

func newPathMonitor(markerPath, fallback string) *pathMonitor {
	m := &pathMonitor{fallback: fallback}
	if markerPath != "" && exists(markerPath) {
		m.marker = markerPath
	}
	return m
}

// New returns the backend for the current platform, or nil when presence
// detection is not supported here.
func New(exeDir, markerPath string) Monitor {
	return newPlatformMonitor(exeDir, markerPath)
}

// MarkerPath returns the marker location for an executable directory.
func MarkerPath(exeDir string) string {
	return filepath.Join(exeDir, MarkerFileName)
}

// WriteMarker creates or refreshes the marker file.
func WriteMarker(path string) error {
	if err := os.WriteFile(path, []byte(markerContent), 0o644); err != nil {
		return fmt.Errorf("write marker %s: %w", path, err)
	}
	return nil
}

// IsRemovable reports whether dir looks like it lives on removable media.
// Used for an informational warning only.
func IsRemovable(dir string) bool {
	return isRemovable(dir)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
