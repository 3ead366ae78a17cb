// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build !linux && !darwin && !windows

package presence

func newPlatformMonitor(string, string) Monitor { return nil }

func isRemovable(string) bool { return false }
