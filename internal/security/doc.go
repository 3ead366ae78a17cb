// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package security holds secret byte buffers that are locked against swap
// where the platform allows it and wiped with zeros when released.
package security
