// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// Buffer owns sensitive material (private keys, derived keys, decrypted
// payloads). It redacts itself in every formatting path and overwrites its
// backing array with zeros exactly once when destroyed.
//
// Owners must call Destroy on every exit path, usually via defer. A runtime
// cleanup wipes the array if the owner forgets, and Destroy cancels it.
type Buffer struct {
	mu        sync.Mutex
	data      []byte
	locked    bool
	destroyed bool
	cleanup   runtime.Cleanup
}

// NewBuffer takes ownership of data without copying it. The caller must not
// keep using its own reference to data afterwards.
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{data: data}
	b.locked = lockMemory(data) == nil
	b.cleanup = runtime.AddCleanup(b, func(d []byte) { Zero(d) }, data)
	return b
}

// NewZeroBuffer allocates a zero-filled buffer of size n.
func NewZeroBuffer(n int) *Buffer {
	return NewBuffer(make([]byte, n))
}

// Bytes returns the underlying slice (not a copy). Do not retain it past
// the buffer's lifetime.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Len returns the length of the secret.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Clone returns an independent buffer holding a copy of the secret. This is
// the only way to duplicate a Buffer; the copy has its own Destroy obligation.
func (b *Buffer) Clone() *Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return NewBuffer(out)
}

// Use executes fn with the underlying bytes (not a copy).
func (b *Buffer) Use(fn func([]byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.data)
}

// Destroy wipes the secret and releases the memory lock. Calling it more than
// once is a no-op.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.cleanup.Stop()
	Zero(b.data)
	if b.locked {
		_ = unlockMemory(b.data)
		b.locked = false
	}
}

// Destroyed reports whether Destroy has run.
func (b *Buffer) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Redacted returns the placeholder used in logs.
func (b *Buffer) Redacted() string {
	return fmt.Sprintf("[SECRET len=%d]", b.Len())
}

// String redacts the secret for fmt.Print* convenience.
func (b *Buffer) String() string { return b.Redacted() }

// GoString redacts %#v.
func (b *Buffer) GoString() string { return b.Redacted() }

// Format implements fmt.Formatter so every verb is redacted.
func (b *Buffer) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, b.Redacted())
}

// MarshalJSON redacts secrets in JSON marshaling.
func (b *Buffer) MarshalJSON() ([]byte, error) { return json.Marshal(b.Redacted()) }

// MarshalText redacts secrets for text encoding.
func (b *Buffer) MarshalText() ([]byte, error) { return []byte(b.Redacted()), nil }

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroAll wipes several slices.
func ZeroAll(slices ...[]byte) {
	for _, s := range slices {
		Zero(s)
	}
}
