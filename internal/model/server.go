// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the server records kept inside the encrypted server
// list.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is used when a server record does not name one.
const DefaultPort uint16 = 22

var (
	// ErrServerNotFound is returned when no record has the requested name.
	ErrServerNotFound = errors.New("server not found")
	// ErrServerAlreadyExists is returned when adding a duplicate name.
	ErrServerAlreadyExists = errors.New("server already exists")
	// ErrInvalidServer is returned for records missing required fields.
	ErrInvalidServer = errors.New("invalid server")
	// ErrNoServers is returned when a command needs at least one server.
	ErrNoServers = errors.New("no servers configured")
)

// Server is one remote host the vault identity can connect to.
type Server struct {
	Name        string `json:"name"`
	Host        string `json:"host"`
	Port        uint16 `json:"port"`
	User        string `json:"user"`
	Description string `json:"description,omitempty"`
}

// Validate checks required fields.
func (s Server) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: name must not be empty", ErrInvalidServer)
	case strings.TrimSpace(s.Host) == "":
		return fmt.Errorf("%w: host must not be empty", ErrInvalidServer)
	case strings.TrimSpace(s.User) == "":
		return fmt.Errorf("%w: user must not be empty", ErrInvalidServer)
	case s.Port == 0:
		return fmt.Errorf("%w: port must be between 1 and 65535", ErrInvalidServer)
	}
	return nil
}

// Address returns host:port for dialing.
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(int(s.Port)))
}

// String returns user@host, with :port appended when it is not 22.
func (s Server) String() string {
	if s.Port == DefaultPort {
		return fmt.Sprintf("%s@%s", s.User, s.Host)
	}
	return fmt.Sprintf("%s@%s:%d", s.User, s.Host, s.Port)
}

// ParsePort parses a port string; empty input yields DefaultPort.
func ParsePort(in string) (uint16, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return DefaultPort, nil
	}
	p, err := strconv.ParseUint(in, 10, 16)
	if err != nil || p == 0 {
		return 0, fmt.Errorf("%w: invalid port %q", ErrInvalidServer, in)
	}
	return uint16(p), nil
}

// ServerList is an ordered collection of servers keyed by unique name.
// Insertion order is preserved.
type ServerList struct {
	Servers []Server `json:"servers"`
}

// Add appends s. A duplicate name is rejected, never overwritten.
func (l *ServerList) Add(s Server) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, ok := l.index(s.Name); ok {
		return fmt.Errorf("%w: %s", ErrServerAlreadyExists, s.Name)
	}
	l.Servers = append(l.Servers, s)
	return nil
}

// Remove deletes the server with the given name and returns it.
func (l *ServerList) Remove(name string) (Server, error) {
	i, ok := l.index(name)
	if !ok {
		return Server{}, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}
	s := l.Servers[i]
	l.Servers = append(l.Servers[:i], l.Servers[i+1:]...)
	return s, nil
}

// Get looks up a server by name.
func (l *ServerList) Get(name string) (Server, error) {
	i, ok := l.index(name)
	if !ok {
		return Server{}, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}
	return l.Servers[i], nil
}

// Len returns the number of servers.
func (l *ServerList) Len() int { return len(l.Servers) }

// IsEmpty reports whether the list has no servers.
func (l *ServerList) IsEmpty() bool { return len(l.Servers) == 0 }

// All returns a copy of the servers in insertion order.
func (l *ServerList) All() []Server {
	out := make([]Server, len(l.Servers))
	copy(out, l.Servers)
	return out
}

func (l *ServerList) index(name string) (int, bool) {
	for i, s := range l.Servers {
		if s.Name == name {
			return i, true
		}
	}
	return -1, false
}

// MarshalServerList serializes the list for encryption.
func MarshalServerList(l *ServerList) ([]byte, error) {
	if l.Servers == nil {
		l = &ServerList{Servers: []Server{}}
	}
	return json.Marshal(l)
}

// UnmarshalServerList parses a decrypted server list. Records without a port
// get DefaultPort.
func UnmarshalServerList(data []byte) (*ServerList, error) {
	var l ServerList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode server list: %w", err)
	}
	for i := range l.Servers {
		if l.Servers[i].Port == 0 {
			l.Servers[i].Port = DefaultPort
		}
	}
	return &l, nil
}
