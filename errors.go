// Copyright 2026 The Fleetvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fleetvisor

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning   = errors.New("Node is already running")
	ErrNotRunning       = errors.New("Node is not running")
	ErrUnknownMember    = errors.New("Node is not a fleet member")
	ErrBadMember        = errors.New("Bad fleet member")
	ErrMalformedCommand = errors.New("Malformed command")
	ErrSpawnFailed      = errors.New("Failed to spawn node")
)

// MemberError records a failed operation against a single fleet member.
// The underlying Err is normally one of the sentinels above, possibly
// wrapping an operating system error.
type MemberError struct {
	Op     string
	Member Member
	Err    error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("%s node %v: %v", e.Op, e.Member, e.Err)
}

func (e *MemberError) Unwrap() error {
	return e.Err
}

// MultiError aggregates the failures of a batch operation such as
// SpawnAll.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Unwrap permits errors.Is and errors.As to inspect every member error.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

func (m *MultiError) add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if nothing was added, or the MultiError itself.
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
