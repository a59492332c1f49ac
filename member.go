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
	"fmt"
	"strconv"
	"strings"
)

// Member is the identity of one configured worker.  It is the port the
// worker listens on, and doubles as its lookup key in the Supervisor.
type Member int

const (
	minMember Member = 1
	maxMember Member = 65535
)

func (m Member) String() string {
	return strconv.Itoa(int(m))
}

// Valid reports whether the member is a usable port number.
func (m Member) Valid() bool {
	return m >= minMember && m <= maxMember
}

// ParseMember converts operator or configuration text into a Member.
// Anything that is not a decimal port number yields ErrBadMember.
func ParseMember(s string) (Member, error) {
	n, e := strconv.Atoi(strings.TrimSpace(s))
	if e != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadMember, s)
	}
	m := Member(n)
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %d out of range", ErrBadMember, n)
	}
	return m, nil
}

// Fellows returns every member of fleet other than self, in fleet order.
func Fellows(fleet []Member, self Member) []Member {
	rv := make([]Member, 0, len(fleet))
	for _, m := range fleet {
		if m != self {
			rv = append(rv, m)
		}
	}
	return rv
}

// JoinMembers renders members as a comma separated list, the form
// used on worker command lines.
func JoinMembers(members []Member) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, ",")
}

// NewFleet validates a list of ports and returns them as members,
// preserving order.  Duplicates are rejected.
func NewFleet(ports []int) ([]Member, error) {
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: empty fleet", ErrBadMember)
	}
	seen := make(map[Member]bool, len(ports))
	rv := make([]Member, 0, len(ports))
	for _, p := range ports {
		m := Member(p)
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %d out of range", ErrBadMember, p)
		}
		if seen[m] {
			return nil, fmt.Errorf("%w: %d listed twice", ErrBadMember, p)
		}
		seen[m] = true
		rv = append(rv, m)
	}
	return rv, nil
}
