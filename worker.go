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
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// UnknownStatus is the status of a worker that has not yet announced one.
const UnknownStatus = "unknown"

// State is the coarse lifecycle state of a fleet member.
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "invalid"
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// WorkerInfo is a consistent snapshot of one member's view.
type WorkerInfo struct {
	Member   Member    `json:"member"`
	State    State     `json:"state"`
	Status   string    `json:"status"`
	Pid      int       `json:"pid,omitempty"`
	Started  time.Time `json:"started"`
	Spawns   int       `json:"spawns"`
	LastExit string    `json:"lastExit,omitempty"`
}

// Running is shorthand for State == StateRunning.
func (i WorkerInfo) Running() bool {
	return i.State == StateRunning
}

// worker is the live record for one member.  All fields are guarded by
// mx; only the Supervisor touches them.  A non-nil cmd is the live
// handle, and state is StateRunning exactly when cmd is non-nil.
type worker struct {
	member   Member
	state    State
	cmd      *exec.Cmd
	status   string
	started  time.Time
	spawns   int
	lastExit string
	mx       sync.Mutex
}

func newWorker(m Member) *worker {
	return &worker{member: m, state: StateStopped, status: UnknownStatus}
}

// info must be called with the lock held.
func (w *worker) info() WorkerInfo {
	i := WorkerInfo{
		Member:   w.member,
		State:    w.state,
		Status:   w.status,
		Spawns:   w.spawns,
		LastExit: w.lastExit,
	}
	if w.cmd != nil {
		i.Started = w.started
		if p := w.cmd.Process; p != nil {
			i.Pid = p.Pid
		}
	}
	return i
}

// describeExit renders the exit code and terminating signal the way
// they appear in the session log.  Either may be "none".
func describeExit(ps *os.ProcessState) (string, string) {
	if ps == nil {
		return "none", "none"
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return "none", SignalName(ws.Signal())
	}
	return strconv.Itoa(ps.ExitCode()), "none"
}

// SignalName returns the conventional name of sig, e.g. "SIGINT".
func SignalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGHUP:
		return "SIGHUP"
	}
	return sig.String()
}

