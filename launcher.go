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
	"os"
	"os/exec"
	"path/filepath"
)

const (
	DefaultPortFlag    = "--port=%d"
	DefaultFellowsFlag = "--fellows=%s"
)

// Launcher builds the command that starts a worker.  The Supervisor
// owns the returned command; it attaches the output pipes and starts it.
type Launcher interface {
	Command(self Member, fellows []Member) *exec.Cmd
}

// CommandLauncher starts every worker from the same argv prefix, adding
// the worker's own identity and its fellows as two trailing arguments.
//
// With Args {"node", "test.js"} member 3000 of {3000, 3001, 3002} runs
//
//	node test.js --port=3000 --fellows=3001,3002
type CommandLauncher struct {
	Args        []string // program and leading arguments
	Dir         string   // working directory; "" for DefaultDir()
	Env         []string // extra KEY=value pairs
	PortFlag    string   // format for the identity, takes an int
	FellowsFlag string   // format for the fellows, takes a string
}

func (l *CommandLauncher) Command(self Member, fellows []Member) *exec.Cmd {
	portFlag := l.PortFlag
	if portFlag == "" {
		portFlag = DefaultPortFlag
	}
	fellowsFlag := l.FellowsFlag
	if fellowsFlag == "" {
		fellowsFlag = DefaultFellowsFlag
	}

	var prog string
	var args []string
	if len(l.Args) > 0 {
		prog = l.Args[0]
		args = append(args, l.Args[1:]...)
	}
	args = append(args,
		fmt.Sprintf(portFlag, int(self)),
		fmt.Sprintf(fellowsFlag, JoinMembers(fellows)))

	cmd := exec.Command(prog, args...)
	cmd.Dir = l.Dir
	if cmd.Dir == "" {
		cmd.Dir = DefaultDir()
	}
	if len(l.Env) != 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}
	return cmd
}

// DefaultDir is the supervisor's own location: the directory holding
// the running executable.  Workers run there, and the session log lives
// there, unless configured otherwise.
func DefaultDir() string {
	exe, e := os.Executable()
	if e != nil {
		return "."
	}
	if resolved, e := filepath.EvalSymlinks(exe); e == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
