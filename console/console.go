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

// Package console implements the operator's interactive command loop.
//
// The protocol is line oriented.  The first word of a line names the
// command, and an optional second word names a fleet member:
//
//	status             show every node's state and last status
//	kill <port>        interrupt the node on <port>
//	respawn <port>     spawn the node on <port> if it is not running
//	killall            interrupt every running node
//	respawnall         spawn every node that is not running
//	help               show the command summary
//	exit               interrupt every node and leave
//
// Commands are case sensitive.  Mistakes are reported and the loop
// carries on; only exit (or the end of input) ends it.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/fleetvisor"
)

const helpText = `
Commands:
  status             Show node status
  kill <port>        Send SIGINT to node on <port>
  respawn <port>     Spawn node on <port> if not running
  killall            Kill all nodes
  respawnall         Spawn all nodes that are not running
  help               Show this help
  exit               Kill all and exit
`

// Console reads commands from in and reports on out.  It is not safe
// for concurrent use; one goroutine drives it.
type Console struct {
	sup       *fleetvisor.Supervisor
	in        io.Reader
	out       io.Writer
	prompt    string
	interrupt os.Signal
}

// Option adjusts a Console.
type Option func(*Console)

// WithPrompt shows p before reading each command.  The default is no
// prompt, which suits input that is not a terminal.
func WithPrompt(p string) Option {
	return func(c *Console) {
		c.prompt = p
	}
}

// WithInterrupt changes the signal that kill, killall and exit send.
// The default is os.Interrupt.
func WithInterrupt(sig os.Signal) Option {
	return func(c *Console) {
		c.interrupt = sig
	}
}

// New returns a Console driving sup, reading commands from in.
func New(sup *fleetvisor.Supervisor, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		sup:       sup,
		in:        in,
		out:       out,
		interrupt: os.Interrupt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) printf(format string, v ...interface{}) {
	fmt.Fprintf(c.out, format, v...)
}

// Run executes commands until exit is given or input ends.  The end of
// input is treated as exit.  Run does not wait for the workers to go
// away; the caller decides whether to.
func (c *Console) Run() error {
	scanner := bufio.NewScanner(c.in)
	c.printf("%s", c.prompt)
	for scanner.Scan() {
		if c.Execute(scanner.Text()) {
			return nil
		}
		c.printf("%s", c.prompt)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	c.printf("\n")
	c.exit()
	return nil
}

// Execute runs a single command line and reports whether the console
// should end.
func (c *Console) Execute(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 {
		return false
	}
	cmd, arg := words[0], ""
	if len(words) > 1 {
		arg = words[1]
	}

	switch cmd {
	case "status":
		c.status()
	case "kill":
		c.kill(arg)
	case "respawn":
		c.respawn(arg)
	case "killall":
		c.killAll()
	case "respawnall":
		c.respawnAll()
	case "help":
		c.help()
	case "exit":
		c.exit()
		return true
	default:
		c.printf("Unknown command: %s\n", cmd)
		c.help()
	}
	return false
}

func (c *Console) help() {
	c.printf("%s\n", helpText)
}

func (c *Console) status() {
	c.printf("\nNode Status:\n")
	for _, info := range c.sup.Snapshot() {
		c.printf("  %v: %s, status=%s\n", info.Member, info.State, info.Status)
	}
	if path := c.sup.Sink().Path(); path != "" {
		c.printf("Logs are in %s\n", path)
	}
}

// usage reports a command given without its argument.
func (c *Console) usage(cmd string) {
	c.printf("%v: usage: %s <port>\n", fleetvisor.ErrMalformedCommand, cmd)
}

func (c *Console) kill(arg string) {
	if arg == "" {
		c.usage("kill")
		return
	}
	// Text that is not a port cannot name a running node.
	m, err := fleetvisor.ParseMember(arg)
	if err == nil {
		err = c.sup.Signal(m, c.interrupt)
	}
	switch {
	case err == nil:
		c.printf("Sending %s to node %v\n", fleetvisor.SignalName(c.interrupt), m)
	case errors.Is(err, fleetvisor.ErrBadMember), errors.Is(err, fleetvisor.ErrNotRunning):
		c.printf("Node %s is not running.\n", arg)
	default:
		c.printf("Failed to signal node %s: %v\n", arg, err)
	}
}

func (c *Console) respawn(arg string) {
	if arg == "" {
		c.usage("respawn")
		return
	}
	m, err := fleetvisor.ParseMember(arg)
	if err == nil {
		err = c.sup.Spawn(m)
	}
	switch {
	case err == nil:
		c.printf("Spawning node %v\n", m)
	case errors.Is(err, fleetvisor.ErrAlreadyRunning):
		c.printf("Node %s is already running.\n", arg)
	case errors.Is(err, fleetvisor.ErrBadMember), errors.Is(err, fleetvisor.ErrUnknownMember):
		c.printf("Node %s is not a fleet member.\n", arg)
	default:
		c.printf("%v\n", err)
	}
}

func (c *Console) reportAll(err error) {
	var merr *fleetvisor.MultiError
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			c.printf("%v\n", e)
		}
	} else if err != nil {
		c.printf("%v\n", err)
	}
}

func (c *Console) killAll() {
	done, err := c.sup.SignalAll(c.interrupt)
	for _, m := range done {
		c.printf("Killing node %v\n", m)
	}
	c.reportAll(err)
}

func (c *Console) respawnAll() {
	done, err := c.sup.SpawnAll()
	for _, m := range done {
		c.printf("Spawning node %v\n", m)
	}
	c.reportAll(err)
}

func (c *Console) exit() {
	c.printf("Exiting: killing all nodes\n")
	_, err := c.sup.SignalAll(c.interrupt)
	c.reportAll(err)
}
