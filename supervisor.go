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
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"
)

// chunkSize bounds a single read from a worker's output pipe, and so
// the size of one stdout or stderr record.
const chunkSize = 32 * 1024

// Supervisor owns the fleet: one worker record per configured member,
// the child processes behind them, and the observers that route their
// output into the Sink.
//
// Each member's record has its own lock, so members never contend with
// one another.  Sink appends are serialized by the Sink.  When both are
// needed the member lock is taken first.
//
// Spawn and Signal return as soon as the operating system has accepted
// the request.  Process exit is observed asynchronously; there are no
// timeouts, and a worker that ignores its signal stays running.
type Supervisor struct {
	members  []Member
	workers  map[Member]*worker
	launcher Launcher
	sink     *Sink
	extract  *Extractor
	metrics  *Metrics
	logger   *log.Logger
	serial   int64
	wg       sync.WaitGroup
	mx       sync.Mutex
	cvs      map[*sync.Cond]bool
}

// Option adjusts a Supervisor as it is created.
type Option func(*Supervisor)

// WithExtractor selects the status extractor applied to stdout.
func WithExtractor(x *Extractor) Option {
	return func(s *Supervisor) {
		s.extract = x
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithLogger sets the logger used for the supervisor's own diagnostics,
// i.e. problems that cannot be recorded in the session log itself.
func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// NewSupervisor returns a Supervisor for the given fleet.  No worker is
// started.  Members are expected to be valid and distinct (see NewFleet).
func NewSupervisor(members []Member, l Launcher, sink *Sink, opts ...Option) *Supervisor {
	s := &Supervisor{
		members:  append([]Member(nil), members...),
		workers:  make(map[Member]*worker, len(members)),
		launcher: l,
		sink:     sink,
		extract:  defaultExtractor,
		logger:   log.New(os.Stderr, "", log.LstdFlags),
		serial:   time.Now().UnixNano(),
		cvs:      make(map[*sync.Cond]bool),
	}
	for _, m := range s.members {
		s.workers[m] = newWorker(m)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) lock() {
	s.mx.Lock()
}

func (s *Supervisor) unlock() {
	s.mx.Unlock()
}

// changed bumps the serial and wakes watchers.
func (s *Supervisor) changed() {
	s.lock()
	s.serial++
	for cv := range s.cvs {
		cv.Broadcast()
	}
	s.unlock()
}

// Serial returns a number that changes whenever any member's state or
// status changes.
func (s *Supervisor) Serial() int64 {
	s.lock()
	rv := s.serial
	s.unlock()
	return rv
}

// WatchSerial waits for the serial to move away from old, or for expire
// to pass, and returns the current serial.  An expire of 0 polls.
func (s *Supervisor) WatchSerial(old int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(&s.mx)
	var timer *time.Timer

	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.lock()
			expired = true
			cv.Broadcast()
			s.unlock()
		})
	} else {
		expired = true
	}

	s.lock()
	s.cvs[cv] = true
	for s.serial == old && !expired {
		cv.Wait()
	}
	delete(s.cvs, cv)
	rv := s.serial
	s.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// SetLogger replaces the diagnostics logger.
func (s *Supervisor) SetLogger(l *log.Logger) {
	s.lock()
	s.logger = l
	s.unlock()
}

func (s *Supervisor) logf(format string, v ...interface{}) {
	s.lock()
	l := s.logger
	s.unlock()
	if l != nil {
		l.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}

// record appends to the sink, and falls back to the diagnostics logger
// if the sink cannot take it.
func (s *Supervisor) record(tag Tag, text string) {
	if e := s.sink.Append(tag, text); e != nil {
		s.logf("Failed to record %s output of node %v: %v",
			tag.Category, tag.Member, e)
		return
	}
	s.metrics.recorded(tag.Category)
}

func (s *Supervisor) event(m Member, format string, v ...interface{}) {
	s.record(EventTag(m), fmt.Sprintf(format, v...))
}

// Members returns the configured fleet in configuration order.
func (s *Supervisor) Members() []Member {
	return append([]Member(nil), s.members...)
}

// Sink returns the session log the supervisor writes to.
func (s *Supervisor) Sink() *Sink {
	return s.sink
}

// Info returns a snapshot of one member.
func (s *Supervisor) Info(m Member) (WorkerInfo, error) {
	w, ok := s.workers[m]
	if !ok {
		return WorkerInfo{}, &MemberError{Op: "inspect", Member: m, Err: ErrUnknownMember}
	}
	w.mx.Lock()
	defer w.mx.Unlock()
	return w.info(), nil
}

// Snapshot returns every member's view, in configuration order.  Each
// entry is internally consistent; entries are taken one after another.
func (s *Supervisor) Snapshot() []WorkerInfo {
	rv := make([]WorkerInfo, 0, len(s.members))
	for _, m := range s.members {
		w := s.workers[m]
		w.mx.Lock()
		rv = append(rv, w.info())
		w.mx.Unlock()
	}
	return rv
}

// Running reports whether m currently holds a live process.
func (s *Supervisor) Running(m Member) bool {
	i, e := s.Info(m)
	return e == nil && i.Running()
}

// Spawn launches the worker for m.  It fails with ErrUnknownMember for
// a member outside the fleet, with ErrAlreadyRunning if m already has a
// live process, and with ErrSpawnFailed if the operating system refuses
// to start it.  The attempt is recorded before the process starts, so a
// failed launch can be diagnosed from the session log.
func (s *Supervisor) Spawn(m Member) error {
	w, ok := s.workers[m]
	if !ok {
		return &MemberError{Op: "spawn", Member: m, Err: ErrUnknownMember}
	}

	w.mx.Lock()
	defer w.mx.Unlock()

	if w.cmd != nil {
		return &MemberError{Op: "spawn", Member: m, Err: ErrAlreadyRunning}
	}

	fellows := Fellows(s.members, m)
	s.event(m, "Spawning node %v (fellows: %s)", m, JoinMembers(fellows))

	cmd := s.launcher.Command(m, fellows)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	fail := func(e error) error {
		s.event(m, "Failed to spawn node %v: %v", m, e)
		s.metrics.spawnFailed(m)
		return &MemberError{Op: "spawn", Member: m,
			Err: fmt.Errorf("%w: %v", ErrSpawnFailed, e)}
	}

	stdout, e := cmd.StdoutPipe()
	if e != nil {
		return fail(e)
	}
	stderr, e := cmd.StderrPipe()
	if e != nil {
		stdout.Close()
		return fail(e)
	}
	if e := cmd.Start(); e != nil {
		return fail(e)
	}

	w.cmd = cmd
	w.state = StateRunning
	w.started = time.Now()
	w.spawns++
	s.metrics.spawned(m)
	s.observe(w, cmd, stdout, stderr)
	s.changed()
	return nil
}

// Signal delivers sig to m's process without waiting for it to exit.
// ErrNotRunning is returned if m has no live process, which includes
// members that are not part of the fleet at all and processes that have
// already been reaped.
func (s *Supervisor) Signal(m Member, sig os.Signal) error {
	w, ok := s.workers[m]
	if !ok {
		return &MemberError{Op: "signal", Member: m, Err: ErrNotRunning}
	}

	w.mx.Lock()
	defer w.mx.Unlock()

	if w.cmd == nil {
		return &MemberError{Op: "signal", Member: m, Err: ErrNotRunning}
	}
	name := SignalName(sig)
	s.event(m, "Sending %s to node %v", name, m)
	if e := w.cmd.Process.Signal(sig); e != nil {
		// Reaped, but the exit observer has not cleared the handle yet.
		if errors.Is(e, os.ErrProcessDone) {
			return &MemberError{Op: "signal", Member: m, Err: ErrNotRunning}
		}
		s.event(m, "Failed to send %s to node %v: %v", name, m, e)
		return &MemberError{Op: "signal", Member: m, Err: e}
	}
	s.metrics.signalled(m, name)
	return nil
}

// SpawnAll spawns every member that is not running.  It returns the
// members it launched; failures are collected in a *MultiError.
func (s *Supervisor) SpawnAll() ([]Member, error) {
	var done []Member
	merr := &MultiError{}
	for _, m := range s.members {
		switch e := s.Spawn(m); {
		case e == nil:
			done = append(done, m)
		case errors.Is(e, ErrAlreadyRunning):
		default:
			merr.add(e)
		}
	}
	return done, merr.Err()
}

// SignalAll signals every running member.  It returns the members it
// signalled; failures are collected in a *MultiError.
func (s *Supervisor) SignalAll(sig os.Signal) ([]Member, error) {
	var done []Member
	merr := &MultiError{}
	for _, m := range s.members {
		switch e := s.Signal(m, sig); {
		case e == nil:
			done = append(done, m)
		case errors.Is(e, ErrNotRunning):
		default:
			merr.add(e)
		}
	}
	return done, merr.Err()
}

// Wait blocks until every observer of every process spawned so far has
// finished, i.e. until all workers have exited and been reaped.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// observe starts the three observers of a freshly started process.  The
// exit observer waits for both streams to drain before reaping, since
// exec.Cmd.Wait closes the pipes.
func (s *Supervisor) observe(w *worker, cmd *exec.Cmd, stdout, stderr io.Reader) {
	var streams sync.WaitGroup
	streams.Add(2)
	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		defer streams.Done()
		s.doStream(w, stdout, CategoryStdout)
	}()
	go func() {
		defer s.wg.Done()
		defer streams.Done()
		s.doStream(w, stderr, CategoryStderr)
	}()
	go func() {
		defer s.wg.Done()
		streams.Wait()
		s.doWait(w, cmd)
	}()
}

// doStream copies one output stream into the sink a chunk at a time.
// Only stdout is searched for status signals.
func (s *Supervisor) doStream(w *worker, r io.Reader, c Category) {
	tag := Tag{Member: w.member, Category: c}
	buf := make([]byte, chunkSize)
	for {
		n, e := r.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			s.record(tag, chunk)
			if c == CategoryStdout {
				if status, ok := s.extract.Extract(chunk); ok {
					s.setStatus(w, status)
				}
			}
		}
		if e != nil {
			return
		}
	}
}

func (s *Supervisor) setStatus(w *worker, status string) {
	w.mx.Lock()
	defer w.mx.Unlock()
	if w.status == status {
		return
	}
	w.status = status
	s.metrics.statusChanged(w.member)
	s.changed()
}

// doWait reaps the process, records how it ended, and clears the handle.
// The handle is only cleared if it still refers to this process.
func (s *Supervisor) doWait(w *worker, cmd *exec.Cmd) {
	cmd.Wait()
	code, sig := describeExit(cmd.ProcessState)
	s.event(w.member, "Node %v exited (code=%s, signal=%s)", w.member, code, sig)

	w.mx.Lock()
	defer w.mx.Unlock()
	if w.cmd != cmd {
		return
	}
	w.cmd = nil
	w.state = StateStopped
	w.lastExit = fmt.Sprintf("code=%s, signal=%s", code, sig)
	s.metrics.exited(w.member)
	s.changed()
}
