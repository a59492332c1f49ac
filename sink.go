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
	"io"
	"os"
	"strings"
	"sync"
)

// SessionMarker opens every session log.
const SessionMarker = "== FLEET CONTROL SESSION START =="

// Category classifies a log record by where it came from.
type Category string

const (
	CategoryStdout  Category = "stdout"
	CategoryStderr  Category = "stderr"
	CategoryEvent   Category = "event"
	CategorySession Category = "session"
)

// Tag identifies the source of a record.  Event and session records
// are the supervisor's own and carry no member.
type Tag struct {
	Member   Member
	Category Category
}

// StdoutTag, StderrTag and EventTag are shorthands for building tags.
func StdoutTag(m Member) Tag { return Tag{Member: m, Category: CategoryStdout} }
func StderrTag(m Member) Tag { return Tag{Member: m, Category: CategoryStderr} }
func EventTag(m Member) Tag  { return Tag{Member: m, Category: CategoryEvent} }

func (t Tag) prefix() string {
	switch t.Category {
	case CategoryStdout:
		return fmt.Sprintf("[node %v] ", t.Member)
	case CategoryStderr:
		return fmt.Sprintf("[node %v][ERR] ", t.Member)
	}
	return ""
}

// Sink is the durable session log.  Every Append is a single write to
// the underlying file, made while holding the sink lock, so records from
// different workers never interleave and each is visible to other
// readers of the file once Append returns.
type Sink struct {
	path string
	w    io.Writer
	c    io.Closer
	log  *Log
	mx   sync.Mutex
}

// OpenSink truncates (or creates) the file at path and starts a new
// session in it.  The previous session's content is discarded.
func OpenSink(path string) (*Sink, error) {
	f, e := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0644)
	if e != nil {
		return nil, e
	}
	s := &Sink{path: path, w: f, c: f, log: NewLog(MaxLogRecords)}
	if e := s.start(); e != nil {
		f.Close()
		return nil, e
	}
	return s, nil
}

// NewSink starts a session on an arbitrary writer.  It is mostly useful
// for tests; writes to w must each be atomic for the ordering guarantees
// to hold.
func NewSink(w io.Writer) (*Sink, error) {
	s := &Sink{w: w, log: NewLog(MaxLogRecords)}
	if e := s.start(); e != nil {
		return nil, e
	}
	return s, nil
}

func (s *Sink) start() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if _, e := io.WriteString(s.w, SessionMarker+"\n\n"); e != nil {
		return e
	}
	s.log.add(Tag{Category: CategorySession}, []string{SessionMarker})
	return nil
}

// frame splits text into lines, prefixing each with the tag and making
// sure the last is terminated.  Lines are returned without their
// terminators for the in-memory log.
func frame(tag Tag, text string) (string, []string) {
	pfx := tag.prefix()
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	var sb strings.Builder
	sb.Grow(len(text) + len(lines)*(len(pfx)+1))
	for _, line := range lines {
		sb.WriteString(pfx)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), lines
}

// Append records text under tag.  Text holding several lines is tagged
// line by line, but is still written as one record.  Empty text is
// ignored.
func (s *Sink) Append(tag Tag, text string) error {
	if text == "" {
		return nil
	}
	buf, lines := frame(tag, text)

	s.mx.Lock()
	defer s.mx.Unlock()
	if _, e := io.WriteString(s.w, buf); e != nil {
		return e
	}
	s.log.add(tag, lines)
	return nil
}

// Appendf is Append with fmt.Sprintf formatting.  A trailing newline is
// implied.
func (s *Sink) Appendf(tag Tag, format string, v ...interface{}) error {
	return s.Append(tag, fmt.Sprintf(format, v...))
}

// Path returns the file the sink writes to, or "" if it was built
// around a plain writer.
func (s *Sink) Path() string {
	return s.path
}

// Log returns the in-memory copy of recent records.
func (s *Sink) Log() *Log {
	return s.log
}

// Close closes the underlying file.  Appends after Close fail.
func (s *Sink) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.c == nil {
		return nil
	}
	e := s.c.Close()
	s.c = nil
	return e
}
