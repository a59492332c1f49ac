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
	"sync"
	"time"
)

const (
	MaxLogRecords = 1000
)

// LogRecord is one line of the session log as held in memory.
type LogRecord struct {
	Id       int64     `json:"id,string"`
	Time     time.Time `json:"time"`
	Member   Member    `json:"member,omitempty"`
	Category Category  `json:"category"`
	Text     string    `json:"text"`
}

// Log is a bounded, in-memory copy of the most recent session log
// records.  The Sink feeds it; the HTTP view reads and watches it.
type Log struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

func (log *Log) lock() {
	log.mx.Lock()
}

func (log *Log) unlock() {
	log.mx.Unlock()
}

func (log *Log) add(tag Tag, lines []string) {
	now := time.Now()
	log.lock()
	for _, line := range lines {
		idx := log.numRecords % log.maxRecords
		log.id++
		log.records[idx] = LogRecord{
			Id:       log.id,
			Time:     now,
			Member:   tag.Member,
			Category: tag.Category,
			Text:     line,
		}
		// NB: numRecords may exceed maxRecords once we have
		// wrapped; it is really the index of the next slot.
		log.numRecords++
	}
	for cv := range log.cvs {
		cv.Broadcast()
	}
	log.unlock()
}

// GetRecords returns the retained records whose ID is greater than
// since, along with the ID of the newest record.  Passing 0 returns
// everything retained.  When nothing is newer than since, the result
// is nil and since is returned unchanged, so IDs work as an Etag.
func (log *Log) GetRecords(since int64) ([]LogRecord, int64) {
	log.lock()
	defer log.unlock()

	if log.id == since {
		return nil, since
	}
	cnt := log.numRecords
	if cnt > log.maxRecords {
		cnt = log.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	index := log.numRecords - cnt
	for j := 0; j < cnt; j++ {
		r := log.records[index%log.maxRecords]
		if r.Id > since {
			recs = append(recs, r)
		}
		index++
	}
	return recs, log.id
}

// Watch blocks until a record newer than last arrives or expire passes,
// returning the newest ID.  An expire of 0 polls.
func (log *Log) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&log.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			log.lock()
			expired = true
			cv.Broadcast()
			log.unlock()
		})
	} else {
		expired = true
	}

	log.lock()
	log.cvs[cv] = true
	for log.id == last && !expired {
		cv.Wait()
	}
	delete(log.cvs, cv)
	last = log.id
	log.unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}

// NewLog returns a Log retaining at most max records.  A max of zero
// or less selects MaxLogRecords.
func NewLog(max int) *Log {
	if max <= 0 {
		max = MaxLogRecords
	}
	log := &Log{
		records:    make([]LogRecord, max),
		maxRecords: max,
		id:         time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
	}
	return log
}
