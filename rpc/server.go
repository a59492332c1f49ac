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

// Package rpc exposes a Supervisor over HTTP, for tools that want to
// look at the fleet without going through the console.
package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gdamore/fleetvisor"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// maxWait bounds a single long poll.
	maxWait = time.Minute
)

// Handler wraps a Supervisor, adding http.Handler functionality.
type Handler struct {
	s         *fleetvisor.Supervisor
	r         *mux.Router
	interrupt os.Signal
}

var ok struct{}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) write(w http.ResponseWriter) {
	b, _ := json.Marshal(e)
	w.Header().Set("Content-Type", mimeJson)
	w.WriteHeader(e.Code)
	w.Write(b)
}

// LogReply is the body of GET /log.
type LogReply struct {
	Id      int64                  `json:"id,string"`
	Records []fleetvisor.LogRecord `json:"records"`
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) findMember(r *http.Request) (fleetvisor.Member, *Error) {
	m, e := fleetvisor.ParseMember(mux.Vars(r)["member"])
	if e != nil {
		return 0, &Error{http.StatusNotFound, "Node not found"}
	}
	if _, e := h.s.Info(m); e != nil {
		return 0, &Error{http.StatusNotFound, "Node not found"}
	}
	return m, nil
}

// parseWait reads the optional "wait" query parameter, a Go duration
// such as "30s".
func parseWait(r *http.Request) (time.Duration, *Error) {
	v := r.URL.Query().Get("wait")
	if v == "" {
		return 0, nil
	}
	d, e := time.ParseDuration(v)
	if e != nil || d < 0 {
		return 0, &Error{http.StatusBadRequest, "Bad wait parameter"}
	}
	if d > maxWait {
		d = maxWait
	}
	return d, nil
}

// listFleet returns every member's view, with the fleet serial as the
// Etag.  Given "serial", it first waits up to "wait" for the fleet to
// move past it.
func (h *Handler) listFleet(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r)
	if err != nil {
		err.write(w)
		return
	}
	serial := h.s.Serial()
	if v := r.URL.Query().Get("serial"); v != "" {
		old, e := strconv.ParseInt(v, 10, 64)
		if e != nil {
			err = &Error{http.StatusBadRequest, "Bad serial parameter"}
			err.write(w)
			return
		}
		serial = h.s.WatchSerial(old, wait)
	}
	w.Header().Set("Etag", strconv.FormatInt(serial, 10))
	h.writeJson(w, h.s.Snapshot())
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	if m, e := h.findMember(r); e != nil {
		e.write(w)
	} else {
		info, _ := h.s.Info(m)
		h.writeJson(w, info)
	}
}

func (h *Handler) killMember(w http.ResponseWriter, r *http.Request) {
	if m, e := h.findMember(r); e != nil {
		e.write(w)
	} else if err := h.s.Signal(m, h.interrupt); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, fleetvisor.ErrNotRunning) {
			code = http.StatusConflict
		}
		e = &Error{code, err.Error()}
		e.write(w)
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) respawnMember(w http.ResponseWriter, r *http.Request) {
	if m, e := h.findMember(r); e != nil {
		e.write(w)
	} else if err := h.s.Spawn(m); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, fleetvisor.ErrAlreadyRunning) {
			code = http.StatusConflict
		}
		e = &Error{code, err.Error()}
		e.write(w)
	} else {
		h.writeJson(w, ok)
	}
}

// getLog returns records newer than the "since" query parameter,
// waiting up to "wait" for one to arrive.
func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	wait, err := parseWait(r)
	if err != nil {
		err.write(w)
		return
	}
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, e := strconv.ParseInt(v, 10, 64)
		if e != nil {
			e := &Error{http.StatusBadRequest, "Bad since parameter"}
			e.write(w)
			return
		}
		since = n
	}
	log := h.s.Sink().Log()
	if wait > 0 {
		log.Watch(since, wait)
	}
	recs, id := log.GetRecords(since)
	if recs == nil {
		recs = []fleetvisor.LogRecord{}
	}
	h.writeJson(w, &LogReply{Id: id, Records: recs})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

// NewHandler returns a Handler for s.  If g is not nil, its metrics are
// served at /metrics.  Kill requests send interrupt.
func NewHandler(s *fleetvisor.Supervisor, g prometheus.Gatherer, interrupt os.Signal) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r, interrupt: interrupt}
	if h.interrupt == nil {
		h.interrupt = os.Interrupt
	}
	r.HandleFunc("/fleet", h.listFleet).Methods("GET")
	r.HandleFunc("/fleet/{member}", h.getMember).Methods("GET")
	r.HandleFunc("/fleet/{member}/kill", h.killMember).Methods("POST")
	r.HandleFunc("/fleet/{member}/respawn", h.respawnMember).Methods("POST")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	if g != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods("GET")
	}
	return h
}
