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

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdamore/fleetvisor"
)

func newTestHandler(t *testing.T) (*Handler, *fleetvisor.Supervisor) {
	t.Helper()
	fleet, err := fleetvisor.NewFleet([]int{3000, 3001})
	require.NoError(t, err)
	sink, err := fleetvisor.OpenSink(filepath.Join(t.TempDir(), "fleet_log.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	reg := prometheus.NewRegistry()
	sup := fleetvisor.NewSupervisor(fleet,
		&fleetvisor.CommandLauncher{Args: []string{"/nonexistent/worker"}},
		sink, fleetvisor.WithMetrics(fleetvisor.NewMetrics(reg)))
	return NewHandler(sup, reg, nil), sup
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestListFleet(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(h, "GET", "/fleet")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeJson, rec.Header().Get("Content-Type"))

	var infos []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, float64(3000), infos[0]["member"])
	assert.Equal(t, "stopped", infos[0]["state"])
	assert.Equal(t, "unknown", infos[0]["status"])
}

func TestGetMember(t *testing.T) {
	h, _ := newTestHandler(t)
	assert.Equal(t, http.StatusOK, do(h, "GET", "/fleet/3001").Code)
	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/fleet/9999").Code)
	assert.Equal(t, http.StatusNotFound, do(h, "GET", "/fleet/abc").Code)
}

func TestKillStoppedMember(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := do(h, "POST", "/fleet/3000/kill")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var e Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, http.StatusConflict, e.Code)
	assert.Contains(t, e.Message, "not running")

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, "GET", "/fleet/3000/kill").Code)
}

func TestRespawnFailureAndLog(t *testing.T) {
	h, sup := newTestHandler(t)
	assert.Equal(t, http.StatusInternalServerError, do(h, "POST", "/fleet/3000/respawn").Code)
	assert.False(t, sup.Running(3000))

	rec := do(h, "GET", "/log")
	require.Equal(t, http.StatusOK, rec.Code)
	var reply LogReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.Len(t, reply.Records, 3)
	assert.Equal(t, fleetvisor.SessionMarker, reply.Records[0].Text)
	assert.Equal(t, "Spawning node 3000 (fellows: 3001)", reply.Records[1].Text)
	assert.Contains(t, reply.Records[2].Text, "Failed to spawn node 3000")
	assert.Equal(t, fleetvisor.CategoryEvent, reply.Records[2].Category)

	rec = do(h, "GET", fmt.Sprintf("/log?since=%d", reply.Records[1].Id))
	var newer LogReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &newer))
	assert.Len(t, newer.Records, 1)

	rec = do(h, "GET", fmt.Sprintf("/log?since=%d", reply.Id))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &newer))
	assert.Empty(t, newer.Records)

	assert.Equal(t, http.StatusBadRequest, do(h, "GET", "/log?since=soon").Code)

	rec = do(h, "GET", "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fleetvisor_spawn_failures_total{member="3000"} 1`)
}

func TestLogLongPoll(t *testing.T) {
	h, sup := newTestHandler(t)
	var reply LogReply
	require.NoError(t, json.Unmarshal(do(h, "GET", "/log").Body.Bytes(), &reply))

	go func() {
		time.Sleep(20 * time.Millisecond)
		sup.Sink().Append(fleetvisor.EventTag(3000), "wake up")
	}()
	start := time.Now()
	rec := do(h, "GET", fmt.Sprintf("/log?since=%d&wait=5s", reply.Id))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(start), 4*time.Second)

	var newer LogReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &newer))
	require.Len(t, newer.Records, 1)
	assert.Equal(t, "wake up", newer.Records[0].Text)
	assert.NotEqual(t, reply.Id, newer.Id)

	rec = do(h, "GET", fmt.Sprintf("/log?since=%d&wait=20ms", newer.Id))
	require.Equal(t, http.StatusOK, rec.Code)
	var idle LogReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idle))
	assert.Empty(t, idle.Records)
	assert.Equal(t, newer.Id, idle.Id)

	assert.Equal(t, http.StatusBadRequest, do(h, "GET", "/log?wait=forever").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, "GET", "/log?wait=-1s").Code)
}

func TestFleetSerial(t *testing.T) {
	h, sup := newTestHandler(t)
	rec := do(h, "GET", "/fleet")
	etag := rec.Header().Get("Etag")
	assert.Equal(t, strconv.FormatInt(sup.Serial(), 10), etag)

	rec = do(h, "GET", "/fleet?serial="+etag+"&wait=20ms")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, etag, rec.Header().Get("Etag"))

	assert.Equal(t, http.StatusBadRequest, do(h, "GET", "/fleet?serial=x").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, "GET", "/fleet?serial="+etag+"&wait=x").Code)
}

func TestListenAndClose(t *testing.T) {
	h, _ := newTestHandler(t)
	srv, err := Listen(context.Background(), "127.0.0.1:0", h)
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr().String() + "/fleet")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"member":3000`)

	assert.NoError(t, srv.Close())
	_, err = http.Get("http://" + srv.Addr().String() + "/fleet")
	assert.Error(t, err)
}
