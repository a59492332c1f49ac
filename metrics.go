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
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fleetvisor"

// Metrics are the Supervisor's prometheus collectors.  A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	spawns        *prometheus.CounterVec
	spawnFailures *prometheus.CounterVec
	signals       *prometheus.CounterVec
	exits         *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	records       *prometheus.CounterVec
	running       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "spawns_total",
			Help:      "Workers launched, by member.",
		}, []string{"member"}),
		spawnFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "spawn_failures_total",
			Help:      "Worker launches that failed, by member.",
		}, []string{"member"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "signals_total",
			Help:      "Signals delivered to workers, by member and signal.",
		}, []string{"member", "signal"}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exits_total",
			Help:      "Worker exits observed, by member.",
		}, []string{"member"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "status_changes_total",
			Help:      "Status signals that changed a worker's status, by member.",
		}, []string{"member"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "log_records_total",
			Help:      "Records appended to the session log, by category.",
		}, []string{"category"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "running_workers",
			Help:      "Workers currently holding a live process.",
		}),
	}
	reg.MustRegister(m.spawns, m.spawnFailures, m.signals, m.exits,
		m.statusChanges, m.records, m.running)
	return m
}

func (m *Metrics) spawned(mem Member) {
	if m != nil {
		m.spawns.WithLabelValues(mem.String()).Inc()
		m.running.Inc()
	}
}

func (m *Metrics) spawnFailed(mem Member) {
	if m != nil {
		m.spawnFailures.WithLabelValues(mem.String()).Inc()
	}
}

func (m *Metrics) signalled(mem Member, sig string) {
	if m != nil {
		m.signals.WithLabelValues(mem.String(), sig).Inc()
	}
}

func (m *Metrics) exited(mem Member) {
	if m != nil {
		m.exits.WithLabelValues(mem.String()).Inc()
		m.running.Dec()
	}
}

func (m *Metrics) statusChanged(mem Member) {
	if m != nil {
		m.statusChanges.WithLabelValues(mem.String()).Inc()
	}
}

func (m *Metrics) recorded(c Category) {
	if m != nil {
		m.records.WithLabelValues(string(c)).Inc()
	}
}
