/*
Copyright 2026 The DB Router Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stats exports the routing core's diagnostic counters and
// backend liveness/lag gauges as Prometheus metrics.
package stats

import "github.com/prometheus/client_golang/prometheus"

var (
	// TotalDiverted counts dispatched statements that carried at least
	// one routing hint, per session.
	TotalDiverted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dbrouter",
		Name:      "total_diverted",
		Help:      "Dispatched statements that carried at least one routing hint.",
	}, []string{"session"})

	// TotalUndiverted counts dispatched statements that carried no
	// routing hint, per session.
	TotalUndiverted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dbrouter",
		Name:      "total_undiverted",
		Help:      "Dispatched statements that carried no routing hint.",
	}, []string{"session"})

	// NMaster counts statements dispatched to a master backend.
	NMaster = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dbrouter",
		Name:      "n_master",
		Help:      "Statements dispatched to a master backend.",
	}, []string{"session"})

	// NSlave counts statements dispatched to a slave backend.
	NSlave = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dbrouter",
		Name:      "n_slave",
		Help:      "Statements dispatched to a slave backend.",
	}, []string{"session"})

	// NQueries counts every statement the session router has seen.
	NQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dbrouter",
		Name:      "n_queries",
		Help:      "Total statements seen by a session.",
	}, []string{"session"})

	// BackendUp reports per-backend liveness (1 in-use, 0 closed).
	BackendUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dbrouter",
		Name:      "backend_up",
		Help:      "1 if the backend is in use, 0 if it has been closed.",
	}, []string{"backend"})

	// BackendReplicationLagSeconds mirrors the topology snapshot's
	// replication lag for the backend, or -1 when unknown.
	BackendReplicationLagSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dbrouter",
		Name:      "backend_replication_lag_seconds",
		Help:      "Replication lag reported by the monitor for this backend, -1 if unknown.",
	}, []string{"backend"})
)

func init() {
	prometheus.MustRegister(TotalDiverted, TotalUndiverted, NMaster, NSlave, NQueries, BackendUp, BackendReplicationLagSeconds)
}
