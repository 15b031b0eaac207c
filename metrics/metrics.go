// Copyright 2014 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes optional Prometheus instrumentation for the DAV
// dispatcher and lock manager. A nil *Recorder is safe to use everywhere a
// *Recorder is accepted — every method is a no-op on a nil receiver — so
// embedding applications that don't want metrics never have to construct
// one.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the Prometheus collectors for one WebDAV handler instance.
// Construct one per handler with NewRecorder and register it against
// whichever prometheus.Registerer the embedding application uses.
type Recorder struct {
	requestsTotal *prometheus.CounterVec
	activeLocks   prometheus.Gauge
	lockConflicts prometheus.Counter
}

// NewRecorder creates and registers a Recorder's collectors against reg. If
// reg is nil, prometheus.DefaultRegisterer is used.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "godav",
			Name:      "requests_total",
			Help:      "WebDAV requests by method and response status.",
		}, []string{"method", "status"}),
		activeLocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "godav",
			Name:      "active_locks",
			Help:      "Number of locks currently held by the lock manager.",
		}),
		lockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "godav",
			Name:      "lock_conflicts_total",
			Help:      "Number of LOCK requests rejected due to a conflicting lock.",
		}),
	}
	reg.MustRegister(r.requestsTotal, r.activeLocks, r.lockConflicts)
	return r
}

// ObserveRequest records one completed request.
func (r *Recorder) ObserveRequest(method string, status int) {
	if r == nil {
		return
	}
	r.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// SetActiveLocks reports the current count of held (non-expired) locks.
func (r *Recorder) SetActiveLocks(n int) {
	if r == nil {
		return
	}
	r.activeLocks.Set(float64(n))
}

// IncLockConflict records a LOCK request rejected for conflicting with an
// existing lock.
func (r *Recorder) IncLockConflict() {
	if r == nil {
		return
	}
	r.lockConflicts.Inc()
}
