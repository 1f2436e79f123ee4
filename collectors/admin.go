/*
 * This file is part of Radiance.
 *
 * Radiance is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Radiance is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Radiance.  If not, see <http://www.gnu.org/licenses/>.
 */

package collectors

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// AdminCollector exposes operational internals gated behind the /metrics
// bearer token: per-queue pending length and a running deadlock counter
// from the persistence pipeline's transient-error retries.
type AdminCollector struct {
	deadlockCountMetric *prometheus.Desc
	deadlockTimeMetric  *prometheus.Desc

	flushTimeSummary *prometheus.HistogramVec
	queueLenSummary  *prometheus.HistogramVec
}

var (
	flushTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radiance_flush_seconds",
		Help:    "Histogram of the time taken to flush a queue's buffer to the database",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
	}, []string{"queue"})

	queueLen = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radiance_queue_pending",
		Help:    "Histogram of a queue's pending statement count observed at flush time",
		Buckets: prometheus.LinearBuckets(0, 50, 20),
	}, []string{"queue"})

	deadlockCount atomic.Int64

	deadlockTimeMu sync.Mutex
	deadlockTime   float64
)

func NewAdminCollector() *AdminCollector {
	return &AdminCollector{
		deadlockCountMetric: prometheus.NewDesc("radiance_deadlock_count",
			"Number of transient (deadlock/lock-wait) SQL errors encountered during flush", nil, nil),
		deadlockTimeMetric: prometheus.NewDesc("radiance_deadlock_seconds_total",
			"Total time spent retrying after a transient SQL error", nil, nil),

		flushTimeSummary: flushTime,
		queueLenSummary:  queueLen,
	}
}

func (c *AdminCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.deadlockCountMetric
	ch <- c.deadlockTimeMetric

	flushTime.Describe(ch)
	queueLen.Describe(ch)
}

func (c *AdminCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.deadlockCountMetric, prometheus.CounterValue, float64(deadlockCount.Load()))

	deadlockTimeMu.Lock()
	total := deadlockTime
	deadlockTimeMu.Unlock()

	ch <- prometheus.MustNewConstMetric(c.deadlockTimeMetric, prometheus.CounterValue, total)

	flushTime.Collect(ch)
	queueLen.Collect(ch)
}

func IncrementDeadlockCount() {
	deadlockCount.Add(1)
}

func AddDeadlockTime(seconds float64) {
	deadlockTimeMu.Lock()
	deadlockTime += seconds
	deadlockTimeMu.Unlock()
}

func ObserveFlushTime(queue string, seconds float64) {
	flushTime.WithLabelValues(queue).Observe(seconds)
}

func ObserveQueueLen(queue string, length int) {
	queueLen.WithLabelValues(queue).Observe(float64(length))
}
