// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics holds the prometheus collectors of the extraction engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Task results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultFault   = "fault"
	ResultClosed  = "closed"
)

var (
	TasksSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashgps_pool_tasks_submitted_total",
		Help: "Total number of extraction tasks submitted to the pool",
	})
	TasksCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashgps_pool_tasks_completed_total",
		Help: "Total number of settled extraction tasks by result",
	}, []string{"result"})
	WorkerFaults = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashgps_pool_worker_faults_total",
		Help: "Total number of worker crashes",
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashgps_pool_queue_depth",
		Help: "Number of tasks waiting for a free worker",
	})
	BusyWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashgps_pool_busy_workers",
		Help: "Number of workers decoding a file",
	})
	TaskDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashgps_task_duration_ms",
		Help:    "Time from dispatch to result in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"format"})
	FallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashgps_extract_fallback_total",
		Help: "Total number of batches decoded in-process after the pool failed",
	})
	FilesExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashgps_extract_files_total",
		Help: "Total number of files handled by batch extraction by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(TasksSubmitted)
	prometheus.MustRegister(TasksCompleted)
	prometheus.MustRegister(WorkerFaults)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(BusyWorkers)
	prometheus.MustRegister(TaskDurationMs)
	prometheus.MustRegister(FallbackTotal)
	prometheus.MustRegister(FilesExtracted)
}

// Handler returns the prometheus scrape handler.
func Handler() http.Handler { return promhttp.Handler() }
