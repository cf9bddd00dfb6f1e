// Package observability provides Prometheus metrics and the health/metrics
// HTTP server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_updates_received_total",
		Help: "The total number of updates received from getUpdates",
	})

	UpdateParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_update_parse_failures_total",
		Help: "The total number of updates that failed to normalize and aborted their batch",
	})

	EntitiesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stickervault_entities_parsed_total",
		Help: "The total number of records normalized and cached",
	}, []string{"kind"})

	UnknownFields = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_unknown_fields_total",
		Help: "The total number of payload fields skipped because no handler is registered",
	})

	FileMergeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_file_merge_conflicts_total",
		Help: "The total number of file attribute conflicts where the original value was kept",
	})

	FilesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_files_downloaded_total",
		Help: "The total number of file payloads downloaded and stored",
	})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stickervault_queue_depth",
		Help: "Number of pending ids per download queue",
	}, []string{"queue"})

	StickerSetsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_sticker_sets_completed_total",
		Help: "The total number of sticker sets downloaded and archived",
	})

	StickerSetsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_sticker_sets_failed_total",
		Help: "The total number of sticker set lookups rejected as invalid",
	})

	APIErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stickervault_api_errors_total",
		Help: "The total number of Bot API request failures",
	})
)
