package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionCounter returns the total number of call sessions ever created.
type SessionCounter interface {
	Count(ctx context.Context) (int64, error)
}

// RecordingCounter returns recording counts, total and published.
type RecordingCounter interface {
	Count(ctx context.Context) (int64, error)
	CountPublished(ctx context.Context) (int64, error)
}

// Collector is a prometheus.Collector that gathers Partyline metrics at scrape time.
type Collector struct {
	sessions   SessionCounter
	recordings RecordingCounter
	startTime  time.Time

	// Metric descriptors.
	sessionsDesc            *prometheus.Desc
	recordingsDesc          *prometheus.Desc
	recordingsPublishedDesc *prometheus.Desc
	uptimeDesc              *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil if unavailable.
func NewCollector(sessions SessionCounter, recordings RecordingCounter, startTime time.Time) *Collector {
	return &Collector{
		sessions:   sessions,
		recordings: recordings,
		startTime:  startTime,

		sessionsDesc: prometheus.NewDesc(
			"partyline_call_sessions_total",
			"Total number of call sessions created",
			nil, nil,
		),
		recordingsDesc: prometheus.NewDesc(
			"partyline_recordings",
			"Number of stored caller recordings",
			nil, nil,
		),
		recordingsPublishedDesc: prometheus.NewDesc(
			"partyline_recordings_published",
			"Number of recordings published for future callers",
			nil, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"partyline_uptime_seconds",
			"Seconds since the Partyline process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sessionsDesc
	ch <- c.recordingsDesc
	ch <- c.recordingsPublishedDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.sessions != nil {
		count, err := c.sessions.Count(ctx)
		if err != nil {
			slog.Error("metrics: failed to count call sessions", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.sessionsDesc, prometheus.CounterValue,
				float64(count),
			)
		}
	}

	if c.recordings != nil {
		count, err := c.recordings.Count(ctx)
		if err != nil {
			slog.Error("metrics: failed to count recordings", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.recordingsDesc, prometheus.GaugeValue,
				float64(count),
			)
		}
		published, err := c.recordings.CountPublished(ctx)
		if err != nil {
			slog.Error("metrics: failed to count published recordings", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.recordingsPublishedDesc, prometheus.GaugeValue,
				float64(published),
			)
		}
	}

	// Uptime.
	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}

// WebhookEvents counts handled webhook events by route and outcome.
var WebhookEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "partyline_webhook_events_total",
		Help: "Webhook events handled, labeled by route and outcome",
	},
	[]string{"route", "outcome"},
)
