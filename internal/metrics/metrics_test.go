package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubSessions struct {
	count int64
	err   error
}

func (s stubSessions) Count(context.Context) (int64, error) { return s.count, s.err }

type stubRecordings struct {
	total     int64
	published int64
}

func (s stubRecordings) Count(context.Context) (int64, error)          { return s.total, nil }
func (s stubRecordings) CountPublished(context.Context) (int64, error) { return s.published, nil }

func TestCollectorReportsCounts(t *testing.T) {
	c := NewCollector(stubSessions{count: 42}, stubRecordings{total: 5, published: 2}, time.Now())

	expected := `
# HELP partyline_call_sessions_total Total number of call sessions created
# TYPE partyline_call_sessions_total counter
partyline_call_sessions_total 42
# HELP partyline_recordings Number of stored caller recordings
# TYPE partyline_recordings gauge
partyline_recordings 5
# HELP partyline_recordings_published Number of recordings published for future callers
# TYPE partyline_recordings_published gauge
partyline_recordings_published 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"partyline_call_sessions_total", "partyline_recordings", "partyline_recordings_published")
	if err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestCollectorSurvivesProviderError(t *testing.T) {
	c := NewCollector(stubSessions{err: errors.New("db closed")}, stubRecordings{}, time.Now())

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "partyline_call_sessions_total" {
			t.Error("session metric emitted despite provider error")
		}
	}
}

func TestCollectorNilProviders(t *testing.T) {
	c := NewCollector(nil, nil, time.Now().Add(-time.Minute))

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 || families[0].GetName() != "partyline_uptime_seconds" {
		t.Errorf("families = %v, want uptime only", families)
	}
	if v := families[0].GetMetric()[0].GetGauge().GetValue(); v < 59 {
		t.Errorf("uptime = %f, want at least a minute", v)
	}
}
