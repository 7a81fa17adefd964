package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/calloutsim/core/metrics"
)

type lineServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()
	ls := &lineServer{}
	ls.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(b)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.Close)
	return ls
}

func (ls *lineServer) lines() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.bodies...)
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordCall(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()

	err := sink.RecordCall(coremetrics.CallRecord{
		Event:    "raised",
		CallID:   1042,
		AgencyID: "metro",
		ZoneID:   "downtown",
		Scenario: "armed_robbery",
		Priority: "immediate",
		Reason:   "no_units",
		Units:    1,
		Age:      1500 * time.Millisecond,
		Time:     now,
	})
	require.NoError(t, err)

	p := write.NewPointWithMeasurement("call_event").
		AddTag("agency", "metro").
		AddTag("event", "raised").
		AddTag("priority", "immediate").
		AddTag("zone", "downtown").
		AddTag("call_id", "1042").
		AddTag("reason", "no_units").
		AddField("scenario", "armed_robbery").
		AddField("units", 1).
		AddField("age_s", 1.5).
		SetTime(now)
	assert.Equal(t, []string{line(p)}, srv.lines())
}

func TestInfluxSink_RecordUnitStatusAndShift(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	now := time.Now()

	require.NoError(t, sink.RecordUnitStatus(coremetrics.UnitStatusRecord{
		UnitID: "1A-D03", AgencyID: "metro", Kind: "patrol", AI: true,
		Old: "available", New: "dispatched", Time: now,
	}))
	require.NoError(t, sink.RecordShift(coremetrics.ShiftRecord{
		AgencyID: "metro", Old: "morning", New: "day", Activated: 5, Relieved: 4, Time: now,
	}))

	p1 := write.NewPointWithMeasurement("unit_status").
		AddTag("agency", "metro").
		AddTag("unit_id", "1A-D03").
		AddTag("kind", "patrol").
		AddField("old", "available").
		AddField("new", "dispatched").
		AddField("ai", true).
		SetTime(now)
	p2 := write.NewPointWithMeasurement("shift_change").
		AddTag("agency", "metro").
		AddTag("period", "day").
		AddField("activated", 5).
		AddField("relieved", 4).
		AddField("shortfall", 0).
		SetTime(now)
	assert.Equal(t, []string{line(p1), line(p2)}, srv.lines())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called)
}
