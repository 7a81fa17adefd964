package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/calloutsim/core/metrics"
	"github.com/kilianp07/calloutsim/infra/logger"
)

// InfluxSink writes simulation events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the HTTP resources of the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCall writes a call_event point.
func (s *InfluxSink) RecordCall(rec coremetrics.CallRecord) error {
	p := write.NewPointWithMeasurement("call_event").
		AddTag("agency", rec.AgencyID).
		AddTag("event", rec.Event).
		AddTag("priority", rec.Priority).
		AddTag("zone", rec.ZoneID).
		AddTag("call_id", strconv.FormatInt(rec.CallID, 10))
	if rec.Reason != "" {
		p = p.AddTag("reason", rec.Reason)
	}
	p = p.AddField("scenario", rec.Scenario).
		AddField("units", rec.Units).
		AddField("age_s", round3(rec.Age.Seconds())).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordUnitStatus writes a unit_status point.
func (s *InfluxSink) RecordUnitStatus(rec coremetrics.UnitStatusRecord) error {
	p := write.NewPointWithMeasurement("unit_status").
		AddTag("agency", rec.AgencyID).
		AddTag("unit_id", rec.UnitID).
		AddTag("kind", rec.Kind).
		AddField("old", rec.Old).
		AddField("new", rec.New).
		AddField("ai", rec.AI).
		SetTime(rec.Time)
	return s.write(p)
}

// RecordShift writes a shift_change point.
func (s *InfluxSink) RecordShift(rec coremetrics.ShiftRecord) error {
	p := write.NewPointWithMeasurement("shift_change").
		AddTag("agency", rec.AgencyID).
		AddTag("period", rec.New).
		AddField("activated", rec.Activated).
		AddField("relieved", rec.Relieved).
		AddField("shortfall", rec.Shortfall).
		SetTime(rec.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
