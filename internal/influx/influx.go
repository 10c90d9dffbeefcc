// Package influx streams step summaries to an InfluxDB v2 bucket.
package influx

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"v2x-sim/internal/runner"
)

// Measurement names.
const (
	StepMeasurement    = "v2x_step"
	StationMeasurement = "v2x_station_load"
)

// Config holds the connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// pointWriter is the subset of api.WriteAPIBlocking used by the sink.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*influxdb2_write.Point) error
}

// Sink writes one v2x_step point and one v2x_station_load point per base
// station for every step. Point timestamps are the run start plus the
// simulation time.
type Sink struct {
	client influxdb2.Client
	writer pointWriter
	runID  string
	start  time.Time
	log    zerolog.Logger
}

// Connect creates a client, checks that the server is reachable and returns
// a sink writing into cfg.Bucket.
func Connect(ctx context.Context, cfg Config, runID string, log zerolog.Logger) (*Sink, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		if err == nil {
			err = fmt.Errorf("server not running")
		}
		return nil, fmt.Errorf("failed to reach InfluxDB at %s: %w", cfg.URL, err)
	}
	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("InfluxDB client initialized")

	s := newSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), runID, time.Now().UTC(), log)
	s.client = client
	return s, nil
}

func newSink(w pointWriter, runID string, start time.Time, log zerolog.Logger) *Sink {
	return &Sink{
		writer: w,
		runID:  runID,
		start:  start,
		log:    log,
	}
}

// Record implements runner.Sink.
func (s *Sink) Record(ctx context.Context, result runner.StepResult) error {
	points := Points(s.runID, s.start, result)
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("error sending data to InfluxDB: %w", err)
	}
	s.log.Trace().Int("step", result.Index).Int("points", len(points)).Msg("Points written")
	return nil
}

// Close releases the client.
func (s *Sink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// Points converts a step result into line protocol points.
func Points(runID string, start time.Time, result runner.StepResult) []*influxdb2_write.Point {
	sum := result.Summary
	ts := start.Add(time.Duration(result.State.Time * float64(time.Second)))

	points := make([]*influxdb2_write.Point, 0, 1+len(sum.Stations))
	points = append(points, influxdb2.NewPoint(
		StepMeasurement,
		map[string]string{"run_id": runID},
		map[string]interface{}{
			"step":            sum.Step,
			"assigned":        sum.Assigned,
			"unassigned":      sum.Unassigned,
			"total_rate":      finite(sum.TotalRate),
			"mean_rate":       finite(sum.MeanRate),
			"unbounded_links": sum.UnboundedLinks,
		},
		ts,
	))

	for _, st := range sum.Stations {
		points = append(points, influxdb2.NewPoint(
			StationMeasurement,
			map[string]string{
				"run_id":     runID,
				"station_id": strconv.Itoa(st.BaseStationID),
			},
			map[string]interface{}{
				"load":        st.Load,
				"capacity":    st.Capacity,
				"utilization": st.Utilization,
			},
			ts,
		))
	}
	return points
}

// finite guards against values line protocol cannot carry.
func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}
