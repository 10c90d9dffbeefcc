package influx

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"v2x-sim/internal/metrics"
	"v2x-sim/internal/runner"
	"v2x-sim/internal/simulation"
)

// Compile-time interface check
var _ runner.Sink = (*Sink)(nil)

type fakeWriter struct {
	points []*influxdb2_write.Point
	err    error
}

func (f *fakeWriter) WritePoint(_ context.Context, point ...*influxdb2_write.Point) error {
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, point...)
	return nil
}

func fields(p *influxdb2_write.Point) map[string]interface{} {
	out := make(map[string]interface{})
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tags(p *influxdb2_write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func sampleResult() runner.StepResult {
	return runner.StepResult{
		Index: 3,
		State: simulation.State{Step: 3, Time: 1.5},
		Summary: metrics.Summary{
			Step:           3,
			Time:           1.5,
			Vehicles:       4,
			Assigned:       3,
			Unassigned:     1,
			TotalRate:      120.5,
			MeanRate:       40.25,
			UnboundedLinks: 1,
			Stations: []metrics.StationLoad{
				{BaseStationID: 0, Load: 2, Capacity: 2, Utilization: 1},
				{BaseStationID: 1, Load: 1, Capacity: 4, Utilization: 0.25},
			},
		},
	}
}

func TestSink_WritesPoints(t *testing.T) {
	w := &fakeWriter{}
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newSink(w, "run-1", start, zerolog.Nop())

	require.NoError(t, s.Record(context.Background(), sampleResult()))
	require.NoError(t, s.Close())
	require.Len(t, w.points, 3)

	step := w.points[0]
	assert.Equal(t, StepMeasurement, step.Name())
	assert.Equal(t, map[string]string{"run_id": "run-1"}, tags(step))
	assert.Equal(t, start.Add(1500*time.Millisecond), step.Time())
	f := fields(step)
	assert.Equal(t, int64(3), f["assigned"])
	assert.Equal(t, int64(1), f["unassigned"])
	assert.Equal(t, 120.5, f["total_rate"])
	assert.Equal(t, 40.25, f["mean_rate"])
	assert.Equal(t, int64(1), f["unbounded_links"])

	load := w.points[2]
	assert.Equal(t, StationMeasurement, load.Name())
	assert.Equal(t, map[string]string{"run_id": "run-1", "station_id": "1"}, tags(load))
	f = fields(load)
	assert.Equal(t, int64(1), f["load"])
	assert.Equal(t, int64(4), f["capacity"])
	assert.Equal(t, 0.25, f["utilization"])

	line := influxdb2_write.PointToLineProtocol(load, time.Second)
	assert.True(t, strings.HasPrefix(line, "v2x_station_load,run_id=run-1,station_id=1 "), line)
}

func TestSink_WriteError(t *testing.T) {
	s := newSink(&fakeWriter{err: errors.New("unauthorized")}, "run-1", time.Now(), zerolog.Nop())
	err := s.Record(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 2.5, finite(2.5))
	assert.Equal(t, 0.0, finite(math.Inf(1)))
	assert.Equal(t, 0.0, finite(math.NaN()))
}
