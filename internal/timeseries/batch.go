// Package timeseries splits per-metric sample series into fixed-size chunks
// that fit a per-document store, and reassembles them on demand.
package timeseries

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ameet2r/workout/internal/parser"
)

// BatchSize is the number of points per stored batch. Fixed: it is sized to
// the backing store's per-document payload ceiling.
const BatchSize = 150

// Batch is one independently-storable chunk of a metric's series. Data holds
// the serialized point list; concatenating every batch of a metric in
// ascending Seq order reproduces the original series exactly.
type Batch struct {
	Metric string
	Seq    int
	Data   []byte
}

// Key returns the storage key for the batch, "{metric}_{seq}".
func (b Batch) Key() string {
	return fmt.Sprintf("%s_%d", b.Metric, b.Seq)
}

type valuePoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

type gpsPoint struct {
	Timestamp string   `json:"timestamp"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Elevation *float64 `json:"elevation"`
}

// BatchPoints chunks a single-valued series into batches of BatchSize points.
// Order is preserved within and across batches; empty input yields no batches.
func BatchPoints(metric string, points []parser.TimeSeriesPoint) []Batch {
	var batches []Batch
	for start := 0; start < len(points); start += BatchSize {
		end := start + BatchSize
		if end > len(points) {
			end = len(points)
		}
		chunk := make([]valuePoint, 0, end-start)
		for _, p := range points[start:end] {
			chunk = append(chunk, valuePoint{
				Timestamp: canonicalTime(p.Timestamp),
				Value:     p.Value,
			})
		}
		data, _ := json.Marshal(chunk)
		batches = append(batches, Batch{Metric: metric, Seq: len(batches), Data: data})
	}
	return batches
}

// BatchGpsPoints chunks the positional series. GPS points carry four fields;
// elevation serializes as null when the fix had none.
func BatchGpsPoints(points []parser.GpsPoint) []Batch {
	var batches []Batch
	for start := 0; start < len(points); start += BatchSize {
		end := start + BatchSize
		if end > len(points) {
			end = len(points)
		}
		chunk := make([]gpsPoint, 0, end-start)
		for _, p := range points[start:end] {
			chunk = append(chunk, gpsPoint{
				Timestamp: canonicalTime(p.Timestamp),
				Latitude:  p.Latitude,
				Longitude: p.Longitude,
				Elevation: p.Elevation,
			})
		}
		data, _ := json.Marshal(chunk)
		batches = append(batches, Batch{Metric: parser.MetricGps, Seq: len(batches), Data: data})
	}
	return batches
}

// BatchAll batches every metric series of a parsed activity.
func BatchAll(series parser.TimeSeries) []Batch {
	var batches []Batch
	batches = append(batches, BatchPoints(parser.MetricHeartRate, series.HeartRate)...)
	batches = append(batches, BatchGpsPoints(series.Gps)...)
	batches = append(batches, BatchPoints(parser.MetricTemperature, series.Temperature)...)
	batches = append(batches, BatchPoints(parser.MetricCadence, series.Cadence)...)
	batches = append(batches, BatchPoints(parser.MetricPower, series.Power)...)
	batches = append(batches, BatchPoints(parser.MetricAltitude, series.Altitude)...)
	return batches
}

// canonicalTime is the stored timestamp form.
func canonicalTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
