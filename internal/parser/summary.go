package parser

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts covers the date-time shapes seen in exported device files:
// RFC3339 with or without fractional seconds, and zone-less local times.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp normalizes the heterogeneous timestamp text found in TCX and
// GPX nodes into a time.Time.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseFloat coerces numeric node text to a value; malformed input yields
// (0, false) rather than an error so a bad sample drops without aborting the file.
func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	v, ok := parseFloat(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func seriesValues(points []TimeSeriesPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// mean returns the arithmetic mean of values; ok is false for empty input so
// callers can leave the summary field unset instead of dividing by zero.
func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

func maxOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}

func minOf(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m, true
}

// elevationGain sums the positive consecutive deltas of an elevation trace.
// Descents contribute zero, so the result is never negative.
func elevationGain(elevations []float64) float64 {
	var gain float64
	for i := 1; i < len(elevations); i++ {
		if diff := elevations[i] - elevations[i-1]; diff > 0 {
			gain += diff
		}
	}
	return gain
}

// paceFromSpeed converts speed in m/s to pace in min/km.
func paceFromSpeed(speedMS float64) float64 {
	return round2(1000 / (speedMS * 60))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// haversine returns the great-circle distance in meters between two
// lat/lon pairs given in degrees.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// xmlNode captures arbitrary vendor extension elements so their tag names can
// be matched without binding to a particular schema.
type xmlNode struct {
	XMLName  xml.Name
	Content  string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// walkNodes visits n and every descendant, depth first.
func walkNodes(nodes []xmlNode, visit func(xmlNode)) {
	for _, n := range nodes {
		visit(n)
		walkNodes(n.Children, visit)
	}
}

func intPtr(v int) *int              { return &v }
func floatPtr(v float64) *float64    { return &v }
func stringPtr(v string) *string     { return &v }
func timePtr(v time.Time) *time.Time { return &v }
