package parser

import (
	"encoding/xml"
	"errors"
	"strings"
	"time"
)

// TCX document layout, per the Garmin TrainingCenterDatabase schema.
// Numeric leaves are kept as raw text so one malformed field drops silently
// instead of failing the whole decode.
type tcxDatabase struct {
	XMLName    xml.Name      `xml:"TrainingCenterDatabase"`
	Activities []tcxActivity `xml:"Activities>Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	ID    string   `xml:"Id"`
	Notes string   `xml:"Notes"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	StartTime        string     `xml:"StartTime,attr"`
	TotalTimeSeconds string     `xml:"TotalTimeSeconds"`
	DistanceMeters   string     `xml:"DistanceMeters"`
	Calories         string     `xml:"Calories"`
	Tracks           []tcxTrack `xml:"Track"`
}

type tcxTrack struct {
	Trackpoints []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxTrackpoint struct {
	Time           string        `xml:"Time"`
	Position       *tcxPosition  `xml:"Position"`
	AltitudeMeters string        `xml:"AltitudeMeters"`
	Cadence        string        `xml:"Cadence"`
	HeartRateBpm   *tcxHeartRate `xml:"HeartRateBpm"`
	Extensions     []xmlNode     `xml:"Extensions"`
}

type tcxPosition struct {
	LatitudeDegrees  string `xml:"LatitudeDegrees"`
	LongitudeDegrees string `xml:"LongitudeDegrees"`
}

type tcxHeartRate struct {
	Value string `xml:"Value"`
}

// TCXParser extracts summary and time-series data from TCX uploads.
type TCXParser struct{}

func NewTCXParser() *TCXParser {
	return &TCXParser{}
}

func (p *TCXParser) Parse(data []byte) (*ParsedActivity, error) {
	var doc tcxDatabase
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Format: FormatTCX, Err: err}
	}

	if len(doc.Activities) == 0 {
		return nil, &ParseError{Format: FormatTCX, Err: errors.New("no activity element")}
	}
	activity := &doc.Activities[0]

	result := &ParsedActivity{}
	summary := &result.Summary
	series := &result.TimeSeries

	if activity.Sport != "" {
		summary.ActivityType = stringPtr(activity.Sport)
	}
	if notes := strings.TrimSpace(activity.Notes); notes != "" {
		summary.ActivityNotes = stringPtr(notes)
	}

	// Header-level rollups from the lap summaries.
	var duration, distance float64
	var calories int
	var haveDuration, haveDistance, haveCalories bool
	for _, lap := range activity.Laps {
		if v, ok := parseFloat(lap.TotalTimeSeconds); ok {
			duration += v
			haveDuration = true
		}
		if v, ok := parseFloat(lap.DistanceMeters); ok {
			distance += v
			haveDistance = true
		}
		if v, ok := parseInt(lap.Calories); ok {
			calories += v
			haveCalories = true
		}
	}
	if haveDuration {
		// Duration-typed values collapse to whole seconds.
		summary.Duration = intPtr(int(duration))
	}
	if haveDistance {
		summary.Distance = floatPtr(distance)
	}
	if haveCalories {
		summary.Calories = intPtr(calories)
	}
	if haveDuration && haveDistance && distance > 0 {
		summary.Pace = floatPtr(round2((duration / 60) / (distance / 1000)))
	}

	if t, err := parseTimestamp(firstLapStart(activity.Laps)); err == nil {
		result.StartTime = timePtr(t)
	}

	p.walkTrackpoints(activity, summary, series)

	// Stats the lap headers omit or misreport are recomputed from the
	// observed samples.
	if hr := seriesValues(series.HeartRate); len(hr) > 0 {
		if v, ok := mean(hr); ok {
			summary.AvgHeartRate = intPtr(int(v))
		}
		if v, ok := maxOf(hr); ok {
			summary.MaxHeartRate = intPtr(int(v))
		}
		if v, ok := minOf(hr); ok {
			summary.MinHeartRate = intPtr(int(v))
		}
	}
	if alt := seriesValues(series.Altitude); len(alt) > 0 {
		if v, ok := mean(alt); ok {
			summary.AvgAltitude = floatPtr(round2(v))
		}
		if v, ok := maxOf(alt); ok {
			summary.MaxAltitude = floatPtr(v)
		}
		if v, ok := minOf(alt); ok {
			summary.MinAltitude = floatPtr(v)
		}
	}
	if cad := seriesValues(series.Cadence); len(cad) > 0 {
		if v, ok := mean(cad); ok {
			summary.AvgCadence = intPtr(int(v))
		}
		if v, ok := maxOf(cad); ok {
			summary.MaxCadence = intPtr(int(v))
		}
	}
	if pw := seriesValues(series.Power); len(pw) > 0 {
		if v, ok := mean(pw); ok {
			summary.AvgPower = intPtr(int(v))
		}
		if v, ok := maxOf(pw); ok {
			summary.MaxPower = intPtr(int(v))
		}
	}

	// Elevation gain from the GPS elevations: positive deltas only, needs at
	// least two samples.
	elevations := make([]float64, 0, len(series.Gps))
	for _, g := range series.Gps {
		if g.Elevation != nil {
			elevations = append(elevations, *g.Elevation)
		}
	}
	if len(elevations) > 1 {
		summary.ElevationGain = floatPtr(round2(elevationGain(elevations)))
	}

	return result, nil
}

func firstLapStart(laps []tcxLap) string {
	if len(laps) == 0 {
		return ""
	}
	return laps[0].StartTime
}

func (p *TCXParser) walkTrackpoints(activity *tcxActivity, summary *ActivitySummary, series *TimeSeries) {
	for _, lap := range activity.Laps {
		for _, track := range lap.Tracks {
			for _, tp := range track.Trackpoints {
				ts, err := parseTimestamp(tp.Time)
				if err != nil {
					// A trackpoint without a usable time anchors nothing.
					continue
				}
				p.extractTrackpoint(tp, ts, summary, series)
			}
		}
	}
}

func (p *TCXParser) extractTrackpoint(tp tcxTrackpoint, ts time.Time, summary *ActivitySummary, series *TimeSeries) {
	if tp.HeartRateBpm != nil {
		if v, ok := parseInt(tp.HeartRateBpm.Value); ok {
			series.HeartRate = append(series.HeartRate, TimeSeriesPoint{Timestamp: ts, Value: float64(v)})
			summary.HasHeartRate = true
		}
	}

	altitude, haveAltitude := parseFloat(tp.AltitudeMeters)

	if tp.Position != nil {
		lat, latOK := parseFloat(tp.Position.LatitudeDegrees)
		lon, lonOK := parseFloat(tp.Position.LongitudeDegrees)
		if latOK && lonOK {
			point := GpsPoint{Timestamp: ts, Latitude: lat, Longitude: lon}
			if haveAltitude {
				point.Elevation = floatPtr(altitude)
			}
			series.Gps = append(series.Gps, point)
			summary.HasGps = true
		}
	}

	// Altitude is tracked even without a full GPS fix.
	if haveAltitude {
		series.Altitude = append(series.Altitude, TimeSeriesPoint{Timestamp: ts, Value: altitude})
		summary.HasAltitude = true
	}

	if v, ok := parseInt(tp.Cadence); ok {
		series.Cadence = append(series.Cadence, TimeSeriesPoint{Timestamp: ts, Value: float64(v)})
		summary.HasCadence = true
	}

	// Power only appears inside vendor extensions, in a tag containing "Watts".
	walkNodes(tp.Extensions, func(n xmlNode) {
		if !strings.Contains(n.XMLName.Local, "Watts") {
			return
		}
		if v, ok := parseInt(n.Content); ok {
			series.Power = append(series.Power, TimeSeriesPoint{Timestamp: ts, Value: float64(v)})
			summary.HasPower = true
		}
	})
}
