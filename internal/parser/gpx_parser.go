package parser

import (
	"encoding/xml"
	"math"
	"strings"
)

// Speed below ~1 km/h counts as stationary when estimating moving time.
const movingSpeedThreshold = 1000.0 / 3600.0 // m/s

type gpxFile struct {
	XMLName xml.Name   `xml:"gpx"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat        *float64  `xml:"lat,attr"`
	Lon        *float64  `xml:"lon,attr"`
	Elevation  string    `xml:"ele"`
	Time       string    `xml:"time"`
	Extensions []xmlNode `xml:"extensions"`
}

// GPXParser extracts summary and time-series data from GPX uploads.
type GPXParser struct{}

func NewGPXParser() *GPXParser {
	return &GPXParser{}
}

func (p *GPXParser) Parse(data []byte) (*ParsedActivity, error) {
	var doc gpxFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Format: FormatGPX, Err: err}
	}

	result := &ParsedActivity{}
	summary := &result.Summary
	series := &result.TimeSeries

	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				p.extractPoint(point, result)
			}
		}
	}

	if len(series.Gps) > 0 {
		if dist := pathLength(series.Gps); dist > 0 {
			summary.Distance = floatPtr(round2(dist))
		}
		// Duration counts moving time, not wall time between first and
		// last fix.
		if moving := movingTime(series.Gps); moving > 0 {
			summary.Duration = intPtr(int(moving))
		}
		uphill, downhill := uphillDownhill(seriesValues(series.Altitude))
		if uphill > 0 {
			summary.ElevationGain = floatPtr(round2(uphill))
		}
		if downhill > 0 {
			summary.Descent = floatPtr(round2(downhill))
		}
	}

	if hr := seriesValues(series.HeartRate); len(hr) > 0 {
		if v, ok := mean(hr); ok {
			summary.AvgHeartRate = intPtr(int(v))
		}
		if v, ok := maxOf(hr); ok {
			summary.MaxHeartRate = intPtr(int(v))
		}
	}
	if temps := seriesValues(series.Temperature); len(temps) > 0 {
		if v, ok := mean(temps); ok {
			summary.AvgTemperature = floatPtr(round1(v))
		}
		if v, ok := maxOf(temps); ok {
			summary.MaxTemperature = floatPtr(round1(v))
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

	return result, nil
}

func (p *GPXParser) extractPoint(point gpxPoint, result *ParsedActivity) {
	summary := &result.Summary
	series := &result.TimeSeries

	ts, err := parseTimestamp(point.Time)
	if err != nil {
		return
	}
	if result.StartTime == nil {
		result.StartTime = timePtr(ts)
	}

	if point.Lat != nil && point.Lon != nil {
		gps := GpsPoint{Timestamp: ts, Latitude: *point.Lat, Longitude: *point.Lon}
		if elev, ok := parseFloat(point.Elevation); ok {
			gps.Elevation = floatPtr(elev)
			series.Altitude = append(series.Altitude, TimeSeriesPoint{Timestamp: ts, Value: elev})
			summary.HasAltitude = true
		}
		series.Gps = append(series.Gps, gps)
		summary.HasGps = true
	}

	// GPX carries sensor data only through vendor extensions. Tags are
	// matched by case-insensitive substring, so "cad" also catches
	// unrelated tags containing it; that behavior is long-standing and
	// kept so output stays stable on real files.
	walkNodes(point.Extensions, func(n xmlNode) {
		tag := strings.ToLower(n.XMLName.Local)
		switch {
		case strings.Contains(tag, "hr"):
			if v, ok := parseInt(n.Content); ok {
				series.HeartRate = append(series.HeartRate, TimeSeriesPoint{Timestamp: ts, Value: float64(v)})
				summary.HasHeartRate = true
			}
		case strings.Contains(tag, "temp"):
			if v, ok := parseFloat(n.Content); ok {
				series.Temperature = append(series.Temperature, TimeSeriesPoint{Timestamp: ts, Value: v})
				summary.HasTemperature = true
			}
		case strings.Contains(tag, "cad"):
			if v, ok := parseInt(n.Content); ok {
				series.Cadence = append(series.Cadence, TimeSeriesPoint{Timestamp: ts, Value: float64(v)})
				summary.HasCadence = true
			}
		case strings.Contains(tag, "power"), strings.Contains(tag, "watts"):
			if v, ok := parseInt(n.Content); ok {
				series.Power = append(series.Power, TimeSeriesPoint{Timestamp: ts, Value: float64(v)})
				summary.HasPower = true
			}
		}
	})
}

// pathLength sums consecutive point distances, using the 3D distance when
// both ends carry elevation and falling back to 2D otherwise.
func pathLength(points []GpsPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		d := haversine(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
		if prev.Elevation != nil && curr.Elevation != nil {
			rise := *curr.Elevation - *prev.Elevation
			d = math.Sqrt(d*d + rise*rise)
		}
		total += d
	}
	return total
}

// movingTime sums the seconds between consecutive fixes whose implied speed
// clears the stationary threshold.
func movingTime(points []GpsPoint) float64 {
	var moving float64
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		dt := curr.Timestamp.Sub(prev.Timestamp).Seconds()
		if dt <= 0 {
			continue
		}
		d := haversine(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
		if d/dt >= movingSpeedThreshold {
			moving += dt
		}
	}
	return moving
}

// uphillDownhill accumulates total climb and total descent over an elevation
// trace. Both results are non-negative.
func uphillDownhill(elevations []float64) (uphill, downhill float64) {
	for i := 1; i < len(elevations); i++ {
		diff := elevations[i] - elevations[i-1]
		if diff > 0 {
			uphill += diff
		} else {
			downhill -= diff
		}
	}
	return uphill, downhill
}
