package parser

import (
	"bytes"
	"math"
	"time"

	"github.com/tormoder/fit"
)

// FIT fixed-point angular unit: 2^31 semicircles = 180 degrees.
const semicirclesToDegrees = 180.0 / 2147483648.0

// Invalid-value sentinels per the FIT base types.
const (
	invalidUint8  = math.MaxUint8
	invalidUint16 = math.MaxUint16
	invalidUint32 = math.MaxUint32
	invalidInt8   = math.MaxInt8
	invalidSint32 = math.MaxInt32
)

// FITParser extracts summary and time-series data from binary FIT uploads.
type FITParser struct{}

func NewFITParser() *FITParser {
	return &FITParser{}
}

func (p *FITParser) Parse(data []byte) (*ParsedActivity, error) {
	fitFile, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: FormatFIT, Err: err}
	}

	activity, err := fitFile.Activity()
	if err != nil {
		return nil, &ParseError{Format: FormatFIT, Err: err}
	}

	result := &ParsedActivity{}

	// Pass 1: session messages carry the header-level summary. Later
	// sessions overwrite earlier ones field by field.
	for _, session := range activity.Sessions {
		if session == nil {
			continue
		}
		applySession(session, result)
	}

	// Pass 2: record messages carry the per-sample telemetry.
	for _, rec := range activity.Records {
		if rec == nil {
			continue
		}
		applyRecord(rec, result)
	}

	finishSummary(result)

	return result, nil
}

// finishSummary backfills summary stats from the sample series. Session-level
// aggregates win when present; the samples only fill what the header left
// out. Min heart rate has no session field, so it always comes from the
// samples.
func finishSummary(result *ParsedActivity) {
	summary := &result.Summary
	series := &result.TimeSeries

	if hr := seriesValues(series.HeartRate); len(hr) > 0 {
		if v, ok := minOf(hr); ok {
			summary.MinHeartRate = intPtr(int(v))
		}
		if summary.AvgHeartRate == nil {
			if v, ok := mean(hr); ok {
				summary.AvgHeartRate = intPtr(int(v))
			}
		}
		if summary.MaxHeartRate == nil {
			if v, ok := maxOf(hr); ok {
				summary.MaxHeartRate = intPtr(int(v))
			}
		}
	}
	if alt := seriesValues(series.Altitude); len(alt) > 0 {
		if v, ok := minOf(alt); ok {
			summary.MinAltitude = floatPtr(v)
		}
	}
}

func applySession(s *fit.SessionMsg, result *ParsedActivity) {
	summary := &result.Summary

	if v := s.GetTotalElapsedTimeScaled(); validScaled(v) {
		summary.Duration = intPtr(int(v))
	}
	if v := s.GetTotalDistanceScaled(); validScaled(v) {
		summary.Distance = floatPtr(v)
	}
	if s.TotalCalories != invalidUint16 {
		summary.Calories = intPtr(int(s.TotalCalories))
	}
	if v := s.GetAvgSpeedScaled(); validScaled(v) && v > 0 {
		summary.Pace = floatPtr(paceFromSpeed(v))
	}

	if s.AvgHeartRate != invalidUint8 {
		summary.AvgHeartRate = intPtr(int(s.AvgHeartRate))
		summary.HasHeartRate = true
	}
	if s.MaxHeartRate != invalidUint8 {
		summary.MaxHeartRate = intPtr(int(s.MaxHeartRate))
	}

	if s.AvgAltitude != invalidUint16 {
		summary.AvgAltitude = floatPtr(altitudeMeters(uint32(s.AvgAltitude)))
		summary.HasAltitude = true
	}
	if s.MaxAltitude != invalidUint16 {
		summary.MaxAltitude = floatPtr(altitudeMeters(uint32(s.MaxAltitude)))
	}
	if s.TotalAscent != invalidUint16 {
		summary.Ascent = floatPtr(float64(s.TotalAscent))
	}
	if s.TotalDescent != invalidUint16 {
		summary.Descent = floatPtr(float64(s.TotalDescent))
	}

	if s.AvgCadence != invalidUint8 {
		summary.AvgCadence = intPtr(int(s.AvgCadence))
		summary.HasCadence = true
	}
	if s.MaxCadence != invalidUint8 {
		summary.MaxCadence = intPtr(int(s.MaxCadence))
	}

	if s.AvgPower != invalidUint16 {
		summary.AvgPower = intPtr(int(s.AvgPower))
		summary.HasPower = true
	}
	if s.MaxPower != invalidUint16 {
		summary.MaxPower = intPtr(int(s.MaxPower))
	}

	// FIT sessions count cycles, not steps: two steps per cycle for the
	// stride-based sports.
	if s.TotalCycles != invalidUint32 && (s.Sport == fit.SportRunning || s.Sport == fit.SportWalking) {
		summary.TotalSteps = intPtr(int(s.TotalCycles) * 2)
	}

	if s.AvgTemperature != invalidInt8 {
		summary.AvgTemperature = floatPtr(float64(s.AvgTemperature))
		summary.HasTemperature = true
	}
	if s.MaxTemperature != invalidInt8 {
		summary.MaxTemperature = floatPtr(float64(s.MaxTemperature))
	}

	if s.Sport != fit.SportInvalid {
		summary.ActivityType = stringPtr(s.Sport.String())
	}

	// Running dynamics, scale 10.
	if s.AvgVerticalOscillation != invalidUint16 {
		summary.AvgVerticalOscillation = floatPtr(float64(s.AvgVerticalOscillation) / 10)
		summary.HasRunningDynamics = true
	}
	if s.AvgStanceTime != invalidUint16 {
		summary.AvgGroundContactTime = floatPtr(float64(s.AvgStanceTime) / 10)
		summary.HasRunningDynamics = true
	}

	// Training effect, 0-50 scaled to 0.0-5.0.
	if s.TotalTrainingEffect != 0 && s.TotalTrainingEffect != invalidUint8 {
		summary.TrainingEffect = floatPtr(float64(s.TotalTrainingEffect) / 10)
		summary.HasTrainingMetrics = true
	}
	if s.TotalAnaerobicTrainingEffect != 0 && s.TotalAnaerobicTrainingEffect != invalidUint8 {
		summary.AnaerobicTrainingEffect = floatPtr(float64(s.TotalAnaerobicTrainingEffect) / 10)
		summary.HasTrainingMetrics = true
	}

	if t := validTime(s.StartTime); !t.IsZero() {
		result.StartTime = timePtr(t)
	}
}

func applyRecord(rec *fit.RecordMsg, result *ParsedActivity) {
	summary := &result.Summary
	series := &result.TimeSeries

	// A record without a timestamp anchors nothing: skip it whole.
	ts := validTime(rec.Timestamp)
	if ts.IsZero() {
		return
	}
	if result.StartTime == nil {
		result.StartTime = timePtr(ts)
	}

	var altitude *float64
	if rec.Altitude != invalidUint16 {
		altitude = floatPtr(altitudeMeters(uint32(rec.Altitude)))
	} else if rec.EnhancedAltitude != invalidUint32 {
		altitude = floatPtr(altitudeMeters(rec.EnhancedAltitude))
	}

	if rec.HeartRate != invalidUint8 {
		series.HeartRate = append(series.HeartRate, TimeSeriesPoint{Timestamp: ts, Value: float64(rec.HeartRate)})
		summary.HasHeartRate = true
	}

	latSC := rec.PositionLat.Semicircles()
	lonSC := rec.PositionLong.Semicircles()
	if latSC != invalidSint32 && lonSC != invalidSint32 && (latSC != 0 || lonSC != 0) {
		lat := float64(latSC) * semicirclesToDegrees
		lon := float64(lonSC) * semicirclesToDegrees
		if lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
			series.Gps = append(series.Gps, GpsPoint{Timestamp: ts, Latitude: lat, Longitude: lon, Elevation: altitude})
			summary.HasGps = true
		}
	}

	if altitude != nil {
		series.Altitude = append(series.Altitude, TimeSeriesPoint{Timestamp: ts, Value: *altitude})
		summary.HasAltitude = true
	}

	if rec.Cadence != invalidUint8 {
		series.Cadence = append(series.Cadence, TimeSeriesPoint{Timestamp: ts, Value: float64(rec.Cadence)})
		summary.HasCadence = true
	}

	if rec.Power != invalidUint16 {
		series.Power = append(series.Power, TimeSeriesPoint{Timestamp: ts, Value: float64(rec.Power)})
		summary.HasPower = true
	}

	if rec.Temperature != invalidInt8 {
		series.Temperature = append(series.Temperature, TimeSeriesPoint{Timestamp: ts, Value: float64(rec.Temperature)})
		summary.HasTemperature = true
	}
}

// altitudeMeters undoes the FIT altitude encoding (scale 5, offset 500).
func altitudeMeters(raw uint32) float64 {
	return float64(raw)/5.0 - 500.0
}

func validTime(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

// validScaled filters the NaN that scaled getters return for unset fields.
func validScaled(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
