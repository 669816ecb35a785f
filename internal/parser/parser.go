package parser

import (
	"errors"
	"fmt"
	"time"
)

// Metric names used as time-series keys and storage-key prefixes.
const (
	MetricHeartRate   = "heart_rate"
	MetricGps         = "gps"
	MetricTemperature = "temperature"
	MetricCadence     = "cadence"
	MetricPower       = "power"
	MetricAltitude    = "altitude"
)

// MetricNames lists every recognized time-series metric.
var MetricNames = []string{
	MetricHeartRate,
	MetricGps,
	MetricTemperature,
	MetricCadence,
	MetricPower,
	MetricAltitude,
}

// ValidMetric reports whether name is a recognized time-series metric.
func ValidMetric(name string) bool {
	for _, m := range MetricNames {
		if m == name {
			return true
		}
	}
	return false
}

var (
	// ErrUnsupportedFormat is returned for extensions other than .fit, .tcx, .gpx, .zip.
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .fit, .tcx, .gpx or .zip")

	// ErrCorruptArchive is returned when a .zip upload is not a readable archive.
	ErrCorruptArchive = errors.New("invalid zip archive")

	// ErrNoActivityFile is returned when a valid archive contains no recognized activity file.
	ErrNoActivityFile = errors.New("no FIT, TCX or GPX file found in zip archive")
)

// Source formats handled by the dispatcher.
const (
	FormatFIT = "FIT"
	FormatTCX = "TCX"
	FormatGPX = "GPX"
)

// ParseError wraps a format-specific decode failure with the format that raised it.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s file: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TimeSeriesPoint is a single sample of a single-valued metric.
type TimeSeriesPoint struct {
	Timestamp time.Time
	Value     float64
}

// GpsPoint is a single positional sample. Elevation is nil when the source
// carried no altitude for the fix.
type GpsPoint struct {
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	Elevation *float64
}

// TimeSeries holds the per-metric sample sequences of one activity, in
// chronological order. Empty slices mean the source carried no samples.
type TimeSeries struct {
	HeartRate   []TimeSeriesPoint
	Gps         []GpsPoint
	Temperature []TimeSeriesPoint
	Cadence     []TimeSeriesPoint
	Power       []TimeSeriesPoint
	Altitude    []TimeSeriesPoint
}

// ActivitySummary is the flat summary record extracted from an activity file.
// Fields are nil when the source did not supply them; the has_* flags record
// which metric families the source actually populated, so consumers can tell
// "zero" from "absent".
type ActivitySummary struct {
	// Basic metrics
	Duration *int     `json:"duration,omitempty"` // seconds
	Distance *float64 `json:"distance,omitempty"` // meters
	Calories *int     `json:"calories,omitempty"`
	Pace     *float64 `json:"pace,omitempty"` // min/km

	// Heart rate
	AvgHeartRate *int `json:"avg_heart_rate,omitempty"`
	MaxHeartRate *int `json:"max_heart_rate,omitempty"`
	MinHeartRate *int `json:"min_heart_rate,omitempty"`

	// Altitude
	AvgAltitude   *float64 `json:"avg_altitude,omitempty"`
	MaxAltitude   *float64 `json:"max_altitude,omitempty"`
	MinAltitude   *float64 `json:"min_altitude,omitempty"`
	Ascent        *float64 `json:"ascent,omitempty"`
	Descent       *float64 `json:"descent,omitempty"`
	ElevationGain *float64 `json:"elevation_gain,omitempty"`

	// Cadence
	AvgCadence *int `json:"avg_cadence,omitempty"`
	MaxCadence *int `json:"max_cadence,omitempty"`

	// Power
	AvgPower *int `json:"avg_power,omitempty"`
	MaxPower *int `json:"max_power,omitempty"`

	// Steps
	TotalSteps *int `json:"total_steps,omitempty"`

	// Temperature
	AvgTemperature *float64 `json:"avg_temperature,omitempty"`
	MaxTemperature *float64 `json:"max_temperature,omitempty"`

	// Activity info
	ActivityType  *string `json:"activity_type,omitempty"`
	ActivityNotes *string `json:"activity_notes,omitempty"`

	// Advanced running metrics
	AvgVerticalOscillation *float64 `json:"avg_vertical_oscillation,omitempty"` // mm
	AvgGroundContactTime   *float64 `json:"avg_ground_contact_time,omitempty"`  // ms
	AvgStrideLength        *float64 `json:"avg_stride_length,omitempty"`        // m

	// Training metrics
	TrainingEffect            *float64 `json:"training_effect,omitempty"`
	AnaerobicTrainingEffect   *float64 `json:"anaerobic_training_effect,omitempty"`
	VO2MaxEstimate            *float64 `json:"vo2max_estimate,omitempty"`
	LactateThresholdHeartRate *int     `json:"lactate_threshold_heart_rate,omitempty"`
	RecoveryTime              *int     `json:"recovery_time,omitempty"` // minutes

	// Availability flags
	HasGps             bool `json:"has_gps"`
	HasHeartRate       bool `json:"has_heart_rate"`
	HasTemperature     bool `json:"has_temperature"`
	HasCadence         bool `json:"has_cadence"`
	HasPower           bool `json:"has_power"`
	HasAltitude        bool `json:"has_altitude"`
	HasRunningDynamics bool `json:"has_running_dynamics"`
	HasTrainingMetrics bool `json:"has_training_metrics"`
}

// ParsedActivity is the normalized result of parsing one activity file.
// Built fresh per upload; the parsing core holds no state across calls.
type ParsedActivity struct {
	Summary    ActivitySummary
	TimeSeries TimeSeries
	StartTime  *time.Time
}

// ActivityParser decodes one source format into a ParsedActivity.
type ActivityParser interface {
	Parse(data []byte) (*ParsedActivity, error)
}
