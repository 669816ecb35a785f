package parser

import (
	"errors"
	"testing"
	"time"
)

const runTcx = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase xmlns="http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2">
 <Activities>
  <Activity Sport="Running">
   <Id>2024-03-10T09:00:00Z</Id>
   <Lap StartTime="2024-03-10T09:00:00Z">
    <TotalTimeSeconds>600</TotalTimeSeconds>
    <DistanceMeters>1500.0</DistanceMeters>
    <Calories>100</Calories>
    <Track>
     <Trackpoint>
      <Time>2024-03-10T09:00:00Z</Time>
      <Position><LatitudeDegrees>47.000</LatitudeDegrees><LongitudeDegrees>8.000</LongitudeDegrees></Position>
      <AltitudeMeters>10.0</AltitudeMeters>
      <Cadence>80</Cadence>
      <HeartRateBpm><Value>100</Value></HeartRateBpm>
      <Extensions><TPX><Watts>240</Watts></TPX></Extensions>
     </Trackpoint>
     <Trackpoint>
      <Time>2024-03-10T09:00:10Z</Time>
      <Position><LatitudeDegrees>47.001</LatitudeDegrees><LongitudeDegrees>8.000</LongitudeDegrees></Position>
      <AltitudeMeters>15.0</AltitudeMeters>
      <Cadence>90</Cadence>
      <HeartRateBpm><Value>120</Value></HeartRateBpm>
      <Extensions><TPX><Watts>260</Watts></TPX></Extensions>
     </Trackpoint>
     <Trackpoint>
      <Time>2024-03-10T09:00:20Z</Time>
      <Position><LatitudeDegrees>47.002</LatitudeDegrees><LongitudeDegrees>8.000</LongitudeDegrees></Position>
      <AltitudeMeters>12.0</AltitudeMeters>
      <Cadence>bad</Cadence>
      <HeartRateBpm><Value>110</Value></HeartRateBpm>
     </Trackpoint>
     <Trackpoint>
      <Time>2024-03-10T09:00:30Z</Time>
      <Position><LatitudeDegrees>47.003</LatitudeDegrees><LongitudeDegrees>8.000</LongitudeDegrees></Position>
      <AltitudeMeters>20.0</AltitudeMeters>
      <HeartRateBpm><Value>garbled</Value></HeartRateBpm>
     </Trackpoint>
    </Track>
   </Lap>
   <Lap StartTime="2024-03-10T09:10:00Z">
    <TotalTimeSeconds>600</TotalTimeSeconds>
    <DistanceMeters>1500.0</DistanceMeters>
    <Calories>100</Calories>
   </Lap>
   <Notes>  Felt good  </Notes>
  </Activity>
 </Activities>
</TrainingCenterDatabase>`

func TestTCXParseLapRollups(t *testing.T) {
	parsed, err := NewTCXParser().Parse([]byte(runTcx))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	summary := parsed.Summary

	if summary.Duration == nil || *summary.Duration != 1200 {
		t.Errorf("duration = %v, want 1200", summary.Duration)
	}
	if summary.Distance == nil || *summary.Distance != 3000 {
		t.Errorf("distance = %v, want 3000", summary.Distance)
	}
	if summary.Calories == nil || *summary.Calories != 200 {
		t.Errorf("calories = %v, want 200", summary.Calories)
	}
	// 1200s over 3km is 6.67 min/km.
	if summary.Pace == nil || *summary.Pace != 6.67 {
		t.Errorf("pace = %v, want 6.67", summary.Pace)
	}
	if summary.ActivityType == nil || *summary.ActivityType != "Running" {
		t.Errorf("activity type = %v, want Running", summary.ActivityType)
	}
	if summary.ActivityNotes == nil || *summary.ActivityNotes != "Felt good" {
		t.Errorf("notes = %v, want trimmed text", summary.ActivityNotes)
	}
	if parsed.StartTime == nil || !parsed.StartTime.Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("start time = %v", parsed.StartTime)
	}
}

func TestTCXParseSampleStats(t *testing.T) {
	parsed, err := NewTCXParser().Parse([]byte(runTcx))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	summary := parsed.Summary
	series := parsed.TimeSeries

	// The garbled heart rate value drops; three clean samples remain.
	if len(series.HeartRate) != 3 {
		t.Fatalf("heart rate samples = %d, want 3", len(series.HeartRate))
	}
	if summary.AvgHeartRate == nil || *summary.AvgHeartRate != 110 {
		t.Errorf("avg heart rate = %v, want 110", summary.AvgHeartRate)
	}
	if summary.MaxHeartRate == nil || *summary.MaxHeartRate != 120 {
		t.Errorf("max heart rate = %v, want 120", summary.MaxHeartRate)
	}
	if summary.MinHeartRate == nil || *summary.MinHeartRate != 100 {
		t.Errorf("min heart rate = %v, want 100", summary.MinHeartRate)
	}

	if len(series.Cadence) != 2 {
		t.Fatalf("cadence samples = %d, want 2", len(series.Cadence))
	}
	if summary.AvgCadence == nil || *summary.AvgCadence != 85 {
		t.Errorf("avg cadence = %v, want 85", summary.AvgCadence)
	}
	if summary.MaxCadence == nil || *summary.MaxCadence != 90 {
		t.Errorf("max cadence = %v, want 90", summary.MaxCadence)
	}

	if len(series.Power) != 2 {
		t.Fatalf("power samples = %d, want 2", len(series.Power))
	}
	if summary.AvgPower == nil || *summary.AvgPower != 250 {
		t.Errorf("avg power = %v, want 250", summary.AvgPower)
	}

	if summary.AvgAltitude == nil || *summary.AvgAltitude != 14.25 {
		t.Errorf("avg altitude = %v, want 14.25", summary.AvgAltitude)
	}
	if summary.MaxAltitude == nil || *summary.MaxAltitude != 20 {
		t.Errorf("max altitude = %v, want 20", summary.MaxAltitude)
	}
	if summary.MinAltitude == nil || *summary.MinAltitude != 10 {
		t.Errorf("min altitude = %v, want 10", summary.MinAltitude)
	}

	// GPS elevations 10, 15, 12, 20: climbs of 5 and 8.
	if summary.ElevationGain == nil || *summary.ElevationGain != 13 {
		t.Errorf("elevation gain = %v, want 13", summary.ElevationGain)
	}

	if len(series.Gps) != 4 {
		t.Errorf("gps points = %d, want 4", len(series.Gps))
	}
	if !summary.HasGps || !summary.HasHeartRate || !summary.HasCadence || !summary.HasPower || !summary.HasAltitude {
		t.Error("presence flags incomplete")
	}
}

func TestTCXParseNoActivity(t *testing.T) {
	doc := `<?xml version="1.0"?><TrainingCenterDatabase><Activities></Activities></TrainingCenterDatabase>`
	_, err := NewTCXParser().Parse([]byte(doc))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Format != FormatTCX {
		t.Fatalf("err = %v, want TCX parse error", err)
	}
}

func TestTCXParseMalformedXML(t *testing.T) {
	_, err := NewTCXParser().Parse([]byte("<TrainingCenterDatabase><Activities>"))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if !errors.Is(err, parseErr.Err) {
		t.Error("ParseError must unwrap to its cause")
	}
}
