package timeseries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ameet2r/workout/internal/parser"
)

// fakeStore serves batches for one session, in whatever order the map yields.
type fakeStore struct {
	batches map[string][]byte
	err     error
}

func (f *fakeStore) BatchesByPrefix(_ context.Context, _, prefix string) ([]StoredBatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []StoredBatch
	for key, data := range f.batches {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, StoredBatch{Key: key, Data: data})
		}
	}
	return out, nil
}

func storeFrom(batches []Batch) *fakeStore {
	f := &fakeStore{batches: map[string][]byte{}}
	for _, b := range batches {
		f.batches[b.Key()] = b.Data
	}
	return f
}

func TestRangeReaderRoundTrip(t *testing.T) {
	points := makeSeries(310)
	store := storeFrom(BatchPoints(parser.MetricHeartRate, points))

	got, err := NewRangeReader(store).Read(context.Background(), "s1", parser.MetricHeartRate)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(points) {
		t.Fatalf("points = %d, want %d", len(got), len(points))
	}
	// Map iteration randomizes retrieval order, so this also exercises the
	// reassembly sort.
	for i, p := range got {
		if p.Value == nil || *p.Value != points[i].Value {
			t.Fatalf("point %d value = %v, want %v", i, p.Value, points[i].Value)
		}
		if p.Timestamp != points[i].Timestamp.Format(time.RFC3339) {
			t.Fatalf("point %d timestamp = %q", i, p.Timestamp)
		}
	}
}

func TestRangeReaderGpsPoints(t *testing.T) {
	elev := 95.0
	ts := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	store := storeFrom(BatchGpsPoints([]parser.GpsPoint{
		{Timestamp: ts, Latitude: 47.0, Longitude: 8.0, Elevation: &elev},
		{Timestamp: ts.Add(time.Second), Latitude: 47.001, Longitude: 8.0},
	}))

	got, err := NewRangeReader(store).Read(context.Background(), "s1", parser.MetricGps)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("points = %d, want 2", len(got))
	}
	if got[0].Latitude == nil || *got[0].Latitude != 47.0 {
		t.Errorf("latitude = %v, want 47.0", got[0].Latitude)
	}
	if got[0].Elevation == nil || *got[0].Elevation != 95.0 {
		t.Errorf("elevation = %v, want 95.0", got[0].Elevation)
	}
	if got[1].Elevation != nil {
		t.Errorf("elevation[1] = %v, want nil", *got[1].Elevation)
	}
	if got[0].Value != nil {
		t.Error("gps point must not carry a scalar value")
	}
}

func TestRangeReaderInvalidMetric(t *testing.T) {
	store := &fakeStore{batches: map[string][]byte{}}
	_, err := NewRangeReader(store).Read(context.Background(), "s1", "heartrate")
	if !errors.Is(err, ErrInvalidMetricType) {
		t.Fatalf("err = %v, want ErrInvalidMetricType", err)
	}
}

func TestRangeReaderEmptySeries(t *testing.T) {
	store := &fakeStore{batches: map[string][]byte{}}
	got, err := NewRangeReader(store).Read(context.Background(), "s1", parser.MetricPower)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("points = %v, want empty non-nil slice", got)
	}
}

func TestRangeReaderMalformedKey(t *testing.T) {
	store := &fakeStore{batches: map[string][]byte{
		"power_notanumber": []byte(`[]`),
	}}
	_, err := NewRangeReader(store).Read(context.Background(), "s1", parser.MetricPower)
	if err == nil {
		t.Fatal("expected error for malformed batch key")
	}
}

func TestRangeReaderStoreError(t *testing.T) {
	boom := errors.New("store down")
	_, err := NewRangeReader(&fakeStore{err: boom}).Read(context.Background(), "s1", parser.MetricPower)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}
