package timeseries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ameet2r/workout/internal/parser"
)

// ErrInvalidMetricType is returned when a range read names an unrecognized metric.
var ErrInvalidMetricType = errors.New("invalid metric type")

// Point is one decoded sample from a stored batch. Value is set for
// single-valued metrics; latitude/longitude (and optional elevation) for GPS.
type Point struct {
	Timestamp string   `json:"timestamp"`
	Value     *float64 `json:"value,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
}

// StoredBatch is a batch as returned by the backing store.
type StoredBatch struct {
	Key  string
	Data []byte
}

// BatchStore is the storage collaborator contract: prefix-range lookup of
// batch documents under one session.
type BatchStore interface {
	BatchesByPrefix(ctx context.Context, sessionID, prefix string) ([]StoredBatch, error)
}

// RangeReader reconstitutes a metric's full ordered series from its stored batches.
type RangeReader struct {
	store BatchStore
}

func NewRangeReader(store BatchStore) *RangeReader {
	return &RangeReader{store: store}
}

// Read returns the full point series for one metric of a session, in original
// order. The store may return batches in any order; they are reassembled by
// the numeric sequence suffix of each key, never by retrieval order.
func (r *RangeReader) Read(ctx context.Context, sessionID, metric string) ([]Point, error) {
	if !parser.ValidMetric(metric) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMetricType, metric)
	}

	batches, err := r.store.BatchesByPrefix(ctx, sessionID, metric+"_")
	if err != nil {
		return nil, fmt.Errorf("fetch %s batches: %w", metric, err)
	}

	type ordered struct {
		seq  int
		data []byte
	}
	chunks := make([]ordered, 0, len(batches))
	for _, b := range batches {
		seq, err := batchSeq(b.Key)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, ordered{seq: seq, data: b.Data})
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })

	points := []Point{}
	for _, c := range chunks {
		var chunk []Point
		if err := json.Unmarshal(c.data, &chunk); err != nil {
			return nil, fmt.Errorf("decode %s batch %d: %w", metric, c.seq, err)
		}
		points = append(points, chunk...)
	}
	return points, nil
}

// batchSeq extracts the zero-based sequence index from a "{metric}_{seq}" key.
func batchSeq(key string) (int, error) {
	i := strings.LastIndexByte(key, '_')
	if i < 0 || i == len(key)-1 {
		return 0, fmt.Errorf("malformed batch key %q", key)
	}
	seq, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed batch key %q: %w", key, err)
	}
	return seq, nil
}
