// Package ingest wires the parsing core to persistence: it turns an uploaded
// activity file into a stored summary plus batched time-series documents.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ameet2r/workout/internal/database"
	"github.com/ameet2r/workout/internal/parser"
	"github.com/ameet2r/workout/internal/timeseries"
)

type Service struct {
	db *database.SQLiteDB
}

func NewService(db *database.SQLiteDB) *Service {
	return &Service{db: db}
}

// IngestActivity parses an uploaded activity file and persists the result
// against a workout session: the summary inline on the session row, the
// per-metric series as batch documents keyed "{metric}_{seq}".
func (s *Service) IngestActivity(ctx context.Context, sessionID, filename string, content []byte) (*parser.ParsedActivity, error) {
	started := time.Now()

	parsed, err := parser.ParseActivityFile(filename, content)
	if err != nil {
		return nil, err
	}

	if err := s.db.AttachActivity(sessionID, &parsed.Summary, parsed.StartTime); err != nil {
		return nil, fmt.Errorf("persist summary: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batches := timeseries.BatchAll(parsed.TimeSeries)
	if err := s.db.WriteBatches(ctx, sessionID, batches); err != nil {
		return nil, fmt.Errorf("persist time series: %w", err)
	}

	log.Printf("Ingested %s for session %s: %d batches in %s", filename, sessionID, len(batches), time.Since(started))
	return parsed, nil
}

// ReadSeries reconstructs one metric's full series for a session.
func (s *Service) ReadSeries(ctx context.Context, sessionID, metric string) ([]timeseries.Point, error) {
	reader := timeseries.NewRangeReader(s.db)
	return reader.Read(ctx, sessionID, metric)
}
