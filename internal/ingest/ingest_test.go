package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ameet2r/workout/internal/database"
	"github.com/ameet2r/workout/internal/models"
	"github.com/ameet2r/workout/internal/parser"

	_ "github.com/mattn/go-sqlite3"
)

const hikeGpx = `<?xml version="1.0"?><gpx version="1.1" creator="test"><trk><trkseg>
<trkpt lat="47.000" lon="8.0"><ele>100.0</ele><time>2024-03-10T09:00:00Z</time></trkpt>
<trkpt lat="47.001" lon="8.0"><ele>112.0</ele><time>2024-03-10T09:00:10Z</time></trkpt>
<trkpt lat="47.002" lon="8.0"><ele>125.0</ele><time>2024-03-10T09:00:20Z</time></trkpt>
</trkseg></trk></gpx>`

func newTestService(t *testing.T) (*Service, *database.SQLiteDB) {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db), db
}

func TestIngestActivity(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	session := models.NewWorkoutSession()
	require.NoError(t, db.CreateSession(session))

	parsed, err := service.IngestActivity(ctx, session.ID.String(), "hike.gpx", []byte(hikeGpx))
	require.NoError(t, err)
	assert.True(t, parsed.Summary.HasGps)
	require.NotNil(t, parsed.Summary.ElevationGain)
	assert.Equal(t, 25.0, *parsed.Summary.ElevationGain)

	// Summary stored on the session.
	stored, err := db.GetSession(session.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.ActivitySummary)
	assert.True(t, stored.ActivitySummary.HasGps)
	require.NotNil(t, stored.ActivityStart)

	// Series readable back through the service.
	gps, err := service.ReadSeries(ctx, session.ID.String(), parser.MetricGps)
	require.NoError(t, err)
	assert.Len(t, gps, 3)

	altitude, err := service.ReadSeries(ctx, session.ID.String(), parser.MetricAltitude)
	require.NoError(t, err)
	assert.Len(t, altitude, 3)
}

func TestIngestActivityUnsupportedFile(t *testing.T) {
	service, db := newTestService(t)

	session := models.NewWorkoutSession()
	require.NoError(t, db.CreateSession(session))

	_, err := service.IngestActivity(context.Background(), session.ID.String(), "notes.txt", []byte("hi"))
	assert.ErrorIs(t, err, parser.ErrUnsupportedFormat)

	// A failed parse must leave the session untouched.
	stored, err := db.GetSession(session.ID.String())
	require.NoError(t, err)
	assert.Nil(t, stored.ActivitySummary)
}

func TestIngestActivityUnknownSession(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.IngestActivity(context.Background(), "missing", "hike.gpx", []byte(hikeGpx))
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestReadSeriesInvalidMetric(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.ReadSeries(context.Background(), "s1", "steps")
	assert.Error(t, err)
}
