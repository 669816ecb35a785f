package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"reflect"
	"testing"
)

const miniGpx = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <trk>
    <trkseg>
      <trkpt lat="47.6062" lon="-122.3321">
        <ele>56.0</ele>
        <time>2024-03-10T09:00:00Z</time>
      </trkpt>
      <trkpt lat="47.6072" lon="-122.3321">
        <ele>58.0</ele>
        <time>2024-03-10T09:00:10Z</time>
      </trkpt>
    </trkseg>
  </trk>
</gpx>`

func zipArchive(t *testing.T, entries map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestParseActivityFileUnsupportedExtension(t *testing.T) {
	_, err := ParseActivityFile("workout.csv", []byte("a,b,c"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseActivityFileExtensionCaseFolding(t *testing.T) {
	parsed, err := ParseActivityFile("RIDE.GPX", []byte(miniGpx))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Summary.HasGps {
		t.Error("expected has_gps")
	}
}

func TestParseActivityFileCorruptZip(t *testing.T) {
	_, err := ParseActivityFile("export.zip", []byte("definitely not a zip"))
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("err = %v, want ErrCorruptArchive", err)
	}
}

func TestParseActivityFileZipWithoutActivityFile(t *testing.T) {
	archive := zipArchive(t, map[string]string{"metadata.json": "{}"}, []string{"metadata.json"})
	_, err := ParseActivityFile("export.zip", archive)
	if !errors.Is(err, ErrNoActivityFile) {
		t.Fatalf("err = %v, want ErrNoActivityFile", err)
	}
}

func TestParseActivityFileZipUnwrapsFirstMatch(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"readme.txt":   "hello",
		"activity.gpx": miniGpx,
	}, []string{"readme.txt", "activity.gpx"})

	parsed, err := ParseActivityFile("export.zip", archive)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.TimeSeries.Gps) != 2 {
		t.Errorf("gps points = %d, want 2", len(parsed.TimeSeries.Gps))
	}
}

func TestParseActivityFileZipListingOrderWins(t *testing.T) {
	// A corrupt entry listed first must win over a valid one listed later.
	archive := zipArchive(t, map[string]string{
		"broken.tcx": "<not-tcx/>",
		"good.gpx":   miniGpx,
	}, []string{"broken.tcx", "good.gpx"})

	_, err := ParseActivityFile("export.zip", archive)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Format != FormatTCX {
		t.Fatalf("err = %v, want TCX parse error", err)
	}
}

func TestParseActivityFileIdempotent(t *testing.T) {
	first, err := ParseActivityFile("ride.gpx", []byte(miniGpx))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	second, err := ParseActivityFile("ride.gpx", []byte(miniGpx))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("parsing the same bytes twice produced different results")
	}
}
