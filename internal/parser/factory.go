package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// parserForExtension returns the extractor for a recognized activity-file
// extension, or nil. The fit, tcx, gpx check order is load-bearing for the
// archive scan below.
func parserForExtension(name string) ActivityParser {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".fit"):
		return NewFITParser()
	case strings.HasSuffix(lower, ".tcx"):
		return NewTCXParser()
	case strings.HasSuffix(lower, ".gpx"):
		return NewGPXParser()
	}
	return nil
}

// ParseActivityFile routes uploaded content to the extractor for its file
// extension. Zip archives are unwrapped transparently. This is the single
// entry point callers use; it holds no state and is safe to call concurrently.
func ParseActivityFile(filename string, content []byte) (*ParsedActivity, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".zip" {
		return parseArchive(content)
	}

	p := parserForExtension(filename)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	return p.Parse(content)
}

// parseArchive scans zip entries in listing order and parses the first one
// with a recognized activity extension.
func parseArchive(content []byte) (*ParsedActivity, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	for _, entry := range zr.File {
		p := parserForExtension(entry.Name)
		if p == nil {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}

		return p.Parse(data)
	}

	return nil, ErrNoActivityFile
}
