// Package reader feeds OSM files into a graph.Builder.
package reader

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/omniscale/osm3d/graph"
)

type Format int

const (
	XML Format = iota
	XMLGzip
	PBF
)

func (f Format) String() string {
	switch f {
	case XMLGzip:
		return "osm.gz"
	case PBF:
		return "pbf"
	}
	return "osm"
}

// FormatOf returns the input format for filename, based on its extension.
// Unknown extensions are read as OSM XML.
func FormatOf(filename string) Format {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".pbf"):
		return PBF
	case strings.HasSuffix(name, ".gz"):
		return XMLGzip
	}
	return XML
}

// Read streams r in format f into b.
func Read(ctx context.Context, r io.Reader, f Format, b *graph.Builder) error {
	switch f {
	case PBF:
		return ReadPbf(ctx, r, b)
	case XMLGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return errors.Wrap(err, "opening gzip stream")
		}
		defer gz.Close()
		return ReadXML(ctx, gz, b)
	}
	return ReadXML(ctx, r, b)
}

// Open reads filename into b.
func Open(ctx context.Context, filename string, b *graph.Builder) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Read(ctx, f, FormatOf(filename), b); err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}
	return nil
}
