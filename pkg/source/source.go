// Package source reads occurrence rows from delimited text files.
//
// A location is either a local path or an s3://bucket/key URL. The first line
// is the header; every following line becomes a model.RawRow keyed by header
// name.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Zerofisher/marinedb/pkg/model"
)

// Options configures how a source is opened and decoded.
type Options struct {
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune

	// Encoding of the file: utf-8 (default), latin1, windows-1252 or utf-16.
	Encoding string

	// S3 configures s3:// locations.
	S3 S3Config

	// HTTPClient overrides the S3 transport.
	HTTPClient *http.Client
}

// Reader yields the rows of one source in order.
type Reader struct {
	name   string
	closer io.Closer
	csv    *csv.Reader
	header []string
	rows   int
}

// Open opens a local file or S3 object and reads its header.
func Open(ctx context.Context, location string, opts Options) (*Reader, error) {
	var rc io.ReadCloser
	if bucket, key, ok := parseS3URL(location); ok {
		body, err := openS3(ctx, bucket, key, opts)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		rc = body
	} else {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		rc = f
	}

	r, err := newReader(location, rc, opts)
	if err != nil {
		rc.Close()
		return nil, err
	}
	r.closer = rc
	return r, nil
}

// NewReader reads rows from r. The caller keeps ownership of r.
func NewReader(name string, r io.Reader, opts Options) (*Reader, error) {
	return newReader(name, r, opts)
}

func newReader(name string, r io.Reader, opts Options) (*Reader, error) {
	dec, err := Decoder(opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.Comma = ','
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	// Short rows leave trailing columns absent.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header of %s: empty source", name)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", name, err)
	}

	return &Reader{
		name:   name,
		csv:    cr,
		header: cleanHeader(header),
	}, nil
}

// cleanHeader trims whitespace and a leftover byte-order mark from each name.
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		out[i] = norm.NFC.String(strings.TrimSpace(h))
	}
	return out
}

// Name returns the location the reader was opened on.
func (r *Reader) Name() string {
	return r.name
}

// Header returns the cleaned column names.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next row, or io.EOF after the last one. A malformed line
// is returned as an error; the reader cannot continue past it.
func (r *Reader) Next() (model.RawRow, error) {
	rec, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read %s row %d: %w", r.name, r.rows, err)
	}

	row := make(model.RawRow, len(r.header))
	for i, v := range rec {
		if i >= len(r.header) {
			break
		}
		col := r.header[i]
		if _, dup := row[col]; dup {
			continue
		}
		row[col] = v
	}
	r.rows++
	return row, nil
}

// Close releases the underlying file or object body.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
