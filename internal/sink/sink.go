// Package sink persists crawl records as a flat CSV file.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-scripts/newsharvest/internal/crawl"
)

// Mode selects what happens when the destination already exists. The choice
// is always explicit; there is no implicit default at this layer.
type Mode int

const (
	Overwrite Mode = iota
	Append
)

var header = []string{"url", "published_at", "title", "body"}

// WriteCSV serializes records to path with the fixed column order
// {url, published_at, title, body}. Bodies keep their embedded newlines via
// csv quoting, so each record is one logical row. The header is written when
// the file is created or truncated, never into the middle of an appended
// file.
func WriteCSV(records []crawl.Record, path string, mode Mode) error {
	flags := os.O_CREATE | os.O_WRONLY
	writeHeader := true
	if mode == Append {
		flags |= os.O_APPEND
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			writeHeader = false
		}
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, rec := range records {
		if err := w.Write(row(rec)); err != nil {
			f.Close()
			return fmt.Errorf("write record %s: %w", rec.URL, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// ReadCSV reads records back under the same column contract.
func ReadCSV(path string) ([]crawl.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	var records []crawl.Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if first {
			first = false
			if row[0] == header[0] {
				continue
			}
		}
		rec := crawl.Record{URL: row[0], Title: row[2], Body: row[3]}
		if row[1] != "" {
			t, err := time.Parse(time.RFC3339, row[1])
			if err != nil {
				return nil, fmt.Errorf("record %s: bad published_at %q", row[0], row[1])
			}
			rec.PublishedAt = t
		}
		records = append(records, rec)
	}
	return records, nil
}

func row(rec crawl.Record) []string {
	published := ""
	if !rec.PublishedAt.IsZero() {
		published = rec.PublishedAt.Format(time.RFC3339)
	}
	return []string{rec.URL, published, rec.Title, rec.Body}
}
