package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/schollz/progressbar/v3"

	"cohort-retention/internal/domain"
)

// Minimum field counts per row kind. Extra fields are ignored.
const (
	customerFields = 2 // customer_id, created_at
	orderFields    = 4 // order_id, customer_id, created_at, order_sequence
)

// ctxCheckEvery bounds how many rows are read between cancellation checks.
const ctxCheckEvery = 1024

// CSVOptions configures CSV sources.
type CSVOptions struct {
	// Progress receives a byte progress bar while the file is read. Nil disables it.
	Progress io.Writer
}

// CSVCustomerSource reads customers from a CSV file with a header row.
// Files ending in .zst are decompressed on the fly.
type CSVCustomerSource struct {
	path      string
	opts      CSVOptions
	malformed int
}

// NewCSVCustomerSource creates a customer source over path.
func NewCSVCustomerSource(path string, opts CSVOptions) *CSVCustomerSource {
	return &CSVCustomerSource{path: path, opts: opts}
}

// Name identifies the source in logs and metrics.
func (s *CSVCustomerSource) Name() string { return "csv:" + filepath.Base(s.path) }

// Malformed returns the number of rows dropped by the last read.
func (s *CSVCustomerSource) Malformed() int { return s.malformed }

// ReadCustomers calls fn for every row with at least two fields.
func (s *CSVCustomerSource) ReadCustomers(ctx context.Context, fn func(domain.CustomerRecord)) error {
	malformed, err := readCSV(ctx, s.path, s.opts, customerFields, func(row []string) {
		fn(domain.CustomerRecord{CustomerID: row[0], CreatedAt: row[1]})
	})
	s.malformed = malformed
	return err
}

// CSVOrderSource reads orders from a CSV file with a header row.
// Files ending in .zst are decompressed on the fly.
type CSVOrderSource struct {
	path      string
	opts      CSVOptions
	malformed int
}

// NewCSVOrderSource creates an order source over path.
func NewCSVOrderSource(path string, opts CSVOptions) *CSVOrderSource {
	return &CSVOrderSource{path: path, opts: opts}
}

// Name identifies the source in logs and metrics.
func (s *CSVOrderSource) Name() string { return "csv:" + filepath.Base(s.path) }

// Malformed returns the number of rows dropped by the last read.
func (s *CSVOrderSource) Malformed() int { return s.malformed }

// ReadOrders calls fn for every row with at least four fields.
func (s *CSVOrderSource) ReadOrders(ctx context.Context, fn func(domain.OrderRecord)) error {
	malformed, err := readCSV(ctx, s.path, s.opts, orderFields, func(row []string) {
		fn(domain.OrderRecord{OrderID: row[0], CustomerID: row[1], CreatedAt: row[2], Sequence: row[3]})
	})
	s.malformed = malformed
	return err
}

// readCSV streams rows after the header into fn, dropping rows shorter than
// minFields and rows the CSV reader rejects. Returns the number dropped.
func readCSV(ctx context.Context, path string, opts CSVOptions, minFields int, fn func([]string)) (int, error) {
	rc, err := openInput(path, opts)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	malformed := 0
	for line := 0; ; line++ {
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return malformed, err
			}
		}

		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return malformed, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				malformed++
				continue
			}
			return malformed, fmt.Errorf("read %s: %w", path, err)
		}

		if line == 0 {
			continue // header
		}
		if len(row) < minFields {
			malformed++
			continue
		}
		fn(row)
	}
}

// openInput opens path, wrapping it in a progress reader and a zstd decoder
// as configured.
func openInput(path string, opts CSVOptions) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var r io.Reader = f
	if opts.Progress != nil {
		size := int64(-1)
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription(filepath.Base(path)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(opts.Progress) }),
		)
		pr := progressbar.NewReader(f, bar)
		r = &pr
	}

	if !strings.HasSuffix(path, ".zst") {
		return &inputCloser{Reader: r, closers: []io.Closer{f}}, nil
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
	}
	return &inputCloser{Reader: dec, closers: []io.Closer{dec.IOReadCloser(), f}}, nil
}

// inputCloser closes every layer of a wrapped input, innermost last.
type inputCloser struct {
	io.Reader
	closers []io.Closer
}

func (c *inputCloser) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ CustomerSource   = (*CSVCustomerSource)(nil)
	_ OrderSource      = (*CSVOrderSource)(nil)
	_ malformedCounter = (*CSVCustomerSource)(nil)
	_ malformedCounter = (*CSVOrderSource)(nil)
)
