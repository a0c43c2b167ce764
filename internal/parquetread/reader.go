// Package parquetread streams hospital charge rows out of price
// transparency Parquet files.
package parquetread

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/billcheck/internal/model"
)

// ErrNoRows is returned by First for a file without rows.
var ErrNoRows = errors.New("price file has no rows")

// ErrStop ends Each early without error.
var ErrStop = errors.New("stop reading")

// Reader wraps a parquet GenericReader for streaming HospitalChargeRow records.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[model.HospitalChargeRow]
}

// Open opens a Parquet file and returns a streaming Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := parquet.NewGenericReader[model.HospitalChargeRow](pf)
	return &Reader{file: f, reader: r}, nil
}

// NumRows returns the total number of rows in the Parquet file.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records into the provided slice.
// Returns the number of rows read and io.EOF when done.
func (r *Reader) Read(rows []model.HospitalChargeRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// First reads the first row, which carries the file-level hospital name,
// version and last_updated_on. Call it before any other read.
func (r *Reader) First() (*model.HospitalChargeRow, error) {
	rows := make([]model.HospitalChargeRow, 1)
	n, err := r.Read(rows)
	if n == 0 {
		if err == nil || err == io.EOF {
			err = ErrNoRows
		}
		return nil, err
	}
	return &rows[0], nil
}

// Each calls fn for every row in file order, stopping at the first error fn
// returns. Returning ErrStop ends the scan with a nil error. rowNum starts
// at 1. The row pointer is only valid during the call.
func (r *Reader) Each(batchSize int, fn func(rowNum int64, row *model.HospitalChargeRow) error) error {
	buf := make([]model.HospitalChargeRow, batchSize)
	var rowNum int64
	for {
		n, readErr := r.Read(buf)
		for i := 0; i < n; i++ {
			rowNum++
			if err := fn(rowNum, &buf[i]); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read parquet at row %d: %w", rowNum, readErr)
		}
	}
}

// Schema returns the Parquet schema for validation.
func (r *Reader) Schema() *parquet.Schema {
	return r.reader.Schema()
}

// Close releases all resources.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
