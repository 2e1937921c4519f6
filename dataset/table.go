package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/examscore/core/model"
	"github.com/YuminosukeSato/examscore/pkg/errors"
)

// Table is a CSV file held as strings, exactly as read.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Take returns a table holding rows idx, in that order. Rows are shared.
func (t *Table) Take(idx []int) *Table {
	out := &Table{Header: t.Header, Rows: make([][]string, len(idx))}
	for i, r := range idx {
		out.Rows[i] = t.Rows[r]
	}
	return out
}

// ReadCSV reads a header row followed by data rows. Every row must have as
// many fields as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Header: header}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv row")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadCSVFile reads path with ReadCSV. Failures are IngestionErrors.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIngestionError(errors.PhaseIngestion, path, err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, errors.NewIngestionError(errors.PhaseIngestion, path, err)
	}
	return t, nil
}

// WriteCSV writes the header and every row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "write csv rows")
	}
	return nil
}

// WriteCSVFile atomically replaces path with the table. Failures are
// IngestionErrors.
func WriteCSVFile(path string, t *Table) error {
	err := model.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, t)
	})
	if err != nil {
		return errors.NewIngestionError(errors.PhaseIngestion, path, err)
	}
	return nil
}

// ToFrame converts the columns named by cols into a Frame, parsing the
// schema's numeric columns as float64. Missing markers become NaN or "".
func (t *Table) ToFrame(s Schema, cols []string) (*Frame, error) {
	if err := s.ValidateHeader(t.Header, cols); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	f := NewFrame()
	for _, name := range cols {
		j := index[name]
		if s.IsNumeric(name) {
			col := make([]float64, len(t.Rows))
			for i, row := range t.Rows {
				cell := row[j]
				if IsMissing(cell) {
					col[i] = math.NaN()
					continue
				}
				v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
				if err != nil {
					return nil, errors.NewValidationError(name,
						fmt.Sprintf("row %d is not a number", i+1), cell)
				}
				col[i] = v
			}
			if err := f.AddNumeric(name, col); err != nil {
				return nil, err
			}
			continue
		}

		col := make([]string, len(t.Rows))
		for i, row := range t.Rows {
			if !IsMissing(row[j]) {
				col[i] = strings.TrimSpace(row[j])
			}
		}
		if err := f.AddCategorical(name, col); err != nil {
			return nil, err
		}
	}
	if len(cols) == 0 {
		f.rows = len(t.Rows)
	}
	return f, nil
}

// LoadFrame reads a CSV file and converts every schema column, target
// included, into a Frame.
func LoadFrame(path string, s Schema) (*Frame, error) {
	t, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	f, err := t.ToFrame(s, s.Columns())
	if err != nil {
		return nil, errors.NewIngestionError(errors.PhaseTransform, path, err)
	}
	return f, nil
}
