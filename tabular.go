package garage

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/unixpickle/essentials"
)

// A TabularLog writes one CSV row per epoch.
//
// The columns are fixed by the first row.
type TabularLog struct {
	file    *os.File
	writer  *csv.Writer
	columns []string
}

// CreateTabularLog opens a CSV file for appending,
// creating it if it does not exist.
//
// If the file already has a header, new rows must use the
// same columns.
func CreateTabularLog(path string) (*TabularLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	header, err := csv.NewReader(f).Read()
	if err != nil && err != io.EOF {
		f.Close()
		return nil, essentials.AddCtx("read tabular header", err)
	}
	return &TabularLog{file: f, writer: csv.NewWriter(f), columns: header}, nil
}

// Record writes a row and flushes it to disk.
func (t *TabularLog) Record(row TrainStats) error {
	if t.columns == nil {
		for _, stat := range row {
			t.columns = append(t.columns, stat.Name)
		}
		if err := t.writer.Write(t.columns); err != nil {
			return err
		}
	} else if len(row) != len(t.columns) {
		return errors.New("record tabular row: column count changed")
	}
	record := make([]string, len(row))
	for i, stat := range row {
		if stat.Name != t.columns[i] {
			return errors.New("record tabular row: unexpected column " + stat.Name)
		}
		record[i] = strconv.FormatFloat(stat.Value, 'g', -1, 64)
	}
	if err := t.writer.Write(record); err != nil {
		return err
	}
	t.writer.Flush()
	return t.writer.Error()
}

// Close closes the underlying file.
func (t *TabularLog) Close() error {
	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		t.file.Close()
		return err
	}
	return t.file.Close()
}
