package fetch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/frame"

	"github.com/sasha-s/go-deadlock"
)

// Code-list snapshots: one CSV per market, written after every
// successful fetch and read back as the last-resort fallback when the
// feed stays down past the retry budget.

var snapLock = deadlock.Mutex{}

func SnapshotPath(name string) string {
	return filepath.Join(core.DataDir, name)
}

// SaveSnapshot writes a frame as CSV, header row first. Cells are
// stringified with %v; snapshots only ever hold code-list text columns.
func SaveSnapshot(f *frame.Frame, path string) *errs.Error {
	snapLock.Lock()
	defer snapLock.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errs.New(core.ErrIOWriteFail, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return errs.New(core.ErrIOWriteFail, err)
	}
	defer file.Close()
	w := csv.NewWriter(file)
	header := make([]string, len(f.Cols))
	for i, c := range f.Cols {
		header[i] = c.Name
	}
	if err = w.Write(header); err != nil {
		return errs.New(core.ErrIOWriteFail, err)
	}
	numRows := f.NumRows()
	rec := make([]string, len(f.Cols))
	for i := 0; i < numRows; i++ {
		for j, c := range f.Cols {
			v := c.Cell(i)
			if v == nil {
				rec[j] = ""
			} else {
				rec[j] = fmt.Sprintf("%v", v)
			}
		}
		if err = w.Write(rec); err != nil {
			return errs.New(core.ErrIOWriteFail, err)
		}
	}
	w.Flush()
	return errs.New(core.ErrIOWriteFail, w.Error())
}

// LoadSnapshot reads a snapshot CSV back into a frame with the header
// names as columns.
func LoadSnapshot(path string) (*frame.Frame, *errs.Error) {
	snapLock.Lock()
	defer snapLock.Unlock()
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.New(core.ErrIOReadFail, err)
	}
	defer file.Close()
	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, errs.New(core.ErrIOReadFail, err)
	}
	if len(records) < 2 {
		return nil, errs.NewMsg(core.ErrEmptyResult, "snapshot %s has no data rows", path)
	}
	header := records[0]
	cols := make([][]interface{}, len(header))
	for _, rec := range records[1:] {
		for j := range header {
			if j < len(rec) {
				cols[j] = append(cols[j], rec[j])
			} else {
				cols[j] = append(cols[j], "")
			}
		}
	}
	f := frame.New()
	for j, name := range header {
		f.Add(name, cols[j])
	}
	return f, nil
}
