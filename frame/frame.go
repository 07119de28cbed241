// Package frame reconciles the differently shaped tabular results coming
// back from the market feeds into one canonical row schema before they
// are written to the store.
package frame

import "time"

// Frame is a column-oriented tabular result. Columns keep source order so
// alias resolution is deterministic; Index optionally carries the
// time-valued index some feeds return instead of a time column. A cell
// may itself be a slice when the source had a second column dimension.
type Frame struct {
	Index []time.Time
	Cols  []*Col

	// TimeSynthesized is set by Normalize when no recognized time column
	// existed and the processing time was substituted.
	TimeSynthesized bool
}

type Col struct {
	Name  string
	Cells []interface{}
}

func New() *Frame {
	return &Frame{}
}

func (f *Frame) Add(name string, cells []interface{}) *Frame {
	f.Cols = append(f.Cols, &Col{Name: name, Cells: cells})
	return f
}

func (f *Frame) Col(name string) *Col {
	for _, c := range f.Cols {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NumRows is the length of the longest column, or of the index when no
// columns exist yet.
func (f *Frame) NumRows() int {
	num := len(f.Index)
	for _, c := range f.Cols {
		if len(c.Cells) > num {
			num = len(c.Cells)
		}
	}
	return num
}

func (f *Frame) Empty() bool {
	return f == nil || f.NumRows() == 0
}

// Cell returns the i-th value of a column, nil when out of range.
func (c *Col) Cell(i int) interface{} {
	if c == nil || i < 0 || i >= len(c.Cells) {
		return nil
	}
	return c.Cells[i]
}

// Bar is the canonical row moved through the pipeline and written to the
// store. It is created fresh per fetch cycle and never mutated after
// being handed to the sink.
type Bar struct {
	Code   string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}
