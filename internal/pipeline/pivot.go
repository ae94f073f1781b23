package pipeline

import (
	"fmt"
	"slices"
)

// Cell is one row of a long-format table.
type Cell[R, C comparable] struct {
	Row   R   `json:"row"`
	Col   C   `json:"col"`
	Value int `json:"value"`
}

// AmbiguousPivotError reports a (row, col) pair present more than once in
// the pivot input. Callers aggregate with GroupSum before pivoting.
type AmbiguousPivotError struct {
	Row any
	Col any
}

func (e *AmbiguousPivotError) Error() string {
	return fmt.Sprintf("pivot: duplicate cell (row %v, col %v); aggregate before pivoting", e.Row, e.Col)
}

// Wide is a sparse wide-format table. Absent cells mean "no data", not zero.
type Wide[R, C comparable] struct {
	Rows   []R
	Cols   []C
	values map[R]map[C]int
}

// Pivot reshapes cells into one row per distinct row key and one column per
// distinct column key, both ordered by their compare functions.
func Pivot[R, C comparable](cells []Cell[R, C], compareRow func(a, b R) int, compareCol func(a, b C) int) (*Wide[R, C], error) {
	w := &Wide[R, C]{values: make(map[R]map[C]int)}
	cols := make(map[C]struct{})

	for _, cell := range cells {
		row, ok := w.values[cell.Row]
		if !ok {
			row = make(map[C]int)
			w.values[cell.Row] = row
			w.Rows = append(w.Rows, cell.Row)
		}
		if _, dup := row[cell.Col]; dup {
			return nil, &AmbiguousPivotError{Row: cell.Row, Col: cell.Col}
		}
		row[cell.Col] = cell.Value
		if _, ok := cols[cell.Col]; !ok {
			cols[cell.Col] = struct{}{}
			w.Cols = append(w.Cols, cell.Col)
		}
	}

	slices.SortFunc(w.Rows, compareRow)
	slices.SortFunc(w.Cols, compareCol)
	return w, nil
}

// Get returns the cell at (r, c) and whether it is present.
func (w *Wide[R, C]) Get(r R, c C) (int, bool) {
	v, ok := w.values[r][c]
	return v, ok
}

// Column returns the values of column c aligned with Rows; absent cells are nil.
func (w *Wide[R, C]) Column(c C) []*int {
	out := make([]*int, len(w.Rows))
	for i, r := range w.Rows {
		if v, ok := w.values[r][c]; ok {
			out[i] = &v
		}
	}
	return out
}

// Melt turns the table back into long format, row-major, skipping absent cells.
func (w *Wide[R, C]) Melt() []Cell[R, C] {
	var out []Cell[R, C]
	for _, r := range w.Rows {
		for _, c := range w.Cols {
			if v, ok := w.values[r][c]; ok {
				out = append(out, Cell[R, C]{Row: r, Col: c, Value: v})
			}
		}
	}
	return out
}

// Len returns the number of present cells.
func (w *Wide[R, C]) Len() int {
	n := 0
	for _, row := range w.values {
		n += len(row)
	}
	return n
}
