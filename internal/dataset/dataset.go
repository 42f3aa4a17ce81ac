package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat indicates a source could not be turned into a rectangular dataset.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrEmptyDataset is returned when a caller requires rows and the dataset has none.
var ErrEmptyDataset = errors.New("empty dataset")

// Kind is the semantic type attached to a column at build time.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// Cell is one value of a column. Num is only meaningful for non-null cells of numeric columns.
type Cell struct {
	Text string
	Num  float64
	Null bool
}

// Column is a named, homogeneously typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Dataset is an in-memory rectangular table loaded from an external source.
type Dataset struct {
	Name    string
	Format  string
	Columns []*Column
	// Notes carries loader remarks such as row limits; they end up in the report.
	Notes []string
}

// NumRows returns the row count derived from the first column.
func (d *Dataset) NumRows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Cells)
}

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Row returns the raw text of row i, with null cells as empty strings.
func (d *Dataset) Row(i int) []string {
	out := make([]string, len(d.Columns))
	for j, c := range d.Columns {
		if !c.Cells[i].Null {
			out[j] = c.Cells[i].Text
		}
	}
	return out
}

// Rows returns every row in order; see Row.
func (d *Dataset) Rows() [][]string {
	out := make([][]string, d.NumRows())
	for i := range out {
		out[i] = d.Row(i)
	}
	return out
}

// RowKey returns a string that is equal for two rows iff every cell is equal.
// Null cells compare equal to each other; numeric cells compare by value.
func (d *Dataset) RowKey(i int) string {
	var b strings.Builder
	for _, c := range d.Columns {
		// each cell is "-" when null, else "<len>:<key>"
		if c.Cells[i].Null {
			b.WriteByte('-')
			continue
		}
		k := c.Key(i)
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}

// Key returns the comparison key of cell i.
func (c *Column) Key(i int) string {
	cell := c.Cells[i]
	switch {
	case cell.Null:
		return "\x00"
	case c.Kind == Numeric:
		return strconv.FormatFloat(cell.Num, 'g', -1, 64)
	default:
		return cell.Text
	}
}

// Build creates a dataset from a header and string rows, inferring each column's kind.
func Build(name string, header []string, rows [][]string, opt ParseOptions) (*Dataset, error) {
	return BuildTyped(name, header, nil, rows, opt)
}

// BuildTyped is Build with optional declared kinds; an empty entry falls back to inference.
func BuildTyped(name string, header []string, declared []Kind, rows [][]string, opt ParseOptions) (*Dataset, error) {
	ncol := len(header)
	names := make([]string, ncol)
	seen := make(map[string]struct{}, ncol)
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrUnsupportedFormat, n)
		}
		seen[n] = struct{}{}
		names[i] = n
	}
	if ncol == 0 && len(rows) > 0 {
		return nil, fmt.Errorf("%w: rows without a header", ErrUnsupportedFormat)
	}

	raw := make([][]string, ncol)
	for j := range raw {
		raw[j] = make([]string, len(rows))
	}
	for i, row := range rows {
		if len(row) > ncol {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrUnsupportedFormat, i+1, len(row), ncol)
		}
		// short rows are padded with missing cells
		for j, v := range row {
			raw[j][i] = v
		}
	}

	ds := &Dataset{Name: name, Columns: make([]*Column, ncol)}
	for j := range names {
		var kind Kind
		if j < len(declared) {
			kind = declared[j]
		}
		ds.Columns[j] = newColumn(names[j], kind, raw[j], opt)
	}
	return ds, nil
}

func newColumn(name string, kind Kind, values []string, opt ParseOptions) *Column {
	if kind != Numeric && kind != Categorical {
		kind = Classify(values, opt)
	}
	col := &Column{Name: name, Kind: kind, Cells: make([]Cell, len(values))}
	for i, v := range values {
		text := strings.TrimSpace(v)
		if IsNull(text, opt.NullTokens) {
			col.Cells[i] = Cell{Null: true}
			continue
		}
		cell := Cell{Text: text}
		if kind == Numeric {
			x, ok := ParseNumber(text, opt)
			if !ok {
				// a declared numeric column with an unparseable value loses that value
				col.Cells[i] = Cell{Null: true}
				continue
			}
			cell.Num = x
		}
		col.Cells[i] = cell
	}
	return col
}

// Classify returns Numeric iff there is at least one non-missing value and every
// non-missing value parses as a finite number. All-missing columns are Categorical.
func Classify(values []string, opt ParseOptions) Kind {
	seen := false
	for _, v := range values {
		text := strings.TrimSpace(v)
		if IsNull(text, opt.NullTokens) {
			continue
		}
		if _, ok := ParseNumber(text, opt); !ok {
			return Categorical
		}
		seen = true
	}
	if !seen {
		return Categorical
	}
	return Numeric
}
