package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		opt  ParseOptions
		want float64
		ok   bool
	}{
		{"42", ParseOptions{}, 42, true},
		{" -3.5 ", ParseOptions{}, -3.5, true},
		{"12.5%", ParseOptions{}, 12.5, true},
		{"0,5", ParseOptions{}, 0.5, true},
		{"1.000,5", ParseOptions{}, 1000.5, true},
		{"1,234,567.25", ParseOptions{}, 1234567.25, true},
		{"1,234", ParseOptions{}, 1234, true},
		{"1 000", ParseOptions{}, 1000, true},
		{"3e-4", ParseOptions{}, 3e-4, true},
		{"1.100,0", ParseOptions{DecimalSeparator: ',', ThousandsSeparator: '.'}, 1100, true},
		{"1,5", ParseOptions{DecimalSeparator: '.'}, 0, false},
		{"2024-08-10", ParseOptions{}, 0, false},
		{"eng", ParseOptions{}, 0, false},
		{"Infinity", ParseOptions{}, 0, false},
		{"12,34,5", ParseOptions{}, 0, false},
		{"", ParseOptions{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in, tt.opt)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestIsNull(t *testing.T) {
	for _, s := range []string{"", "NA", "N/A", "NaN", "nan", "null", "None", "#N/A"} {
		assert.True(t, IsNull(s, nil), s)
	}
	assert.False(t, IsNull("0", nil))
	assert.False(t, IsNull("none", nil))
	assert.True(t, IsNull("missing", []string{"missing"}))
	assert.False(t, IsNull("NA", []string{"missing"}))
}

func TestClassify(t *testing.T) {
	opt := ParseOptions{}
	assert.Equal(t, Numeric, Classify([]string{"1", "2.5", "", "NaN"}, opt))
	assert.Equal(t, Categorical, Classify([]string{"1", "x"}, opt))
	assert.Equal(t, Categorical, Classify([]string{"", "NA"}, opt))
	assert.Equal(t, Categorical, Classify(nil, opt))
	assert.Equal(t, Categorical, Classify([]string{"true", "false"}, opt))
}

func TestBuild(t *testing.T) {
	header := []string{"age", "salary", "dept"}
	rows := [][]string{
		{"25", "50000", "eng"},
		{"30", "60000", "eng"},
		{"35", "70000", "sales"},
		{"NaN", "80000"},
	}
	ds, err := Build("people.csv", header, rows, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, ds.NumRows())
	assert.Equal(t, 3, ds.NumCols())

	age, ok := ds.Column("age")
	require.True(t, ok)
	assert.Equal(t, Numeric, age.Kind)
	assert.True(t, age.Cells[3].Null)
	assert.Equal(t, 30.0, age.Cells[1].Num)

	dept, _ := ds.Column("dept")
	assert.Equal(t, Categorical, dept.Kind)
	assert.True(t, dept.Cells[3].Null, "short rows are padded with missing cells")

	assert.Equal(t, []string{"35", "70000", "sales"}, ds.Row(2))
	all := ds.Rows()
	require.Len(t, all, 4)
	assert.Equal(t, []string{"", "80000", ""}, all[3])
}

func TestBuildRejectsNonRectangular(t *testing.T) {
	_, err := Build("x", []string{"a", "b"}, [][]string{{"1", "2", "3"}}, ParseOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Build("x", []string{"a", "a"}, nil, ParseOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestBuildTypedOverridesInference(t *testing.T) {
	ds, err := BuildTyped("x", []string{"code", "n"}, []Kind{Categorical, ""}, [][]string{{"01", "1"}, {"02", "2"}}, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, Categorical, ds.Columns[0].Kind)
	assert.Equal(t, Numeric, ds.Columns[1].Kind)
}

func TestRowKeyTreatsNullsAndNumbersByValue(t *testing.T) {
	ds, err := Build("x", []string{"n", "s"}, [][]string{
		{"1.0", ""},
		{"1", "NA"},
		{"1", "a"},
	}, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, ds.RowKey(0), ds.RowKey(1))
	assert.NotEqual(t, ds.RowKey(1), ds.RowKey(2))
}

func TestRowKeyCellBoundaries(t *testing.T) {
	ds, err := Build("x", []string{"a", "b"}, [][]string{
		{"p\x1fq", "r"},
		{"p", "q\x1fr"},
		{"\x00", "r"},
		{"", "r"},
		{"p:1", "r"},
		{"p", "1:r"},
	}, ParseOptions{})
	require.NoError(t, err)
	require.Equal(t, Categorical, ds.Columns[0].Kind)

	seen := map[string]int{}
	for i := 0; i < ds.NumRows(); i++ {
		k := ds.RowKey(i)
		if j, dup := seen[k]; dup {
			t.Fatalf("rows %d and %d share key %q", j, i, k)
		}
		seen[k] = i
	}
}

func TestEmptyDataset(t *testing.T) {
	ds, err := Build("empty.csv", []string{"a", "b", "c"}, nil, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, ds.NumRows())
	assert.Equal(t, 3, ds.NumCols())
	var nilDS *Dataset
	assert.Equal(t, 0, nilDS.NumRows())
}
