package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

type jsonLoader struct{}

func (jsonLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".json")
}

// object keeps JSON object keys in document order.
type object struct {
	keys []string
	vals map[string]any
}

// Load accepts an array of objects or a single object. Nested objects are
// flattened with "." separators; arrays inside records are kept as JSON text.
// Columns holding only JSON numbers are declared numeric, all others categorical.
func (jsonLoader) Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty JSON document", dataset.ErrUnsupportedFormat)
		}
		return nil, fmt.Errorf("%w: decode JSON: %v", dataset.ErrUnsupportedFormat, err)
	}

	var records []*object
	switch t := v.(type) {
	case *object:
		records = []*object{t}
	case []any:
		for i, e := range t {
			o, ok := e.(*object)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is not an object", dataset.ErrUnsupportedFormat, i)
			}
			records = append(records, o)
		}
	default:
		return nil, fmt.Errorf("%w: top-level JSON must be an object or array of objects", dataset.ErrUnsupportedFormat)
	}

	t := newTable()
	for _, rec := range records {
		t.addRecord(rec)
	}
	rows, note := limitRows(t.rows, opt.MaxRows)
	// JSON numbers are locale independent
	popt := opt.Parse
	popt.DecimalSeparator, popt.ThousandsSeparator = '.', 0
	ds, err := dataset.BuildTyped(name, t.header, t.kinds(), rows, popt)
	if err != nil {
		return nil, err
	}
	ds.Format = "json"
	if note != "" {
		ds.Notes = append(ds.Notes, note)
	}
	return ds, nil
}

// table accumulates flattened records, growing columns in first-seen order.
type table struct {
	header  []string
	index   map[string]int
	rows    [][]string
	numeric []bool
	seen    []bool
}

func newTable() *table { return &table{index: map[string]int{}} }

func (t *table) column(key string) int {
	if j, ok := t.index[key]; ok {
		return j
	}
	j := len(t.header)
	t.index[key] = j
	t.header = append(t.header, key)
	t.numeric = append(t.numeric, true)
	t.seen = append(t.seen, false)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
	return j
}

func (t *table) addRecord(o *object) {
	row := make([]string, len(t.header))
	t.rows = append(t.rows, row)
	t.flatten("", o)
}

func (t *table) flatten(prefix string, o *object) {
	for _, k := range o.keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		v := o.vals[k]
		if nested, ok := v.(*object); ok && len(nested.keys) > 0 {
			t.flatten(key, nested)
			continue
		}
		j := t.column(key)
		row := t.rows[len(t.rows)-1]
		if len(row) <= j {
			row = append(row, make([]string, j+1-len(row))...)
			t.rows[len(t.rows)-1] = row
		}
		text, isNum, isNull := scalarText(v)
		row[j] = text
		if isNull {
			continue
		}
		t.seen[j] = true
		if !isNum {
			t.numeric[j] = false
		}
	}
}

// kinds declares a kind per column; columns without any value are left to inference.
func (t *table) kinds() []dataset.Kind {
	out := make([]dataset.Kind, len(t.header))
	for j := range t.header {
		switch {
		case !t.seen[j]:
			out[j] = ""
		case t.numeric[j]:
			out[j] = dataset.Numeric
		default:
			out[j] = dataset.Categorical
		}
	}
	return out
}

func scalarText(v any) (text string, numeric, null bool) {
	switch x := v.(type) {
	case nil:
		return "", false, true
	case json.Number:
		return x.String(), true, false
	case string:
		return x, false, x == ""
	case bool:
		return strconv.FormatBool(x), false, false
	case *object:
		return "{}", false, false
	case []any:
		b, err := json.Marshal(plain(x))
		if err != nil {
			return fmt.Sprint(x), false, false
		}
		return string(b), false, false
	default:
		return fmt.Sprint(x), false, false
	}
}

// plain converts decoded values back to types encoding/json can marshal.
func plain(v any) any {
	switch x := v.(type) {
	case *object:
		m := make(map[string]any, len(x.keys))
		for _, k := range x.keys {
			m[k] = plain(x.vals[k])
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch d := tok.(type) {
	case json.Delim:
		switch d {
		case '{':
			o := &object{vals: map[string]any{}}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				k, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := o.vals[k]; !dup {
					o.keys = append(o.keys, k)
				}
				o.vals[k] = val
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return o, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	default:
		return tok, nil
	}
}
