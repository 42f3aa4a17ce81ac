package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

// Options controls how source files are turned into datasets.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffed from the header line among ',', ';', '\t', '|'.
	Delimiter rune
	// SheetName selects an XLSX sheet; when empty SheetIndex (1-based) is used.
	SheetName  string
	SheetIndex int
	// Parse controls numeric locale and missing-value tokens.
	Parse dataset.ParseOptions
}

// DefaultOptions returns reasonable defaults for loading.
func DefaultOptions() Options {
	return Options{MaxRows: 100000, SheetIndex: 1}
}

// Loader turns one tabular format into a dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(jsonLoader{})
}

// Supported reports whether a registered loader handles filename.
func Supported(filename string) bool {
	return find(filename) != nil
}

func find(filename string) Loader {
	for _, l := range registry {
		if l.CanLoad(filename) {
			return l
		}
	}
	return nil
}

// Load reads the file at path with the loader matching its extension.
func Load(path string, opt Options) (*dataset.Dataset, error) {
	l := find(path)
	if l == nil {
		return nil, unsupported(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return l.Load(f, filepath.Base(path), opt)
}

// LoadReader loads an already opened source, e.g. an uploaded file; name selects the loader.
func LoadReader(name string, r io.Reader, opt Options) (*dataset.Dataset, error) {
	l := find(name)
	if l == nil {
		return nil, unsupported(name)
	}
	return l.Load(r, filepath.Base(name), opt)
}

func unsupported(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = "(no extension)"
	}
	return fmt.Errorf("%w: %s files are not supported (use .csv, .tsv, .xlsx or .json)", dataset.ErrUnsupportedFormat, ext)
}

// limitRows applies MaxRows and returns the kept rows plus an optional note.
func limitRows(rows [][]string, maxRows int) ([][]string, string) {
	if maxRows <= 0 || len(rows) <= maxRows {
		return rows, ""
	}
	return rows[:maxRows], fmt.Sprintf("processed only %d/%d rows due to MaxRows", maxRows, len(rows))
}

func hasExt(filename string, exts ...string) bool {
	name := strings.ToLower(filename)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}
