package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".csv", ".tsv", ".txt")
}

func (csvLoader) Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	br := bufio.NewReader(r)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(br, name)
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			ds := &dataset.Dataset{Name: name, Format: formatOf(name)}
			return ds, nil
		}
		return nil, fmt.Errorf("%w: read header: %v", dataset.ErrUnsupportedFormat, err)
	}
	// strip a UTF-8 BOM left by spreadsheet exports
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	total := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read row %d: %v", dataset.ErrUnsupportedFormat, total+1, err)
		}
		total++
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			continue
		}
		rows = append(rows, rec)
	}

	ds, err := dataset.Build(name, header, rows, opt.Parse)
	if err != nil {
		return nil, err
	}
	ds.Format = formatOf(name)
	if len(rows) < total {
		ds.Notes = append(ds.Notes, fmt.Sprintf("processed only %d/%d rows due to MaxRows", len(rows), total))
	}
	return ds, nil
}

// sniffDelimiter peeks at the header line and picks the most frequent candidate.
// Falls back to the extension (tab for .tsv) and then ','.
func sniffDelimiter(br *bufio.Reader, name string) rune {
	fallback := ','
	if hasExt(name, ".tsv") {
		fallback = '\t'
	}
	peek, _ := br.Peek(4096)
	line := string(peek)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := fallback, 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func formatOf(name string) string {
	if hasExt(name, ".tsv") {
		return "tsv"
	}
	return "csv"
}
