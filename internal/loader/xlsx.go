package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".xlsx", ".xlsm")
}

// Load reads one worksheet; the first row is the header.
func (xlsxLoader) Load(r io.Reader, name string, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", dataset.ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, err
	}
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", dataset.ErrUnsupportedFormat, sheet, err)
	}
	all = trimBlankRows(all)
	ds := &dataset.Dataset{Name: name, Format: "xlsx"}
	if len(all) > 0 {
		rows, note := limitRows(all[1:], opt.MaxRows)
		ds, err = dataset.Build(name, all[0], rows, opt.Parse)
		if err != nil {
			return nil, err
		}
		ds.Format = "xlsx"
		if note != "" {
			ds.Notes = append(ds.Notes, note)
		}
	}
	ds.Notes = append(ds.Notes, fmt.Sprintf("sheet: %s", sheet))
	return ds, nil
}

func pickSheet(sheets []string, name string, index int) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", dataset.ErrUnsupportedFormat)
	}
	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, name) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found; available: %s", name, strings.Join(sheets, ", "))
	}
	if index <= 0 {
		index = 1
	}
	if index > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (1-%d)", index, len(sheets))
	}
	return sheets[index-1], nil
}

// trimBlankRows drops trailing rows with no content; interior gaps stay as missing rows.
func trimBlankRows(rows [][]string) [][]string {
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}

func blankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
