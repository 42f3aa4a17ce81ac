package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/spf13/cobra"
)

// Input and profiling flags shared by profile, profile-batch, serve and explain.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	maxRows    int
	sheetName  string
	sheetIndex int
	strongThr  float64
	outlierThr float64
	requireRow bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (sniffed if omitted)")
	fl.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	fl.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	fl.IntVar(&f.maxRows, "max-rows", 0, "maximum rows to load (0 = config default)")
	fl.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to profile")
	fl.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fl.Float64Var(&f.strongThr, "strong-threshold", 0, "|r| above which a correlation is strong (0 = config default)")
	fl.Float64Var(&f.outlierThr, "outlier-threshold", 0, "robust |z| threshold for outliers (0 = config default)")
	fl.BoolVar(&f.requireRow, "require-rows", false, "fail on datasets without data rows")
}

func (f *inputFlags) loadOptions() (loader.Options, error) {
	opt := loader.DefaultOptions()
	if cfg != nil && cfg.MaxRows > 0 {
		opt = cfg.LoadOptions()
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	opt.SheetName = f.sheetName
	opt.SheetIndex = f.sheetIndex
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.Parse.DecimalSeparator = ','
	case ".", "dot":
		opt.Parse.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(f.thousands) {
	case ",":
		opt.Parse.ThousandsSeparator = ','
	case ".":
		opt.Parse.ThousandsSeparator = '.'
	case "space", " ":
		opt.Parse.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

func (f *inputFlags) profileOptions() (profile.Options, error) {
	opt := profile.DefaultOptions()
	if cfg != nil && cfg.Weights != (profile.Weights{}) {
		opt = cfg.ProfileOptions()
	}
	if f.strongThr > 0 {
		opt.StrongCorrelation = f.strongThr
	}
	if f.outlierThr > 0 {
		opt.OutlierThreshold = f.outlierThr
	}
	opt.RequireRows = f.requireRow
	if err := opt.Validate(); err != nil {
		return opt, err
	}
	return opt, nil
}

func outputDir(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg != nil && cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	return "output"
}
