package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/datalens-cli/internal/history"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/KaramelBytes/datalens-cli/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	proInput     inputFlags
	proOutputDir string
	proStdout    string
	proNoHistory bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Profile a CSV/TSV/XLSX/JSON dataset and write README.md, report.html and profile.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		dir := outputDir(proOutputDir)

		if loader.IsSource(path) {
			src, err := loader.LoadSource(path)
			if err != nil {
				return err
			}
			if proStdout != "" {
				fmt.Println(report.SourceMarkdown(src))
				return nil
			}
			p, err := report.ExportSource(dir, src)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Documented %s file %s in %s\n", src.Language, src.Name, filepath.Dir(p.Readme))
			return nil
		}

		lopt, err := proInput.loadOptions()
		if err != nil {
			return err
		}
		popt, err := proInput.profileOptions()
		if err != nil {
			return err
		}
		ds, err := loader.Load(path, lopt)
		if err != nil {
			return err
		}
		res, err := profile.Profile(ds, popt)
		if err != nil {
			return err
		}
		logger.Debug("profiled", zap.String("file", path), zap.Int("rows", res.Rows), zap.Int("columns", res.Cols))
		for _, n := range res.Notes {
			fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", n)
		}

		switch proStdout {
		case "":
		case "markdown", "md":
			fmt.Println(report.Markdown(res))
			return saveHistory(path, res, proNoHistory)
		case "json":
			b, err := report.JSON(res)
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return saveHistory(path, res, proNoHistory)
		default:
			return fmt.Errorf("unsupported --stdout: %s (use markdown|json)", proStdout)
		}

		p, err := report.Export(dir, res)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s, %s and %s\n", p.Readme, p.HTML, p.JSON)
		fmt.Printf("✓ %s: %d rows, %d columns, completeness %.2f%%, readiness %.2f/100\n",
			res.Name, res.Rows, res.Cols, res.Completeness, res.Score.Value)
		return saveHistory(path, res, proNoHistory)
	},
}

func saveHistory(path string, res *profile.Result, disabled bool) error {
	store := historyStore(disabled)
	if store == nil {
		return nil
	}
	rec := history.NewRecord(filepath.Base(path), res)
	if err := store.Save(rec); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: could not save history: %v\n", err)
		return nil
	}
	logger.Debug("history saved", zap.String("id", rec.ID))
	return nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	proInput.register(profileCmd)
	profileCmd.Flags().StringVarP(&proOutputDir, "output-dir", "o", "", "directory for README.md, report.html and profile.json (default from config)")
	profileCmd.Flags().StringVar(&proStdout, "stdout", "", "print the report instead of writing files: markdown|json")
	profileCmd.Flags().BoolVar(&proNoHistory, "no-history", false, "do not record this run in history")
}
