package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const title = "AUTO GENERATED DOCUMENTATION"

// maxPairs caps the correlation list in the README; profile.json carries all of them.
const maxPairs = 10

// Markdown renders the README for a profiling result.
func Markdown(res *profile.Result) string {
	var b strings.Builder
	b.WriteString("# " + title + "\n\n")

	b.WriteString("## DATASET SUMMARY\n\n")
	b.WriteString(fmt.Sprintf("- File Name: %s\n", res.Name))
	if res.Format != "" {
		b.WriteString(fmt.Sprintf("- Format: %s\n", res.Format))
	}
	b.WriteString(fmt.Sprintf("- Total Rows: %d\n", res.Rows))
	b.WriteString(fmt.Sprintf("- Total Columns: %d (numeric %d, categorical %d)\n", res.Cols, res.NumericCols, res.CategoricalCols))
	b.WriteString(fmt.Sprintf("- Missing Cells: %d of %d\n", res.MissingCells, res.TotalCells))
	b.WriteString(fmt.Sprintf("- Completeness: %.2f%%\n", res.Completeness))
	b.WriteString(fmt.Sprintf("- Duplicate Rows: %d (%.2f%%)\n\n", res.DuplicateRows, res.DuplicateRatio))

	b.WriteString("## AI READINESS\n\n")
	s := res.Score
	b.WriteString(fmt.Sprintf("**Score: %.2f / 100**\n\n", s.Value))
	b.WriteString("| Component | Weight | Contribution |\n| --- | --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Completeness | %.2f | %.2f |\n", s.Weights.Completeness, s.Completeness))
	b.WriteString(fmt.Sprintf("| Uniqueness | %.2f | %.2f |\n", s.Weights.Uniqueness, s.Uniqueness))
	b.WriteString(fmt.Sprintf("| Numeric balance | %.2f | %.2f |\n", s.Weights.Numeric, s.NumericBalance))
	b.WriteString(fmt.Sprintf("| Categorical balance | %.2f | %.2f |\n\n", s.Weights.Categorical, s.CategoricalBalance))

	b.WriteString("## SUGGESTED MODELS\n\n")
	if len(res.Suggestions) == 0 {
		b.WriteString("- none (add numeric or categorical features)\n")
	}
	for _, sg := range res.Suggestions {
		b.WriteString("- " + describeSuggestion(sg) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("## COLUMN INSIGHTS\n\n")
	for _, c := range res.Columns {
		writeColumn(&b, c, res.Rows)
	}

	if len(res.Correlations) > 0 {
		b.WriteString("## CORRELATIONS\n\n")
		pairs := append([]profile.CorrelationPair(nil), res.Correlations...)
		sort.SliceStable(pairs, func(i, j int) bool {
			return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
		})
		if len(pairs) > maxPairs {
			pairs = pairs[:maxPairs]
		}
		for _, p := range pairs {
			mark := ""
			if p.Strong {
				mark = " **strong**"
			}
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (n=%d)%s\n", safeVal(p.A), safeVal(p.B), p.R, p.N, mark))
		}
		b.WriteString("\n")
	}

	if len(res.Alerts) > 0 {
		b.WriteString("## DATA QUALITY ALERTS\n\n")
		for _, a := range res.Alerts {
			b.WriteString("- " + describeAlert(a) + "\n")
		}
		b.WriteString("\n")
	}

	if len(res.Notes) > 0 {
		b.WriteString("## NOTES\n\n")
		for _, n := range res.Notes {
			b.WriteString("- " + n + "\n")
		}
	}
	return b.String()
}

func writeColumn(b *strings.Builder, c profile.ColumnProfile, rows int) {
	b.WriteString(fmt.Sprintf("### %s\n\n", safeName(c.Name)))
	b.WriteString(fmt.Sprintf("- Data Type: %s\n", c.Kind))
	b.WriteString(fmt.Sprintf("- Total Values: %d\n", rows))
	b.WriteString(fmt.Sprintf("- Missing Values: %d (%.2f%%)\n", c.Missing, 100*c.MissingRatio))
	b.WriteString(fmt.Sprintf("- Unique Values: %d\n", c.Distinct))
	if c.Mean != nil {
		b.WriteString(fmt.Sprintf("- Range: %.4g to %.4g, mean %.4g", *c.Min, *c.Max, *c.Mean))
		if c.StdDev != nil {
			b.WriteString(fmt.Sprintf(", std %.4g", *c.StdDev))
		}
		b.WriteString("\n")
		if c.Outliers > 0 {
			b.WriteString(fmt.Sprintf("- Outliers: %d\n", c.Outliers))
		}
	}
	if len(c.TopValues) > 0 {
		parts := make([]string, len(c.TopValues))
		for i, kv := range c.TopValues {
			parts[i] = fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count)
		}
		b.WriteString("- Top Values: " + strings.Join(parts, ", ") + "\n")
	}
	if len(c.Samples) > 0 {
		vals := make([]string, len(c.Samples))
		for i, v := range c.Samples {
			vals[i] = safeVal(v)
		}
		b.WriteString("- Sample Values: " + strings.Join(vals, ", ") + "\n")
	}
	b.WriteString("\n")
}

func describeSuggestion(s profile.Suggestion) string {
	switch s {
	case profile.SuggestRegression:
		return "Regression (two or more numeric features)"
	case profile.SuggestClassification:
		return "Classification (categorical target available)"
	case profile.SuggestClustering:
		return "Clustering (numeric-only feature space)"
	}
	return string(s)
}

func describeAlert(a profile.Alert) string {
	switch a.Kind {
	case profile.AlertHighMissing:
		return fmt.Sprintf("%s is %.0f%% missing", strings.Join(a.Columns, ""), 100*a.Value)
	case profile.AlertConstant:
		return fmt.Sprintf("%s holds a single value", strings.Join(a.Columns, ""))
	case profile.AlertDuplicates:
		return fmt.Sprintf("%.2f%% of rows are duplicates", a.Value)
	case profile.AlertStrongCorrelation:
		return fmt.Sprintf("%s strongly correlated (r=%.3f)", strings.Join(a.Columns, " ~ "), a.Value)
	}
	return string(a.Kind)
}

// SourceMarkdown documents a source code file.
func SourceMarkdown(src *loader.SourceFile) string {
	var b strings.Builder
	b.WriteString("# " + title + "\n\n")
	b.WriteString(fmt.Sprintf("## %s FILE\n\n", strings.ToUpper(src.Language)))
	b.WriteString(fmt.Sprintf("- File Name: %s\n- Lines: %d (non-blank %d)\n\n", src.Name, src.Lines, src.NonBlank))
	fence := "```"
	for strings.Contains(src.Content, fence) {
		fence += "`"
	}
	b.WriteString(fence + src.Language + "\n")
	b.WriteString(src.Content)
	if !strings.HasSuffix(src.Content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence + "\n")
	return b.String()
}

// HTML renders Markdown as a standalone page.
func HTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Title: "Dataset profile",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(md), p, r)
}

// JSON encodes the full result.
func JSON(res *profile.Result) ([]byte, error) {
	return utils.PrettyJSON(res)
}

// Paths lists the files written by Export.
type Paths struct {
	Readme string `json:"readme"`
	HTML   string `json:"html"`
	JSON   string `json:"json,omitempty"`
}

// Export writes README.md, report.html and profile.json into dir.
func Export(dir string, res *profile.Result) (Paths, error) {
	js, err := JSON(res)
	if err != nil {
		return Paths{}, err
	}
	p, err := writeDocs(dir, Markdown(res))
	if err != nil {
		return Paths{}, err
	}
	p.JSON = filepath.Join(dir, "profile.json")
	if err := utils.SafeWriteFile(p.JSON, js); err != nil {
		return Paths{}, fmt.Errorf("write profile.json: %w", err)
	}
	return p, nil
}

// ExportSource writes README.md and report.html for a source file.
func ExportSource(dir string, src *loader.SourceFile) (Paths, error) {
	return writeDocs(dir, SourceMarkdown(src))
}

func writeDocs(dir, md string) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}
	p := Paths{
		Readme: filepath.Join(dir, "README.md"),
		HTML:   filepath.Join(dir, "report.html"),
	}
	if err := utils.SafeWriteFile(p.Readme, []byte(md)); err != nil {
		return Paths{}, fmt.Errorf("write README.md: %w", err)
	}
	if err := utils.SafeWriteFile(p.HTML, HTML(md)); err != nil {
		return Paths{}, fmt.Errorf("write report.html: %w", err)
	}
	return p, nil
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
	if utf8.RuneCountInString(s) > 80 {
		r := []rune(s)
		s = string(r[:77]) + "..."
	}
	return s
}
