package profile

import "github.com/KaramelBytes/datalens-cli/internal/dataset"

// Result is a read-only snapshot of one profiling run.
type Result struct {
	Name            string            `json:"name"`
	Format          string            `json:"format,omitempty"`
	Rows            int               `json:"rows"`
	Cols            int               `json:"columns"`
	NumericCols     int               `json:"numeric_columns"`
	CategoricalCols int               `json:"categorical_columns"`
	TotalCells      int               `json:"total_cells"`
	MissingCells    int               `json:"missing_cells"`
	DuplicateRows   int               `json:"duplicate_rows"`
	Completeness    float64           `json:"completeness"`
	DuplicateRatio  float64           `json:"duplicate_ratio"`
	Columns         []ColumnProfile   `json:"column_profiles"`
	Correlations    []CorrelationPair `json:"correlations"`
	Score           Score             `json:"readiness"`
	Suggestions     []Suggestion      `json:"suggestions"`
	Alerts          []Alert           `json:"alerts"`
	Notes           []string          `json:"notes,omitempty"`
	// StrongThreshold records the |r| cut-off the Strong flags were computed with.
	StrongThreshold float64 `json:"strong_threshold"`
}

// ColumnProfile captures the inferred kind and statistics of a column.
// Numeric statistics are nil when undefined for the column.
type ColumnProfile struct {
	Name         string       `json:"name"`
	Kind         dataset.Kind `json:"kind"`
	Total        int          `json:"total"`
	Missing      int          `json:"missing"`
	MissingRatio float64      `json:"missing_ratio"`
	Distinct     int          `json:"distinct"`
	Min          *float64     `json:"min,omitempty"`
	Max          *float64     `json:"max,omitempty"`
	Mean         *float64     `json:"mean,omitempty"`
	// Variance is the sample variance (N-1 denominator).
	Variance  *float64     `json:"variance,omitempty"`
	StdDev    *float64     `json:"std_dev,omitempty"`
	Outliers  int          `json:"outliers,omitempty"`
	TopValues []ValueCount `json:"top_values,omitempty"`
	Samples   []string     `json:"samples,omitempty"`
}

// ValueCount is a categorical value with its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CorrelationPair is the Pearson correlation of two numeric columns; A precedes B in column order.
type CorrelationPair struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	R      float64 `json:"r"`
	N      int     `json:"n"`
	Strong bool    `json:"strong"`
}

// Score is the readiness score with the weighted components that produced it.
type Score struct {
	Value              float64 `json:"value"`
	Completeness       float64 `json:"completeness"`
	Uniqueness         float64 `json:"uniqueness"`
	NumericBalance     float64 `json:"numeric_balance"`
	CategoricalBalance float64 `json:"categorical_balance"`
	Weights            Weights `json:"weights"`
}

// Suggestion is a model-family hint derived from column composition.
type Suggestion string

const (
	SuggestRegression     Suggestion = "regression"
	SuggestClassification Suggestion = "classification"
	SuggestClustering     Suggestion = "clustering"
)

// AlertKind names a data-quality finding.
type AlertKind string

const (
	AlertHighMissing       AlertKind = "high_missing"
	AlertConstant          AlertKind = "constant"
	AlertDuplicates        AlertKind = "duplicates"
	AlertStrongCorrelation AlertKind = "strong_correlation"
)

// Alert is a data-quality finding. Value is the missing ratio, duplicate ratio or r.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	Columns []string  `json:"columns,omitempty"`
	Value   float64   `json:"value"`
}

// Column returns the profile of the named column.
func (r *Result) Column(name string) (ColumnProfile, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnProfile{}, false
}

// Correlation returns r for the pair in either order.
func (r *Result) Correlation(a, b string) (float64, bool) {
	for _, p := range r.Correlations {
		if (p.A == a && p.B == b) || (p.A == b && p.B == a) {
			return p.R, true
		}
	}
	return 0, false
}

// StrongPairs returns the pairs flagged as strong.
func (r *Result) StrongPairs() []CorrelationPair {
	var out []CorrelationPair
	for _, p := range r.Correlations {
		if p.Strong {
			out = append(out, p)
		}
	}
	return out
}

// HasSuggestion reports whether s was emitted.
func (r *Result) HasSuggestion(s Suggestion) bool {
	for _, x := range r.Suggestions {
		if x == s {
			return true
		}
	}
	return false
}
