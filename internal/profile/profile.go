package profile

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Profile computes column profiles, correlations, the readiness score, suggestions
// and alerts for ds. It does not modify ds and keeps no state between calls.
func Profile(ds *dataset.Dataset, opt Options) (*Result, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", dataset.ErrUnsupportedFormat)
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	opt = opt.normalized()
	nrows := ds.NumRows()
	if opt.RequireRows && nrows == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", dataset.ErrEmptyDataset, ds.Name)
	}

	res := &Result{
		Name:            ds.Name,
		Format:          ds.Format,
		Rows:            nrows,
		Cols:            ds.NumCols(),
		Columns:         make([]ColumnProfile, 0, ds.NumCols()),
		Correlations:    []CorrelationPair{},
		Suggestions:     []Suggestion{},
		Alerts:          []Alert{},
		StrongThreshold: opt.StrongCorrelation,
	}
	if len(ds.Notes) > 0 {
		res.Notes = append([]string(nil), ds.Notes...)
	}

	for _, col := range ds.Columns {
		cp := profileColumn(col, opt)
		res.Columns = append(res.Columns, cp)
		res.MissingCells += cp.Missing
		switch col.Kind {
		case dataset.Numeric:
			res.NumericCols++
		default:
			res.CategoricalCols++
		}
	}
	res.TotalCells = nrows * res.Cols

	res.Completeness = completeness(res.TotalCells, res.MissingCells)
	res.DuplicateRows = countDuplicates(ds)
	if nrows > 0 {
		res.DuplicateRatio = round2(100 * float64(res.DuplicateRows) / float64(nrows))
	}
	res.Correlations = correlations(ds, res.Columns, opt.StrongCorrelation)
	res.Score = readiness(res, opt.Weights)
	res.Suggestions = suggest(res.NumericCols, res.CategoricalCols)
	res.Alerts = alerts(res, opt)
	return res, nil
}

// completeness is 100 when there are no cells, so empty inputs are not penalized.
func completeness(total, missing int) float64 {
	if total == 0 {
		return 100
	}
	return round2(100 * float64(total-missing) / float64(total))
}

func profileColumn(col *dataset.Column, opt Options) ColumnProfile {
	cp := ColumnProfile{Name: col.Name, Kind: col.Kind, Total: len(col.Cells)}
	counts := make(map[string]int)
	var order []string
	var nums []float64
	for i, cell := range col.Cells {
		if cell.Null {
			cp.Missing++
			continue
		}
		key := col.Key(i)
		if _, ok := counts[key]; !ok {
			order = append(order, key)
			if len(cp.Samples) < opt.SampleValues {
				cp.Samples = append(cp.Samples, cell.Text)
			}
		}
		counts[key]++
		if col.Kind == dataset.Numeric {
			nums = append(nums, cell.Num)
		}
	}
	cp.Distinct = len(counts)
	if cp.Total > 0 {
		cp.MissingRatio = float64(cp.Missing) / float64(cp.Total)
	}

	switch col.Kind {
	case dataset.Numeric:
		numericStats(&cp, nums, opt)
	case dataset.Categorical:
		cp.TopValues = topValues(counts, order, opt.TopValues)
	}
	return cp
}

func numericStats(cp *ColumnProfile, nums []float64, opt Options) {
	if len(nums) == 0 {
		return
	}
	data := stats.Float64Data(nums)
	if v, err := data.Min(); err == nil {
		cp.Min = &v
	}
	if v, err := data.Max(); err == nil {
		cp.Max = &v
	}
	mean, variance := meanVariance(nums)
	if isFinite(mean) {
		cp.Mean = &mean
	}
	// a single distinct value has no defined spread
	if cp.Distinct >= 2 && len(nums) >= 2 && isFinite(variance) {
		sd := math.Sqrt(variance)
		cp.Variance = &variance
		cp.StdDev = &sd
	}
	if opt.OutlierThreshold > 0 && len(nums) >= 8 {
		cp.Outliers = countOutliers(data, opt.OutlierThreshold)
	}
}

// meanVariance returns the mean and sample variance using a Welford update over
// values scaled by their largest magnitude, so finite inputs near math.MaxFloat64
// keep a finite mean. The variance is +Inf when it does not fit a float64.
func meanVariance(nums []float64) (mean, variance float64) {
	var scale float64
	for _, x := range nums {
		scale = math.Max(scale, math.Abs(x))
	}
	if scale == 0 {
		return 0, 0
	}
	var m, m2 float64
	for i, x := range nums {
		x /= scale
		// Welford update
		delta := x - m
		m += delta / float64(i+1)
		m2 += delta * (x - m)
	}
	mean = m * scale
	if len(nums) < 2 {
		return mean, math.NaN()
	}
	// scale twice: scale*scale alone overflows for large inputs
	variance = m2 / float64(len(nums)-1) * scale * scale
	return mean, variance
}

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

// countOutliers counts values whose robust z-score (MAD based) exceeds thr.
func countOutliers(data stats.Float64Data, thr float64) int {
	median, err := stats.Median(data)
	if err != nil {
		return 0
	}
	mad, err := stats.MedianAbsoluteDeviation(data)
	if err != nil || mad == 0 {
		return 0
	}
	var n int
	for _, v := range data {
		if math.Abs(0.6745*(v-median)/mad) > thr {
			n++
		}
	}
	return n
}

func topValues(counts map[string]int, order []string, limit int) []ValueCount {
	tops := make([]ValueCount, 0, len(order))
	for _, k := range order {
		tops = append(tops, ValueCount{Value: k, Count: counts[k]})
	}
	sort.SliceStable(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// countDuplicates counts rows identical to an earlier row.
func countDuplicates(ds *dataset.Dataset) int {
	n := ds.NumRows()
	if n == 0 || ds.NumCols() == 0 {
		return 0
	}
	seen := make(map[string]struct{}, n)
	var dup int
	for i := 0; i < n; i++ {
		k := ds.RowKey(i)
		if _, ok := seen[k]; ok {
			dup++
			continue
		}
		seen[k] = struct{}{}
	}
	return dup
}

// correlations computes Pearson r over pairwise-complete rows for every pair of
// numeric columns with positive variance. Pairs with an undefined r are omitted.
func correlations(ds *dataset.Dataset, profiles []ColumnProfile, strong float64) []CorrelationPair {
	var idx []int
	for j, cp := range profiles {
		if cp.Kind == dataset.Numeric && cp.Variance != nil && *cp.Variance > 0 {
			idx = append(idx, j)
		}
	}
	out := []CorrelationPair{}
	for a := 0; a < len(idx); a++ {
		ca := ds.Columns[idx[a]]
		for b := a + 1; b < len(idx); b++ {
			cb := ds.Columns[idx[b]]
			xs, ys := pairwiseComplete(ca, cb)
			if len(xs) < 2 {
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			if r > 1 {
				r = 1
			} else if r < -1 {
				r = -1
			}
			out = append(out, CorrelationPair{
				A:      ca.Name,
				B:      cb.Name,
				R:      r,
				N:      len(xs),
				Strong: math.Abs(r) > strong,
			})
		}
	}
	return out
}

func pairwiseComplete(a, b *dataset.Column) (xs, ys []float64) {
	for i := range a.Cells {
		if a.Cells[i].Null || b.Cells[i].Null {
			continue
		}
		xs = append(xs, a.Cells[i].Num)
		ys = append(ys, b.Cells[i].Num)
	}
	return xs, ys
}

func readiness(res *Result, w Weights) Score {
	var numRatio, catRatio float64
	if res.Cols > 0 {
		numRatio = math.Min(float64(res.NumericCols)/float64(res.Cols), 1)
		catRatio = math.Min(float64(res.CategoricalCols)/float64(res.Cols), 1)
	}
	s := Score{
		Completeness:       res.Completeness * w.Completeness,
		Uniqueness:         (100 - res.DuplicateRatio) * w.Uniqueness,
		NumericBalance:     numRatio * 100 * w.Numeric,
		CategoricalBalance: catRatio * 100 * w.Categorical,
		Weights:            w,
	}
	v := round2(s.Completeness + s.Uniqueness + s.NumericBalance + s.CategoricalBalance)
	s.Value = math.Max(0, math.Min(100, v))
	return s
}

func suggest(numeric, categorical int) []Suggestion {
	out := []Suggestion{}
	if numeric >= 2 {
		out = append(out, SuggestRegression)
	}
	if categorical >= 1 {
		out = append(out, SuggestClassification)
	}
	if numeric >= 2 && categorical == 0 {
		out = append(out, SuggestClustering)
	}
	return out
}

func alerts(res *Result, opt Options) []Alert {
	out := []Alert{}
	for _, c := range res.Columns {
		if c.Total > 0 && c.MissingRatio > opt.HighMissingThreshold {
			out = append(out, Alert{Kind: AlertHighMissing, Columns: []string{c.Name}, Value: c.MissingRatio})
		}
		if c.Distinct == 1 {
			out = append(out, Alert{Kind: AlertConstant, Columns: []string{c.Name}, Value: 1})
		}
	}
	if res.DuplicateRows > 0 {
		out = append(out, Alert{Kind: AlertDuplicates, Value: res.DuplicateRatio})
	}
	for _, p := range res.Correlations {
		if p.Strong {
			out = append(out, Alert{Kind: AlertStrongCorrelation, Columns: []string{p.A, p.B}, Value: p.R})
		}
	}
	return out
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
