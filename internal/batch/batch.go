package batch

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a batch run.
type Options struct {
	Load    loader.Options
	Profile profile.Options
	// Workers bounds concurrent files; <= 0 uses GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

// Outcome is the result for one input path. Exactly one of Result and Err is set.
type Outcome struct {
	Path    string
	Result  *profile.Result
	Err     error
	Elapsed time.Duration
}

// Run loads and profiles every path on a bounded pool. Outcomes keep input
// order and one file's failure never stops the others. Files not started
// before ctx is done report ctx.Err().
func Run(ctx context.Context, paths []string, opt Options) []Outcome {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]Outcome, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, p := range paths {
		i, p := i, p
		out[i].Path = p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			start := time.Now()
			res, err := one(p, opt)
			out[i].Elapsed = time.Since(start)
			if err != nil {
				out[i].Err = err
				log.Warn("profile failed", zap.String("file", filepath.Base(p)), zap.Error(err))
				return nil
			}
			out[i].Result = res
			log.Debug("profiled",
				zap.String("file", filepath.Base(p)),
				zap.Int("rows", res.Rows),
				zap.Float64("score", res.Score.Value),
				zap.Duration("elapsed", out[i].Elapsed))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func one(path string, opt Options) (*profile.Result, error) {
	ds, err := loader.Load(path, opt.Load)
	if err != nil {
		return nil, err
	}
	return profile.Profile(ds, opt.Profile)
}

// Failed counts outcomes with an error.
func Failed(outs []Outcome) int {
	var n int
	for _, o := range outs {
		if o.Err != nil {
			n++
		}
	}
	return n
}
