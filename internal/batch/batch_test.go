package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/datalens-cli/internal/dataset"
	"github.com/KaramelBytes/datalens-cli/internal/loader"
	"github.com/KaramelBytes/datalens-cli/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRunKeepsOrderAndIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		paths = append(paths, writeCSV(t, dir, fmt.Sprintf("f%d.csv", i), fmt.Sprintf("x,y\n%d,1\n%d,2\n", i, i+1)))
	}
	bad := writeCSV(t, dir, "bad.xls", "x")
	paths = append(paths[:3], append([]string{bad}, paths[3:]...)...)

	outs := Run(context.Background(), paths, Options{
		Load:    loader.DefaultOptions(),
		Profile: profile.DefaultOptions(),
		Workers: 2,
		Logger:  zaptest.NewLogger(t),
	})
	require.Len(t, outs, len(paths))
	for i, o := range outs {
		assert.Equal(t, paths[i], o.Path)
	}
	assert.ErrorIs(t, outs[3].Err, dataset.ErrUnsupportedFormat)
	assert.Nil(t, outs[3].Result)
	assert.Equal(t, 1, Failed(outs))
	require.NotNil(t, outs[0].Result)
	assert.Equal(t, "f0.csv", outs[0].Result.Name)
	assert.Equal(t, 2, outs[6].Result.Rows)
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	p := writeCSV(t, dir, "a.csv", "x\n1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outs := Run(ctx, []string{p, p}, Options{Load: loader.DefaultOptions(), Profile: profile.DefaultOptions()})
	for _, o := range outs {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestRunInvalidOptions(t *testing.T) {
	p := writeCSV(t, t.TempDir(), "a.csv", "x\n1\n")
	opt := profile.DefaultOptions()
	opt.Weights.Completeness = 2
	outs := Run(context.Background(), []string{p}, Options{Load: loader.DefaultOptions(), Profile: opt})
	assert.ErrorIs(t, outs[0].Err, profile.ErrInvalidOptions)
}
