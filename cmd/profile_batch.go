package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/batch"
	"github.com/KaramelBytes/datalens-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	pbInput     inputFlags
	pbOutputDir string
	pbWorkers   int
	pbNoHistory bool
	pbQuiet     bool
)

var profileBatchCmd = &cobra.Command{
	Use:   "profile-batch <files...>",
	Short: "Profile many datasets concurrently; each gets its own report folder",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		lopt, err := pbInput.loadOptions()
		if err != nil {
			return err
		}
		popt, err := pbInput.profileOptions()
		if err != nil {
			return err
		}
		workers := pbWorkers
		if workers <= 0 && cfg != nil {
			workers = cfg.Workers
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		outs := batch.Run(ctx, files, batch.Options{Load: lopt, Profile: popt, Workers: workers, Logger: logger})

		root := outputDir(pbOutputDir)
		used := map[string]int{}
		for i, o := range outs {
			name := filepath.Base(o.Path)
			if o.Err != nil {
				fmt.Fprintf(os.Stderr, "⚠ [%d/%d] %s: %v\n", i+1, len(outs), name, o.Err)
				continue
			}
			dir := filepath.Join(root, reportDirName(name, used))
			if _, err := report.Export(dir, o.Result); err != nil {
				fmt.Fprintf(os.Stderr, "⚠ [%d/%d] %s: %v\n", i+1, len(outs), name, err)
				continue
			}
			_ = saveHistory(o.Path, o.Result, pbNoHistory)
			if !pbQuiet {
				fmt.Printf("✓ [%d/%d] %s: %d rows, readiness %.2f/100 -> %s\n",
					i+1, len(outs), name, o.Result.Rows, o.Result.Score.Value, dir)
			}
		}
		if n := batch.Failed(outs); n > 0 {
			return fmt.Errorf("%d of %d files failed", n, len(outs))
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, deduplicated and sorted.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// reportDirName derives a folder name from the file name; repeats get a __N suffix.
func reportDirName(file string, used map[string]int) string {
	base := strings.TrimSuffix(file, filepath.Ext(file))
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s__%d", base, n)
	}
	return base
}

func init() {
	rootCmd.AddCommand(profileBatchCmd)
	pbInput.register(profileBatchCmd)
	profileBatchCmd.Flags().StringVarP(&pbOutputDir, "output-dir", "o", "", "root directory for per-file report folders (default from config)")
	profileBatchCmd.Flags().IntVarP(&pbWorkers, "workers", "w", 0, "files profiled concurrently (0 = config default)")
	profileBatchCmd.Flags().BoolVar(&pbNoHistory, "no-history", false, "do not record runs in history")
	profileBatchCmd.Flags().BoolVarP(&pbQuiet, "quiet", "q", false, "only print failures")
}
