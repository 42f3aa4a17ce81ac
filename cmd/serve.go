package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/datalens-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvInput     inputFlags
	srvAddr      string
	srvMaxUpload int
	srvNoHistory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the profiler over HTTP (POST /upload)",
	RunE: func(cmd *cobra.Command, args []string) error {
		lopt, err := srvInput.loadOptions()
		if err != nil {
			return err
		}
		popt, err := srvInput.profileOptions()
		if err != nil {
			return err
		}
		addr := srvAddr
		if addr == "" && cfg != nil {
			addr = cfg.ServerAddr
		}
		if addr == "" {
			addr = ":8000"
		}
		mb := srvMaxUpload
		if mb <= 0 && cfg != nil {
			mb = cfg.MaxUploadMB
		}

		s := server.New(server.Config{
			Addr:           addr,
			MaxUploadBytes: int64(mb) << 20,
			Load:           lopt,
			Profile:        popt,
			History:        historyStore(srvNoHistory),
			Logger:         logger,
		})

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("✓ Serving on %s (Ctrl+C to stop)\n", addr)
		return s.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	srvInput.register(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().IntVar(&srvMaxUpload, "max-upload-mb", 0, "maximum upload size in MiB (0 = config default)")
	serveCmd.Flags().BoolVar(&srvNoHistory, "no-history", false, "do not record uploads in history")
}
