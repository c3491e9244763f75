// cmd/analyzer-backend/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/analysis/backend"
	"email-analyzer/internal/common/logger"
)

var (
	threshold        float64
	secondaryLatency time.Duration
	secondaryTimeout time.Duration
	logLevel         string
)

var rootCmd = &cobra.Command{
	Use:   "analyzer-backend",
	Short: "Email content analysis ensemble",
	Long: "Reads one analysis request as JSON from stdin and writes the ensemble report to stdout.\n" +
		"Logs go to stderr so they never mix with the report.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := logger.NewStructured(logLevel, "json", "stderr")
		return backend.ServeStdio(cmd.Context(), newPipeline(log), os.Stdin, os.Stdout)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /api/analyze over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		log := logger.NewStructured(logLevel, "json", "stdout")

		srv := &http.Server{
			Addr:              addr,
			Handler:           backend.NewServer(newPipeline(log), log),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("analysis server listening", map[string]interface{}{"addr": addr})
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func newPipeline(log logger.Logger) *analysis.Pipeline {
	return backend.NewPipeline(backend.LocalOptions{
		AccuracyThreshold: threshold,
		SecondaryLatency:  secondaryLatency,
		SecondaryTimeout:  secondaryTimeout,
	}, log)
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", analysis.DefaultAccuracyThreshold, "Accuracy threshold for the reliability verdict")
	rootCmd.PersistentFlags().DurationVar(&secondaryLatency, "secondary-latency", 0, "Simulated latency of the secondary classifier")
	rootCmd.PersistentFlags().DurationVar(&secondaryTimeout, "secondary-timeout", 2*time.Second, "Deadline for the secondary classifier")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level")

	serveCmd.Flags().String("addr", ":9090", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
