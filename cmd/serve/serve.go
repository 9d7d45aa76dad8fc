// Package serve implements the command that runs the upload ingestion server.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/diskmanager"
	"github.com/tmakela/callvault/internal/httpcontroller"
	"github.com/tmakela/callvault/internal/logging"
	"github.com/tmakela/callvault/internal/observability"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recording upload server",
		Long:  "Start the HTTP server that accepts recording uploads, along with the scheduled retention sweep.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the HTTP server")
	cmd.Flags().StringVar(&settings.Ingest.UploadPath, "uploadpath", viper.GetString("ingest.uploadpath"), "Directory where uploaded audio is stored")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

// runServer wires the datastore, HTTP server, telemetry endpoint and the
// retention scheduler together and blocks until a shutdown signal arrives.
func runServer(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logging.Error("Failed to close datastore", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	var wg sync.WaitGroup
	quit := make(chan struct{})

	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry endpoint: %w", err)
		}
		endpoint.Start(&wg, quit)
	}

	if settings.Retention.Enabled {
		startRetentionScheduler(settings, ds, metrics, &wg, quit)
	}

	server := httpcontroller.New(settings, ds, metrics)
	server.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logging.Info("Shutting down", "signal", sig.String())

	close(quit)
	if err := server.Shutdown(context.Background()); err != nil {
		logging.Error("HTTP server shutdown error", "error", err)
	}
	wg.Wait()

	return nil
}

// startRetentionScheduler runs the daily retention sweep at the configured
// time of day. A failed sweep is logged and retried on the next run.
func startRetentionScheduler(settings *conf.Settings, ds datastore.Interface, metrics *observability.Metrics, wg *sync.WaitGroup, quit <-chan struct{}) {
	scheduler := diskmanager.NewScheduler(
		settings.Retention.CheckHour,
		settings.Retention.CheckMinute,
		diskmanager.SystemClock(),
		func() {
			if _, err := diskmanager.AgeBasedCleanup(quit, ds, settings, metrics); err != nil {
				logging.Error("Retention sweep failed", "error", err)
			}
		},
	)
	scheduler.Run(wg, quit)
	logging.Info("Retention scheduler started",
		"hour", settings.Retention.CheckHour,
		"minute", settings.Retention.CheckMinute,
		"max_age", settings.Retention.MaxAge)
}
