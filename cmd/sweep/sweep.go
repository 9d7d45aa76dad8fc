// Package sweep implements the command that runs the retention sweep once.
package sweep

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/diskmanager"
	"github.com/tmakela/callvault/internal/logging"
)

// Command creates the sweep command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove recordings older than the retention period",
		Long:  "Run one retention sweep and exit. The same sweep runs daily inside the serve command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Retention.MaxAge, "maxage", viper.GetString("retention.maxage"), "Retention period, e.g. 365d, 48h, 2w")
	cmd.Flags().StringVar(&settings.Ingest.UploadPath, "uploadpath", viper.GetString("ingest.uploadpath"), "Directory where uploaded audio is stored")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

func runSweep(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logging.Error("Failed to close datastore", "error", err)
		}
	}()

	result, err := diskmanager.AgeBasedCleanup(make(chan struct{}), ds, settings, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d recordings (%d already missing their audio file)\n",
		result.Removed, result.MissingFiles)
	return nil
}
