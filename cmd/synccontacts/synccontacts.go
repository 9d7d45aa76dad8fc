// Package synccontacts implements the command that backfills caller names.
package synccontacts

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/contacts"
	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/logging"
)

// Command creates the synccontacts command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "synccontacts",
		Short: "Backfill unknown caller names from other recordings",
		Long:  "Propagate the most recent known caller name for each phone number onto older recordings whose name could not be derived.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(settings)
		},
	}
}

func runSync(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logging.Error("Failed to close datastore", "error", err)
		}
	}()

	updated, err := contacts.New(ds, nil).Run()
	if err != nil {
		return err
	}

	fmt.Printf("Updated caller name on %d recordings\n", updated)
	return nil
}
