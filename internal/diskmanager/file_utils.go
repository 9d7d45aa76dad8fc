// file_utils.go - shared file removal code
package diskmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/errors"
)

// NowUTC returns the current time in UTC. It exists so tests and the sweep
// agree on the clock used to compute cutoffs.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Cutoff converts a retention period in hours to the oldest allowed
// ingestion time.
func Cutoff(now time.Time, retentionHours int) time.Time {
	return now.Add(-time.Duration(retentionHours) * time.Hour)
}

// RemoveRecording deletes the audio file of a recording, then its database
// row. File removal is best effort: a file that is already gone is reported
// through the return value, any other filesystem error aborts before the row
// is touched so the sweep can retry later.
func RemoveRecording(ds datastore.Interface, baseDir string, rec *datastore.Recording) (fileMissing bool, err error) {
	if rec.Filename != nil && *rec.Filename != "" {
		path := filepath.Join(baseDir, *rec.Filename)
		if rmErr := os.Remove(path); rmErr != nil {
			if os.IsNotExist(rmErr) {
				fileMissing = true
			} else {
				return false, errors.New(fmt.Errorf("removing file %s: %w", path, rmErr)).
					Component("diskmanager").
					Category(errors.CategoryFileIO).
					Build()
			}
		}
	}

	if err := ds.Delete(rec.ID); err != nil {
		// The row may have been removed by a concurrent sweep.
		if errors.HasCategory(err, errors.CategoryNotFound) {
			return fileMissing, nil
		}
		return fileMissing, err
	}
	return fileMissing, nil
}
