// policy_age.go - age based retention for stored recordings
package diskmanager

import (
	"log/slog"

	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/logging"
	"github.com/tmakela/callvault/internal/observability"
)

var diskLogger *slog.Logger

// InitLogger sets up the package logger.
func InitLogger() {
	diskLogger = logging.ForService("diskmanager")
	if diskLogger == nil {
		diskLogger = slog.Default()
	}
}

// SweepResult summarizes one retention sweep run.
type SweepResult struct {
	Removed      int // recordings deleted from the database
	MissingFiles int // removed recordings whose audio file was already gone
}

// AgeBasedCleanup removes recordings older than the configured retention
// period. Recordings are processed oldest first; the file is removed before
// the database row, and a missing file does not block the row removal. A
// second run over the same data is a no-op.
func AgeBasedCleanup(quit <-chan struct{}, ds datastore.Interface, settings *conf.Settings, metrics *observability.Metrics) (SweepResult, error) {
	if diskLogger == nil {
		InitLogger()
	}

	retentionHours, err := conf.ParseRetentionPeriod(settings.Retention.MaxAge)
	if err != nil {
		diskLogger.Error("Invalid retention period", "max_age", settings.Retention.MaxAge, "error", err)
		return SweepResult{}, err
	}

	cutoff := Cutoff(NowUTC(), retentionHours)
	baseDir := conf.GetBasePath(settings.Ingest.UploadPath)

	expired, err := ds.GetOlderThan(cutoff)
	if err != nil {
		diskLogger.Error("Failed to query expired recordings", "error", err)
		return SweepResult{}, err
	}

	if settings.Debug {
		diskLogger.Debug("Starting age-based cleanup",
			"cutoff", cutoff,
			"candidates", len(expired))
	}

	var result SweepResult
	for i := range expired {
		select {
		case <-quit:
			diskLogger.Info("Cleanup interrupted by quit signal",
				"removed", result.Removed)
			return result, nil
		default:
		}

		fileMissing, err := RemoveRecording(ds, baseDir, &expired[i])
		if err != nil {
			diskLogger.Error("Failed to remove expired recording",
				"id", expired[i].ID, "error", err)
			continue
		}

		result.Removed++
		if fileMissing {
			result.MissingFiles++
		}
		if metrics != nil {
			metrics.RecordingsSwept.Inc()
			if fileMissing {
				metrics.SweepMissingFiles.Inc()
			}
		}
	}

	diskLogger.Info("Age retention policy applied",
		"removed", result.Removed,
		"missing_files", result.MissingFiles)

	return result, nil
}
