// Package contacts propagates known caller names onto recordings whose name
// could not be derived at ingestion time.
package contacts

import (
	"log/slog"

	"github.com/tmakela/callvault/internal/callmeta"
	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/logging"
	"github.com/tmakela/callvault/internal/observability"
)

// Backfiller fills in unknown caller names from other recordings that share
// the same phone number.
type Backfiller struct {
	ds      datastore.Interface
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Backfiller. The metrics instance may be nil.
func New(ds datastore.Interface, metrics *observability.Metrics) *Backfiller {
	logger := logging.ForService("contacts")
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{ds: ds, metrics: metrics, logger: logger}
}

// Run scans all recordings newest first, maps each phone number to the most
// recent real caller name seen for it, and overwrites the "unknown" sentinel
// on older recordings of the same number. Real names are never touched, so a
// second consecutive run updates nothing. Returns the number of recordings
// updated.
func (b *Backfiller) Run() (int, error) {
	recordings, err := b.ds.GetAll()
	if err != nil {
		return 0, err
	}

	// First seen wins: GetAll is newest first, so the map holds the most
	// recent real name per phone number.
	nameByPhone := make(map[string]string)
	for i := range recordings {
		rec := &recordings[i]
		if rec.ManualPhone == nil || rec.CallerName == nil {
			continue
		}
		if *rec.CallerName == callmeta.UnknownCaller {
			continue
		}
		if _, seen := nameByPhone[*rec.ManualPhone]; !seen {
			nameByPhone[*rec.ManualPhone] = *rec.CallerName
		}
	}

	updates := make(map[uint]string)
	for i := range recordings {
		rec := &recordings[i]
		if rec.CallerName == nil || *rec.CallerName != callmeta.UnknownCaller {
			continue
		}
		if rec.ManualPhone == nil {
			continue
		}
		if name, ok := nameByPhone[*rec.ManualPhone]; ok {
			updates[rec.ID] = name
		}
	}

	if len(updates) == 0 {
		b.logger.Info("Contact backfill found nothing to update",
			"recordings", len(recordings), "known_numbers", len(nameByPhone))
		return 0, nil
	}

	updated, err := b.ds.BackfillCallerNames(updates, callmeta.UnknownCaller)
	if err != nil {
		return 0, err
	}

	if b.metrics != nil {
		b.metrics.ContactsBackfilled.Add(float64(updated))
	}
	b.logger.Info("Contact backfill complete",
		"recordings", len(recordings),
		"known_numbers", len(nameByPhone),
		"updated", updated)

	return updated, nil
}
