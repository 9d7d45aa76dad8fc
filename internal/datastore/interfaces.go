// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the ingestion, retention and backfill components need. All
// methods exchange value structs; callers never share mutable row handles.
type Interface interface {
	Open() error
	Close() error
	Save(recording *Recording) error
	Get(id uint) (Recording, error)
	GetAll() ([]Recording, error)
	Update(id uint, update RecordingUpdate) error
	Delete(id uint) error
	GetFilename(id uint) (string, error)
	GetOlderThan(cutoff time.Time) ([]Recording, error)
	BackfillCallerNames(updates map[uint]string, sentinel string) (int, error)
}

// ErrRecordNotFound is returned for operations on a nonexistent recording id.
var ErrRecordNotFound = errors.NewStd("recording not found")

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		// Settings validation rejects this, but guard against direct construction.
		return nil
	}
}

// Save stores a new recording in the database.
func (ds *DataStore) Save(recording *Recording) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	if err := ds.DB.Create(recording).Error; err != nil {
		return errors.New(fmt.Errorf("saving recording: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Get retrieves a recording by its ID.
func (ds *DataStore) Get(id uint) (Recording, error) {
	var recording Recording
	if err := ds.DB.First(&recording, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Recording{}, errors.New(ErrRecordNotFound).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("recording_id", id).
				Build()
		}
		return Recording{}, errors.New(fmt.Errorf("getting recording with ID %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return recording, nil
}

// GetAll retrieves all recordings ordered newest first.
func (ds *DataStore) GetAll() ([]Recording, error) {
	var recordings []Recording
	if result := ds.DB.Order("created_at DESC, id DESC").Find(&recordings); result.Error != nil {
		return nil, errors.New(fmt.Errorf("getting all recordings: %w", result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return recordings, nil
}

// Update applies the non-nil fields of update to an existing recording.
// Only caller name, manual phone and note are mutable after ingestion.
func (ds *DataStore) Update(id uint, update RecordingUpdate) error {
	fields := map[string]any{}
	if update.CallerName != nil {
		fields["caller_name"] = *update.CallerName
	}
	if update.ManualPhone != nil {
		fields["manual_phone"] = *update.ManualPhone
	}
	if update.Note != nil {
		fields["note"] = *update.Note
	}
	if len(fields) == 0 {
		return nil
	}

	result := ds.DB.Model(&Recording{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.New(fmt.Errorf("updating recording with ID %d: %w", id, result.Error)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.New(ErrRecordNotFound).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("recording_id", id).
			Build()
	}
	return nil
}

// Delete removes a recording row. Removal of the backing audio file is the
// caller's responsibility and must happen before this call.
func (ds *DataStore) Delete(id uint) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&Recording{}, id)
		if result.Error != nil {
			return errors.New(fmt.Errorf("deleting recording with ID %d: %w", id, result.Error)).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
		if result.RowsAffected == 0 {
			return errors.New(ErrRecordNotFound).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("recording_id", id).
				Build()
		}
		return nil
	})
}

// GetFilename retrieves the stored filename of a recording. An empty string
// means the recording has no audio file on disk.
func (ds *DataStore) GetFilename(id uint) (string, error) {
	var row struct {
		Filename *string
	}

	err := ds.DB.Model(&Recording{}).
		Select("filename").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New(ErrRecordNotFound).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("recording_id", id).
				Build()
		}
		return "", errors.New(fmt.Errorf("getting filename for recording %d: %w", id, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	if row.Filename == nil {
		return "", nil
	}
	return *row.Filename, nil
}

// GetOlderThan retrieves recordings created strictly before the cutoff,
// oldest first.
func (ds *DataStore) GetOlderThan(cutoff time.Time) ([]Recording, error) {
	var recordings []Recording
	err := ds.DB.Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&recordings).Error
	if err != nil {
		return nil, errors.New(fmt.Errorf("getting recordings older than %s: %w", cutoff, err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return recordings, nil
}

// BackfillCallerNames overwrites the caller name of the given recordings in a
// single transaction. A row is only touched while its caller name still
// equals the sentinel, so a name edited between scan and commit survives.
// Returns the number of rows updated.
func (ds *DataStore) BackfillCallerNames(updates map[uint]string, sentinel string) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	var updated int64
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		for id, name := range updates {
			result := tx.Model(&Recording{}).
				Where("id = ? AND caller_name = ?", id, sentinel).
				Update("caller_name", name)
			if result.Error != nil {
				return fmt.Errorf("backfilling caller name for recording %d: %w", id, result.Error)
			}
			updated += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return int(updated), nil
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Recording{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
