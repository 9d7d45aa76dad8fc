// model.go: GORM models for the recordings table.
package datastore

import "time"

// Recording is the persisted metadata for one uploaded call recording.
// Filename and Filesize are either both set or both nil: a recording may
// legitimately carry metadata without audio, e.g. when the attachment had a
// disallowed extension. Pointer fields map to nullable columns.
type Recording struct {
	ID               uint    `gorm:"primaryKey"`
	Source           string  `gorm:"size:200;not null;index:idx_recordings_source"`
	Filename         *string `gorm:"size:500"`
	OriginalFilename *string `gorm:"size:500"`
	Note             string  `gorm:"type:text"`
	Date             *int64  `gorm:"index:idx_recordings_date"` // caller-reported call time, epoch seconds
	Filesize         *int64
	Duration         *int64    // call duration in milliseconds
	CreatedAt        time.Time `gorm:"index:idx_recordings_created_at"` // ingestion time, canonical ordering key
	RemoteIP         string    `gorm:"size:50"`
	CallerName       *string   `gorm:"size:200"`
	ManualPhone      *string   `gorm:"size:50"` // normalized CC-XXX-XXX-XXXX
	CallDirection    *string   `gorm:"size:20"` // "Incoming" or "Outgoing"
}

// TableName ensures GORM uses the expected table name.
func (Recording) TableName() string {
	return "recordings"
}

// RecordingUpdate carries the fields a collaborator is allowed to change on
// an existing recording. Nil fields are left untouched.
type RecordingUpdate struct {
	CallerName  *string
	ManualPhone *string
	Note        *string
}
