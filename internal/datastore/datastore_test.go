package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmakela/callvault/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

// newTestStore opens an in-memory SQLite database with the schema migrated.
func newTestStore(t *testing.T) *DataStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Recording{}))
	return &DataStore{DB: db}
}

func testRecording(source string, createdAt time.Time) *Recording {
	return &Recording{
		Source:    source,
		Note:      "",
		CreatedAt: createdAt,
		RemoteIP:  "192.0.2.10",
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	ds := newTestStore(t)

	rec := &Recording{
		Source:           "+15551234567",
		Filename:         strPtr("20250101_120000_call.m4a"),
		OriginalFilename: strPtr("John Smith (+15551234567).m4a"),
		Note:             "follow up tomorrow",
		Date:             i64Ptr(1735732800),
		Filesize:         i64Ptr(52341),
		Duration:         i64Ptr(183000),
		CreatedAt:        time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		RemoteIP:         "198.51.100.7",
		CallerName:       strPtr("John Smith"),
		ManualPhone:      strPtr("1-555-123-4567"),
		CallDirection:    strPtr("Incoming"),
	}
	require.NoError(t, ds.Save(rec))
	require.NotZero(t, rec.ID, "id should be assigned on creation")

	got, err := ds.Get(rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.Source, got.Source)
	assert.Equal(t, *rec.Filename, *got.Filename)
	assert.Equal(t, *rec.OriginalFilename, *got.OriginalFilename)
	assert.Equal(t, rec.Note, got.Note)
	assert.Equal(t, *rec.Date, *got.Date)
	assert.Equal(t, *rec.Filesize, *got.Filesize)
	assert.Equal(t, *rec.Duration, *got.Duration)
	assert.Equal(t, rec.RemoteIP, got.RemoteIP)
	assert.Equal(t, *rec.CallerName, *got.CallerName)
	assert.Equal(t, *rec.ManualPhone, *got.ManualPhone)
	assert.Equal(t, *rec.CallDirection, *got.CallDirection)
}

func TestGetNotFound(t *testing.T) {
	ds := newTestStore(t)
	_, err := ds.Get(42)
	require.Error(t, err)
	assert.True(t, errorIsNotFound(err))
}

func TestGetAllOrdersNewestFirst(t *testing.T) {
	ds := newTestStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, ds.Save(testRecording("caller", base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := ds.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))
}

func TestUpdateOnlyTouchesAllowedFields(t *testing.T) {
	ds := newTestStore(t)

	rec := testRecording("+15550001111", time.Now())
	rec.CallerName = strPtr("unknown")
	require.NoError(t, ds.Save(rec))

	require.NoError(t, ds.Update(rec.ID, RecordingUpdate{
		CallerName: strPtr("Jane Doe"),
		Note:       strPtr("edited"),
	}))

	got, err := ds.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", *got.CallerName)
	assert.Equal(t, "edited", got.Note)
	assert.Nil(t, got.ManualPhone, "nil update field must stay untouched")
	assert.Equal(t, rec.Source, got.Source)
}

func TestUpdateNotFound(t *testing.T) {
	ds := newTestStore(t)
	err := ds.Update(99, RecordingUpdate{Note: strPtr("x")})
	require.Error(t, err)
	assert.True(t, errorIsNotFound(err))
}

func TestUpdateNoFieldsIsNoop(t *testing.T) {
	ds := newTestStore(t)
	assert.NoError(t, ds.Update(1234, RecordingUpdate{}))
}

func TestDelete(t *testing.T) {
	ds := newTestStore(t)

	rec := testRecording("caller", time.Now())
	require.NoError(t, ds.Save(rec))
	require.NoError(t, ds.Delete(rec.ID))

	_, err := ds.Get(rec.ID)
	assert.True(t, errorIsNotFound(err))

	err = ds.Delete(rec.ID)
	assert.True(t, errorIsNotFound(err), "deleting twice should report not found")
}

func TestGetFilename(t *testing.T) {
	ds := newTestStore(t)

	withFile := testRecording("a", time.Now())
	withFile.Filename = strPtr("20250101_120000_call.wav")
	withFile.Filesize = i64Ptr(100)
	require.NoError(t, ds.Save(withFile))

	withoutFile := testRecording("b", time.Now())
	require.NoError(t, ds.Save(withoutFile))

	name, err := ds.GetFilename(withFile.ID)
	require.NoError(t, err)
	assert.Equal(t, "20250101_120000_call.wav", name)

	name, err = ds.GetFilename(withoutFile.ID)
	require.NoError(t, err)
	assert.Empty(t, name)

	_, err = ds.GetFilename(12345)
	assert.True(t, errorIsNotFound(err))
}

func TestGetOlderThanIsStrict(t *testing.T) {
	ds := newTestStore(t)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	older := testRecording("old", cutoff.Add(-time.Second))
	atCutoff := testRecording("boundary", cutoff)
	newer := testRecording("new", cutoff.Add(time.Second))
	require.NoError(t, ds.Save(older))
	require.NoError(t, ds.Save(atCutoff))
	require.NoError(t, ds.Save(newer))

	got, err := ds.GetOlderThan(cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, older.ID, got[0].ID)
}

func TestBackfillCallerNamesGuardsSentinel(t *testing.T) {
	ds := newTestStore(t)

	unknown := testRecording("a", time.Now())
	unknown.CallerName = strPtr("unknown")
	require.NoError(t, ds.Save(unknown))

	named := testRecording("b", time.Now())
	named.CallerName = strPtr("Real Name")
	require.NoError(t, ds.Save(named))

	updated, err := ds.BackfillCallerNames(map[uint]string{
		unknown.ID: "Jane Doe",
		named.ID:   "Should Not Apply",
	}, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, err := ds.Get(unknown.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", *got.CallerName)

	got, err = ds.Get(named.ID)
	require.NoError(t, err)
	assert.Equal(t, "Real Name", *got.CallerName, "non-sentinel names must never be overwritten")
}

func TestBackfillCallerNamesEmptyInput(t *testing.T) {
	ds := newTestStore(t)
	updated, err := ds.BackfillCallerNames(nil, "unknown")
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func errorIsNotFound(err error) bool {
	return errors.HasCategory(err, errors.CategoryNotFound)
}
