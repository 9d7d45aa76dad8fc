// Package ingest accepts call-recording uploads, derives caller metadata
// from the client filename and persists a Recording. All request fields
// originate from an untrusted network peer and are treated as hostile.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmakela/callvault/internal/callmeta"
	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/datastore"
	"github.com/tmakela/callvault/internal/errors"
	"github.com/tmakela/callvault/internal/logging"
	"github.com/tmakela/callvault/internal/observability"
)

// allowedExtensions is the list of audio file extensions accepted for storage.
// Uploads with other extensions still produce a metadata-only recording.
var allowedExtensions = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac"}

// Request is one normalized upload submission. Form field variants
// (Source/source etc.) are resolved by the HTTP layer before this point.
type Request struct {
	Source   string
	Note     string // raw percent-encoded note, may be empty
	Date     string // raw form value, epoch seconds
	Duration string // raw form value, milliseconds
	RemoteIP string
	File     *multipart.FileHeader // nil when no file part was sent
}

// Result reports a successful ingestion.
type Result struct {
	ID             uint
	StoredFilename string // empty when no audio was stored
	Filesize       int64
}

// Ingestor validates upload requests, stores audio on disk and persists
// recording metadata.
type Ingestor struct {
	settings *conf.Settings
	ds       datastore.Interface
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates an Ingestor. The metrics instance may be nil.
func New(settings *conf.Settings, ds datastore.Interface, metrics *observability.Metrics) *Ingestor {
	logger := logging.ForService("ingest")
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		settings: settings,
		ds:       ds,
		metrics:  metrics,
		logger:   logger,
	}
}

// Ingest processes one upload request. Validation failures return an error
// with the validation category and leave no trace; storage or database
// failures clean up any partially written file before returning.
func (in *Ingestor) Ingest(req *Request) (Result, error) {
	ingestID := uuid.NewString()

	if strings.TrimSpace(req.Source) == "" {
		in.countUpload(observability.UploadRejected)
		return Result{}, errors.Newf("source is required").
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}

	// The client filename feeds the heuristics even when the attachment is
	// later refused for storage.
	var originalFilename *string
	if req.File != nil && req.File.Filename != "" {
		name := req.File.Filename
		originalFilename = &name
	}

	var meta callmeta.Metadata
	if originalFilename != nil {
		meta = callmeta.FromFilename(*originalFilename)
	}

	note := decodeNote(req.Note)

	date, err := parseOptionalInt(req.Date, "date")
	if err != nil {
		in.countUpload(observability.UploadRejected)
		return Result{}, err
	}
	duration, err := parseOptionalInt(req.Duration, "duration")
	if err != nil {
		in.countUpload(observability.UploadRejected)
		return Result{}, err
	}

	var storedFilename *string
	var filesize *int64
	if originalFilename != nil && extensionAllowed(*originalFilename) {
		name, size, err := in.storeFile(req.File)
		if err != nil {
			in.countUpload(observability.UploadFailed)
			return Result{}, err
		}
		storedFilename = &name
		filesize = &size

		if duration == nil && in.settings.Ingest.ProbeWAVDuration {
			duration = in.probeDuration(name)
		}
	}

	recording := &datastore.Recording{
		Source:           req.Source,
		Filename:         storedFilename,
		OriginalFilename: originalFilename,
		Note:             note,
		Date:             date,
		Filesize:         filesize,
		Duration:         duration,
		CreatedAt:        time.Now().UTC(),
		RemoteIP:         req.RemoteIP,
		CallerName:       meta.CallerName,
		ManualPhone:      meta.ManualPhone,
		CallDirection:    meta.CallDirection,
	}

	if err := in.ds.Save(recording); err != nil {
		// Roll back the file write so no orphaned audio remains.
		if storedFilename != nil {
			if rmErr := os.Remove(in.filePath(*storedFilename)); rmErr != nil && !os.IsNotExist(rmErr) {
				in.logger.Error("Failed to remove file after persist failure",
					"ingest_id", ingestID, "filename", *storedFilename, "error", rmErr)
			}
		}
		in.countUpload(observability.UploadFailed)
		return Result{}, err
	}

	result := Result{ID: recording.ID}
	if storedFilename != nil {
		result.StoredFilename = *storedFilename
		result.Filesize = *filesize
		in.countUpload(observability.UploadStored)
		if in.metrics != nil {
			in.metrics.UploadBytes.Add(float64(*filesize))
		}
	} else {
		in.countUpload(observability.UploadMetadataOnly)
	}

	in.logger.Info("Recording ingested",
		"ingest_id", ingestID,
		"recording_id", recording.ID,
		"source", req.Source,
		"stored_file", result.StoredFilename,
		"remote_ip", req.RemoteIP)

	return result, nil
}

// storeFile writes the uploaded audio under the configured upload directory
// using a timestamp-prefixed sanitized name and returns the stored name and
// byte size.
func (in *Ingestor) storeFile(fh *multipart.FileHeader) (string, int64, error) {
	src, err := fh.Open()
	if err != nil {
		return "", 0, errors.New(fmt.Errorf("opening uploaded file: %w", err)).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Build()
	}
	defer src.Close()

	storedName := time.Now().UTC().Format("20060102_150405") + "_" + SanitizeFilename(fh.Filename)
	dstPath := in.filePath(storedName)

	// Last write wins on a same-second identical-name collision.
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", 0, errors.New(fmt.Errorf("creating file %s: %w", storedName, err)).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Build()
	}

	size, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dstPath)
		return "", 0, errors.New(fmt.Errorf("writing file %s: %w", storedName, err)).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Build()
	}

	return storedName, size, nil
}

// filePath joins a stored filename with the upload directory.
func (in *Ingestor) filePath(storedName string) string {
	return filepath.Join(conf.GetBasePath(in.settings.Ingest.UploadPath), storedName)
}

func (in *Ingestor) countUpload(result string) {
	if in.metrics != nil {
		in.metrics.UploadsTotal.WithLabelValues(result).Inc()
	}
}

// decodeNote decodes a percent-encoded note with the plus-as-space
// convention. Malformed escapes keep their bytes, but plus still means
// space.
func decodeNote(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return strings.ReplaceAll(raw, "+", " ")
	}
	return decoded
}

// parseOptionalInt parses an optional integer form value. An empty value is
// absent; a malformed value fails the request.
func parseOptionalInt(raw, field string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, errors.Newf("invalid %s value: %q", field, raw).
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}
	return &v, nil
}

// extensionAllowed reports whether the filename carries an accepted audio
// extension, case-insensitively.
func extensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._()+-]+`)

// SanitizeFilename strips path components and collapses characters outside a
// conservative allowlist, so a hostile filename cannot escape the upload
// directory or confuse the filesystem.
func SanitizeFilename(filename string) string {
	// Clients on other platforms may send backslash-separated paths.
	if idx := strings.LastIndexAny(filename, `/\`); idx >= 0 {
		filename = filename[idx+1:]
	}
	filename = filepath.Base(filename)

	filename = unsafeFilenameChars.ReplaceAllString(filename, "_")
	filename = strings.Trim(filename, "._")
	if filename == "" {
		filename = "recording"
	}
	return filename
}
