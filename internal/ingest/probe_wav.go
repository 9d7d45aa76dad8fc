package ingest

import (
	"os"
	"strings"

	"github.com/go-audio/wav"
)

// probeDuration reads the stored WAV file header and returns its play time in
// milliseconds. Non-WAV files and unreadable headers yield nil so the record
// simply carries no duration.
func (in *Ingestor) probeDuration(storedName string) *int64 {
	if !strings.HasSuffix(strings.ToLower(storedName), ".wav") {
		return nil
	}

	f, err := os.Open(in.filePath(storedName))
	if err != nil {
		in.logger.Warn("Failed to open stored file for duration probe",
			"filename", storedName, "error", err)
		return nil
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		in.logger.Warn("Stored file is not a valid WAV, skipping duration probe",
			"filename", storedName)
		return nil
	}

	duration, err := decoder.Duration()
	if err != nil {
		in.logger.Warn("Failed to read WAV duration", "filename", storedName, "error", err)
		return nil
	}

	ms := duration.Milliseconds()
	return &ms
}
