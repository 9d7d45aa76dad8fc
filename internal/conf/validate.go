// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateIngestSettings(&settings.Ingest); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateRetentionSettings(&settings.Retention); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateIngestSettings(ingest *IngestSettings) error {
	if ingest.UploadPath == "" {
		return fmt.Errorf("ingest upload path must not be empty")
	}
	if ingest.MaxUploadSize <= 0 {
		return fmt.Errorf("ingest max upload size must be greater than 0")
	}
	return nil
}

func validateRetentionSettings(retention *RetentionSettings) error {
	if !retention.Enabled {
		return nil
	}
	if _, err := ParseRetentionPeriod(retention.MaxAge); err != nil {
		return fmt.Errorf("invalid retention max age: %w", err)
	}
	if retention.CheckHour < 0 || retention.CheckHour > 23 {
		return fmt.Errorf("retention check hour must be between 0 and 23")
	}
	if retention.CheckMinute < 0 || retention.CheckMinute > 59 {
		return fmt.Errorf("retention check minute must be between 0 and 59")
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	if !settings.WebServer.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.WebServer.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid web server port: %s", settings.WebServer.Port)
	}
	return nil
}

func validateOutputSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return fmt.Errorf("only one database output can be enabled at a time")
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return fmt.Errorf("one database output must be enabled")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return fmt.Errorf("sqlite database path must not be empty")
	}
	return nil
}
