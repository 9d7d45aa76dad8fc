package httpcontroller

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tmakela/callvault/internal/errors"
	"github.com/tmakela/callvault/internal/ingest"
)

// initRoutes registers the HTTP routes.
func (s *Server) initRoutes() {
	s.Echo.GET("/healthz", s.handleHealthz)

	v1 := s.Echo.Group("/api/v1")
	v1.POST("/recordings/upload", s.handleUpload, s.AuthMiddleware)
	v1.POST("/contacts/sync", s.handleContactSync, s.AuthMiddleware)
}

// uploadResponse is the JSON body for a successful upload.
type uploadResponse struct {
	Success bool `json:"success"`
	ID      uint `json:"id"`
}

// handleUpload accepts a multipart recording upload. Form field names are
// accepted in both capitalized and lowercase spelling, matching the two
// conventions uploading clients use.
func (s *Server) handleUpload(c echo.Context) error {
	req := &ingest.Request{
		Source:   formValue(c, "Source", "source"),
		Note:     formValue(c, "Note", "note"),
		Date:     formValue(c, "Date", "date"),
		Duration: formValue(c, "Duration", "duration"),
		RemoteIP: s.RealIP(c),
		File:     formFile(c, "File", "file"),
	}

	result, err := s.Ingestor.Ingest(req)
	if err != nil {
		return s.handleIngestError(c, err)
	}

	return c.JSON(http.StatusOK, uploadResponse{Success: true, ID: result.ID})
}

// syncResponse is the JSON body for a completed contact backfill.
type syncResponse struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}

// handleContactSync runs the contact backfill and reports how many
// recordings gained a caller name.
func (s *Server) handleContactSync(c echo.Context) error {
	updated, err := s.Backfiller.Run()
	if err != nil {
		return s.handleError(c, err, "contact sync failed", http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, syncResponse{Success: true, Updated: updated})
}

// handleHealthz reports process liveness. It is unauthenticated so load
// balancers can probe it.
func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngestError maps ingestion failures to HTTP statuses. Validation
// detail is safe to return; anything else gets a generic message.
func (s *Server) handleIngestError(c echo.Context, err error) error {
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation:
		return s.handleError(c, err, err.Error(), http.StatusBadRequest)
	case errors.CategoryAuthorization:
		return s.handleError(c, err, "unauthorized", http.StatusUnauthorized)
	case errors.CategoryNotFound:
		return s.handleError(c, err, "not found", http.StatusNotFound)
	default:
		return s.handleError(c, err, "internal server error", http.StatusInternalServerError)
	}
}

// formValue returns the first non-empty form value among the given names.
func formValue(c echo.Context, names ...string) string {
	for _, name := range names {
		if v := c.FormValue(name); v != "" {
			return v
		}
	}
	return ""
}

// formFile returns the first file part found among the given names, or nil.
func formFile(c echo.Context, names ...string) *multipart.FileHeader {
	for _, name := range names {
		if fh, err := c.FormFile(name); err == nil && fh != nil {
			return fh
		}
	}
	return nil
}
