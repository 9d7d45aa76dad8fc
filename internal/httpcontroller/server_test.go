package httpcontroller

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmakela/callvault/internal/conf"
	"github.com/tmakela/callvault/internal/datastore"
)

const testSecret = "test-secret"

// fakeWebStore implements the datastore methods exercised through the HTTP
// surface.
type fakeWebStore struct {
	datastore.Interface

	saved   []*datastore.Recording
	saveErr error
	nextID  uint
}

func (f *fakeWebStore) Save(rec *datastore.Recording) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.nextID++
	rec.ID = f.nextID
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeWebStore) GetAll() ([]datastore.Recording, error) {
	out := make([]datastore.Recording, 0, len(f.saved))
	for i := len(f.saved) - 1; i >= 0; i-- {
		out = append(out, *f.saved[i])
	}
	return out, nil
}

func (f *fakeWebStore) BackfillCallerNames(updates map[uint]string, sentinel string) (int, error) {
	updated := 0
	for _, rec := range f.saved {
		name, ok := updates[rec.ID]
		if !ok || rec.CallerName == nil || *rec.CallerName != sentinel {
			continue
		}
		rec.CallerName = &name
		updated++
	}
	return updated, nil
}

func newTestServer(t *testing.T) (*Server, *fakeWebStore) {
	t.Helper()
	settings := &conf.Settings{}
	settings.Ingest.Secret = testSecret
	settings.Ingest.UploadPath = t.TempDir()
	settings.Ingest.MaxUploadSize = 10 << 20
	settings.WebServer.Port = "8090"

	store := &fakeWebStore{}
	return New(settings, store, nil), store
}

// multipartBody builds a multipart form with the given fields and an
// optional file part.
func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func doUpload(s *Server, body io.Reader, contentType string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recordings/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestUploadRequiresSecret(t *testing.T) {
	s, store := newTestServer(t)

	body, ct := multipartBody(t, map[string]string{"source": "caller"}, "", "", nil)
	rec := doUpload(s, body, ct, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, store.saved)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestUploadAcceptsSecretFormField(t *testing.T) {
	s, store := newTestServer(t)

	for _, field := range []string{"Secret", "secret"} {
		body, ct := multipartBody(t, map[string]string{field: testSecret, "source": "caller"}, "", "", nil)
		rec := doUpload(s, body, ct, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "field %q must authorize", field)
	}
	assert.Len(t, store.saved, 2)
}

func TestUploadAcceptsAPIKeyHeader(t *testing.T) {
	s, _ := newTestServer(t)

	body, ct := multipartBody(t, map[string]string{"Source": "caller"}, "", "", nil)
	rec := doUpload(s, body, ct, map[string]string{"X-API-Key": testSecret})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRejectsWrongSecret(t *testing.T) {
	s, _ := newTestServer(t)

	body, ct := multipartBody(t, map[string]string{"secret": "nope", "source": "caller"}, "", "", nil)
	rec := doUpload(s, body, ct, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadMissingSourceIsBadRequest(t *testing.T) {
	s, store := newTestServer(t)

	body, ct := multipartBody(t, map[string]string{"secret": testSecret}, "", "", nil)
	rec := doUpload(s, body, ct, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.saved)
}

func TestUploadStoresFileAndReturnsID(t *testing.T) {
	s, store := newTestServer(t)

	body, ct := multipartBody(t,
		map[string]string{"secret": testSecret, "source": "+15551234567", "note": "hello+there"},
		"file", "John Smith (+15551234567).m4a", []byte("audio bytes"))
	rec := doUpload(s, body, ct, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, uint(1), resp.ID)

	require.Len(t, store.saved, 1)
	saved := store.saved[0]
	assert.Equal(t, "hello there", saved.Note)
	require.NotNil(t, saved.CallerName)
	assert.Equal(t, "John Smith", *saved.CallerName)
	require.NotNil(t, saved.Filename)
	assert.NotEmpty(t, saved.RemoteIP)
}

func TestUploadAcceptsCapitalizedFields(t *testing.T) {
	s, store := newTestServer(t)

	body, ct := multipartBody(t,
		map[string]string{"Secret": testSecret, "Source": "caller", "Date": "1735732800"},
		"File", "call.mp3", []byte("x"))
	rec := doUpload(s, body, ct, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.saved, 1)
	require.NotNil(t, store.saved[0].Date)
	assert.Equal(t, int64(1735732800), *store.saved[0].Date)
}

func TestUploadMalformedDateIsBadRequest(t *testing.T) {
	s, store := newTestServer(t)

	body, ct := multipartBody(t,
		map[string]string{"secret": testSecret, "source": "caller", "date": "not-a-number"},
		"", "", nil)
	rec := doUpload(s, body, ct, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.saved)
}

func TestContactSync(t *testing.T) {
	s, store := newTestServer(t)

	unknown := "unknown"
	named := "Jane Doe"
	phone := "1-555-123-4567"
	require.NoError(t, store.Save(&datastore.Recording{Source: "a", CallerName: &unknown, ManualPhone: &phone}))
	require.NoError(t, store.Save(&datastore.Recording{Source: "b", CallerName: &named, ManualPhone: &phone}))

	body, ct := multipartBody(t, map[string]string{"secret": testSecret}, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts/sync", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp syncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, "Jane Doe", *store.saved[0].CallerName)
}

func TestContactSyncRequiresSecret(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts/sync", nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPersistFailureReturnsGenericError(t *testing.T) {
	s, store := newTestServer(t)
	store.saveErr = errors.New("dsn=root:hunter2@tcp(db:3306) connection refused")

	body, ct := multipartBody(t, map[string]string{"secret": testSecret, "source": "caller"}, "", "", nil)
	rec := doUpload(s, body, ct, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.NotContains(t, rec.Body.String(), "hunter2", "internal detail must never reach the caller")
	assert.NotEmpty(t, resp.CorrelationID)
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyLimitRejectsOversizedUpload(t *testing.T) {
	settings := &conf.Settings{}
	settings.Ingest.Secret = testSecret
	settings.Ingest.UploadPath = t.TempDir()
	settings.Ingest.MaxUploadSize = 1024

	store := &fakeWebStore{}
	s := New(settings, store, nil)

	big := bytes.Repeat([]byte("a"), 4096)
	body, ct := multipartBody(t,
		map[string]string{"secret": testSecret, "source": "caller"},
		"file", "big.wav", big)
	rec := doUpload(s, body, ct, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, store.saved)
}
