package drive

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/middleware"
	"filevault/internal/session"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newRouter(f *fixture, sess *session.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.WithSession(c, sess)
		c.Next()
	})
	api := r.Group("/api/v1")
	api.Use(middleware.RequireSession())
	NewHandler(f.svc).RegisterRoutes(api)
	return r
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandler_UploadListDownloadDelete(t *testing.T) {
	f := newFixture(t, 0)
	r := newRouter(f, f.sess)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/folders", strings.NewReader(`{"name":"Work"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var folder struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &folder))
	assert.Equal(t, "Work", folder.Name)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, map[string]string{"name": "hello.txt", "folder": folder.ID}, "hello.txt", []byte("hello world")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var file struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &file))
	assert.Equal(t, int64(11), file.Size)
	assert.NotContains(t, rec.Body.String(), "blob_key")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/folders/"+folder.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hello.txt"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/files/"+file.ID+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, `attachment; filename=hello.txt`, rec.Header().Get("Content-Disposition"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+file.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/drive", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var root RootListing
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &root))
	assert.Zero(t, root.Usage.Used)
	assert.Len(t, root.Folders, 1)
}

func TestHandler_UploadErrors(t *testing.T) {
	f := newFixture(t, 49*mib)
	r := newRouter(f, f.sess)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, nil, "big.bin", make([]byte, 2*mib)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "INSUFFICIENT_SPACE", decode(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, map[string]string{"name": "x"}, "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), `"file"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, map[string]string{"folder": "00000000-0000-0000-0000-000000000000"}, "a.txt", []byte("a")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Folder not found", decode(t, rec).Error.Message)
}

func TestHandler_RequiresSession(t *testing.T) {
	f := newFixture(t, 0)
	r := newRouter(f, &session.Session{IsNew: true})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/drive", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode(t, rec).Error.Code)
}

func TestHandler_ForeignFileIsNotFound(t *testing.T) {
	f := newFixture(t, 0)
	file := f.upload(t, "secret", "", 5)
	_, otherSess := f.newUser(t, "other@example.com", 0)
	r := newRouter(f, otherSess)

	for _, path := range []string{"/api/v1/files/" + file.ID, "/api/v1/files/" + file.ID + "/download", "/api/v1/files/nope"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
