package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/blob"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/session"
)

type E2ETestSuite struct {
	t      *testing.T
	server *server
	blobs  *blob.MemoryStore
}

type TestResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	cfg := config.GetDefaultConfig()
	cfg.Quota.PerUserBytes = 1024
	cfg.Upload.MaxFileSize = 1024
	cfg.Server.PublicBaseURL = "http://vault.test"

	store, err := session.NewBadgerStore(session.BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	blobs := blob.NewMemoryStore()
	srv := newServer(cfg, database.OpenTest(t), blobs, store, zerolog.Nop())
	t.Cleanup(srv.hub.Close)
	return &E2ETestSuite{t: t, server: srv, blobs: blobs}
}

func (s *E2ETestSuite) do(req *http.Request, token string) (*httptest.ResponseRecorder, TestResponse) {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.server.router.ServeHTTP(rec, req)

	var resp TestResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func (s *E2ETestSuite) json(method, path, body, token string) (*httptest.ResponseRecorder, TestResponse) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *E2ETestSuite) upload(token, folderID, name string, content []byte) (*httptest.ResponseRecorder, TestResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(s.t, w.WriteField("name", name))
	require.NoError(s.t, w.WriteField("folder", folderID))
	part, err := w.CreateFormFile("file", name)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req, token)
}

func (s *E2ETestSuite) login(email string) string {
	s.t.Helper()
	rec, _ := s.json(http.MethodPost, "/api/v1/auth/signup",
		`{"name":"User","email":"`+email+`","password":"password123","passwordConfirm":"password123"}`, "")
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, resp := s.json(http.MethodPost, "/api/v1/auth/login", `{"email":"`+email+`","password":"password123"}`, "")
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(resp.Data, &data))
	return data.Token
}

func decodeID(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &v))
	require.NotEmpty(t, v.ID)
	return v.ID
}

func TestE2E_Healthz(t *testing.T) {
	s := setupTestSuite(t)
	rec, _ := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestE2E_DriveShareAndQuota(t *testing.T) {
	s := setupTestSuite(t)
	owner := s.login("owner@example.com")
	stranger := s.login("stranger@example.com")

	rec, resp := s.json(http.MethodPost, "/api/v1/folders", `{"name":"Reports"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	folderID := decodeID(t, resp.Data)

	rec, resp = s.upload(owner, folderID, "q1.txt", bytes.Repeat([]byte("a"), 600))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	fileID := decodeID(t, resp.Data)

	// 600 of 1024 bytes used; another 600 does not fit.
	rec, resp = s.upload(owner, "", "q2.txt", bytes.Repeat([]byte("b"), 600))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "INSUFFICIENT_SPACE", resp.Error.Code)
	assert.Equal(t, 1, s.blobs.Len())

	rec, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/folders/"+folderID, nil), stranger)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = s.json(http.MethodPost, "/api/v1/folders/"+folderID+"/shares", `{"duration":"12h"}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var issued struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &issued))
	assert.Equal(t, "http://vault.test/share/"+issued.ID, issued.URL)

	rec, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/shares/"+issued.ID, nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "q1.txt")

	rec, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/shares/"+issued.ID+"/files/"+fileID+"/download", nil), stranger)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 600, rec.Body.Len())

	// Shares never grant writes.
	rec, _ = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/files/"+fileID, nil), stranger)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/folders/"+folderID, nil), owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, s.blobs.Len())

	rec, resp = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), owner)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User struct {
			UsedSpace int64 `json:"used_space"`
		} `json:"user"`
		Usage struct {
			Used      int64 `json:"used"`
			Available int64 `json:"available"`
		} `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.Zero(t, me.Usage.Used)
	assert.Equal(t, int64(1024), me.Usage.Available)

	rec, _ = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/shares/"+issued.ID, nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestE2E_AnonymousIsRejected(t *testing.T) {
	s := setupTestSuite(t)
	for _, path := range []string{"/api/v1/drive", "/api/v1/auth/me", "/api/v1/events"} {
		rec, resp := s.do(httptest.NewRequest(http.MethodGet, path, nil), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.NotNil(t, resp.Error, path)
		assert.Equal(t, "UNAUTHENTICATED", resp.Error.Code)
	}
}
