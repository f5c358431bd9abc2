package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/database"
	"filevault/internal/pkg/jwt"
	"filevault/internal/repository"
)

func newBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	in := Data{UserID: "u1", Name: "Ann", Email: "ann@example.com", UsedSpace: 42}
	require.NoError(t, store.Save(ctx, "s1", in, time.Hour))

	out, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, in, *out)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "s1"))
}

func TestBadgerStore(t *testing.T) {
	exerciseStore(t, newBadgerStore(t))
}

func TestDatabaseStore(t *testing.T) {
	repos := repository.New(database.OpenTest(t))
	store := NewDatabaseStore(repos.Sessions)
	exerciseStore(t, store)

	require.NoError(t, store.Save(context.Background(), "old", Data{UserID: "u"}, -time.Minute))
	_, err := store.Load(context.Background(), "old")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := store.PruneExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func newManager(t *testing.T) (*Manager, Store) {
	t.Helper()
	store := newBadgerStore(t)
	cookie := CookieOptions{Name: "sid", Path: "/", SameSite: http.SameSiteLaxMode}
	return NewManager(store, jwt.New("test-secret", time.Hour), cookie, zerolog.Nop()), store
}

func testContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestManager_LoginFlowRegeneratesSession(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	// A pre-login session that an attacker might know the id of.
	c, _ := testContext(httptest.NewRequest(http.MethodGet, "/", nil))
	anon := m.Load(c)
	require.True(t, anon.IsNew)
	anon.Data.Name = "guest"
	require.NoError(t, m.Save(ctx, anon))
	fixatedID := anon.ID

	require.NoError(t, m.Regenerate(ctx, anon))
	assert.NotEqual(t, fixatedID, anon.ID)
	assert.Empty(t, anon.Data.Name)
	_, err := store.Load(ctx, fixatedID)
	assert.ErrorIs(t, err, ErrNotFound)

	anon.Data = Data{UserID: "u1", Name: "Ann", Email: "ann@example.com"}
	require.NoError(t, m.Save(ctx, anon))

	c, w := testContext(httptest.NewRequest(http.MethodPost, "/login", nil))
	token, err := m.Issue(c, anon)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	// Cookie round trip.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	c, _ = testContext(req)
	loaded := m.Load(c)
	assert.False(t, loaded.IsNew)
	assert.Equal(t, "u1", loaded.UserID())

	// Bearer round trip.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c, _ = testContext(req)
	assert.True(t, m.Load(c).Authenticated())
}

func TestManager_DestroyClearsCookieAndStore(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	s := &Session{ID: "s-destroy", Data: Data{UserID: "u1"}}
	require.NoError(t, m.Save(ctx, s))

	c, w := testContext(httptest.NewRequest(http.MethodPost, "/logout", nil))
	require.NoError(t, m.Destroy(c, s))

	_, err := store.Load(ctx, "s-destroy")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, s.Authenticated())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestManager_InvalidTokenYieldsAnonymous(t *testing.T) {
	m, _ := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	c, _ := testContext(req)
	s := m.Load(c)
	assert.True(t, s.IsNew)
	assert.False(t, s.Authenticated())

	other, err := jwt.New("test-secret", time.Hour).GenerateToken("gone", "u1")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	c, _ = testContext(req)
	assert.False(t, m.Load(c).Authenticated())
}
