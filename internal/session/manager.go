package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"filevault/internal/config"
	"filevault/internal/pkg/jwt"
)

type CookieOptions struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

func CookieOptionsFromConfig(cfg config.SessionConfig) CookieOptions {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(strings.TrimSpace(cfg.CookieSameSite)) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	return CookieOptions{
		Name:     cfg.CookieName,
		Path:     cfg.CookiePath,
		Secure:   cfg.CookieSecure,
		SameSite: sameSite,
	}
}

// Manager resolves the caller's session from a signed cookie or bearer token
// and persists it through a Store.
type Manager struct {
	store  Store
	tokens *jwt.Service
	cookie CookieOptions
	log    zerolog.Logger
}

func NewManager(store Store, tokens *jwt.Service, cookie CookieOptions, log zerolog.Logger) *Manager {
	return &Manager{store: store, tokens: tokens, cookie: cookie, log: log}
}

func newID() string {
	return uuid.NewString()
}

// Load returns the caller's session, or a fresh anonymous one when no valid
// token is presented or the referenced session no longer exists.
func (m *Manager) Load(c *gin.Context) *Session {
	token := tokenFromRequest(c, m.cookie.Name)
	if token == "" {
		return &Session{ID: newID(), IsNew: true}
	}

	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return &Session{ID: newID(), IsNew: true}
	}

	data, err := m.store.Load(c.Request.Context(), claims.SessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Error().Err(err).Str("session_id", claims.SessionID).Msg("session load failed")
		}
		return &Session{ID: newID(), IsNew: true}
	}
	return &Session{ID: claims.SessionID, Data: *data}
}

// Regenerate discards the persisted session and assigns a new id with an
// empty bag, so an id known before login is useless afterwards.
func (m *Manager) Regenerate(ctx context.Context, s *Session) error {
	if !s.IsNew {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("destroy previous session: %w", err)
		}
	}
	s.ID = newID()
	s.Data = Data{}
	s.IsNew = true
	return nil
}

func (m *Manager) Save(ctx context.Context, s *Session) error {
	if err := m.store.Save(ctx, s.ID, s.Data, m.tokens.TTL()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.IsNew = false
	return nil
}

// Issue signs a token for s, sets it as the session cookie and returns it for
// API clients that prefer the Authorization header.
func (m *Manager) Issue(c *gin.Context, s *Session) (string, error) {
	token, err := m.tokens.GenerateToken(s.ID, s.Data.UserID)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	m.setCookie(c, token, int(m.tokens.TTL()/time.Second))
	return token, nil
}

func (m *Manager) Destroy(c *gin.Context, s *Session) error {
	m.setCookie(c, "", -1)
	if s.IsNew {
		return nil
	}
	if err := m.store.Delete(c.Request.Context(), s.ID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	s.Data = Data{}
	s.IsNew = true
	return nil
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     m.cookie.Path,
		MaxAge:   maxAge,
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: m.cookie.SameSite,
	})
}

func tokenFromRequest(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return v
	}
	return ""
}
