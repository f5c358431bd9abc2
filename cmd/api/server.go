package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"filevault/internal/blob"
	"filevault/internal/config"
	"filevault/internal/middleware"
	"filevault/internal/modules/access"
	"filevault/internal/modules/auth"
	"filevault/internal/modules/cleanup"
	"filevault/internal/modules/drive"
	"filevault/internal/modules/events"
	"filevault/internal/modules/naming"
	"filevault/internal/modules/quota"
	"filevault/internal/modules/share"
	jwtsvc "filevault/internal/pkg/jwt"
	"filevault/internal/repository"
	"filevault/internal/session"
)

type server struct {
	router *gin.Engine
	hub    *events.Hub
}

// newServer wires every module onto one gin engine.
func newServer(cfg *config.Config, db *gorm.DB, blobs blob.Store, store session.Store, log zerolog.Logger) *server {
	repos := repository.New(db)

	tokens := jwtsvc.New(cfg.Session.Secret, cfg.Session.TTL)
	sessions := session.NewManager(store, tokens, session.CookieOptionsFromConfig(cfg.Session), log)

	guard := access.NewGuard(repos)
	ledger := quota.NewLedger(repos, cfg.Quota.PerUserBytes)
	ledger.SetLogger(log)
	queue := cleanup.NewQueue(repos)
	queue.SetLogger(log)
	hub := events.NewHub(log)

	driveSvc := drive.NewService(drive.Deps{
		Repos:       repos,
		Guard:       guard,
		Names:       naming.NewResolver(repos),
		Ledger:      ledger,
		Blobs:       blobs,
		Cleanup:     queue,
		Sessions:    sessions,
		Events:      hub,
		MaxFileSize: cfg.Upload.MaxFileSize,
	})
	driveSvc.SetLogger(log)

	issuer := share.NewIssuer(repos, guard, cfg.Server.PublicBaseURL)
	issuer.SetLogger(log)

	authSvc := auth.NewService(repos, ledger)
	authSvc.SetLogger(log)

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(
		middleware.RequestID(),
		middleware.ErrorLogger(log),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.Server.CORSAllowedOrigins),
		middleware.Sessions(sessions),
	)

	r.GET("/healthz", func(c *gin.Context) {
		if err := db.WithContext(c.Request.Context()).Exec("SELECT 1").Error; err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	protected := v1.Group("", middleware.RequireSession())

	authHandler := auth.NewHandler(authSvc, sessions, cfg.Session.TTL)
	authHandler.RegisterPublicRoutes(v1)
	authHandler.RegisterProtectedRoutes(protected)

	drive.NewHandler(driveSvc).RegisterRoutes(protected)
	share.NewHandler(issuer, guard, driveSvc).RegisterRoutes(v1, protected)
	events.NewHandler(hub, cfg.Server.CORSAllowedOrigins).RegisterRoutes(protected)

	return &server{router: r, hub: hub}
}
