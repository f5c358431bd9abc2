package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"filevault/internal/blob"
	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/modules/access"
	"filevault/internal/modules/auth"
	"filevault/internal/modules/drive"
	"filevault/internal/modules/naming"
	"filevault/internal/modules/quota"
	"filevault/internal/modules/share"
	"filevault/internal/pkg/logger"
	"filevault/internal/repository"
	"filevault/internal/session"
)

const (
	demoEmail    = "demo@filevault.local"
	demoPassword = "demo-password"
)

var demoFiles = []struct {
	folder  string
	name    string
	content string
}{
	{"", "readme.txt", "Welcome to filevault.\nUpload files, group them in folders and share folders by link.\n"},
	{"Documents", "notes.md", "# Notes\n\n- quota is 50 MiB per user\n- share links expire\n"},
	{"Documents", "todo.txt", "buy milk\nwrite report\n"},
	{"Photos", "caption.txt", "Summer 2025\n"},
}

// seed creates a demo account with a few folders, files and a share link.
// It is idempotent per email: an existing demo user is left alone.
func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)

	if err := seed(context.Background(), cfg, log); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func seed(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := database.Connect(cfg.Database.DSN, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	repos := repository.New(db)

	if exists, err := repos.Users.ExistsByEmail(ctx, demoEmail); err != nil {
		return err
	} else if exists {
		log.Info().Str("email", demoEmail).Msg("demo user already present, nothing to do")
		return nil
	}

	blobs, err := blob.New(ctx, cfg.Blob, log)
	if err != nil {
		return err
	}

	ledger := quota.NewLedger(repos, cfg.Quota.PerUserBytes)
	guard := access.NewGuard(repos)

	user, err := auth.NewService(repos, ledger).Signup(ctx, auth.SignupRequest{
		Name:            "Demo User",
		Email:           demoEmail,
		Password:        demoPassword,
		PasswordConfirm: demoPassword,
	})
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}
	sess := &session.Session{ID: "seed", Data: session.Data{UserID: user.ID, Name: user.Name, Email: user.Email}}

	svc := drive.NewService(drive.Deps{
		Repos:       repos,
		Guard:       guard,
		Names:       naming.NewResolver(repos),
		Ledger:      ledger,
		Blobs:       blobs,
		MaxFileSize: cfg.Upload.MaxFileSize,
	})
	svc.SetLogger(log)

	folders := map[string]string{}
	for _, f := range demoFiles {
		if f.folder == "" || folders[f.folder] != "" {
			continue
		}
		folder, err := svc.CreateFolder(ctx, sess, f.folder)
		if err != nil {
			return fmt.Errorf("create folder %q: %w", f.folder, err)
		}
		folders[f.folder] = folder.ID
	}

	for _, f := range demoFiles {
		_, err := svc.Upload(ctx, sess, drive.UploadInput{
			Filename:     f.name,
			DeclaredName: f.name,
			FolderID:     folders[f.folder],
			Size:         int64(len(f.content)),
			Body:         strings.NewReader(f.content),
		})
		if err != nil {
			return fmt.Errorf("upload %q: %w", f.name, err)
		}
	}

	issued, err := share.NewIssuer(repos, guard, cfg.Server.PublicBaseURL).Issue(ctx, sess, folders["Documents"], "1w")
	if err != nil {
		return fmt.Errorf("issue share: %w", err)
	}

	log.Info().
		Str("email", demoEmail).
		Str("password", demoPassword).
		Int64("used_space", sess.Data.UsedSpace).
		Str("share_url", issued.URL).
		Msg("demo data created")
	return nil
}
