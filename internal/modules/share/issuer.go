package share

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"filevault/internal/domain"
	"filevault/internal/modules/access"
	"filevault/internal/pkg/validator"
	"filevault/internal/repository"
	"filevault/internal/session"
)

var ErrInvalidDuration = errors.New("invalid share duration")

// Durations are the only lifetimes a share link can be issued for.
var Durations = map[string]time.Duration{
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

var durationKeys = []string{"12h", "1d", "3d", "1w"}

// Issued is a new share together with the link handed to the owner.
type Issued struct {
	*domain.Share
	URL string `json:"url"`
}

type Issuer struct {
	repos   *repository.Repositories
	guard   *access.Guard
	baseURL string
	log     zerolog.Logger
}

func NewIssuer(repos *repository.Repositories, guard *access.Guard, publicBaseURL string) *Issuer {
	return &Issuer{
		repos:   repos,
		guard:   guard,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		log:     zerolog.Nop(),
	}
}

func (i *Issuer) SetLogger(log zerolog.Logger) {
	i.log = log
}

// Issue creates a read-only link to a folder the caller owns. The expiry is
// fixed at issue time.
func (i *Issuer) Issue(ctx context.Context, sess *session.Session, folderID, durationKey string) (*Issued, error) {
	folder, err := i.guard.Folder(ctx, sess.UserID(), folderID, "", access.Write)
	if err != nil {
		return nil, err
	}

	p := validator.New()
	validator.Field(p, "duration", &durationKey,
		validator.TrimSpace(),
		validator.Lowercase(),
		validator.Required("Please choose how long the link stays valid"),
		validator.OneOf("Duration must be one of "+strings.Join(durationKeys, ", "), durationKeys...),
	)
	if err := p.Run(ctx); err != nil {
		var fields validator.Errors
		if errors.As(err, &fields) {
			return nil, errors.Join(ErrInvalidDuration, fields)
		}
		return nil, err
	}

	s := &domain.Share{
		FolderID:   folder.ID,
		Expiration: i.guard.Now().Add(Durations[durationKey]).UTC(),
	}
	if err := i.repos.Shares.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}

	i.log.Info().
		Str("user_id", sess.UserID()).
		Str("folder_id", folder.ID).
		Str("share_id", s.ID).
		Time("expiration", s.Expiration).
		Msg("share issued")

	return &Issued{Share: s, URL: i.URL(s.ID)}, nil
}

// URL is the public link for a share id.
func (i *Issuer) URL(shareID string) string {
	return i.baseURL + "/share/" + shareID
}
