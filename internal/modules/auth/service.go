package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"filevault/internal/domain"
	"filevault/internal/modules/quota"
	"filevault/internal/pkg/validator"
	"filevault/internal/repository"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLength = 72
)

// Service contains the account logic. Session handling stays in the handler.
type Service struct {
	repos      *repository.Repositories
	ledger     *quota.Ledger
	bcryptCost int
	log        zerolog.Logger
}

func NewService(repos *repository.Repositories, ledger *quota.Ledger) *Service {
	return &Service{repos: repos, ledger: ledger, bcryptCost: bcrypt.DefaultCost, log: zerolog.Nop()}
}

func (s *Service) SetLogger(log zerolog.Logger) {
	s.log = log
}

// SetBcryptCost lowers hashing cost; tests use bcrypt.MinCost.
func (s *Service) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}

// Signup validates req and creates the account. Validation failures are
// returned as validator.Errors keyed by request field.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	p := validator.New()
	validator.Field(p, "name", &req.Name,
		validator.TrimSpace(),
		validator.Required("Name is required"),
		validator.MaxLength(255, "Name must be at most 255 characters"),
	)
	validator.Field(p, "email", &req.Email,
		validator.TrimSpace(),
		validator.Lowercase(),
		validator.Required("Email is required"),
		validator.Tag("email", "Email format is incorrect"),
		validator.Check(msgEmailTaken, func(ctx context.Context, email string) (bool, error) {
			exists, err := s.repos.Users.ExistsByEmail(ctx, email)
			return !exists, err
		}),
	)
	validator.Field(p, "password", &req.Password,
		validator.Required("Password is required"),
		validator.MinLength(minPasswordLength, fmt.Sprintf("Password has to have at least %d characters", minPasswordLength)),
		maxBytes(maxPasswordLength, fmt.Sprintf("Password must be at most %d bytes", maxPasswordLength)),
	)
	validator.Field(p, "passwordConfirm", &req.PasswordConfirm,
		validator.Required("Password confirm is required"),
		validator.Equals(&req.Password, "Passwords do not match"),
	)
	if err := p.Run(ctx); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Name: req.Name, Email: req.Email, PasswordHash: string(hash)}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, errors.Join(ErrEmailAlreadyExists, validator.Errors{"email": msgEmailTaken})
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("account created")
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// reported on their own fields; both also match ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, req LoginRequest) (*domain.User, error) {
	p := validator.New()
	validator.Field(p, "email", &req.Email,
		validator.TrimSpace(),
		validator.Lowercase(),
		validator.Required("Email is required"),
		validator.Tag("email", "Email format is incorrect"),
	)
	validator.Field(p, "password", &req.Password,
		validator.Required("Password is required"),
	)
	if err := p.Run(ctx); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errors.Join(ErrInvalidCredentials, validator.Errors{"email": msgUserNotFound})
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Info().Str("user_id", user.ID).Msg("login failed: wrong password")
		return nil, errors.Join(ErrInvalidCredentials, validator.Errors{"password": msgPasswordIncorrect})
	}
	return user, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*MeResponse, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	user, err := s.repos.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &MeResponse{User: toPublic(user), Usage: s.ledger.UsageFor(user.UsedSpace)}, nil
}

func maxBytes(n int, message string) validator.Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if len(v) > n {
			return v, validator.Fail(message)
		}
		return v, nil
	}
}
