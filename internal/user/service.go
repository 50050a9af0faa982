package user

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/auth"
	userDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/user"
)

// RepositoryAPI lookups return (nil, nil) when no user matches.
type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
}

type Options struct {
	UsernameMinLen int
	PasswordMinLen int
	BCryptCost     int
}

type Service struct {
	repo   RepositoryAPI
	opts   Options
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger, opts Options) *Service {
	if opts.UsernameMinLen < 1 {
		opts.UsernameMinLen = 1
	}
	if opts.PasswordMinLen < 1 {
		opts.PasswordMinLen = 1
	}
	return &Service{
		repo:   repo,
		opts:   opts,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if appErr := dto.Validate(s.opts.UsernameMinLen, s.opts.PasswordMinLen); appErr != nil {
		return nil, appErr
	}

	existing, err := s.repo.GetByUsername(ctx, dto.Username)
	if err != nil {
		s.logger.Error("failed to look up username", "error", err)
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if existing != nil {
		return nil, internal.ErrUsernameTaken
	}

	hash, err := auth.HashPassword(dto.Password, s.opts.BCryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	row := &userDatamodel.User{
		ID:           uuid.NewString(),
		Username:     dto.Username,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create user", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", row.ID, "username", row.Username)
	return FromDataModel(row), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to get user", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	row, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		s.logger.Error("failed to get user", "username", username, "error", err)
		return nil, internal.NewInternalError("failed to get user", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return FromDataModel(row), nil
}
