package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
	pkgAuth "github.com/polkiloo/loyaltytiers/internal/pkg/auth"
)

// Enroller opens a membership for a freshly registered account.
type Enroller interface {
	Enroll(ctx context.Context, userID int64) error
}

// AuthUseCase handles account registration, login and token checks.
type AuthUseCase struct {
	users    repository.UserRepository
	hasher   pkgAuth.PasswordHasher
	tokens   pkgAuth.Strategy
	enroller Enroller
}

// NewAuthUseCase constructs AuthUseCase. A nil enroller skips membership enrollment.
func NewAuthUseCase(users repository.UserRepository, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy, enroller Enroller) *AuthUseCase {
	return &AuthUseCase{users: users, hasher: hasher, tokens: strategy, enroller: enroller}
}

// Register creates an account, enrolls it into the lowest tier and returns an auth token.
func (u *AuthUseCase) Register(ctx context.Context, login, password string) (*model.User, string, error) {
	login, err := normalizeCredentials(login, password)
	if err != nil {
		return nil, "", err
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	usr, err := u.users.Create(ctx, login, hash)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyExists) {
			return nil, "", domainErrors.ErrAlreadyExists
		}
		return nil, "", err
	}

	if err := u.enroll(ctx, usr.ID); err != nil {
		return nil, "", err
	}

	token, err := u.tokens.IssueToken(usr.ID)
	if err != nil {
		return nil, "", err
	}

	return usr, token, nil
}

// Authenticate validates credentials, makes sure the account is enrolled and
// returns an auth token.
func (u *AuthUseCase) Authenticate(ctx context.Context, login, password string) (*model.User, string, error) {
	login, err := normalizeCredentials(login, password)
	if err != nil {
		return nil, "", err
	}

	usr, err := u.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, "", domainErrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := u.hasher.Compare(usr.PasswordHash, password); err != nil {
		return nil, "", domainErrors.ErrInvalidCredentials
	}

	// Enroll is idempotent; this repairs accounts whose registration
	// committed the user but failed to open the membership.
	if err := u.enroll(ctx, usr.ID); err != nil {
		return nil, "", err
	}

	token, err := u.tokens.IssueToken(usr.ID)
	if err != nil {
		return nil, "", err
	}

	return usr, token, nil
}

// ParseToken extracts user ID from provided token.
func (u *AuthUseCase) ParseToken(token string) (int64, error) {
	if token == "" {
		return 0, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}

func (u *AuthUseCase) enroll(ctx context.Context, userID int64) error {
	if u.enroller == nil {
		return nil
	}
	if err := u.enroller.Enroll(ctx, userID); err != nil {
		return fmt.Errorf("enroll member %d: %w", userID, err)
	}
	return nil
}

func normalizeCredentials(login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", domainErrors.ErrInvalidCredentials
	}
	return login, nil
}
