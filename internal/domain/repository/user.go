package repository

import (
	"context"

	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

// UserRepository stores account holders.
type UserRepository interface {
	Create(ctx context.Context, login, passwordHash string) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}
