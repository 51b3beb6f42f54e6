// Package storage selects the repository backend from configuration.
package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/loyaltytiers/internal/config"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
	"github.com/polkiloo/loyaltytiers/internal/storage/memory"
	"github.com/polkiloo/loyaltytiers/internal/storage/postgres"
)

// Backend is a repository factory owning its resources.
type Backend interface {
	repository.Factory
	Close()
}

// Module wires the storage backend and exposes its repositories.
var Module = fx.Options(
	fx.Provide(newBackend),
	fx.Provide(
		func(b Backend) repository.Factory { return b },
		func(b Backend) repository.UserRepository { return b.Users() },
		func(b Backend) repository.MembershipRepository { return b.Memberships() },
	),
	fx.Invoke(registerLifecycle),
)

type backendParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

var openPostgres = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Backend, error) {
	st, err := postgres.New(ctx, cfg.DatabaseURI, cfg.LockTimeout, logger)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func newBackend(p backendParams) (Backend, error) {
	if p.Config.DatabaseURI == "" {
		p.Logger.Warn("DATABASE_URI is empty, keeping membership state in memory")
		return memory.New(memory.WithLockTimeout(p.Config.LockTimeout)), nil
	}
	return openPostgres(p.Ctx, p.Config, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, backend Backend) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			backend.Close()
			return nil
		},
	})
}
