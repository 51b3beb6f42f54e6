package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/loyaltytiers/internal/config"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
	"github.com/polkiloo/loyaltytiers/internal/storage/memory"
)

type closeRecorder struct {
	repository.Factory
	closed bool
}

func (c *closeRecorder) Close() { c.closed = true }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewBackendDefaultsToMemory(t *testing.T) {
	backend, err := newBackend(backendParams{
		Ctx:    context.Background(),
		Config: &config.Config{LockTimeout: time.Second},
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := backend.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", backend)
	}
}

func TestNewBackendOpensPostgres(t *testing.T) {
	previous := openPostgres
	t.Cleanup(func() { openPostgres = previous })

	var gotDSN string
	openPostgres = func(_ context.Context, cfg *config.Config, _ *slog.Logger) (Backend, error) {
		gotDSN = cfg.DatabaseURI
		return nil, errors.New("unreachable")
	}

	_, err := newBackend(backendParams{
		Ctx:    context.Background(),
		Config: &config.Config{DatabaseURI: "postgres://db"},
		Logger: discardLogger(),
	})
	if err == nil {
		t.Fatal("expected postgres open error")
	}
	if gotDSN != "postgres://db" {
		t.Fatalf("unexpected dsn %q", gotDSN)
	}
}

func TestModuleProvidesRepositories(t *testing.T) {
	var (
		users       repository.UserRepository
		memberships repository.MembershipRepository
		factory     repository.Factory
	)
	app := fxtest.New(t,
		fx.Supply(&config.Config{LockTimeout: time.Second}),
		fx.Provide(func() context.Context { return context.Background() }),
		fx.Provide(discardLogger),
		Module,
		fx.Populate(&users, &memberships, &factory),
	)
	app.RequireStart()
	defer app.RequireStop()

	if users == nil || memberships == nil || factory == nil {
		t.Fatal("expected repositories to be populated")
	}
	if err := factory.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected health error: %v", err)
	}
}

func TestRegisterLifecycleClosesBackend(t *testing.T) {
	backend := &closeRecorder{Factory: memory.New()}
	lc := fxtest.NewLifecycle(t)
	registerLifecycle(lc, backend)

	lc.RequireStart()
	lc.RequireStop()
	if !backend.closed {
		t.Fatal("expected backend to be closed on stop")
	}
}
