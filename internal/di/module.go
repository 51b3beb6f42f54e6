package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/loyaltytiers/internal/app"
	"github.com/polkiloo/loyaltytiers/internal/config"
	"github.com/polkiloo/loyaltytiers/internal/logger"
	"github.com/polkiloo/loyaltytiers/internal/pkg/auth"
	"github.com/polkiloo/loyaltytiers/internal/server/http/handlers"
	"github.com/polkiloo/loyaltytiers/internal/server/http/router"
	"github.com/polkiloo/loyaltytiers/internal/storage"
	"github.com/polkiloo/loyaltytiers/internal/usecase"
)

// Module composes the application graph; opts are appended last so tests can replace nodes.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		usecase.Module,
		fx.Provide(func(f *app.LoyaltyFacade) handlers.LoyaltyFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
