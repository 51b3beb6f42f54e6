package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/loyaltytiers/internal/config"
	"github.com/polkiloo/loyaltytiers/internal/server/http/handlers"
	"github.com/polkiloo/loyaltytiers/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.LoyaltyFacade, logger *slog.Logger, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest(middleware.DefaultMaxBodyBytes))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	authHandler := handlers.NewAuthHandler(facade)
	membershipHandler := handlers.NewMembershipHandler(facade)
	healthHandler := handlers.NewHealthHandler(facade)

	api := engine.Group("/api")
	api.GET("/health", healthHandler.Check)
	api.GET("/membership/tiers", membershipHandler.Tiers)

	user := api.Group("/user")
	user.POST("/register", authHandler.Register)
	user.POST("/login", authHandler.Login)

	userAuth := user.Group("")
	userAuth.Use(middleware.AuthRequired(facade))
	userAuth.GET("/membership", membershipHandler.Status)
	userAuth.GET("/membership/purchases", membershipHandler.Purchases)
	userAuth.POST("/membership/purchases",
		middleware.RateLimit(cfg.RateLimit, cfg.RateBurst),
		membershipHandler.RecordPurchase,
	)

	return engine
}
