package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/loyaltytiers/internal/config"
	"github.com/polkiloo/loyaltytiers/internal/domain/membership"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newTierEngine,
	newMembershipUseCase,
	func(m *MembershipUseCase) Enroller { return m },
	NewAuthUseCase,
)

func newTierEngine() *membership.Engine {
	return membership.NewEngine(membership.DefaultTable())
}

type membershipParams struct {
	fx.In

	Repo   repository.MembershipRepository
	Engine *membership.Engine
	Config *config.Config
	Logger *slog.Logger
}

func newMembershipUseCase(p membershipParams) *MembershipUseCase {
	return NewMembershipUseCase(p.Repo, p.Engine, p.Logger, MembershipOptions{
		LazyCreate:      p.Config.LazyCreate,
		ConflictRetries: p.Config.ConflictRetries,
	})
}
