package repository

import "context"

// Factory describes access to different domain repositories.
type Factory interface {
	Users() UserRepository
	Memberships() MembershipRepository
	HealthCheck(ctx context.Context) error
}
