package memory

import (
	"context"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
)

type userRepository struct {
	store *Store
}

func (r *userRepository) Create(ctx context.Context, login, passwordHash string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.logins[login]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	s.nextUserID++
	u := model.User{ID: s.nextUserID, Login: login, PasswordHash: passwordHash, CreatedAt: s.now().UTC()}
	s.users[u.ID] = u
	s.logins[login] = u.ID
	return &u, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.logins[login]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &u, nil
}
