package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
)

// UserRepositoryStub stores users in-memory for tests.
type UserRepositoryStub struct {
	mu    sync.Mutex
	Users map[string]*model.User
	ByID  map[int64]*model.User
	Next  int64
	Err   error
}

// NewUserRepositoryStub constructs stub repository with initialized maps.
func NewUserRepositoryStub() *UserRepositoryStub {
	return &UserRepositoryStub{
		Users: make(map[string]*model.User),
		ByID:  make(map[int64]*model.User),
		Next:  1,
	}
}

// Create registers user unless already exists or stub has explicit error.
func (s *UserRepositoryStub) Create(ctx context.Context, login, passwordHash string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Users == nil {
		s.Users = make(map[string]*model.User)
	}
	if s.ByID == nil {
		s.ByID = make(map[int64]*model.User)
	}
	if _, exists := s.Users[login]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	if s.Next == 0 {
		s.Next = 1
	}
	user := &model.User{ID: s.Next, Login: login, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	s.Next++
	s.Users[login] = user
	s.ByID[user.ID] = user
	return user, nil
}

func (s *UserRepositoryStub) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.Users[login]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

func (s *UserRepositoryStub) GetByID(ctx context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if user, ok := s.ByID[id]; ok {
		return user, nil
	}
	return nil, domainErrors.ErrNotFound
}

// MembershipRepositoryStub delegates to the wrapped repository unless a
// function override is set. Calls counts WithinUserLock invocations.
type MembershipRepositoryStub struct {
	repository.MembershipRepository

	WithinUserLockFn func(context.Context, int64, *model.MembershipRecord, func(repository.MembershipTx) error) error
	GetFn            func(context.Context, int64) (*model.MembershipRecord, error)
	ListExpiredFn    func(context.Context, time.Time, int64, int) ([]int64, error)

	mu    sync.Mutex
	calls int
}

func (s *MembershipRepositoryStub) WithinUserLock(ctx context.Context, userID int64, seed *model.MembershipRecord, fn func(repository.MembershipTx) error) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.WithinUserLockFn != nil {
		return s.WithinUserLockFn(ctx, userID, seed, fn)
	}
	return s.MembershipRepository.WithinUserLock(ctx, userID, seed, fn)
}

func (s *MembershipRepositoryStub) Get(ctx context.Context, userID int64) (*model.MembershipRecord, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, userID)
	}
	return s.MembershipRepository.Get(ctx, userID)
}

func (s *MembershipRepositoryStub) ListExpired(ctx context.Context, now time.Time, afterID int64, limit int) ([]int64, error) {
	if s.ListExpiredFn != nil {
		return s.ListExpiredFn(ctx, now, afterID, limit)
	}
	return s.MembershipRepository.ListExpired(ctx, now, afterID, limit)
}

// Calls returns the number of WithinUserLock invocations.
func (s *MembershipRepositoryStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
