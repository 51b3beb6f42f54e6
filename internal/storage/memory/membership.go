package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
)

type membershipRepository struct {
	store *Store
}

// membershipTx stages writes until the callback returns.
type membershipTx struct {
	store   *Store
	loaded  model.MembershipRecord
	current model.MembershipRecord
	created bool
	saved   bool
	pending []model.Purchase
}

func (r *membershipRepository) WithinUserLock(ctx context.Context, userID int64, seed *model.MembershipRecord, fn func(repository.MembershipTx) error) error {
	s := r.store
	release, err := s.locks.acquire(ctx, userID, s.lockTimeout)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.begin(userID, seed)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) begin(userID int64, seed *model.MembershipRecord) (*membershipTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[userID]; ok {
		return &membershipTx{store: s, loaded: rec.Clone(), current: rec.Clone()}, nil
	}
	if seed == nil {
		return nil, domainErrors.ErrNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return nil, fmt.Errorf("create membership for %d: %w", userID, domainErrors.ErrNotFound)
	}
	rec := seed.Clone()
	rec.UserID = userID
	rec.Version = 1
	return &membershipTx{store: s, loaded: rec.Clone(), current: rec, created: true}, nil
}

func (s *Store) commit(tx *membershipTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := tx.loaded.UserID
	existing, exists := s.records[userID]
	switch {
	case tx.created && exists:
		return fmt.Errorf("create membership for %d: %w", userID, domainErrors.ErrConflict)
	case !tx.created && (!exists || existing.Version != tx.loaded.Version):
		return fmt.Errorf("save membership for %d: %w", userID, domainErrors.ErrConflict)
	}

	for _, p := range tx.pending {
		if p.OrderNumber == "" {
			continue
		}
		if _, taken := s.orders[p.OrderNumber]; taken {
			return fmt.Errorf("order %s: %w", p.OrderNumber, domainErrors.ErrAlreadyExists)
		}
	}

	if tx.created || tx.saved {
		rec := tx.current.Clone()
		rec.UpdatedAt = s.now().UTC()
		s.records[userID] = rec
	}

	for _, p := range tx.pending {
		s.purchases[userID] = append(s.purchases[userID], p)
		if p.OrderNumber != "" {
			s.orders[p.OrderNumber] = p.ID
		}
	}
	return nil
}

func (tx *membershipTx) Record() model.MembershipRecord {
	return tx.current.Clone()
}

func (tx *membershipTx) Save(ctx context.Context, record model.MembershipRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.UserID != tx.loaded.UserID {
		return fmt.Errorf("save membership for %d: record belongs to %d: %w", tx.loaded.UserID, record.UserID, domainErrors.ErrInvalidInput)
	}
	if record.Version != tx.current.Version {
		return fmt.Errorf("save membership for %d: %w", record.UserID, domainErrors.ErrConflict)
	}
	tx.current = record.Clone()
	tx.current.Version++
	tx.saved = true
	return nil
}

func (tx *membershipTx) AppendPurchase(ctx context.Context, purchase *model.Purchase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if purchase == nil {
		return fmt.Errorf("append purchase: %w", domainErrors.ErrInvalidInput)
	}
	if purchase.UserID != tx.loaded.UserID {
		return fmt.Errorf("append purchase for %d: %w", purchase.UserID, domainErrors.ErrInvalidInput)
	}

	s := tx.store
	if purchase.OrderNumber != "" {
		for _, p := range tx.pending {
			if p.OrderNumber == purchase.OrderNumber {
				return fmt.Errorf("order %s: %w", purchase.OrderNumber, domainErrors.ErrAlreadyExists)
			}
		}
		s.mu.RLock()
		_, taken := s.orders[purchase.OrderNumber]
		s.mu.RUnlock()
		if taken {
			return fmt.Errorf("order %s: %w", purchase.OrderNumber, domainErrors.ErrAlreadyExists)
		}
	}

	s.mu.Lock()
	s.nextPurchaseID++
	purchase.ID = s.nextPurchaseID
	s.mu.Unlock()

	if purchase.RecordedAt.IsZero() {
		purchase.RecordedAt = s.now().UTC()
	}
	tx.pending = append(tx.pending, *purchase)
	return nil
}

func (r *membershipRepository) Get(ctx context.Context, userID int64) (*model.MembershipRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

// ListPurchases returns the user's purchases, newest first.
func (r *membershipRepository) ListPurchases(ctx context.Context, userID int64) ([]model.Purchase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	list := append([]model.Purchase(nil), s.purchases[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].OccurredAt.Equal(list[j].OccurredAt) {
			return list[i].OccurredAt.After(list[j].OccurredAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *membershipRepository) ListExpired(ctx context.Context, now time.Time, afterID int64, limit int) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	s := r.store
	s.mu.RLock()
	var ids []int64
	for id, rec := range s.records {
		if id > afterID && rec.WindowEnd != nil && rec.WindowEnd.Before(now) {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
