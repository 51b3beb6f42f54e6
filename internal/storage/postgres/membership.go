package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/domain/model"
	"github.com/polkiloo/loyaltytiers/internal/domain/repository"
)

type membershipRepository struct {
	storage *Storage
}

const (
	membershipColumns = `user_id, tier_level, window_start, window_end, window_total::text, version, updated_at`

	selectMembership          = `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id=$1`
	selectMembershipForUpdate = selectMembership + ` FOR UPDATE`

	insertMembershipSeed = `INSERT INTO memberships (user_id, tier_level, window_start, window_end, window_total)
                            VALUES ($1, $2, $3, $4, $5::numeric)
                            ON CONFLICT (user_id) DO NOTHING`

	updateMembership = `UPDATE memberships
                        SET tier_level=$2, window_start=$3, window_end=$4, window_total=$5::numeric,
                            version=version+1, updated_at=NOW()
                        WHERE user_id=$1 AND version=$6`

	insertPurchase = `INSERT INTO purchases (user_id, order_number, amount, occurred_at, recorded_at)
                      VALUES ($1, NULLIF($2, ''), $3::numeric, $4, $5)
                      RETURNING id`

	selectPurchases = `SELECT id, user_id, COALESCE(order_number, ''), amount::text, occurred_at, recorded_at
                       FROM purchases WHERE user_id=$1
                       ORDER BY occurred_at DESC, id DESC`

	selectExpired = `SELECT user_id FROM memberships
                     WHERE window_end IS NOT NULL AND window_end < $1 AND user_id > $2
                     ORDER BY user_id
                     LIMIT $3`
)

type membershipTx struct {
	tx      pgx.Tx
	loaded  model.MembershipRecord
	current model.MembershipRecord
}

func (r *membershipRepository) WithinUserLock(ctx context.Context, userID int64, seed *model.MembershipRecord, fn func(repository.MembershipTx) error) error {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		lockTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.storage.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, lockTimeout); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}

		if seed != nil {
			if err := insertSeed(ctx, tx, userID, *seed); err != nil {
				return err
			}
		}

		rec, err := scanMembership(tx.QueryRow(ctx, selectMembershipForUpdate, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return fmt.Errorf("lock membership %d: %w", userID, err)
		}

		return fn(&membershipTx{tx: tx, loaded: rec.Clone(), current: rec})
	})
	return classifyContention(err)
}

func insertSeed(ctx context.Context, tx pgx.Tx, userID int64, seed model.MembershipRecord) error {
	_, err := tx.Exec(ctx, insertMembershipSeed, userID, seed.TierLevel, seed.WindowStart, seed.WindowEnd, seed.WindowTotal.String())
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeForeignKeyViolation:
		return fmt.Errorf("create membership for %d: %w", userID, domainErrors.ErrNotFound)
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return err
	}
	return fmt.Errorf("create membership for %d: %w: %w", userID, domainErrors.ErrCreateFailed, err)
}

func (t *membershipTx) Record() model.MembershipRecord {
	return t.current.Clone()
}

func (t *membershipTx) Save(ctx context.Context, record model.MembershipRecord) error {
	if record.UserID != t.loaded.UserID {
		return fmt.Errorf("save membership for %d: record belongs to %d: %w", t.loaded.UserID, record.UserID, domainErrors.ErrInvalidInput)
	}
	if record.Version != t.loaded.Version {
		return fmt.Errorf("save membership for %d: %w", record.UserID, domainErrors.ErrConflict)
	}

	tag, err := t.tx.Exec(ctx, updateMembership,
		record.UserID, record.TierLevel, record.WindowStart, record.WindowEnd, record.WindowTotal.String(), record.Version)
	if err != nil {
		return fmt.Errorf("save membership for %d: %w", record.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save membership for %d: %w", record.UserID, domainErrors.ErrConflict)
	}

	t.current = record.Clone()
	t.current.Version = record.Version + 1
	t.loaded.Version = t.current.Version
	return nil
}

func (t *membershipTx) AppendPurchase(ctx context.Context, purchase *model.Purchase) error {
	if purchase == nil {
		return fmt.Errorf("append purchase: %w", domainErrors.ErrInvalidInput)
	}
	if purchase.UserID != t.loaded.UserID {
		return fmt.Errorf("append purchase for %d: %w", purchase.UserID, domainErrors.ErrInvalidInput)
	}
	if purchase.RecordedAt.IsZero() {
		purchase.RecordedAt = time.Now().UTC()
	}

	err := t.tx.QueryRow(ctx, insertPurchase,
		purchase.UserID, purchase.OrderNumber, purchase.Amount.String(), purchase.OccurredAt, purchase.RecordedAt).
		Scan(&purchase.ID)
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeUniqueViolation:
		return fmt.Errorf("order %s: %w", purchase.OrderNumber, domainErrors.ErrAlreadyExists)
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return err
	}
	return fmt.Errorf("append purchase for %d: %w: %w", purchase.UserID, domainErrors.ErrCreateFailed, err)
}

func (r *membershipRepository) Get(ctx context.Context, userID int64) (*model.MembershipRecord, error) {
	rec, err := scanMembership(r.storage.pool.QueryRow(ctx, selectMembership, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("select membership %d: %w", userID, err)
	}
	return &rec, nil
}

func (r *membershipRepository) ListPurchases(ctx context.Context, userID int64) ([]model.Purchase, error) {
	rows, err := r.storage.pool.Query(ctx, selectPurchases, userID)
	if err != nil {
		return nil, fmt.Errorf("select purchases: %w", err)
	}
	defer rows.Close()

	var result []model.Purchase
	for rows.Next() {
		var (
			p      model.Purchase
			amount string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.OrderNumber, &amount, &p.OccurredAt, &p.RecordedAt); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("purchase %d amount: %w", p.ID, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *membershipRepository) ListExpired(ctx context.Context, now time.Time, afterID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.storage.pool.Query(ctx, selectExpired, now, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("select expired memberships: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func scanMembership(row pgx.Row) (model.MembershipRecord, error) {
	var (
		rec   model.MembershipRecord
		total string
	)
	if err := row.Scan(&rec.UserID, &rec.TierLevel, &rec.WindowStart, &rec.WindowEnd, &total, &rec.Version, &rec.UpdatedAt); err != nil {
		return model.MembershipRecord{}, err
	}
	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return model.MembershipRecord{}, fmt.Errorf("membership %d window total: %w", rec.UserID, err)
	}
	rec.WindowTotal = parsed
	return rec, nil
}
