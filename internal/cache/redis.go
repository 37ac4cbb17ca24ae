package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	kcerrors "github.com/suhailma1ik/KinCashBackend/pkg/errors"
)

const (
	lockKeyPrefix = "kincash:loan-lock:"
	idemKeyPrefix = "kincash:payment-idem:"
)

// LoanLocker serializes writers per loan: at most one mutation (activation,
// allocation, state transition) runs against a loan at a time. Loans are
// independent; there is no cross-loan coordination.
type LoanLocker interface {
	Acquire(ctx context.Context, loanID string) (release func(), err error)
}

// IdempotencyStore persists payment results keyed by loan plus the
// caller-supplied idempotency key, so a retried request returns the prior
// result instead of re-allocating. Scoping by loan means reusing a key
// against a different loan is a fresh payment, never a replay of another
// loan's result.
type IdempotencyStore interface {
	Get(ctx context.Context, loanID, key string) (*domain.PaymentResult, error)
	Put(ctx context.Context, loanID, key string, result *domain.PaymentResult) error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLoanLocker(client *redis.Client, ttl time.Duration) LoanLocker {
	return &redisLocker{client: client, ttl: ttl}
}

// Acquire takes the per-loan lock with SET NX. A held lock surfaces as a
// retryable LoanBusy error rather than blocking; the TTL bounds the hold time
// if a process dies mid-operation.
func (l *redisLocker) Acquire(ctx context.Context, loanID string) (func(), error) {
	key := lockKeyPrefix + loanID

	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, kcerrors.WrapCacheError(err)
	}
	if !ok {
		return nil, kcerrors.WrapLoanBusy(loanID)
	}

	release := func() {
		l.client.Del(context.Background(), key)
	}
	return release, nil
}

type redisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) IdempotencyStore {
	return &redisIdempotencyStore{client: client, ttl: ttl}
}

// Get returns the stored result for a loan and key, nil when unseen.
func (s *redisIdempotencyStore) Get(ctx context.Context, loanID, key string) (*domain.PaymentResult, error) {
	raw, err := s.client.Get(ctx, idemKey(loanID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, kcerrors.WrapCacheError(err)
	}

	var result domain.PaymentResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, kcerrors.WrapCacheError(err)
	}
	return &result, nil
}

func (s *redisIdempotencyStore) Put(ctx context.Context, loanID, key string, result *domain.PaymentResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return kcerrors.WrapCacheError(err)
	}

	if err := s.client.Set(ctx, idemKey(loanID, key), raw, s.ttl).Err(); err != nil {
		return kcerrors.WrapCacheError(err)
	}
	return nil
}

func idemKey(loanID, key string) string {
	return idemKeyPrefix + loanID + ":" + key
}
