package claimlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/claimflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyClaimLock     = "claimflow:claim:lock:%s"
	remoteRetryDelay = 50 * time.Millisecond
	remoteMaxWait    = 2 * time.Second
)

var ErrLockBusy = errors.New("claim_locked")

// Locker serializes mutations of a single claim.
type Locker interface {
	Lock(ctx context.Context, claimID string) (unlock func(), err error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	Remote    *RedisLocker                  `optional:"true"`
	Lifecycle *config.LifecycleConfigHolder `optional:"true"`
}

// ClaimLocker always takes an in-process lock for the claim and, when Redis is
// configured, a Redis lease on top of it.
type ClaimLocker struct {
	log       *zap.Logger
	local     *keyedMutex
	remote    *RedisLocker
	lifecycle *config.LifecycleConfigHolder
}

func New(p Params) Locker {
	return newClaimLocker(p)
}

func newClaimLocker(p Params) *ClaimLocker {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &ClaimLocker{
		log:       log.Named("claim.lock"),
		local:     newKeyedMutex(),
		remote:    p.Remote,
		lifecycle: p.Lifecycle,
	}
}

func (l *ClaimLocker) Lock(ctx context.Context, claimID string) (func(), error) {
	unlockLocal, err := l.local.lock(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if l.remote == nil {
		return unlockLocal, nil
	}

	key := fmt.Sprintf(keyClaimLock, claimID)
	token, err := l.acquireRemote(ctx, key)
	if err != nil {
		unlockLocal()
		return nil, err
	}

	return func() {
		if err := l.remote.Release(context.WithoutCancel(ctx), key, token); err != nil {
			l.log.Warn("release claim lock failed", zap.String("claim_id", claimID), zap.Error(err))
		}
		unlockLocal()
	}, nil
}

func (l *ClaimLocker) acquireRemote(ctx context.Context, key string) (string, error) {
	ttl := time.Duration(l.lifecycle.Get().LockTTLSeconds) * time.Second
	deadline := time.Now().Add(remoteMaxWait)

	for {
		token, ok, err := l.remote.TryLock(ctx, key, ttl)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockBusy
		}

		timer := time.NewTimer(remoteRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
