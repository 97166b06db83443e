package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/repository"
	"creative-ai-studio/internal/infra/metrics"
	red "creative-ai-studio/internal/infra/redis"
)

var _ repository.AccountRepository = (*accountRepoCacheDecorator)(nil)

// accountRepoCacheDecorator keeps recently read accounts in Redis.
// Balance writes invalidate rather than update, so a subsequent read
// always reflects the confirmed store value.
type accountRepoCacheDecorator struct {
	inner repository.AccountRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewAccountRepoCacheDecorator(inner repository.AccountRepository, cache red.RedisClient, ttl time.Duration) repository.AccountRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &accountRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func accountIDKey(id string) string       { return fmt.Sprintf("account:id:%s", id) }
func accountEmailKey(email string) string { return fmt.Sprintf("account:email:%s", email) }

func (d *accountRepoCacheDecorator) Save(ctx context.Context, qx any, a *model.Account) error {
	_ = d.cache.Del(ctx, accountIDKey(a.ID), accountEmailKey(a.Email))
	return d.inner.Save(ctx, qx, a)
}

func (d *accountRepoCacheDecorator) UpdateBalance(ctx context.Context, qx any, id string, balance model.CreditBalance) error {
	if err := d.inner.UpdateBalance(ctx, qx, id, balance); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, accountIDKey(id))
	return nil
}

func (d *accountRepoCacheDecorator) FindByID(ctx context.Context, qx any, id string) (*model.Account, error) {
	key := accountIDKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("account", "hit")
		var a model.Account
		if json.Unmarshal([]byte(val), &a) == nil {
			return &a, nil
		}
	}

	metrics.IncCacheRequest("account", "miss")
	a, err := d.inner.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, a)
	return a, nil
}

func (d *accountRepoCacheDecorator) FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error) {
	key := accountEmailKey(email)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("account", "hit")
		var a model.Account
		if json.Unmarshal([]byte(val), &a) == nil {
			return &a, nil
		}
	}

	metrics.IncCacheRequest("account", "miss")
	a, err := d.inner.FindByEmail(ctx, qx, email)
	if err != nil {
		return nil, err
	}
	d.warm(ctx, a)
	return a, nil
}

func (d *accountRepoCacheDecorator) warm(ctx context.Context, a *model.Account) {
	if a == nil {
		return
	}
	if bytes, err := json.Marshal(a); err == nil {
		_ = d.cache.Set(ctx, accountIDKey(a.ID), bytes, d.ttl)
		_ = d.cache.Set(ctx, accountEmailKey(a.Email), bytes, d.ttl)
	}
}
