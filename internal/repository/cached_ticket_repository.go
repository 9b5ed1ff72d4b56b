package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsguardian/backend/internal/domain"
)

// cachedTicketRepository is a read-through cache in front of the Postgres
// repository. Only GetByID is cached; every write invalidates the entry before
// and after hitting the store so a concurrent reader never sees a stale ticket
// past the TTL.
type cachedTicketRepository struct {
	inner  TicketRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedTicketRepository wraps inner with a redis GetByID cache. Returns
// inner unchanged when client is nil or ttl is zero.
func NewCachedTicketRepository(inner TicketRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) TicketRepository {
	if client == nil || ttl <= 0 {
		return inner
	}
	return &cachedTicketRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (r *cachedTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.inner.Create(ctx, ticket); err != nil {
		return err
	}
	r.invalidate(ctx, ticket.ID)
	return nil
}

func (r *cachedTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.invalidate(ctx, ticket.ID)
	if err := r.inner.Update(ctx, ticket); err != nil {
		return err
	}
	r.invalidate(ctx, ticket.ID)
	return nil
}

func (r *cachedTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	key := cacheKey(id)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var ticket domain.Ticket
		if err := json.Unmarshal(raw, &ticket); err == nil {
			return &ticket, nil
		}
		r.invalidate(ctx, id)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("ticket cache read failed", zap.Int64("ticket_id", id), zap.Error(err))
	}

	ticket, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(ticket); err == nil {
		if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
			r.logger.Warn("ticket cache write failed", zap.Int64("ticket_id", id), zap.Error(err))
		}
	}
	return ticket, nil
}

func (r *cachedTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	return r.inner.List(ctx)
}

func (r *cachedTicketRepository) Search(ctx context.Context, term string) ([]domain.Ticket, error) {
	return r.inner.Search(ctx, term)
}

func (r *cachedTicketRepository) invalidate(ctx context.Context, id int64) {
	if id == 0 {
		return
	}
	if err := r.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		r.logger.Warn("ticket cache invalidation failed", zap.Int64("ticket_id", id), zap.Error(err))
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("ticket:%d", id)
}
