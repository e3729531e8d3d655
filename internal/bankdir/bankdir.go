// Package bankdir resolves bank slugs to the code and display name the
// transfer rail expects.
package bankdir

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"starkpay/internal/apperr"
	"starkpay/internal/models"
	"starkpay/internal/store"
)

type Store interface {
	GetBySlug(ctx context.Context, slug string) (models.Bank, error)
}

type Directory struct {
	store  Store
	cache  *redis.Client
	ttl    time.Duration
	prefix string
}

func New(store Store, cache *redis.Client, ttl time.Duration) *Directory {
	return &Directory{store: store, cache: cache, ttl: ttl, prefix: "bank:"}
}

// Resolve reads through the cache. A cache failure falls back to the
// database; a missing bank is NotFound.
func (d *Directory) Resolve(ctx context.Context, slug string) (models.Bank, error) {
	if bank, ok := d.cached(ctx, slug); ok {
		return bank, nil
	}
	bank, err := d.store.GetBySlug(ctx, slug)
	if store.IsNotFound(err) {
		return models.Bank{}, apperr.NotFound("Bank not found")
	}
	if err != nil {
		return models.Bank{}, apperr.Wrap(apperr.KindServiceUnavailable, "Failed to get bank", err)
	}
	d.remember(ctx, bank)
	return bank, nil
}

func (d *Directory) cached(ctx context.Context, slug string) (models.Bank, bool) {
	if d.cache == nil {
		return models.Bank{}, false
	}
	raw, err := d.cache.Get(ctx, d.prefix+slug).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("slug", slug).Msg("bank cache read failed")
		}
		return models.Bank{}, false
	}
	var bank models.Bank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return models.Bank{}, false
	}
	return bank, true
}

func (d *Directory) remember(ctx context.Context, bank models.Bank) {
	if d.cache == nil {
		return
	}
	payload, err := json.Marshal(bank)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, d.prefix+bank.Slug, payload, d.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("slug", bank.Slug).Msg("bank cache write failed")
	}
}
