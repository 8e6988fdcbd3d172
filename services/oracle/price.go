package oracle

import (
	"context"
	"fmt"
	"time"

	"stakemine/pkg/config"
	"stakemine/pkg/db/option"
	"stakemine/pkg/errutil"
	"stakemine/pkg/rediskey"
	"stakemine/pkg/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PriceOracle supplies the monetary value of one reward token. The daily
// reward job reads it exactly once per run and pins the value in its
// snapshot.
type PriceOracle interface {
	CurrentPrice(ctx context.Context) (float64, error)
}

var Module = fx.Module("oracle.service",
	fx.Provide(ProvideOracle),
)

type OracleParams struct {
	fx.In
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client `optional:"true"`
}

func ProvideOracle(p OracleParams) PriceOracle {
	source := NewStoreSource(p.DB, p.Config.Reward.TokenSymbol)
	if p.Redis == nil {
		return source
	}
	return NewCached(source, p.Redis, p.Config.Reward.TokenSymbol, p.Config.Reward.PriceCacheTTL)
}

// StoreSource reads the latest observed price from the token_prices table.
type StoreSource struct {
	prices repository.Repository[TokenPrice]
	symbol string
}

func NewStoreSource(db *gorm.DB, symbol string) *StoreSource {
	return &StoreSource{
		prices: repository.ProvideStore[TokenPrice](db),
		symbol: symbol,
	}
}

func (s *StoreSource) CurrentPrice(ctx context.Context) (float64, error) {
	rows, err := s.prices.Find(ctx, &TokenPrice{Symbol: s.symbol},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithLimit(1),
	)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errutil.NotFound(fmt.Sprintf("no price observed for %s", s.symbol), nil)
	}
	if rows[0].Price <= 0 {
		return 0, errutil.UnprocessableEntity(fmt.Sprintf("non-positive price observed for %s", s.symbol), nil)
	}
	return rows[0].Price, nil
}

// Cached decorates a PriceOracle with a short-lived redis cache so bursts of
// reads inside one run window hit the store once.
type Cached struct {
	source PriceOracle
	rdb    *redis.Client
	key    string
	ttl    time.Duration
}

func NewCached(source PriceOracle, rdb *redis.Client, symbol string, ttl time.Duration) *Cached {
	return &Cached{
		source: source,
		rdb:    rdb,
		key:    rediskey.BuildOraclePriceKey(symbol),
		ttl:    ttl,
	}
}

func (c *Cached) CurrentPrice(ctx context.Context) (float64, error) {
	val, err := c.rdb.Get(ctx, c.key).Float64()
	if err == nil && val > 0 {
		return val, nil
	}
	if err != nil && err != redis.Nil {
		zap.L().Warn("price cache read failed, falling back to store", zap.Error(err))
	}

	price, err := c.source.CurrentPrice(ctx)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, c.key, price, c.ttl).Err(); err != nil {
		zap.L().Warn("price cache write failed", zap.Error(err))
	}

	return price, nil
}
