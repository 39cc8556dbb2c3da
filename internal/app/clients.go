package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/secretsanta-backend/internal/platform/keylock"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/realtime"
	"github.com/yungbote/secretsanta-backend/internal/realtime/bus"
)

// Clients are the shared connections behind multi-instance deployments.
// Without REDIS_ADDR everything stays in process: local locks and a hub-only
// emitter.
type Clients struct {
	Redis   *goredis.Client
	Bus     bus.Bus
	Locks   keylock.Locker
	Emitter realtime.Emitter
}

func wireClients(log *logger.Logger, cfg Config, hub *realtime.Hub) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.Redis.Addr == "" {
		log.Info("REDIS_ADDR not set; using in-process locks and delivery")
		return Clients{
			Locks:   keylock.NewLocal(),
			Emitter: &realtime.HubEmitter{Hub: hub},
		}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	b, err := bus.NewRedisBus(log, rdb, cfg.Redis.Channel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis bus: %w", err)
	}
	return Clients{
		Redis:   rdb,
		Bus:     b,
		Locks:   keylock.NewRedis(rdb, "secretsanta:lock:", cfg.Redis.LockTTL),
		Emitter: &realtime.BusEmitter{Bus: b},
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
