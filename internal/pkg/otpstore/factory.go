package otpstore

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/melody/internal/pkg/clock"
)

// Config selects and configures a Store implementation.
type Config struct {
	// Driver is "memory" or "redis".
	Driver  string
	Options Options
	// Redis is required for the redis driver.
	Redis redis.UniversalClient
	// KeyFunc maps identifiers to Redis key fragments (redis driver only).
	KeyFunc func(string) string
	// Clock is used by the memory driver.
	Clock clock.Clocker
}

// New builds the Store named by cfg.Driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(cfg.Options, cfg.Clock), nil
	case "redis":
		if cfg.Redis == nil {
			return nil, fmt.Errorf("otpstore: redis driver requires a client")
		}
		return NewRedis(cfg.Redis, cfg.Options, cfg.KeyFunc), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
