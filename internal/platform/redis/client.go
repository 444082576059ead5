package redis

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/task-orchestrator/internal/config"
)

// NewClient creates a client from a redis:// or rediss:// URL.
// The connection is established lazily on first use.
func NewClient(cfg config.RedisConfig) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}
