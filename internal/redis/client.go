package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client
type Client struct {
	*redis.Client
}

// Config holds Redis configuration
type Config struct {
	Host        string        `env:"HOST" envDefault:"localhost" yaml:"host"`
	Port        string        `env:"PORT" envDefault:"6379" yaml:"port"`
	Password    string        `env:"PASSWORD" yaml:"password"`
	DB          int           `env:"DB" envDefault:"0" yaml:"db"`
	PoolSize    int           `env:"POOL_SIZE" envDefault:"10" yaml:"pool_size"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" envDefault:"10s" yaml:"dial_timeout"`
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewClient creates a new Redis client with the provided configuration
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr(),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolTimeout:  30 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb}, nil
}
