package cache

import "time"

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisConfig)

func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) { c.Host = host }
}

func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) { c.Port = port }
}

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

func WithRedisPoolSize(size int) RedisOption {
	return func(c *RedisConfig) { c.PoolSize = size }
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryConfig holds in-process cache settings.
type MemoryConfig struct {
	MaxSize       int
	SweepInterval time.Duration
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryConfig)

func WithMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.SweepInterval = interval }
}
