package redis_wrapper

import (
	"testing"
	"time"
)

func TestOptions(t *testing.T) {
	cfg := &RedisConfig{
		ConnectionURL:      "redis://:secret@localhost:6380/2",
		PoolSize:           20,
		ReadTimeoutSeconds: 3,
	}
	opts, err := cfg.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.PoolSize != 20 || opts.ReadTimeout != 3*time.Second {
		t.Errorf("pool settings not applied: %+v", opts)
	}

	if _, err := (&RedisConfig{ConnectionURL: "http://nope"}).Options(); err == nil {
		t.Errorf("expected error for bad scheme")
	}
}

func TestCacheTTL(t *testing.T) {
	if got := (&RedisConfig{}).CacheTTL(); got != 24*time.Hour {
		t.Errorf("expected default ttl, got %v", got)
	}
	if got := (&RedisConfig{CacheTTLSeconds: 60}).CacheTTL(); got != time.Minute {
		t.Errorf("expected 1m, got %v", got)
	}
}
