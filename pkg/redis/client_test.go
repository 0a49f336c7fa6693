package redis

import (
	"testing"
	"time"

	"github.com/dvalenciar/labelworks-backend/pkg/config"
)

func TestOptionsFromConfig_RequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}

func TestOptionsFromConfig_ParsesURL(t *testing.T) {
	cfg := config.RedisConfig{
		URL:         "redis://localhost:6379/2",
		PoolSize:    7,
		DialTimeout: 3 * time.Second,
	}
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 7 {
		t.Fatalf("expected pool size fallback, got %d", opts.PoolSize)
	}
}

func TestLockKey_Namespaced(t *testing.T) {
	c := &Client{}
	if got := c.LockKey("cron-worker"); got != "lw:lock:cron-worker" {
		t.Fatalf("unexpected lock key %q", got)
	}
}
