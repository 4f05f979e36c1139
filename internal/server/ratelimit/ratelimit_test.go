package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/entity-catalog/internal/config"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, interface{ Advance(time.Duration) }) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	limiter := NewLimiterWithClock(cfg, clock)
	t.Cleanup(limiter.Stop)
	return limiter, clock
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/entities/count", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/api/entities/count", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, info.RetryAfter, 6*time.Second, "one token refills every 6s")
}

func TestLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  60,
		DefaultWindow: time.Minute,
	})

	for i := 0; i < 60; i++ {
		limiter.Allow("10.0.0.1", "/", "GET")
	}
	allowed, _ := limiter.Allow("10.0.0.1", "/", "GET")
	require.False(t, allowed)

	clock.Advance(time.Second)

	allowed, _ = limiter.Allow("10.0.0.1", "/", "GET")
	assert.True(t, allowed, "one token per second")
	allowed, _ = limiter.Allow("10.0.0.1", "/", "GET")
	assert.False(t, allowed)
}

func TestLimiter_ResetTime(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: 10 * time.Second,
	})

	var info Info
	for i := 0; i < 5; i++ {
		_, info = limiter.Allow("10.0.0.1", "/", "GET")
	}

	assert.Equal(t, 5, info.Remaining)
	assert.True(t, info.ResetTime.After(time.Time{}))
}

func TestLimiter_Whitelist(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
	})

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/", "GET")
		require.True(t, allowed)
		assert.Equal(t, 0, info.Limit)
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})

	allowed, _ := limiter.Allow("192.168.1.1", "/", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{Enabled: false, DefaultLimit: 1})

	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})

	// Tree endpoint allows a burst of 10
	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/entities/entities-tree", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 60, info.Limit)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/api/entities/entities-tree", "GET")
	assert.False(t, allowed)

	// Other endpoints keep their own buckets
	allowed, info := limiter.Allow("127.0.0.1", "/api/entities/domains-tree", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 60, info.Limit)

	allowed, info = limiter.Allow("127.0.0.1", "/api/entity-detail/entity", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 300, info.Limit)

	// Health is unlimited
	for i := 0; i < 50; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})

	var wg sync.WaitGroup
	var allowedCount atomic.Int64
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("127.0.0.1", "/", "GET"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), allowedCount.Load())
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter, clock := newTestLimiter(t, &Config{
		Enabled:         true,
		DefaultLimit:    10,
		DefaultWindow:   time.Minute,
		CleanupInterval: time.Minute,
	})

	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("10.0.0.%d", i), "/", "GET")
	}
	require.Equal(t, 5, limiter.Len())

	clock.Advance(30 * time.Minute)
	limiter.Allow("10.0.0.1", "/", "GET")
	clock.Advance(45 * time.Minute)

	limiter.cleanupBuckets()
	assert.Equal(t, 1, limiter.Len(), "only the recently seen client survives")
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Second, CleanupInterval: time.Second})
	limiter.Stop()
	assert.NotPanics(t, limiter.Stop)
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter, _ := newTestLimiter(t, nil)

	allowed, info := limiter.Allow("127.0.0.1", "/", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		name      string
		path      string
		method    string
		wantLimit int
		wantNil   bool
	}{
		{"health unlimited", "/health", "GET", 0, false},
		{"metrics unlimited", "/metrics", "GET", 0, false},
		{"exact match", "/api/entities/domains-tree", "GET", 60, false},
		{"prefix match", "/api/entity-detail/entity-sources", "GET", 300, false},
		{"wrong method", "/api/entities/domains-tree", "POST", 0, true},
		{"default", "/api/entities/count", "GET", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  50,
		DefaultWindow: time.Minute,
		Whitelist:     []string{"127.0.0.1, ::1", " "},
		Blacklist:     []string{"10.0.0.9"},
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, map[string]bool{"127.0.0.1": true, "::1": true}, cfg.Whitelist)
	assert.Equal(t, map[string]bool{"10.0.0.9": true}, cfg.Blacklist)
	assert.NotEmpty(t, cfg.EndpointConfigs)

	disabled := FromConfig(config.RateLimitConfig{Enabled: false, DefaultLimit: 50})
	assert.False(t, disabled.Enabled)
}
