//go:build integration

package scroll

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/spacex-explorer/internal/testutil"
	"github.com/Sternrassler/spacex-explorer/pkg/filter"
	"github.com/rs/zerolog"
)

func TestIntegration_RedisStore(t *testing.T) {
	storeContract(t, NewRedisStore(testutil.StartRedis(t), 0, zerolog.Nop()))
}

// Two server instances share one view through Redis.
func TestIntegration_HandoffAcrossInstances(t *testing.T) {
	client := testutil.StartRedis(t)
	ctx := context.Background()

	first := NewController(NewRedisStore(client, time.Minute, zerolog.Nop()), "s1:launches", zerolog.Nop())
	second := NewController(NewRedisStore(client, time.Minute, zerolog.Nop()), "s1:launches", zerolog.Nop())

	if _, ok, err := first.OnProximity(ctx, Proximity{RenderedCount: 20, ScrollY: 640, HasMore: true}, filter.Default()); err != nil || !ok {
		t.Fatalf("OnProximity() = %v, %v", ok, err)
	}

	loading, err := second.Mount(ctx, Handoff{})
	if err != nil || !loading {
		t.Fatalf("Mount() = %v, %v; want true", loading, err)
	}

	restore, ok, err := second.OnData(ctx, 40)
	if err != nil || !ok || restore.ScrollY != 640 {
		t.Fatalf("OnData() = %+v, %v, %v", restore, ok, err)
	}

	ttl := client.TTL(ctx, RedisKeyPrefix+"s1:launches").Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("view state TTL = %v, want within (0, 1m]", ttl)
	}
}
