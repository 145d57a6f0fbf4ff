package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "lakehouse_voc/internal/adapters/redis"
)

func TestCacheRoundTripMissAndDel(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Share float64 `json:"share"`
	}
	in := payload{Name: "Austin Central", Share: 51.0}
	if err := c.Set(ctx, "props:hq:all", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := mr.TTL("props:hq:all"); got != 60*time.Second {
		t.Fatalf("ttl = %v, want 60s", got)
	}

	var out payload
	ok, err := c.Get(ctx, "props:hq:all", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	ok, err = c.Get(ctx, "absent", &out)
	if err != nil || ok {
		t.Fatalf("want clean miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Del(ctx, "props:hq:all"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "props:hq:all", &out); ok {
		t.Fatalf("key survived del")
	}
}
