package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "hello", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got string
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestMemoryCacheGetTypedDest(t *testing.T) {
	type payload struct {
		Name  string
		Count int
	}
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "p", &payload{Name: "a", Count: 3}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	if err := mc.Get(ctx, "p", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "a" || got.Count != 3 {
		t.Fatalf("got %+v", got)
	}

	// value stored by value, read into a matching pointer type
	if err := mc.Set(ctx, "v", payload{Name: "b"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got2 payload
	if err := mc.Get(ctx, "v", &got2); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got2.Name != "b" {
		t.Fatalf("got %+v", got2)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var got string
	err := mc.Get(context.Background(), "absent", &got)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got string
	if err := mc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v, want ErrCacheMiss", err)
	}
}
