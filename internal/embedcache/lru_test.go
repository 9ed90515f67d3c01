package embedcache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c, err := NewLRU(10)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if _, found, err := c.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := c.Get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if string(val) != "v" {
		t.Fatalf("got %q want %q", val, "v")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c, err := NewLRU(10)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Fatal("expected expired entry to be a miss")
	}
}

func TestLRUCacheOverwrite(t *testing.T) {
	c, err := NewLRU(10)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("first"), time.Minute)
	_ = c.Set(ctx, "k", []byte("second"), time.Minute)

	val, found, _ := c.Get(ctx, "k")
	if !found || string(val) != "second" {
		t.Fatalf("expected overwrite to win, got %q found=%v", val, found)
	}
}

func TestNewNoopAlwaysMisses(t *testing.T) {
	c := NewNoop()
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found, err := c.Get(ctx, "k"); err != nil || found {
		t.Fatalf("noop cache should never hit, found=%v err=%v", found, err)
	}
}

func TestNewFallsBackToNoopWhenDisabled(t *testing.T) {
	c, err := New("", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(noopCache); !ok {
		t.Fatalf("expected noopCache, got %T", c)
	}
}

func TestNewBuildsLRUByDefault(t *testing.T) {
	c, err := New("", 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*LRUCache); !ok {
		t.Fatalf("expected *LRUCache, got %T", c)
	}
}

func TestNewBuildsRemoteWhenURLSet(t *testing.T) {
	c, err := New("http://cache.internal:9000", 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(*RemoteCache); !ok {
		t.Fatalf("expected *RemoteCache, got %T", c)
	}
}
