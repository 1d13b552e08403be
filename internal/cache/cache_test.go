package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string](time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache should miss")
	}

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("Get() after Set() should hit")
	}
	if got != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestExpiry_AbsoluteFromWrite(t *testing.T) {
	now := time.Now()
	c := New[int](10 * time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", 42)

	// Reads inside the window do not extend the TTL.
	now = now.Add(9 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should still be live inside TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should have expired 10 minutes after write")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed, Len() = %d", c.Len())
	}
}

func TestSet_ResetsTTL(t *testing.T) {
	now := time.Now()
	c := New[int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", 1)
	now = now.Add(50 * time.Second)
	c.Set("k", 2)
	now = now.Add(50 * time.Second)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("rewrite should reset the TTL")
	}
	if got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}

func TestDelete(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Get() after Delete() should miss")
	}
	c.Delete("k") // deleting an absent key is a no-op
}

func TestFlush(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Flush()
	if c.Len() != 0 {
		t.Errorf("Len() after Flush() = %d, want 0", c.Len())
	}
}

func TestGetOrLoad_CachesResult(t *testing.T) {
	c := New[string](time.Minute)
	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		return "loaded", nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrLoad(context.Background(), "k", load)
		if err != nil {
			t.Fatalf("GetOrLoad() error = %v", err)
		}
		if got != "loaded" {
			t.Errorf("GetOrLoad() = %q, want %q", got, "loaded")
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	c := New[string](time.Minute)
	wantErr := errors.New("store down")
	calls := 0

	for i := 0; i < 2; i++ {
		_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
			calls++
			return "", wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("GetOrLoad() error = %v, want %v", err, wantErr)
		}
	}
	if calls != 2 {
		t.Errorf("failed loads should not be cached, loader called %d times", calls)
	}
}

func TestGetOrLoad_SingleFlight(t *testing.T) {
	c := New[int](time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", load)
			if err != nil {
				t.Errorf("GetOrLoad() error = %v", err)
			}
			results[i] = v
		}(i)
	}

	// Let the goroutines pile up on the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	for i, v := range results {
		if v != 7 {
			t.Errorf("worker %d got %d, want 7", i, v)
		}
	}
}
