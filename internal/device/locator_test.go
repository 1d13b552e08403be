package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocator_ResolveAddress(t *testing.T) {
	db := testDB(t)
	repo := NewControllerRepository(db)
	locator := NewLocator(repo, time.Minute)

	// No heartbeat yet.
	if _, err := locator.ResolveAddress(context.Background(), "usr-1"); !errors.Is(err, ErrControllerUnavailable) {
		t.Errorf("ResolveAddress() error = %v, want ErrControllerUnavailable", err)
	}

	if err := repo.SetAddress(context.Background(), "192.168.1.50"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}

	addr, err := locator.ResolveAddress(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("ResolveAddress() error = %v", err)
	}
	if addr != "192.168.1.50" {
		t.Errorf("ResolveAddress() = %q, want %q", addr, "192.168.1.50")
	}
}

func TestLocator_AddressCachedPerCaller(t *testing.T) {
	db := testDB(t)
	repo := NewControllerRepository(db)
	locator := NewLocator(repo, time.Minute)

	if err := repo.SetAddress(context.Background(), "192.168.1.50"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}
	if _, err := locator.ResolveAddress(context.Background(), "usr-1"); err != nil {
		t.Fatalf("ResolveAddress() error = %v", err)
	}

	// The address changes; usr-1's cached entry keeps serving the old one,
	// a fresh caller sees the new one.
	if err := repo.SetAddress(context.Background(), "192.168.1.99"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}

	stale, err := locator.ResolveAddress(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("ResolveAddress() error = %v", err)
	}
	if stale != "192.168.1.50" {
		t.Errorf("cached ResolveAddress() = %q, want stale %q", stale, "192.168.1.50")
	}

	fresh, err := locator.ResolveAddress(context.Background(), "usr-2")
	if err != nil {
		t.Fatalf("ResolveAddress() error = %v", err)
	}
	if fresh != "192.168.1.99" {
		t.Errorf("fresh caller ResolveAddress() = %q, want %q", fresh, "192.168.1.99")
	}

	// Invalidation drops all cached addresses.
	locator.InvalidateAddresses()
	addr, err := locator.ResolveAddress(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("ResolveAddress() error = %v", err)
	}
	if addr != "192.168.1.99" {
		t.Errorf("ResolveAddress() after invalidation = %q, want %q", addr, "192.168.1.99")
	}
}

func TestLocator_ResolveModeAlwaysFresh(t *testing.T) {
	db := testDB(t)
	repo := NewControllerRepository(db)
	locator := NewLocator(repo, time.Minute)

	if err := repo.SetAddress(context.Background(), "192.168.1.50"); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}

	mode, err := locator.ResolveMode(context.Background())
	if err != nil {
		t.Fatalf("ResolveMode() error = %v", err)
	}
	if mode != ModeNormal {
		t.Errorf("ResolveMode() = %q, want %q", mode, ModeNormal)
	}

	if err := repo.SetMode(context.Background(), ModeOpen); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}

	mode, err = locator.ResolveMode(context.Background())
	if err != nil {
		t.Fatalf("ResolveMode() error = %v", err)
	}
	if mode != ModeOpen {
		t.Errorf("ResolveMode() = %q, mode reads must never be cached", mode)
	}
}
