package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestCodeReserverClaimsOnce(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	reserver := NewCodeReserver(newClient(mr), time.Minute)
	ctx := context.Background()

	ok, err := reserver.Reserve(ctx, "ABC234")
	if err != nil || !ok {
		t.Fatalf("expected first claim to win, got %v (%v)", ok, err)
	}
	if !mr.Exists("room:code:ABC234") {
		t.Fatalf("expected redis key to be set")
	}
	if ok, _ := reserver.Reserve(ctx, "ABC234"); ok {
		t.Fatalf("second claim must lose")
	}

	mr.FastForward(2 * time.Minute)
	if ok, _ := reserver.Reserve(ctx, "ABC234"); !ok {
		t.Fatalf("claim should be free after ttl")
	}

	if err := reserver.Release(ctx, "ABC234"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("room:code:ABC234") {
		t.Fatalf("expected redis key to be removed")
	}
}
