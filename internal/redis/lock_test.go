package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func setupTestLock(t *testing.T) (*Lock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLock(client, time.Minute), mr
}

func TestLock_AcquireAndRelease(t *testing.T) {
	lock, _ := setupTestLock(t)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "drawing:pro:2026-08")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !acquired {
		t.Fatal("Expected to acquire a free lock")
	}

	// Second acquire fails while held.
	acquired, err = lock.Acquire(ctx, "drawing:pro:2026-08")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if acquired {
		t.Error("Expected held lock not to be re-acquired")
	}

	if err := lock.Release(ctx, "drawing:pro:2026-08"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	acquired, err = lock.Acquire(ctx, "drawing:pro:2026-08")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !acquired {
		t.Error("Expected released lock to be acquirable")
	}
}

func TestLock_DifferentNamesIndependent(t *testing.T) {
	lock, _ := setupTestLock(t)
	ctx := context.Background()

	for _, name := range []string{"drawing:lite:2026-08", "drawing:pro:2026-08"} {
		acquired, err := lock.Acquire(ctx, name)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !acquired {
			t.Errorf("Expected lock %q to be free", name)
		}
	}
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	lock, mr := setupTestLock(t)
	ctx := context.Background()

	if acquired, _ := lock.Acquire(ctx, "drawing:champ:2026-08"); !acquired {
		t.Fatal("Expected to acquire a free lock")
	}

	// A crashed holder never releases; the TTL frees the lock.
	mr.FastForward(2 * time.Minute)

	acquired, err := lock.Acquire(ctx, "drawing:champ:2026-08")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !acquired {
		t.Error("Expected expired lock to be acquirable")
	}
}

func TestLock_ReleaseUnheldIsNoError(t *testing.T) {
	lock, _ := setupTestLock(t)

	if err := lock.Release(context.Background(), "never-held"); err != nil {
		t.Errorf("Expected releasing an unheld lock to be a no-op, got %v", err)
	}
}
