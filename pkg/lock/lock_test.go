package lock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLockerSerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	var mu sync.Mutex
	var active, maxActive int

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "s-1")
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			_ = release(ctx)
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxActive)
	}
}

func TestMemoryLockerIndependentKeysDoNotBlock(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "s-1")
	if err != nil {
		t.Fatalf("Acquire(s-1) error = %v", err)
	}
	defer func() { _ = releaseA(ctx) }()

	done := make(chan struct{})
	go func() {
		releaseB, err := locker.Acquire(ctx, "s-2")
		if err == nil {
			_ = releaseB(ctx)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring an independent key blocked")
	}
}

func TestMemoryLockerAcquireHonorsContext(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "s-1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = release(ctx) }()

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(waitCtx, "s-1"); err == nil {
		t.Fatal("Acquire() on held lock should fail once ctx is done")
	}
}
