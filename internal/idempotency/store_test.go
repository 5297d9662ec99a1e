package idempotency

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	res, err := store.Begin(ctx, "key-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if res.Outcome != OutcomeFresh {
		t.Fatalf("expected fresh claim, got %v", res.Outcome)
	}

	// Second begin while processing is rejected.
	res, _ = store.Begin(ctx, "key-1")
	if res.Outcome != OutcomeInProgress {
		t.Fatalf("expected in progress, got %v", res.Outcome)
	}

	if err := store.Complete(ctx, "key-1", []byte(`{"success":true}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}

	res, _ = store.Begin(ctx, "key-1")
	if res.Outcome != OutcomeCached {
		t.Fatalf("expected cached, got %v", res.Outcome)
	}
	if string(res.Cached) != `{"success":true}` {
		t.Fatalf("unexpected cached payload: %s", res.Cached)
	}
}

func TestMemoryStoreFailedIsRetryable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if res, _ := store.Begin(ctx, "key-2"); res.Outcome != OutcomeFresh {
		t.Fatalf("expected fresh claim")
	}
	if err := store.Fail(ctx, "key-2", []byte(`{"success":false,"error":"boom"}`)); err != nil {
		t.Fatalf("fail: %v", err)
	}

	res, _ := store.Begin(ctx, "key-2")
	if res.Outcome != OutcomeFresh {
		t.Fatalf("failed record should be reclaimable, got %v", res.Outcome)
	}

	rec, _ := store.Get(ctx, "key-2")
	if rec == nil || rec.Status != StatusProcessing {
		t.Fatalf("expected processing after reclaim, got %+v", rec)
	}
}

func TestMemoryStoreConcurrentBegin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	fresh := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Begin(ctx, "contested")
			if err != nil {
				t.Errorf("begin: %v", err)
				return
			}
			if res.Outcome == OutcomeFresh {
				fresh <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(fresh)

	var winners int
	for range fresh {
		winners++
	}
	if winners != 1 {
		t.Fatalf("expected exactly one fresh claim, got %d", winners)
	}
}
