package idempotency

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	key := "pg-test-" + time.Now().Format("150405.000000000")

	res, err := store.Begin(ctx, key)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if res.Outcome != OutcomeFresh {
		t.Fatalf("expected fresh claim, got %v", res.Outcome)
	}

	if res, _ := store.Begin(ctx, key); res.Outcome != OutcomeInProgress {
		t.Fatalf("expected in progress, got %v", res.Outcome)
	}

	payload := []byte(`{"success":true,"holdId":"0xabc"}`)
	if err := store.Complete(ctx, key, payload); err != nil {
		t.Fatalf("complete: %v", err)
	}

	res, err = store.Begin(ctx, key)
	if err != nil {
		t.Fatalf("begin after complete: %v", err)
	}
	if res.Outcome != OutcomeCached || string(res.Cached) != string(payload) {
		t.Fatalf("unexpected cached result: %v %s", res.Outcome, res.Cached)
	}
}

func TestPostgresStoreFailedReclaim(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()

	key := "pg-fail-" + time.Now().Format("150405.000000000")

	if res, _ := store.Begin(ctx, key); res.Outcome != OutcomeFresh {
		t.Fatalf("expected fresh claim")
	}
	if err := store.Fail(ctx, key, []byte(`{"success":false}`)); err != nil {
		t.Fatalf("fail: %v", err)
	}

	res, err := store.Begin(ctx, key)
	if err != nil {
		t.Fatalf("begin after fail: %v", err)
	}
	if res.Outcome != OutcomeFresh {
		t.Fatalf("failed record should be reclaimable, got %v", res.Outcome)
	}
}
