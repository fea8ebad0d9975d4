package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"finwise/internal/ledger"
	applog "finwise/internal/log"
	"finwise/internal/sheets/memory"
	"finwise/internal/storage"
	"finwise/internal/worker"
)

func TestReconcileLoopExportsAndStops(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	defer repo.Close()
	if _, err := repo.SeedIfEmpty(context.Background(), ledger.DemoSeed()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	exp := memory.New()
	w := worker.NewExportWorker(repo, exp, 10)
	logger := applog.New(applog.Config{Output: io.Discard})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reconcileLoop(ctx, logger, w, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(exp.Rows()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := len(exp.Rows()); n != 3 {
		t.Fatalf("exported %d rows, want 3", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("loop returned %v, want nil on cancellation", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
}
