package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finwise/internal/config"
	"finwise/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", SeedDemo: true})
	if err != nil || cfg.Type != SQLiteBackend || !cfg.SeedDemo || cfg.SQLiteDBPath != "x.db" {
		t.Fatalf("unexpected config %+v (err=%v)", cfg, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"memory with amqp", Config{Type: MemoryBackend, AMQPURL: "amqp://x"}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemoryBackend(t *testing.T) {
	f := NewFactory(nil)

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedDemo: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Cleanup()
	if res.Repository != nil {
		t.Fatal("memory backend should not open a repository")
	}
	if n := len(res.Service.List()); n != 3 {
		t.Fatalf("expected demo seed, got %d transactions", n)
	}

	empty, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := len(empty.Service.List()); n != 0 {
		t.Fatalf("expected an empty ledger, got %d", n)
	}
}

func TestSQLiteBackendSurvivesRestart(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "finwise.db"), SeedDemo: true}

	res, err := f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	added, err := res.Service.AddTransaction(ctx, core.NewTransaction{
		Type:        core.Income,
		Amount:      core.Money{Cents: 25000},
		Description: "Freelance",
		Category:    "Extra",
		Date:        time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := res.Service.TogglePaid(ctx, "2"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	res, err = f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer res.Cleanup()

	list := res.Service.List()
	if len(list) != 4 || list[0].ID != added.ID {
		t.Fatalf("restored ledger = %+v", list)
	}
	if tx, ok := res.Service.Get("2"); !ok || !tx.Paid {
		t.Fatalf("paid flag not restored: %+v", tx)
	}
}
