package backend

import (
	"context"
	"path/filepath"
	"testing"

	"mamaboss/internal/config"
	"mamaboss/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "file", DataDir: "/tmp/docs", SQLiteDBPath: "x.db"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != FileBackend || got.DataDirectory != "/tmp/docs" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("FromAppConfig() expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig() expected error for nil config")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"file without dir", Config{Type: FileBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	factory := NewFactory(nil)

	configs := []Config{
		{Type: MemoryBackend},
		{Type: FileBackend, DataDirectory: filepath.Join(dir, "docs")},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "db", "mamaboss.db")},
	}
	for _, cfg := range configs {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Cleanup()

			if err := res.Store.Set(ctx, "u1", storage.KeyTasks, []byte(`[]`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if _, err := res.Store.Get(ctx, "u1", storage.KeyTasks); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		})
	}
}
