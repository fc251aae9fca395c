package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverMemory)
	}
	if cfg.Generation.Provider != ProviderTemplate {
		t.Errorf("Generation.Provider = %q, want %q", cfg.Generation.Provider, ProviderTemplate)
	}
	if cfg.Generation.Timeout != 60*time.Second {
		t.Errorf("Generation.Timeout = %v, want 60s", cfg.Generation.Timeout)
	}
	if cfg.Generation.MaxConcurrent < 4 || cfg.Generation.MaxConcurrent > 32 {
		t.Errorf("Generation.MaxConcurrent = %d, want within [4, 32]", cfg.Generation.MaxConcurrent)
	}
	if cfg.Images.Storage != ImageStorageLocal {
		t.Errorf("Images.Storage = %q, want %q", cfg.Images.Storage, ImageStorageLocal)
	}
	if cfg.Events.RedisAddr != "" {
		t.Errorf("Events.RedisAddr = %q, want empty", cfg.Events.RedisAddr)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("GENERATION_MAX_CONCURRENT", "2")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Generation.Timeout != 5*time.Second {
		t.Errorf("Generation.Timeout = %v, want 5s", cfg.Generation.Timeout)
	}
	if cfg.Generation.MaxConcurrent != 2 {
		t.Errorf("Generation.MaxConcurrent = %d, want 2", cfg.Generation.MaxConcurrent)
	}
	if cfg.Generation.LLM.Temperature != 0.2 {
		t.Errorf("LLM.Temperature = %v, want 0.2", cfg.Generation.LLM.Temperature)
	}
	if got := strings.Join(cfg.Server.AllowedOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("AllowedOrigins = %q", got)
	}
	if !cfg.Tracing.Enabled {
		t.Error("Tracing.Enabled = false, want true")
	}
	if cfg.Events.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want fallback 0", cfg.Events.RedisDB)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown driver",
			env:     map[string]string{"STORAGE_DRIVER": "sqlite"},
			wantErr: "STORAGE_DRIVER",
		},
		{
			name:    "llm without key",
			env:     map[string]string{"GENERATOR": ProviderLLM},
			wantErr: "LLM_API_KEY",
		},
		{
			name: "llm with key",
			env:  map[string]string{"GENERATOR": ProviderLLM, "LLM_API_KEY": "sk-test"},
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"IMAGE_STORAGE": ImageStorageS3},
			wantErr: "S3_BUCKET",
		},
		{
			name:    "zero concurrency",
			env:     map[string]string{"GENERATION_MAX_CONCURRENT": "0"},
			wantErr: "GENERATION_MAX_CONCURRENT",
		},
		{
			name: "postgres",
			env:  map[string]string{"STORAGE_DRIVER": DriverPostgres},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Load() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", Name: "articles", SSLMode: "require"}
	want := "host=db port=5433 user=u password=p dbname=articles sslmode=require"
	if got := db.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
