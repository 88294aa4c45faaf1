package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docsweep/docsweep/internal/detect"
	"github.com/docsweep/docsweep/internal/extract"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test default values
	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}

	if cfg.ExtractionMethod != "text" {
		t.Errorf("Expected default extraction method to be 'text', got '%s'", cfg.ExtractionMethod)
	}

	if cfg.DetectionMethod != "local" {
		t.Errorf("Expected default detection method to be 'local', got '%s'", cfg.DetectionMethod)
	}

	if cfg.PageBatchSize != DefaultPageBatchSize {
		t.Errorf("Expected default batch size to be %d, got %d", DefaultPageBatchSize, cfg.PageBatchSize)
	}

	if !cfg.RedactSignatures || !cfg.RedactHandwrite {
		t.Error("Expected signature and handwriting redaction to default to on")
	}

	if cfg.Version != "1.0.0" {
		t.Errorf("Expected default version to be '1.0.0', got '%s'", cfg.Version)
	}

	if cfg.ServerName != "docsweep" {
		t.Errorf("Expected default server name to be 'docsweep', got '%s'", cfg.ServerName)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	if cfg.LogDocumentNames {
		t.Error("Expected document name logging to default to off")
	}

	// Input directory defaults to the current working directory
	currentDir, _ := os.Getwd()
	if cfg.InputDir != currentDir {
		t.Errorf("Expected default input directory to be '%s', got '%s'", currentDir, cfg.InputDir)
	}
}

func validTestConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.InputDir = dir
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.WorkDir = filepath.Join(dir, "work")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config - stdio mode",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid config - run mode",
			mutate:  func(c *Config) { c.Mode = ModeRun },
			wantErr: false,
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Mode = "server" },
			wantErr: true,
		},
		{
			name:    "invalid extraction method",
			mutate:  func(c *Config) { c.ExtractionMethod = "ocr" },
			wantErr: true,
		},
		{
			name:    "invalid detection method",
			mutate:  func(c *Config) { c.DetectionMethod = "cloud" },
			wantErr: true,
		},
		{
			name:    "detection disabled is valid",
			mutate:  func(c *Config) { c.DetectionMethod = "none" },
			wantErr: false,
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.PageBatchSize = 0 },
			wantErr: true,
		},
		{
			name:    "negative fuzzy distance",
			mutate:  func(c *Config) { c.FuzzyMaxDistance = -1 },
			wantErr: true,
		},
		{
			name:    "empty input directory",
			mutate:  func(c *Config) { c.InputDir = "" },
			wantErr: true,
		},
		{
			name:    "zero max file size",
			mutate:  func(c *Config) { c.MaxFileSize = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCreatesMissingDirectories(t *testing.T) {
	cfg := validTestConfig(t)

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	for _, dir := range []string{cfg.OutputDir, cfg.WorkDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("Expected directory %s to be created: %v", dir, err)
		}
	}
}

func TestMethodAccessors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtractionMethod = "textract"
	cfg.DetectionMethod = "comprehend"

	if cfg.Extraction() != extract.MethodTextract {
		t.Errorf("Extraction() = %v, want textract", cfg.Extraction())
	}
	if cfg.Detection() != detect.MethodCloud {
		t.Errorf("Detection() = %v, want comprehend", cfg.Detection())
	}
}

func TestEntitiesAccessor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntityTypes = []string{"PERSON", "EMAIL_ADDRESS"}

	got := cfg.Entities()
	if len(got) != 2 || got[0] != detect.TypePerson || got[1] != detect.TypeEmail {
		t.Errorf("Entities() = %v", got)
	}
}

func TestModeHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.IsStdioMode() || cfg.IsRunMode() {
		t.Error("Expected default mode helpers to report stdio")
	}

	cfg.Mode = ModeRun
	if cfg.IsStdioMode() || !cfg.IsRunMode() {
		t.Error("Expected run mode helpers to report run")
	}
}

func TestIsDebug(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IsDebug() {
		t.Error("Expected IsDebug to be false at info level")
	}
	cfg.LogLevel = "debug"
	if !cfg.IsDebug() {
		t.Error("Expected IsDebug to be true at debug level")
	}
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	for _, want := range []string{"Mode: stdio", "Extract: text", "Detect: local"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q: %s", want, s)
		}
	}
}
