package config

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simp-lee/logger"
)

func boolPtr(b bool) *bool { return &b }

func TestSetupLogger_LevelMapping(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"invalid defaults to info", "invalid", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := SetupLogger(&LogConfig{Level: tt.level, Format: "text"})
			if err != nil {
				t.Fatalf("SetupLogger error: %v", err)
			}
			defer log.Close()

			if !log.Enabled(context.TODO(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
			if tt.wantLevel > slog.LevelDebug && log.Enabled(context.TODO(), tt.wantLevel-1) {
				t.Errorf("expected level %v to be disabled (configured: %v)", tt.wantLevel-1, tt.wantLevel)
			}
		})
	}
}

func TestSetupLogger_NilConfig(t *testing.T) {
	if _, err := SetupLogger(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestSetupLogger_ConsoleAndFile(t *testing.T) {
	log, err := SetupLogger(&LogConfig{
		Level:    "info",
		Format:   "json",
		FilePath: filepath.Join(t.TempDir(), "test.log"),
	})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()
}

func TestSetupLogger_ConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := SetupLogger(&LogConfig{Level: "info", Format: "text", Color: boolPtr(false)}, &buf)
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()

	log.Info("hello from test", "user_id", 7)
	if !strings.Contains(buf.String(), "hello from test") {
		t.Errorf("expected message in console writer, got %q", buf.String())
	}
}

func TestSetupLogger_SetsDefault(t *testing.T) {
	log, err := SetupLogger(&LogConfig{Level: "warn", Format: "text"})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()

	if slog.Default().Handler() != log.Handler() {
		t.Error("SetupLogger did not set slog.Default()")
	}
}

func TestBuildLoggerOpts(t *testing.T) {
	// Level, middleware, console format and console color are always present.
	const baseCount = 4
	const fileBaseCount = baseCount + 2

	tests := []struct {
		name      string
		cfg       *LogConfig
		wantNil   bool
		wantCount int
	}{
		{name: "nil config returns nil", cfg: nil, wantNil: true},
		{name: "console only", cfg: &LogConfig{Level: "info", Format: "text"}, wantCount: baseCount},
		{name: "unknown format", cfg: &LogConfig{Level: "info", Format: "whatever"}, wantCount: baseCount},
		{name: "color disabled", cfg: &LogConfig{Color: boolPtr(false)}, wantCount: baseCount},
		{name: "file without rotation", cfg: &LogConfig{FilePath: "app.log"}, wantCount: fileBaseCount},
		{
			name: "file with rotation",
			cfg: &LogConfig{
				FilePath: "app.log", MaxSizeMB: 10, RetentionDays: 7, MaxBackups: 3,
				CompressRotated: boolPtr(false),
			},
			wantCount: fileBaseCount + 4,
		},
		{name: "zero rotation values skipped", cfg: &LogConfig{FilePath: "app.log", MaxSizeMB: 0, MaxBackups: 2}, wantCount: fileBaseCount + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := BuildLoggerOpts(tt.cfg)
			if tt.wantNil {
				if opts != nil {
					t.Fatalf("expected nil options, got %d", len(opts))
				}
				return
			}
			if len(opts) != tt.wantCount {
				t.Errorf("len(opts) = %d; want %d", len(opts), tt.wantCount)
			}
		})
	}
}

func TestBuildLoggerOpts_ProducesValidLogger(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "build_opts.log")

	tests := []struct {
		name string
		cfg  *LogConfig
	}{
		{"console only text", &LogConfig{Level: "debug", Format: "text"}},
		{"console only json", &LogConfig{Level: "warn", Format: "json"}},
		{"console and file with rotation", &LogConfig{
			Level: "info", Format: "json", FilePath: filePath,
			MaxSizeMB: 10, RetentionDays: 7, MaxBackups: 3,
			CompressRotated: boolPtr(true),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.New(BuildLoggerOpts(tt.cfg)...)
			if err != nil {
				t.Fatalf("logger.New failed: %v", err)
			}
			defer log.Close()
		})
	}
}
