package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("Expected default level info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected JSON output by default")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{" warn ", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetup_FiltersByLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	buf := &bytes.Buffer{}
	logger, err := Setup(Config{Level: "warn", Output: buf})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info().Msg("pricing requested")
	logger.Warn().Msg("retrying catalog call")

	out := buf.String()
	if strings.Contains(out, "pricing requested") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "retrying catalog call") {
		t.Error("warn message should be written")
	}
}

func TestSetup_UnknownLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_, err := Setup(Config{Level: "loud", Output: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("Expected error for unknown level")
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level fallback, got %v", zerolog.GlobalLevel())
	}
}

func TestSetup_Pretty(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	buf := &bytes.Buffer{}
	logger, _ := Setup(Config{Level: "info", Pretty: true, Output: buf})
	logger.Info().Str("style", "PC61").Msg("hello")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("Expected console output, got JSON: %s", out)
	}
	if !strings.Contains(out, "PC61") || !strings.Contains(out, "hello") {
		t.Errorf("Expected field in console output, got: %s", out)
	}
}

func TestNewLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	buf := &bytes.Buffer{}
	if _, err := Setup(Config{Level: "debug", Output: buf}); err != nil {
		t.Fatal(err)
	}
	defer func() { log.Logger = zerolog.New(nil) }()

	logger := NewLogger(ComponentResolver)
	logger.Debug().Msg("cache hit")

	if !strings.Contains(buf.String(), `"component":"resolver"`) {
		t.Errorf("Expected component field, got: %s", buf.String())
	}
}
