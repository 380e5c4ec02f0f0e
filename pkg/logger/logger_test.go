package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quantward/featurepipe/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{name: "debug level", level: "debug", wantLevel: zerolog.DebugLevel},
		{name: "info level", level: "info", wantLevel: zerolog.InfoLevel},
		{name: "warn level", level: "warn", wantLevel: zerolog.WarnLevel},
		{name: "error level", level: "error", wantLevel: zerolog.ErrorLevel},
		{name: "unknown defaults to info", level: "bogus", wantLevel: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"}
			log := New(cfg)
			if log == nil {
				t.Fatal("New() returned nil")
			}
			if got := zerolog.GlobalLevel(); got != tt.wantLevel {
				t.Errorf("global level = %v, want %v", got, tt.wantLevel)
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug")

	log.WithFields(map[string]interface{}{
		"domain": "commodities",
		"rows":   42,
	}).Info("transform completed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if entry["domain"] != "commodities" {
		t.Errorf("domain field = %v, want commodities", entry["domain"])
	}
	if entry["rows"] != float64(42) {
		t.Errorf("rows field = %v, want 42", entry["rows"])
	}
	if entry["message"] != "transform completed" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug")

	log.WithError(errors.New("boom")).Error("transform failed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if entry["error"] != "boom" {
		t.Errorf("error field = %v, want boom", entry["error"])
	}
}
