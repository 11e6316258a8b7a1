package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONAndLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := InitTo(&buf, "warn", "json")

	logger.Info().Msg("dropped")
	logger.Warn().Str("item_code", "SKU-1").Msg("low stock")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("Expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "low stock" || line["item_code"] != "SKU-1" {
		t.Errorf("Unexpected log line: %v", line)
	}
	if _, ok := line["time"].(float64); !ok {
		t.Errorf("Expected unix-ms numeric time, got %v", line["time"])
	}
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	InitTo(&bytes.Buffer{}, "loud", "console")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", zerolog.GlobalLevel())
	}
}
