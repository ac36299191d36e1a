package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"WARN":     zerolog.WarnLevel,
		"":         zerolog.InfoLevel,
		"nonsense": zerolog.InfoLevel,
	}
	for level, want := range cases {
		if got := NewLogger(level).GetLevel(); got != want {
			t.Fatalf("NewLogger(%q) level = %s, want %s", level, got, want)
		}
	}
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	log := Component(zerolog.New(&buf), "feed")
	log.Info().Msg("connected")

	line := buf.String()
	if !strings.Contains(line, `"component":"feed"`) {
		t.Fatalf("component tag missing from entry: %s", line)
	}
	if !strings.Contains(line, "connected") {
		t.Fatalf("message missing from entry: %s", line)
	}
}

func TestConsoleKeepsLevel(t *testing.T) {
	log := Console(NewLogger("warn"))
	if log.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("console rewrap changed the level to %s", log.GetLevel())
	}
}
