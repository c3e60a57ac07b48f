package common

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestLoggerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := &dIdxLogger{name: "rbidx", level: logger.WARNING, logger: log.New(&buf, "", 0)}

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warningf("resized to %d", 8192)
	l.Errorf("failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if want := "WARN  | rbidx           | resized to 8192"; lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
	if !strings.HasPrefix(lines[1], "ERROR | rbidx") {
		t.Errorf("unexpected line %q", lines[1])
	}

	l.SetLevel(logger.DEBUG)
	l.Debugf("visible")
	if !strings.Contains(buf.String(), "DEBUG | rbidx           | visible") {
		t.Errorf("debug line missing in %q", buf.String())
	}
}

func TestLoggerPanicf(t *testing.T) {
	var buf bytes.Buffer
	l := &dIdxLogger{name: "store", level: logger.ERROR, logger: log.New(&buf, "", 0)}

	defer func() {
		if r := recover(); r != "broken 7" {
			t.Errorf("recovered %v, want broken 7", r)
		}
	}()
	l.Panicf("broken %d", 7)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Errorf("expected error for invalid level")
	}
}
