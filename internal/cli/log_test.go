package cli

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("map opened", "boxes", 12)

	out := buf.String()
	if !regexp.MustCompile(`^\d\d:\d\d:\d\d\.\d\d `).MatchString(out) {
		t.Errorf("missing timestamp prefix: %q", out)
	}
	if !strings.Contains(out, "boxes=12") {
		t.Errorf("missing key-value pair: %q", out)
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at info level: %q", buf.String())
	}

	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug not logged after SetLogLevel: %q", buf.String())
	}
}

func TestProgressReportsElapsed(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))
	p.start = p.start.Add(-1500 * time.Millisecond)
	p.done("Loaded 3 clusters")

	if out := buf.String(); !strings.Contains(out, "Loaded 3 clusters (1.5") {
		t.Errorf("progress output = %q", out)
	}
}
