package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// newSplitLogger mirrors the CLI setup: everything at DEBUG to the file,
// warnings and errors to the console.
func newSplitLogger(t *testing.T) (*MultiLogger, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	file := newTestFileLogger(t, fs, FileLoggerConfig{FilePath: "/logs/sync.log", Level: DEBUG})
	var console bytes.Buffer
	return NewMultiLogger(file, NewConsoleLogger(ConsoleLoggerConfig{Writer: &console, Level: WARN})), fs, &console
}

func TestMultiLogger_PerSinkLevels(t *testing.T) {
	multi, fs, console := newSplitLogger(t)

	multi.Debug("Reconciling folder", F("path", "/mri/s00001"))
	multi.Info("Local tree ready")
	multi.Warn("Study directory has an unusually large number of entries")
	multi.Error("Remote operation failed")

	entries := readEntries(t, fs, "/logs/sync.log")
	if len(entries) != 4 {
		t.Errorf("file got %d entries, want 4", len(entries))
	}

	out := console.String()
	if strings.Contains(out, "Reconciling folder") || strings.Contains(out, "Local tree ready") {
		t.Errorf("console should only show warnings and errors: %s", out)
	}
	if !strings.Contains(out, "unusually large") || !strings.Contains(out, "Remote operation failed") {
		t.Errorf("console missing warnings or errors: %s", out)
	}
}

func TestMultiLogger_TraceIDReachesEverySink(t *testing.T) {
	multi, fs, console := newSplitLogger(t)

	ctx := ContextWithTraceID(context.Background(), "5f0c9e2a-1111-2222-3333-444455556666")
	multi.WithContext(ctx).Warn("Sync aborted")

	entries := readEntries(t, fs, "/logs/sync.log")
	if len(entries) != 1 || entries[0].TraceID != "5f0c9e2a" {
		t.Errorf("file entries = %+v", entries)
	}
	if !strings.Contains(console.String(), "[5f0c9e2a] Sync aborted") {
		t.Errorf("console = %s", console.String())
	}
	if multi.WithContext(context.Background()) != Logger(multi) {
		t.Error("context without trace ID should return the same logger")
	}
}

func TestMultiLogger_SetLevelAndClose(t *testing.T) {
	multi, fs, console := newSplitLogger(t)

	multi.SetLevel(ERROR)
	multi.Warn("dropped")
	multi.Error("kept")

	if err := multi.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	multi.Error("after close")

	entries := readEntries(t, fs, "/logs/sync.log")
	if len(entries) != 1 || entries[0].Message != "kept" {
		t.Errorf("file entries = %+v", entries)
	}
	if strings.Contains(console.String(), "dropped") {
		t.Errorf("console = %s", console.String())
	}
}
