package storydaemon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/storydaemon/storydaemon/memory"
)

func TestWriteErrorRecordWritesBothFiles(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	layout := store.Layout()

	if err := WriteErrorRecord(layout, 7, "ToolError", errors.New("tool execution halted"), "full log body"); err != nil {
		t.Fatalf("WriteErrorRecord: %v", err)
	}

	if _, err := os.Stat(layout.ErrorJSONPath(7)); err != nil {
		t.Fatalf("expected error_007.json to exist: %v", err)
	}
	if _, err := os.Stat(layout.ErrorLogPath(7)); err != nil {
		t.Fatalf("expected error_007.log to exist: %v", err)
	}

	// no stray temp files left behind
	entries, err := os.ReadDir(layout.ErrorsDir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("unexpected leftover temp file %s", e.Name())
		}
	}
}

func TestWriteErrorRecordNeverLeavesOnlyOneFileOnFailure(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	layout := store.Layout()

	// Pre-create the errors dir as read-only so MkdirAll succeeds (already
	// exists) but the subsequent WriteFile calls fail, simulating an
	// aborted write before either temp file lands.
	if err := os.MkdirAll(layout.ErrorsDir(), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.Chmod(layout.ErrorsDir(), 0o500); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	defer os.Chmod(layout.ErrorsDir(), 0o755)

	err := WriteErrorRecord(layout, 9, "IOError", errors.New("boom"), "log body")
	if err == nil {
		t.Fatalf("expected write failure under read-only errors dir")
	}

	if _, statErr := os.Stat(layout.ErrorJSONPath(9)); !os.IsNotExist(statErr) {
		t.Fatalf("expected error_009.json to not exist")
	}
	if _, statErr := os.Stat(layout.ErrorLogPath(9)); !os.IsNotExist(statErr) {
		t.Fatalf("expected error_009.log to not exist")
	}
}

func TestRenderErrorLogIncludesStageAndContext(t *testing.T) {
	log := RenderErrorLog(3, "WriteScene", errors.New("timeout"), "partial plan: 2/4 actions executed")
	if log == "" {
		t.Fatalf("expected non-empty log")
	}
	if !strings.Contains(log, "WriteScene") {
		t.Fatalf("expected log to name the failing stage, got %q", log)
	}
	if !strings.Contains(log, "partial plan: 2/4 actions executed") {
		t.Fatalf("expected log to include the caller's context, got %q", log)
	}
}
