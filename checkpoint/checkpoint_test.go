package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotThenRestoreRoundTrips(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "state.json"), `{"current_tick":3}`)
	mustWrite(t, filepath.Join(root, "memory", "characters", "C0.json"), `{"id":"C0"}`)

	if err := Snapshot(root, 3); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// mutate the live project after the snapshot
	mustWrite(t, filepath.Join(root, "state.json"), `{"current_tick":4}`)
	if err := os.Remove(filepath.Join(root, "memory", "characters", "C0.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := Restore(root, 3); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "state.json"))
	if err != nil {
		t.Fatalf("read restored state.json: %v", err)
	}
	if string(data) != `{"current_tick":3}` {
		t.Fatalf("expected restored tick 3 content, got %s", data)
	}
	if _, err := os.Stat(filepath.Join(root, "memory", "characters", "C0.json")); err != nil {
		t.Fatalf("expected restored character file: %v", err)
	}
}

func TestSnapshotExcludesCheckpointsDirectory(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "state.json"), `{}`)

	if err := Snapshot(root, 10); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if err := Snapshot(root, 20); err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}

	if _, err := os.Stat(filepath.Join(Dir(root, 10), "checkpoints")); !os.IsNotExist(err) {
		t.Fatalf("expected the first snapshot to not contain a nested checkpoints dir")
	}
}

func TestRestoreReturnsNotFoundForMissingTick(t *testing.T) {
	root := t.TempDir()
	err := Restore(root, 99)
	if err == nil {
		t.Fatalf("expected error for missing checkpoint")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
}

func TestShouldCheckpointBoundary(t *testing.T) {
	cases := []struct {
		tick, interval int
		want           bool
	}{
		{0, 10, false},
		{10, 10, true},
		{9, 10, false},
		{20, 10, true},
		{5, 0, false},
	}
	for _, c := range cases {
		if got := ShouldCheckpoint(c.tick, c.interval); got != c.want {
			t.Errorf("ShouldCheckpoint(%d,%d) = %v, want %v", c.tick, c.interval, got, c.want)
		}
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
