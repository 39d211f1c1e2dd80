// Package checkpoint implements the Checkpointer (spec §4.11): periodic
// full snapshots of a project directory, and restore from one. Grounded
// on the teacher's `git.WorktreeManager.CreateWorktree`/
// `CleanupOrphanedWorktrees` directory-staging pair, generalized from
// git-worktree lifecycle (branch + `git worktree add`) to a plain
// directory copy — the project directory is not assumed to be a git
// repository, so no `os/exec git` calls are involved here.
package checkpoint

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const checkpointsDirName = "checkpoints"

// NotFoundError is returned by Restore when the requested checkpoint does
// not exist.
type NotFoundError struct {
	Tick int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("checkpoint: no snapshot found for tick %d", e.Tick)
}

// Dir returns the checkpoint directory for tick within projectRoot.
func Dir(projectRoot string, tick int) string {
	return filepath.Join(projectRoot, checkpointsDirName, fmt.Sprintf("checkpoint_tick_%03d", tick))
}

// Snapshot copies projectRoot (excluding the checkpoints directory
// itself) into checkpoints/checkpoint_tick_NNN/, overwriting any prior
// snapshot for the same tick. Triggered every
// generation.checkpoint_summary_interval ticks by the tick orchestrator.
func Snapshot(projectRoot string, tick int) error {
	dest := Dir(projectRoot, tick)
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("checkpoint: clear existing snapshot: %w", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create snapshot dir: %w", err)
	}

	excluded := filepath.Join(projectRoot, checkpointsDirName)
	return filepath.Walk(projectRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == projectRoot {
			return nil
		}
		if path == excluded || strings.HasPrefix(path, excluded+string(filepath.Separator)) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

// Restore replaces projectRoot's contents (excluding checkpoints/) with
// the snapshot taken at tick. Returns *NotFoundError if no such snapshot
// exists.
func Restore(projectRoot string, tick int) error {
	src := Dir(projectRoot, tick)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Tick: tick}
		}
		return fmt.Errorf("checkpoint: stat snapshot: %w", err)
	}

	entries, err := os.ReadDir(projectRoot)
	if err != nil {
		return fmt.Errorf("checkpoint: read project root: %w", err)
	}
	for _, e := range entries {
		if e.Name() == checkpointsDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(projectRoot, e.Name())); err != nil {
			return fmt.Errorf("checkpoint: clear %s before restore: %w", e.Name(), err)
		}
	}

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == src {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(projectRoot, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// ShouldCheckpoint reports whether tick is a checkpoint boundary for the
// given interval (spec §4.10.1 state 12 "every N ticks"). interval<=0
// disables checkpointing.
func ShouldCheckpoint(tick, interval int) bool {
	return interval > 0 && tick > 0 && tick%interval == 0
}
