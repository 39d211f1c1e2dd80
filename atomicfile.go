package storydaemon

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// writeJSONAtomic mirrors memory.writeJSONAtomic (unexported there) for
// the root package's own on-disk artifacts that memory.Store has no
// dedicated method for: plans/plan_NNN.json and scenes/scene_NNN.md.
// Same temp-file-then-rename technique throughout this module.
func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &IOError{Op: "mkdir " + filepath.Dir(path), Err: err}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &IOError{Op: "marshal " + path, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &IOError{Op: "write " + tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &IOError{Op: "rename " + tmp, Err: err}
	}
	return nil
}

// writeTextAtomic is writeJSONAtomic's text-file counterpart, used for
// scenes/scene_NNN.md.
func writeTextAtomic(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &IOError{Op: "mkdir " + filepath.Dir(path), Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return &IOError{Op: "write " + tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &IOError{Op: "rename " + tmp, Err: err}
	}
	return nil
}
