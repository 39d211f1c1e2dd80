package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// writeJSONAtomic serializes v and writes it to path via a temp-file in the
// same directory followed by a rename, so a crash never leaves a torn
// file behind. Mirrors the teacher's kanban.State.Save pattern.
func writeJSONAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOFailureError{Op: "mkdir " + dir, Err: err}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &IOFailureError{Op: "marshal " + path, Err: err}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &IOFailureError{Op: "write " + tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &IOFailureError{Op: "rename " + tmp + " -> " + path, Err: err}
	}
	return nil
}

// readJSON loads and unmarshals the JSON file at path into v. Returns the
// raw os error (so os.IsNotExist works) if the file does not exist.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &IOFailureError{Op: "unmarshal " + path, Err: err}
	}
	return nil
}
