package storydaemon

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/storydaemon/storydaemon/memory"
)

// ErrorRecord is the persisted error/error_NNN.json companion to
// error_NNN.log (spec §4.10.3, §7).
type ErrorRecord struct {
	Tick      int       `json:"tick"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteErrorRecord persists the error_NNN.json + error_NNN.log pair for a
// tick that aborted. It writes both temp files, then renames the log
// first and the json second, so the json rename is the single gate on
// success: if it fails, the already-renamed log is removed again, so
// either both files exist or neither does (testable property 10, spec
// §8). Grounded on `kanban.State.Save`'s temp-then-rename helper,
// generalized from one file to a two-file unit.
func WriteErrorRecord(layout memory.Layout, tick int, kind string, err error, log string) error {
	record := ErrorRecord{Tick: tick, Kind: kind, Message: err.Error(), Timestamp: time.Now()}
	jsonData, marshalErr := json.MarshalIndent(record, "", "  ")
	if marshalErr != nil {
		return &IOError{Op: "marshal error record", Err: marshalErr}
	}

	jsonPath := layout.ErrorJSONPath(tick)
	logPath := layout.ErrorLogPath(tick)
	jsonTmp := jsonPath + ".tmp"
	logTmp := logPath + ".tmp"

	if err := os.MkdirAll(layout.ErrorsDir(), 0o755); err != nil {
		return &IOError{Op: "mkdir errors dir", Err: err}
	}
	if writeErr := os.WriteFile(jsonTmp, jsonData, 0o644); writeErr != nil {
		return &IOError{Op: "write " + jsonTmp, Err: writeErr}
	}
	if writeErr := os.WriteFile(logTmp, []byte(log), 0o644); writeErr != nil {
		os.Remove(jsonTmp)
		return &IOError{Op: "write " + logTmp, Err: writeErr}
	}
	if renameErr := os.Rename(logTmp, logPath); renameErr != nil {
		os.Remove(jsonTmp)
		os.Remove(logTmp)
		return &IOError{Op: "rename " + logTmp, Err: renameErr}
	}
	if renameErr := os.Rename(jsonTmp, jsonPath); renameErr != nil {
		os.Remove(jsonTmp)
		os.Remove(logPath)
		return &IOError{Op: "rename " + jsonTmp, Err: renameErr}
	}
	return nil
}

// RenderErrorLog builds the human-readable log companion to an
// ErrorRecord: the error chain plus any partial execution context the
// caller wants preserved for inspection.
func RenderErrorLog(tick int, stage string, err error, context string) string {
	return fmt.Sprintf("tick %d failed at stage %q\n\nerror:\n%v\n\ncontext:\n%s\n", tick, stage, err, context)
}
