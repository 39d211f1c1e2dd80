package tools

import (
	"fmt"

	"github.com/storydaemon/storydaemon/index"
	"github.com/storydaemon/storydaemon/memory"
)

// Deps are the collaborators every tool needs: the Entity Store and the
// semantic index. Tools never hold an LLM adapter — spec §4.3 describes
// every tool's execute as deterministic.
type Deps struct {
	Store *memory.Store
	Index *index.Adapter
}

// argString reads a required string argument.
func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("tools: missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("tools: argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

// argStringOpt reads an optional string argument, defaulting to "".
func argStringOpt(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// argStringSlice reads an optional []string-ish argument (JSON-decoded
// plan args arrive as []any of strings).
func argStringSlice(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// argIntOpt reads an optional integer argument (JSON numbers decode as
// float64), returning def if absent or wrong-typed.
func argIntOpt(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch vv := v.(type) {
	case float64:
		return int(vv)
	case int:
		return vv
	default:
		return def
	}
}
