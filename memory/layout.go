package memory

import (
	"fmt"
	"path/filepath"
)

// Layout resolves the on-disk paths for a project directory (spec §6).
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at root.
func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) StatePath() string       { return filepath.Join(l.Root, "state.json") }
func (l Layout) ConfigPath() string      { return filepath.Join(l.Root, "config.yaml") }
func (l Layout) CountersPath() string    { return filepath.Join(l.Root, "counters.json") }
func (l Layout) MemoryDir() string       { return filepath.Join(l.Root, "memory") }
func (l Layout) CharactersDir() string   { return filepath.Join(l.MemoryDir(), "characters") }
func (l Layout) LocationsDir() string    { return filepath.Join(l.MemoryDir(), "locations") }
func (l Layout) ScenesDir() string       { return filepath.Join(l.MemoryDir(), "scenes") }
func (l Layout) FactionsDir() string     { return filepath.Join(l.MemoryDir(), "factions") }
func (l Layout) LoreDir() string         { return filepath.Join(l.MemoryDir(), "lore") }
func (l Layout) IndexDir() string        { return filepath.Join(l.MemoryDir(), "index") }
func (l Layout) OpenLoopsPath() string   { return filepath.Join(l.MemoryDir(), "open_loops.json") }
func (l Layout) RelationshipsPath() string {
	return filepath.Join(l.MemoryDir(), "relationships.json")
}
func (l Layout) ScenesProseDir() string  { return filepath.Join(l.Root, "scenes") }
func (l Layout) PlansDir() string        { return filepath.Join(l.Root, "plans") }
func (l Layout) PlotOutlinePath() string { return filepath.Join(l.Root, "plot_outline.json") }
func (l Layout) ErrorsDir() string       { return filepath.Join(l.Root, "errors") }
func (l Layout) CheckpointsDir() string  { return filepath.Join(l.Root, "checkpoints") }
func (l Layout) PromptsDir() string      { return filepath.Join(l.Root, "prompts") }

// SceneMarkdownPath returns the path to scenes/scene_NNN.md for a scene id
// such as "S003".
func (l Layout) SceneMarkdownPath(sceneID string) string {
	return filepath.Join(l.ScenesProseDir(), fmt.Sprintf("scene_%s.md", sceneNum(sceneID)))
}

// PlanPath returns the path to plans/plan_NNN.json for tick t.
func (l Layout) PlanPath(tick int) string {
	return filepath.Join(l.PlansDir(), fmt.Sprintf("plan_%03d.json", tick))
}

// QAPath returns the path to memory/qa_NNN.json for tick t (spec §4.7
// "QA is persisted next to the scene").
func (l Layout) QAPath(tick int) string {
	return filepath.Join(l.MemoryDir(), fmt.Sprintf("qa_%03d.json", tick))
}

// ErrorJSONPath and ErrorLogPath return the error record pair for tick t.
func (l Layout) ErrorJSONPath(tick int) string {
	return filepath.Join(l.ErrorsDir(), fmt.Sprintf("error_%03d.json", tick))
}
func (l Layout) ErrorLogPath(tick int) string {
	return filepath.Join(l.ErrorsDir(), fmt.Sprintf("error_%03d.log", tick))
}

// CheckpointDir returns the directory for the checkpoint taken at tick t.
func (l Layout) CheckpointDir(tick int) string {
	return filepath.Join(l.CheckpointsDir(), fmt.Sprintf("checkpoint_tick_%03d", tick))
}

// sceneNum strips a leading "S" from a scene id, e.g. "S003" -> "003".
func sceneNum(sceneID string) string {
	if len(sceneID) > 0 && (sceneID[0] == 'S' || sceneID[0] == 's') {
		return sceneID[1:]
	}
	return sceneID
}

// EntityPath returns the file path for a single entity of the given kind
// and id (characters/locations/scenes/factions/lore — the kinds backed by
// one-file-per-entity directories).
func (l Layout) EntityPath(kind Kind, id string) (string, error) {
	switch kind {
	case KindCharacter:
		return filepath.Join(l.CharactersDir(), id+".json"), nil
	case KindLocation:
		return filepath.Join(l.LocationsDir(), id+".json"), nil
	case KindScene:
		return filepath.Join(l.ScenesDir(), id+".json"), nil
	case KindFaction:
		return filepath.Join(l.FactionsDir(), id+".json"), nil
	case KindLore:
		return filepath.Join(l.LoreDir(), id+".json"), nil
	default:
		return "", fmt.Errorf("memory: kind %s has no one-file-per-entity directory", kind)
	}
}

// EntityDir returns the directory that holds one-file-per-entity records
// of the given kind.
func (l Layout) EntityDir(kind Kind) (string, error) {
	switch kind {
	case KindCharacter:
		return l.CharactersDir(), nil
	case KindLocation:
		return l.LocationsDir(), nil
	case KindScene:
		return l.ScenesDir(), nil
	case KindFaction:
		return l.FactionsDir(), nil
	case KindLore:
		return l.LoreDir(), nil
	default:
		return "", fmt.Errorf("memory: kind %s has no one-file-per-entity directory", kind)
	}
}
