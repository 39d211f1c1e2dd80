package memory

import (
	"fmt"
	"os"
)

// Counters holds the monotonic per-kind next-id counters (counters.json).
// IDs are never reused; the counters file is the single source of truth
// for the next id of each kind (spec §3 invariant 1).
type Counters struct {
	Character    int `json:"character"`
	Location     int `json:"location"`
	Scene        int `json:"scene"`
	OpenLoop     int `json:"open_loop"`
	Relationship int `json:"relationship"`
	Faction      int `json:"faction"`
	Lore         int `json:"lore"`
	PlotBeat     int `json:"plot_beat"`
}

func loadCounters(path string) (*Counters, error) {
	var c Counters
	if err := readJSON(path, &c); err != nil {
		if os.IsNotExist(err) {
			return &Counters{}, nil
		}
		return nil, &IOFailureError{Op: "load counters", Err: err}
	}
	return &c, nil
}

func (c *Counters) save(path string) error {
	return writeJSONAtomic(path, c)
}

// next returns the next id for kind, formatted with the kind's prefix and
// zero-padding, and increments the in-memory counter. Callers must persist
// the counters afterward.
func (c *Counters) next(kind Kind) (string, error) {
	switch kind {
	case KindCharacter:
		id := c.Character
		c.Character++
		return fmt.Sprintf("C%d", id), nil
	case KindLocation:
		id := c.Location
		c.Location++
		return fmt.Sprintf("L%d", id), nil
	case KindScene:
		id := c.Scene
		c.Scene++
		return fmt.Sprintf("S%03d", id), nil
	case KindOpenLoop:
		id := c.OpenLoop
		c.OpenLoop++
		return fmt.Sprintf("OL%d", id), nil
	case KindRelationship:
		id := c.Relationship
		c.Relationship++
		return fmt.Sprintf("R%d", id), nil
	case KindFaction:
		id := c.Faction
		c.Faction++
		return fmt.Sprintf("F%d", id), nil
	case KindLore:
		id := c.Lore
		c.Lore++
		return fmt.Sprintf("LR%d", id), nil
	case KindPlotBeat:
		id := c.PlotBeat + 1 // plot beats are PB001-based (1-indexed)
		c.PlotBeat++
		return fmt.Sprintf("PB%03d", id), nil
	default:
		return "", fmt.Errorf("memory: unknown kind %q", kind)
	}
}
