package memory

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// Store is the Entity Store (spec §4.1): typed persistent records with
// atomic read/write and monotonic per-kind id allocation. Grounded on the
// teacher's kanban.StateStore/State: one mutex-guarded struct that owns
// all reads and writes below a project directory, generalized from a
// single Board aggregate to N entity kinds plus N single-file aggregates.
type Store struct {
	mu     sync.Mutex
	layout Layout
}

// NewStore creates a Store rooted at projectRoot.
func NewStore(projectRoot string) *Store {
	return &Store{layout: NewLayout(projectRoot)}
}

// Layout exposes the resolved path layout for callers that need it (the
// orchestrator, checkpointer, etc).
func (s *Store) Layout() Layout { return s.layout }

// NextID allocates and persists the next id for kind.
func (s *Store) NextID(kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters, err := loadCounters(s.layout.CountersPath())
	if err != nil {
		return "", err
	}
	id, err := counters.next(kind)
	if err != nil {
		return "", err
	}
	if err := counters.save(s.layout.CountersPath()); err != nil {
		return "", err
	}
	return id, nil
}

// Save persists a one-file-per-entity record (character, location, scene,
// faction, lore). v must be a pointer to one of the corresponding structs.
func (s *Store) Save(kind Kind, id string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.layout.EntityPath(kind, id)
	if err != nil {
		return err
	}
	return writeJSONAtomic(path, v)
}

// Load reads a one-file-per-entity record into v (a pointer to the
// corresponding struct). Returns *NotFoundError if absent.
func (s *Store) Load(kind Kind, id string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.layout.EntityPath(kind, id)
	if err != nil {
		return err
	}
	if err := readJSON(path, v); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Kind: kind, ID: id}
		}
		return err
	}
	return nil
}

// Exists reports whether a one-file-per-entity record is present.
func (s *Store) Exists(kind Kind, id string) bool {
	path, err := s.layout.EntityPath(kind, id)
	if err != nil {
		return false
	}
	_, statErr := os.Stat(path)
	return statErr == nil
}

// ListIDs returns every persisted id for a one-file-per-entity kind,
// sorted for determinism.
func (s *Store) ListIDs(kind Kind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir, err := s.layout.EntityDir(kind)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOFailureError{Op: "readdir " + dir, Err: err}
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// MaxNumericSuffix scans a kind's directory and returns the maximum
// numeric suffix found, used to validate that counters.json never lags
// behind what's on disk (testable property 5).
func (s *Store) MaxNumericSuffix(kind Kind) (int, error) {
	ids, err := s.ListIDs(kind)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, id := range ids {
		n := numericSuffix(id)
		if n > max {
			max = n
		}
	}
	return max, nil
}

func numericSuffix(id string) int {
	i := 0
	for i < len(id) && !(id[i] >= '0' && id[i] <= '9') {
		i++
	}
	n := 0
	for ; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			break
		}
		n = n*10 + int(id[i]-'0')
	}
	return n
}

// LoadState loads the ProjectState aggregate, or a fresh zero state if
// state.json does not yet exist (project initialization).
func (s *Store) LoadState() (*ProjectState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st ProjectState
	if err := readJSON(s.layout.StatePath(), &st); err != nil {
		if os.IsNotExist(err) {
			return &ProjectState{}, nil
		}
		return nil, &IOFailureError{Op: "load state", Err: err}
	}
	return &st, nil
}

// SaveState persists the ProjectState aggregate atomically.
func (s *Store) SaveState(st *ProjectState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.layout.StatePath(), st)
}

// LoadOpenLoops loads the open_loops.json aggregate.
func (s *Store) LoadOpenLoops() ([]OpenLoop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loops []OpenLoop
	if err := readJSON(s.layout.OpenLoopsPath(), &loops); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOFailureError{Op: "load open loops", Err: err}
	}
	return loops, nil
}

// SaveOpenLoops rewrites the open_loops.json aggregate atomically.
func (s *Store) SaveOpenLoops(loops []OpenLoop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.layout.OpenLoopsPath(), loops)
}

// LoadRelationships loads the relationships.json aggregate.
func (s *Store) LoadRelationships() ([]Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rels []Relationship
	if err := readJSON(s.layout.RelationshipsPath(), &rels); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOFailureError{Op: "load relationships", Err: err}
	}
	return rels, nil
}

// SaveRelationships rewrites the relationships.json aggregate atomically.
func (s *Store) SaveRelationships(rels []Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.layout.RelationshipsPath(), rels)
}

// LoadPlotOutline loads plot_outline.json, or a fresh empty outline.
func (s *Store) LoadPlotOutline() (*PlotOutline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out PlotOutline
	if err := readJSON(s.layout.PlotOutlinePath(), &out); err != nil {
		if os.IsNotExist(err) {
			return &PlotOutline{}, nil
		}
		return nil, &IOFailureError{Op: "load plot outline", Err: err}
	}
	return &out, nil
}

// SavePlotOutline rewrites plot_outline.json atomically.
func (s *Store) SavePlotOutline(out *PlotOutline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.layout.PlotOutlinePath(), out)
}

// EnsureDirs creates the project directory skeleton.
func (s *Store) EnsureDirs() error {
	dirs := []string{
		s.layout.CharactersDir(), s.layout.LocationsDir(), s.layout.ScenesDir(),
		s.layout.FactionsDir(), s.layout.LoreDir(), s.layout.IndexDir(),
		s.layout.ScenesProseDir(), s.layout.PlansDir(), s.layout.ErrorsDir(),
		s.layout.CheckpointsDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return &IOFailureError{Op: "mkdir " + d, Err: err}
		}
	}
	return nil
}
