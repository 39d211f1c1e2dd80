// Package memory implements the persistent entity model: typed records for
// characters, locations, scenes, open loops, relationships, factions, lore,
// plot beats, the plot outline, and project state, plus the store that
// loads and atomically saves them.
package memory

import "time"

// Kind identifies an entity type for store operations and ID allocation.
type Kind string

const (
	KindCharacter    Kind = "character"
	KindLocation     Kind = "location"
	KindScene        Kind = "scene"
	KindOpenLoop     Kind = "open_loop"
	KindRelationship Kind = "relationship"
	KindFaction      Kind = "faction"
	KindLore         Kind = "lore"
	KindPlotBeat     Kind = "plot_beat"
)

// Record is the common envelope every persisted entity carries.
type Record struct {
	ID        string    `json:"id"`
	Type      Kind      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntry records a single change applied to an entity during a tick.
type HistoryEntry struct {
	Tick    int    `json:"tick"`
	SceneID string `json:"scene_id"`
	Changes string `json:"changes"`
	Summary string `json:"summary,omitempty"`
	// DiffHash identifies the applied change for idempotent re-application
	// (duplicate (tick,scene_id,diff-hash) entries are suppressed).
	DiffHash string `json:"diff_hash,omitempty"`
}

// Personality holds a character's inner traits.
type Personality struct {
	CoreTraits []string `json:"core_traits"`
	Fears      []string `json:"fears"`
	Desires    []string `json:"desires"`
	Flaws      []string `json:"flaws"`
}

// CharacterState is the character's mutable current state.
type CharacterState struct {
	LocationID      string   `json:"location_id,omitempty"`
	EmotionalState  string   `json:"emotional_state"`
	PhysicalState   string   `json:"physical_state"`
	Inventory       []string `json:"inventory"`
	Goals           []string `json:"goals"`
	Beliefs         []string `json:"beliefs"`
}

// Character is a persisted character entity (spec §3 "Character").
type Character struct {
	Record
	FirstName       string         `json:"first_name"`
	FamilyName      string         `json:"family_name,omitempty"`
	Title           string         `json:"title,omitempty"`
	Nicknames       []string       `json:"nicknames,omitempty"`
	Role            string         `json:"role"`
	Description     string         `json:"description"`
	PhysicalTraits  string         `json:"physical_traits"`
	Personality     Personality    `json:"personality"`
	CurrentState    CharacterState `json:"current_state"`
	ImmediateGoals  []string       `json:"immediate_goals,omitempty"`
	ArcGoal         string         `json:"arc_goal,omitempty"`
	StoryGoal       string         `json:"story_goal,omitempty"`
	History         []HistoryEntry `json:"history"`
}

// DisplayName is the derived short name used in prose and prompts.
func (c *Character) DisplayName() string {
	return c.FirstName
}

// FullName is the derived full name: optional title + first + family name.
func (c *Character) FullName() string {
	name := c.FirstName
	if c.FamilyName != "" {
		name = name + " " + c.FamilyName
	}
	if c.Title != "" {
		name = c.Title + " " + name
	}
	return name
}

// SensoryDetails describes a location's atmosphere across the senses.
type SensoryDetails struct {
	Visual   string `json:"visual"`
	Auditory string `json:"auditory"`
	Olfactory string `json:"olfactory"`
	Tactile  string `json:"tactile"`
}

// LocationState is a location's mutable current state.
type LocationState struct {
	TensionLevel   int      `json:"tension_level"` // 0-10
	TimeOfDay      string   `json:"time_of_day"`
	Weather        string   `json:"weather"`
	Occupants      []string `json:"occupants"`
	NotableObjects []string `json:"notable_objects"`
}

// Location is a persisted location entity (spec §3 "Location").
type Location struct {
	Record
	Name           string         `json:"name"`
	Aliases        []string       `json:"aliases,omitempty"`
	Description    string         `json:"description"`
	Atmosphere     string         `json:"atmosphere"`
	SensoryDetails SensoryDetails `json:"sensory_details"`
	Features       []string       `json:"features"`
	Connections    []string       `json:"connections,omitempty"`
	CurrentState   LocationState  `json:"current_state"`
	Significance   string         `json:"significance,omitempty"`
	History        []HistoryEntry `json:"history"`
}

// TensionCategory buckets a 0-10 tension score (spec §4.7, §8).
type TensionCategory string

const (
	TensionCalm      TensionCategory = "calm"
	TensionRising    TensionCategory = "rising"
	TensionHigh      TensionCategory = "high"
	TensionClimactic TensionCategory = "climactic"
)

// Scene is a persisted scene record (spec §3 "Scene").
type Scene struct {
	Record
	Tick              int             `json:"tick"`
	Title             string          `json:"title"`
	POVCharacterID    string          `json:"pov_character_id"`
	LocationID        string          `json:"location_id"`
	MarkdownFile      string          `json:"markdown_file"`
	WordCount         int             `json:"word_count"`
	Summary           []string        `json:"summary"`
	CharactersPresent []string        `json:"characters_present"`
	KeyEvents         []string        `json:"key_events"`
	EntitiesCreated   []string        `json:"entities_created,omitempty"`
	EntitiesUpdated   []string        `json:"entities_updated,omitempty"`
	OpenLoopsCreated  []string        `json:"open_loops_created,omitempty"`
	OpenLoopsResolved []string        `json:"open_loops_resolved,omitempty"`
	TensionLevel      *int            `json:"tension_level,omitempty"`
	TensionCategory   TensionCategory `json:"tension_category,omitempty"`
}

// Importance is a shared 4-level importance scale.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

// OpenLoopStatus is the lifecycle state of a narrative thread.
type OpenLoopStatus string

const (
	OpenLoopOpen     OpenLoopStatus = "open"
	OpenLoopResolved OpenLoopStatus = "resolved"
	OpenLoopAbandoned OpenLoopStatus = "abandoned"
)

// OpenLoop tracks an unresolved narrative thread (spec §3 "OpenLoop").
type OpenLoop struct {
	Record
	Description        string         `json:"description"`
	Importance         Importance     `json:"importance"`
	Category           string         `json:"category"`
	Status             OpenLoopStatus `json:"status"`
	CreatedInScene     string         `json:"created_in_scene"`
	ResolvedInScene    string         `json:"resolved_in_scene,omitempty"`
	ResolutionSummary  string         `json:"resolution_summary,omitempty"`
	RelatedCharacters  []string       `json:"related_characters,omitempty"`
	RelatedLocations   []string       `json:"related_locations,omitempty"`
	ScenesMentioned    int            `json:"scenes_mentioned"`
	LastMentionedTick  *int           `json:"last_mentioned_tick,omitempty"`
	IsStoryGoal        bool           `json:"is_story_goal"`
}

// Relationship is a bidirectional link between two characters (spec §3
// "Relationship"). CharacterA/CharacterB are stored in a deterministic
// order (lexicographically smallest first); lookups normalize the pair.
type Relationship struct {
	Record
	CharacterA       string         `json:"character_a"`
	CharacterB       string         `json:"character_b"`
	RelationshipType string         `json:"relationship_type"`
	Status           string         `json:"status"`
	PerspectiveA     string         `json:"perspective_a"`
	PerspectiveB     string         `json:"perspective_b"`
	Intensity        int            `json:"intensity"` // 0-10
	History          []HistoryEntry `json:"history"`
}

// OrderedPair returns (min,max) of two character ids for deterministic
// storage/lookup order.
func OrderedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Faction is a persisted faction entity (spec §3 "Faction").
type Faction struct {
	Record
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	Summary          string            `json:"summary"`
	MandateObjectives []string         `json:"mandate_objectives,omitempty"`
	InfluenceDomains []string          `json:"influence_domains,omitempty"`
	AssetsResources  []string          `json:"assets_resources,omitempty"`
	MethodsTactics   []string          `json:"methods_tactics,omitempty"`
	StanceByCharacter map[string]string `json:"stance_by_character,omitempty"`
	Relationships    []string          `json:"relationships,omitempty"`
	Importance       string            `json:"importance,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
}

// Lore is a persisted world-fact entity (spec §3 "Lore").
type Lore struct {
	Record
	Fact        string   `json:"fact"`
	Category    string   `json:"category"`
	Importance  string   `json:"importance"`
	SourceScene string   `json:"source_scene"`
	Tags        []string `json:"tags,omitempty"`
}

// BeatStatus is a plot beat's lifecycle state (spec §4.9).
type BeatStatus string

const (
	BeatPending    BeatStatus = "pending"
	BeatInProgress BeatStatus = "in_progress"
	BeatExecuted   BeatStatus = "executed"
	BeatSkipped    BeatStatus = "skipped"
)

// PlotBeat is a persisted plot unit (spec §3 "PlotBeat").
type PlotBeat struct {
	ID                    string     `json:"id"`
	Description           string     `json:"description"`
	CharactersInvolved    []string   `json:"characters_involved,omitempty"`
	Location              string     `json:"location,omitempty"`
	PlotThreads           []string   `json:"plot_threads,omitempty"`
	TensionTarget         *int       `json:"tension_target,omitempty"`
	Prerequisites         []string   `json:"prerequisites,omitempty"`
	Status                BeatStatus `json:"status"`
	CreatedAt             time.Time  `json:"created_at"`
	ExecutedInScene       string     `json:"executed_in_scene,omitempty"`
	ExecutionNotes        string     `json:"execution_notes,omitempty"`
	AdvancesCharacterArcs []string   `json:"advances_character_arcs,omitempty"`
	ResolvesLoops         []string   `json:"resolves_loops,omitempty"`
	CreatesLoops          []string   `json:"creates_loops,omitempty"`
}

// PlotOutline is the persisted beat outline (spec §3 "PlotOutline").
type PlotOutline struct {
	Beats       []PlotBeat `json:"beats"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUpdated time.Time  `json:"last_updated"`
	CurrentArc  string     `json:"current_arc,omitempty"`
	ArcProgress float64    `json:"arc_progress"`
}

// StoryFoundation holds the immutable story constraints set at project
// creation (spec GLOSSARY "Foundation").
type StoryFoundation struct {
	Genre                string   `json:"genre"`
	Premise              string   `json:"premise"`
	ProtagonistArchetype string   `json:"protagonist_archetype,omitempty"`
	Setting              string   `json:"setting"`
	Tone                 string   `json:"tone"`
	Themes               []string `json:"themes,omitempty"`
	PrimaryGoal          string   `json:"primary_goal,omitempty"`
	// FirstPersonOverride, when true, allows the Scene Writer to compose
	// first-person prose. Never set by any code path in this module; only
	// a human-authored foundation file may set it (spec §9 Open Questions).
	FirstPersonOverride bool `json:"first_person_override,omitempty"`
}

// StoryGoal is a promoted or candidate primary story goal.
type StoryGoal struct {
	Description string `json:"description"`
	Source      string `json:"source"`
	PromotedAtTick int `json:"promoted_at_tick"`
}

// StoryGoals tracks the project's primary goal and promotion candidates.
type StoryGoals struct {
	Primary            *StoryGoal  `json:"primary,omitempty"`
	PromotionCandidates []StoryGoal `json:"promotion_candidates,omitempty"`
}

// TensionPoint is one entry in the project's tension history.
type TensionPoint struct {
	Tick     int             `json:"tick"`
	Level    int             `json:"level"`
	Category TensionCategory `json:"category"`
}

// ProjectState is the top-level per-project state (spec §3 "ProjectState").
type ProjectState struct {
	NovelName        string           `json:"novel_name"`
	ProjectID        string           `json:"project_id"`
	CurrentTick      int              `json:"current_tick"`
	ActiveCharacter  string           `json:"active_character,omitempty"`
	StoryFoundation  *StoryFoundation `json:"story_foundation,omitempty"`
	StoryGoals       StoryGoals       `json:"story_goals"`
	TensionHistory   []TensionPoint   `json:"tension_history"`
	LastUpdated      time.Time        `json:"last_updated"`
}
