package storydaemon

import (
	"os"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds the LLM backend and per-stage token/timeout settings
// (spec §6 "llm.*").
type LLMConfig struct {
	Backend           string  `yaml:"backend"`
	Model             string  `yaml:"model"`
	PlannerMaxTokens  int     `yaml:"planner_max_tokens"`
	WriterMaxTokens   int     `yaml:"writer_max_tokens"`
	ExtractorMaxTokens int    `yaml:"extractor_max_tokens"`
	TimeoutSeconds    float64 `yaml:"timeout"`
}

// GenerationConfig holds the tick-generation tunables (spec §6
// "generation.*").
type GenerationConfig struct {
	MaxToolsPerTick         int  `yaml:"max_tools_per_tick"`
	RecentScenesCount       int  `yaml:"recent_scenes_count"`
	FullTextScenesCount     int  `yaml:"full_text_scenes_count"`
	SummaryScenesCount      int  `yaml:"summary_scenes_count"`
	CheckpointSummaryInterval int `yaml:"checkpoint_summary_interval"`
	TargetWordCountMin      int  `yaml:"target_word_count_min"`
	TargetWordCountMax      int  `yaml:"target_word_count_max"`
	EnableFactExtraction    bool `yaml:"enable_fact_extraction"`
	EnableEntityUpdates     bool `yaml:"enable_entity_updates"`
	EnableTensionTracking   bool `yaml:"enable_tension_tracking"`
	EnableLoreTracking      bool `yaml:"enable_lore_tracking"`
	UsePlotFirst            bool `yaml:"use_plot_first"`
	PlotBeatsAhead          int  `yaml:"plot_beats_ahead"`
	PlotRegenerationThreshold int `yaml:"plot_regeneration_threshold"`
	VerifyBeatExecution     bool `yaml:"verify_beat_execution"`
	AllowBeatSkip           bool `yaml:"allow_beat_skip"`
	FallbackToReactive      bool `yaml:"fallback_to_reactive"`
	UseMultiStagePlanner    bool `yaml:"use_multi_stage_planner"`
	SavePrompts             bool `yaml:"save_prompts"`
}

// PlotConfig holds the beat-influence mode (spec §6 "plot.beat_mode").
type PlotConfig struct {
	BeatMode string `yaml:"beat_mode"` // off|soft_hint|guided|strict
}

// Config is the full per-project configuration (spec §6), loaded from
// config.yaml with DefaultConfig as the baseline. Grounded on
// `factory.Config`/`DefaultConfig()`'s struct-of-structs-with-defaults
// shape.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Plot       PlotConfig       `yaml:"plot"`
}

// DefaultConfig returns the spec §6 default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend:            "api",
			PlannerMaxTokens:   800,
			WriterMaxTokens:    1400,
			ExtractorMaxTokens: 600,
			TimeoutSeconds:     60,
		},
		Generation: GenerationConfig{
			MaxToolsPerTick:           4,
			RecentScenesCount:         3,
			FullTextScenesCount:       2,
			SummaryScenesCount:        3,
			CheckpointSummaryInterval: 10,
			TargetWordCountMin:        500,
			TargetWordCountMax:        900,
			EnableFactExtraction:      true,
			EnableEntityUpdates:       true,
			EnableTensionTracking:     true,
			EnableLoreTracking:        true,
			UsePlotFirst:              false,
			PlotBeatsAhead:            5,
			PlotRegenerationThreshold: 2,
			VerifyBeatExecution:       true,
			AllowBeatSkip:             false,
			FallbackToReactive:        true,
			UseMultiStagePlanner:      true,
			SavePrompts:               false,
		},
		Plot: PlotConfig{BeatMode: "off"},
	}
}

// LoadConfig returns DefaultConfig() overridden by path's YAML contents.
// A missing file is not an error — the project simply runs on defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, &IOError{Op: "read config", Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &IOError{Op: "parse config", Err: err}
	}
	return cfg, nil
}
