package planner

import (
	"fmt"
	"os"
	"strings"

	"github.com/storydaemon/storydaemon/memory"
	"github.com/storydaemon/storydaemon/tools"
)

// WriterContext is the assembled context handed to the Scene Writer
// (spec §4.4 "Writer context").
type WriterContext struct {
	FullTextScenes    []string
	SummaryScenes     []string
	POVCharacter      *memory.Character
	Location          *memory.Location
	ToolResultSummary []string

	SceneIntention  string
	KeyChange       string
	SceneMode       string
	PaletteShift    []string
	TransitionPath  string
	DialogueTargets *DialogueTargets
	LoopsAddressed  []string
	BeatTarget      *BeatTarget
}

// BuildWriterContext assembles a WriterContext (spec §4.4, §4.10.2). When
// isFirstTick is true, entity-generator actions (`character.generate`,
// `location.generate`) are filtered out of ToolResultSummary so the
// writer treats the characters/locations they produced as pre-existing
// (spec §4.10.2 "the writer's tool-result summary filters out
// entity-generator actions").
func BuildWriterContext(store *memory.Store, plan *Plan, execResults []tools.Result, isFirstTick bool, fullTextCount, summaryCount int) (*WriterContext, error) {
	if fullTextCount <= 0 {
		fullTextCount = 2
	}
	if summaryCount <= 0 {
		summaryCount = 3
	}

	sceneIDs, err := store.ListIDs(memory.KindScene)
	if err != nil {
		return nil, err
	}

	var fullText []string
	var summaries []string
	n := len(sceneIDs)
	fullStart := n - fullTextCount
	summaryStart := fullStart - summaryCount
	if summaryStart < 0 {
		summaryStart = 0
	}
	if fullStart < 0 {
		fullStart = 0
	}
	for i := summaryStart; i < fullStart; i++ {
		var sc memory.Scene
		if err := store.Load(memory.KindScene, sceneIDs[i], &sc); err == nil {
			summaries = append(summaries, strings.Join(sc.Summary, "; "))
		}
	}
	for i := fullStart; i < n; i++ {
		path := store.Layout().SceneMarkdownPath(sceneIDs[i])
		body, err := os.ReadFile(path)
		if err == nil {
			fullText = append(fullText, string(body))
		}
	}

	var pov *memory.Character
	if plan.POVCharacter != "" {
		var c memory.Character
		if err := store.Load(memory.KindCharacter, plan.POVCharacter, &c); err != nil {
			return nil, err
		}
		pov = &c
	}

	var loc *memory.Location
	if plan.TargetLocation != "" {
		var l memory.Location
		if err := store.Load(memory.KindLocation, plan.TargetLocation, &l); err != nil {
			return nil, err
		}
		loc = &l
	}

	var toolSummary []string
	for _, r := range execResults {
		if isFirstTick && isEntityGenerator(r.Tool) {
			continue
		}
		toolSummary = append(toolSummary, fmt.Sprintf("%s -> success=%v", r.Tool, r.Success))
	}

	return &WriterContext{
		FullTextScenes:    fullText,
		SummaryScenes:     summaries,
		POVCharacter:      pov,
		Location:          loc,
		ToolResultSummary: toolSummary,
		SceneIntention:    plan.SceneIntention,
		KeyChange:         plan.KeyChange,
		SceneMode:         plan.SceneMode,
		PaletteShift:      plan.PaletteShift,
		TransitionPath:    plan.TransitionPath,
		DialogueTargets:   plan.DialogueTargets,
		LoopsAddressed:    plan.LoopsAddressed,
		BeatTarget:        plan.BeatTarget,
	}, nil
}

func isEntityGenerator(tool string) bool {
	return tool == "character.generate" || tool == "location.generate"
}

// Render flattens the writer context into the prompt body the Scene
// Writer composes against, including the explicit POV and name-use rules
// (spec §4.6).
func (c *WriterContext) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Scene intention\n%s\n\n## Key change\n%s\n\n", c.SceneIntention, c.KeyChange)

	if len(c.SummaryScenes) > 0 {
		fmt.Fprintf(&b, "## Earlier scenes (summary)\n%s\n\n", strings.Join(c.SummaryScenes, "\n"))
	}
	if len(c.FullTextScenes) > 0 {
		fmt.Fprintf(&b, "## Preceding scenes (full text)\n%s\n\n", strings.Join(c.FullTextScenes, "\n---\n"))
	}

	if c.POVCharacter != nil {
		fmt.Fprintf(&b, "## POV character\n%s (%s)\nUse %q or pronouns; never a placeholder name.\n\n",
			c.POVCharacter.FullName(), c.POVCharacter.Role, c.POVCharacter.DisplayName())
	}
	if c.Location != nil {
		fmt.Fprintf(&b, "## Location\n%s — %s\n\n", c.Location.Name, c.Location.Description)
	}

	if len(c.ToolResultSummary) > 0 {
		fmt.Fprintf(&b, "## Tool results this tick\n%s\n\n", strings.Join(c.ToolResultSummary, "\n"))
	}

	if c.SceneMode != "" {
		fmt.Fprintf(&b, "## Scene mode\n%s\n\n", c.SceneMode)
	}
	if len(c.PaletteShift) > 0 {
		fmt.Fprintf(&b, "## Palette shift\n%s\n\n", strings.Join(c.PaletteShift, ", "))
	}
	if c.TransitionPath != "" {
		fmt.Fprintf(&b, "## Transition\nBridge from: %s\n\n", c.TransitionPath)
	}
	if c.DialogueTargets != nil {
		fmt.Fprintf(&b, "## Dialogue requirement\nAt least %d exchanges around: %s (participants: %s)\n\n",
			c.DialogueTargets.MinExchanges, c.DialogueTargets.ConflictAxis, strings.Join(c.DialogueTargets.Participants, ", "))
	}
	if len(c.LoopsAddressed) > 0 {
		fmt.Fprintf(&b, "## Loops addressed\n%s\n\n", strings.Join(c.LoopsAddressed, ", "))
	}
	if c.BeatTarget != nil && c.BeatTarget.Strategy != "skip" {
		fmt.Fprintf(&b, "## Beat target (hard requirement)\n%s: %s\n\n", c.BeatTarget.BeatID, c.BeatTarget.Notes)
	}

	fmt.Fprint(&b, "## Rules\nThird-person deep POV unless the foundation overrides it. No placeholder names. "+
		"No omniscient markers (\"unknown to\", \"little did\", \"would later\", \"meanwhile\", \"at that moment\").\n")

	return b.String()
}
