package planner

// Per-stage token budgets (spec §4.5).
const (
	Stage1MaxInputTokens  = 500
	Stage1MaxOutputTokens = 120

	Stage3MaxInputTokens  = 1500
	Stage3MaxOutputTokens = 800
)
