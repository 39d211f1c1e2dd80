package tools

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// nameGenerateTool implements name.generate: a deterministic name
// synthesizer (no LLM call — spec §4.3 describes every registered tool as
// deterministic). Grounded on `agents/spawner.go`'s use of
// `cases.Title(language.English).String` for display-string casing.
type nameGenerateTool struct{ deps Deps }

func (t *nameGenerateTool) Name() string { return "name.generate" }

var (
	firstNamesByCulture = map[string][]string{
		"default": {"Elena", "Marcus", "Dax", "Iris", "Soren", "Vara", "Cassian", "Nadia", "Torin", "Wren"},
	}
	familyNamesByCulture = map[string][]string{
		"default": {"Thorne", "Vale", "Ashworth", "Calder", "Brennan", "Marsh", "Okafor", "Voss"},
	}
)

func (t *nameGenerateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	culture := argStringOpt(args, "culture_hint")
	firsts, ok := firstNamesByCulture[culture]
	if !ok {
		firsts = firstNamesByCulture["default"]
	}
	families, ok := familyNamesByCulture[culture]
	if !ok {
		families = familyNamesByCulture["default"]
	}

	role := argStringOpt(args, "role")
	seed := len(role) + argIntOpt(args, "salt", 0)

	first := firsts[seed%len(firsts)]
	family := families[(seed/len(firsts))%len(families)]

	title := cases.Title(language.English)
	name := title.String(first) + " " + title.String(family)
	return map[string]any{
		"name":        name,
		"first_name":  first,
		"family_name": family,
	}, nil
}
