package entrylist

import (
	"fmt"

	"github.com/BakeLens/galley/internal/allowlist"
)

// Display order mirrors match precedence: user entries shadow builtin.
var sourceOrder = []string{
	allowlist.SourceUser,
	allowlist.SourceConfig,
	allowlist.SourceCLI,
	allowlist.SourceBuiltin,
}

// sourceTitle returns the section heading for a source group.
func sourceTitle(source string) string {
	switch source {
	case allowlist.SourceBuiltin:
		return "Builtin Entries"
	case allowlist.SourceUser:
		return "User Entries"
	case allowlist.SourceConfig:
		return "Config Entries"
	case allowlist.SourceCLI:
		return "CLI Entries"
	default:
		return source
	}
}

// groupBySource buckets entries by their source, preserving order within
// each bucket.
func groupBySource(entries []allowlist.Entry) map[string][]allowlist.Entry {
	groups := make(map[string][]allowlist.Entry)
	for _, e := range entries {
		src := e.Source
		if src == "" {
			src = allowlist.SourceUser
		}
		groups[src] = append(groups[src], e)
	}
	return groups
}

// argsSummary describes the argument constraint in short form.
func argsSummary(e allowlist.Entry) string {
	switch {
	case e.AllowedArgs == nil:
		return "any args"
	case len(e.AllowedArgs) == 0:
		return "no args"
	case len(e.AllowedArgs) == 1:
		return "1 arg pattern"
	default:
		return fmt.Sprintf("%d arg patterns", len(e.AllowedArgs))
	}
}

// RenderPlain displays allowlist entries as plain text (no interactivity).
func RenderPlain(entries []allowlist.Entry, total int) error {
	fmt.Printf("Galley Allowlist (%d entries)\n\n", total)

	groups := groupBySource(entries)

	for _, src := range sourceOrder {
		group := groups[src]
		if src != allowlist.SourceUser && len(group) == 0 {
			continue
		}
		fmt.Printf("--- %s ---\n", sourceTitle(src))
		if len(group) == 0 {
			fmt.Println("  (none)")
			fmt.Println("  Add entries with: galley allow-add <file.yaml>")
			fmt.Println()
			continue
		}
		fmt.Println()
		for _, e := range group {
			PrintEntry(e, "  ")
		}
		fmt.Println()
	}
	return nil
}

// PrintEntry prints a single allowlist entry in plain text format.
func PrintEntry(e allowlist.Entry, prefix string) {
	fmt.Printf("%s%s\n", prefix, e.Pattern.String())
	if e.Description != "" {
		fmt.Printf("%s  %s\n", prefix, e.Description)
	}
	fmt.Printf("%s  [%s]  %s  %d hits\n",
		prefix, e.Pattern.Kind(), argsSummary(e), e.HitCount)
}
