//go:build notui

package entrylist

import (
	"github.com/BakeLens/galley/internal/allowlist"
)

// Render displays entries as plain text (no interactivity in notui build).
func Render(entries []allowlist.Entry, total int) error {
	return RenderPlain(entries, total)
}
