package tui

// Icons — each symbol is unique, universally recognized, and in widely-supported Unicode blocks.
// Color (green/red/amber) is the primary signal; icon shape reinforces meaning.
const (
	IconMark    = "◆" // ◆ — diamond (brand marker)
	IconCheck   = "✔" // ✔ — heavy check mark (completed)
	IconCross   = "✖" // ✖ — heavy multiplication X (failed)
	IconWarning = "⚠" // ⚠ — warning sign (universal)
	IconInfo    = "ℹ" // ℹ — information source
	IconDot     = "●" // ● — filled circle (running/active)
	IconCircle  = "○" // ○ — hollow circle (inactive/unknown)
	IconBlock   = "⊘" // ⊘ — circled division slash (denied)
	IconClock   = "◷" // ◷ — circle with quadrant (timed out)
	IconBolt    = "⚡" // ⚡ — high voltage (hit counter)
	IconSquare  = "▪" // ▪ — small square (cancelled)
)
