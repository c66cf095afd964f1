//go:build notui

package banner

// PrintBanner prints the plain text banner in notui builds.
func PrintBanner(version string) {
	PrintBannerPlain(version)
}

// PrintBannerCompact prints the compact one-line banner in notui builds.
func PrintBannerCompact() {
	PrintBannerCompactPlain()
}

// RevealLines prints lines without animation in notui builds.
func RevealLines(lines []string) {
	RevealLinesPlain(lines)
}
