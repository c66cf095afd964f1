package shellsafe

import "regexp"

type signature struct {
	re     *regexp.Regexp
	reason string
}

// injectionSignatures is the fixed table of known-dangerous shell patterns.
// Run DetectInjection on the Normalize()d form of a command so fullwidth,
// homoglyph and zero-width evasions of these exact signatures are collapsed
// before matching.
var injectionSignatures = []signature{
	{
		// rm -rf / smuggled in after another command: "ls; rm -rf /",
		// "true && rm -fr /home". Flag clusters with r and f in either
		// order count.
		re:     regexp.MustCompile(`[;&|]\s*rm\s+-(?:[a-zA-Z]*r[a-zA-Z]*f|[a-zA-Z]*f[a-zA-Z]*r)[a-zA-Z]*\s+/`),
		reason: "recursive force rm chained onto another command",
	},
	{
		re:     regexp.MustCompile(`\b(?:curl|wget)\b[^|]*\|\s*(?:ba|z|da|k)?sh\b`),
		reason: "piping a network download into a shell",
	},
	{
		re:     regexp.MustCompile(`\$\([^)]*\brm\b[^)]*\)`),
		reason: "command substitution invoking rm",
	},
	{
		// Same signature in backtick form. The download-pipe entry above
		// already matches inside $() and backticks, so rm is the only
		// payload needing its own substitution entries.
		re:     regexp.MustCompile("`[^`]*\\brm\\b[^`]*`"),
		reason: "command substitution invoking rm",
	},
	{
		re:     regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`),
		reason: "fork bomb",
	},
	{
		re:     regexp.MustCompile("\\beval\\b.*(?:\\$\\(|`)"),
		reason: "eval of dynamically constructed input",
	},
}

// DetectInjection tests command against the signature table and reports the
// first match. A false return means no signature matched, not that the
// command is safe.
func DetectInjection(command string) (string, bool) {
	for _, sig := range injectionSignatures {
		if sig.re.MatchString(command) {
			return sig.reason, true
		}
	}
	return "", false
}
