package allowlist

import (
	"github.com/BakeLens/galley/internal/shellsafe"
)

// Options gates shell features that are denied by default. Each gate is
// independent and produces its own denial reason so callers can tell an
// agent exactly which feature to request.
type Options struct {
	AllowPipes               bool `json:"allowPipes"`
	AllowRedirections        bool `json:"allowRedirections"`
	AllowCommandSubstitution bool `json:"allowCommandSubstitution"`
	AllowBackground          bool `json:"allowBackground"`
}

// ValidateCommand runs the full command check: screening, injection
// signatures, feature gates, then the allowlist. Checks are ordered so
// the cheapest and most specific denials short-circuit first.
//
// Signatures and gates are evaluated against both the raw command and
// its normalized form. Normalization exists only to make these denial
// checks harder to evade with homoglyphs or invisible characters; the
// raw string is what a session would execute, and normalization never
// removes a shell metacharacter from it.
func ValidateCommand(command string, list *List, opts Options) Result {
	if reason, ok := shellsafe.Screen(command); !ok {
		return deny("%s", reason)
	}

	normalized := shellsafe.Normalize(command)

	if reason, found := shellsafe.DetectInjection(command); found {
		return deny("dangerous pattern detected: %s", reason)
	}
	if reason, found := shellsafe.DetectInjection(normalized); found {
		return deny("dangerous pattern detected: %s", reason)
	}

	raw := shellsafe.ParseCommand(command)
	norm := shellsafe.ParseCommand(normalized)

	if !opts.AllowPipes && (raw.HasPipes || norm.HasPipes) {
		return deny("command uses pipes, which are not enabled")
	}
	if !opts.AllowRedirections && (raw.HasRedirections || norm.HasRedirections) {
		return deny("command uses redirections, which are not enabled")
	}
	if !opts.AllowCommandSubstitution && (raw.HasCommandSubstitution || norm.HasCommandSubstitution) {
		return deny("command uses command substitution, which is not enabled")
	}
	if !opts.AllowBackground && (raw.HasBackground || norm.HasBackground) {
		return deny("command uses background execution, which is not enabled")
	}

	return list.Validate(normalized)
}
