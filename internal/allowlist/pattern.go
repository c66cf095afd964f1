package allowlist

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// PatternKind discriminates the three pattern variants.
type PatternKind int

const (
	KindLiteral PatternKind = iota
	KindRegex
	KindGlob
)

func (k PatternKind) String() string {
	switch k {
	case KindRegex:
		return "regex"
	case KindGlob:
		return "glob"
	default:
		return "literal"
	}
}

// Pattern is a tagged sum over the ways an allowlist entry can match a
// command: an exact-or-prefix literal, a compiled regular expression, or a
// compiled glob. Construct through Literal, Regex, Glob or ParsePattern;
// the zero Pattern matches nothing.
type Pattern struct {
	kind PatternKind
	raw  string
	re   *regexp.Regexp
	gl   glob.Glob
}

// maxRegexLen limits user-defined regex pattern length to bound
// compilation cost.
const maxRegexLen = 4096

// sanitizePattern rejects patterns containing null bytes or control
// characters. Returns an error so the user gets a clear message about
// what's wrong.
func sanitizePattern(pattern string) error {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == 0 {
			return fmt.Errorf("pattern contains null byte at position %d", i)
		}
		if pattern[i] < 0x20 && pattern[i] != '\t' {
			return fmt.Errorf("pattern contains control character 0x%02x at position %d", pattern[i], i)
		}
	}
	return nil
}

// Literal returns a pattern that matches a command equal to s or starting
// with s plus a space. "npm" matches "npm run build" but never "npmx".
func Literal(s string) Pattern {
	return Pattern{kind: KindLiteral, raw: s}
}

// Regex compiles expr into a regex pattern.
func Regex(expr string) (Pattern, error) {
	if err := sanitizePattern(expr); err != nil {
		return Pattern{}, err
	}
	if len(expr) > maxRegexLen {
		return Pattern{}, fmt.Errorf("regex pattern too long (%d > %d chars)", len(expr), maxRegexLen)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid regex %q: %w", expr, err)
	}
	return Pattern{kind: KindRegex, raw: expr, re: re}, nil
}

// Glob compiles expr into a glob pattern. Commands are not paths, so no
// separator is special and * crosses spaces.
func Glob(expr string) (Pattern, error) {
	if err := sanitizePattern(expr); err != nil {
		return Pattern{}, err
	}
	g, err := glob.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid glob %q: %w", expr, err)
	}
	return Pattern{kind: KindGlob, raw: expr, gl: g}, nil
}

// ParsePattern builds a Pattern from its string form: "re:" prefixes a
// regular expression, "glob:" a glob, anything else is a literal.
func ParsePattern(spec string) (Pattern, error) {
	switch {
	case strings.HasPrefix(spec, "re:"):
		return Regex(strings.TrimPrefix(spec, "re:"))
	case strings.HasPrefix(spec, "glob:"):
		return Glob(strings.TrimPrefix(spec, "glob:"))
	default:
		if err := sanitizePattern(spec); err != nil {
			return Pattern{}, err
		}
		lit := strings.TrimSpace(spec)
		if lit == "" {
			return Pattern{}, fmt.Errorf("empty pattern")
		}
		return Literal(lit), nil
	}
}

// Matches reports whether command satisfies the pattern. Literal matching
// is exact-or-prefix-plus-space; regex and glob test the whole string.
func (p Pattern) Matches(command string) bool {
	switch p.kind {
	case KindLiteral:
		if p.raw == "" {
			return false
		}
		return command == p.raw || strings.HasPrefix(command, p.raw+" ")
	case KindRegex:
		return p.re != nil && p.re.MatchString(command)
	case KindGlob:
		return p.gl != nil && p.gl.Match(command)
	default:
		return false
	}
}

// Kind returns the pattern's variant tag.
func (p Pattern) Kind() PatternKind {
	return p.kind
}

// String returns the parseable form of the pattern: the raw literal, or
// the raw expression with its "re:"/"glob:" prefix restored.
func (p Pattern) String() string {
	switch p.kind {
	case KindRegex:
		return "re:" + p.raw
	case KindGlob:
		return "glob:" + p.raw
	default:
		return p.raw
	}
}

// MarshalJSON serializes the pattern as its String form.
func (p Pattern) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses the String form back into a compiled pattern, so
// entries fetched from the control API carry working matchers.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var spec string
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	parsed, err := ParsePattern(spec)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
