package shellsafe

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Screen rejects command strings that cannot be matched or executed
// faithfully: NUL bytes (C-level syscalls truncate at \x00) and other
// control characters (a raw newline is a command separator that would let
// a second command ride along unmatched). Returns a denial reason and
// false when the command must not proceed.
func Screen(command string) (string, bool) {
	if strings.TrimSpace(command) == "" {
		return "empty command", false
	}
	for _, r := range command {
		if r == 0 {
			return "command contains a null byte", false
		}
		if unicode.IsControl(r) {
			return "command contains control characters", false
		}
	}
	return "", true
}

// Normalize returns the canonical form of command used for all matching:
// valid UTF-8, NFKC-folded, invisible formatting runes stripped, common
// cross-script homoglyphs mapped to ASCII, whitespace collapsed and
// trimmed.
//
// Normalization is for matching only; the raw command is what executes.
// None of these steps can remove a shell metacharacter from the raw
// string, so a command can only become easier to flag, never easier to
// sneak past a deny check.
func Normalize(command string) string {
	command = strings.ToValidUTF8(command, "�")

	// NFKC maps fullwidth and compatibility forms onto their canonical
	// equivalents: "ｒｍ" becomes "rm", U+FF40 becomes a backtick.
	command = norm.NFKC.String(command)

	command = stripInvisible(command)
	command = stripConfusables(command)

	// Replacing a non-Latin base rune can create a new composition pair
	// with a following combining mark, so fold once more.
	command = norm.NFKC.String(command)

	return strings.Join(strings.Fields(command), " ")
}

// confusables maps the common Cyrillic, Greek and small-capital homoglyphs
// of Latin letters to ASCII. "сurl" with a Cyrillic с must match the same
// signatures plain "curl" does.
var confusables = map[rune]rune{
	// Cyrillic
	'а': 'a', 'е': 'e', 'і': 'i', 'о': 'o',
	'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x',
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K',
	'М': 'M', 'Н': 'H', 'О': 'O', 'Р': 'P',
	'С': 'C', 'Т': 'T', 'Х': 'X',
	// Greek
	'α': 'a', 'ε': 'e', 'ι': 'i', 'ο': 'o',
	'ρ': 'p', 'τ': 't',
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H',
	'Ι': 'I', 'Κ': 'K', 'Μ': 'M', 'Ν': 'N',
	'Ο': 'O', 'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y',
	'Χ': 'X', 'Ζ': 'Z',
	// Latin small capitals survive NFKC
	'ᴀ': 'a', 'ᴄ': 'c', 'ᴅ': 'd', 'ᴇ': 'e',
	'ɢ': 'g', 'ʜ': 'h', 'ɪ': 'i', 'ᴊ': 'j',
	'ᴋ': 'k', 'ʟ': 'l', 'ᴍ': 'm', 'ɴ': 'n',
	'ᴏ': 'o', 'ᴘ': 'p', 'ʀ': 'r', 'ꜱ': 's',
	'ᴛ': 't', 'ᴜ': 'u', 'ᴠ': 'v', 'ᴡ': 'w',
}

// invisibles is the set of zero-width and directional formatting runes
// that render as nothing but defeat substring and regex matching:
// "r​m" looks like "rm" and is not "rm".
var invisibles = map[rune]bool{
	'​': true, // zero-width space
	'‌': true, // zero-width non-joiner
	'‍': true, // zero-width joiner
	'\uFEFF': true, // BOM / zero-width no-break space
	'­': true, // soft hyphen
	'͏': true, // combining grapheme joiner
	'؜': true, // arabic letter mark
	'᠎': true, // mongolian vowel separator
	'⁠': true, // word joiner
	'⁡': true,
	'⁢': true,
	'⁣': true,
	'⁤': true,
	'‎': true, // LTR mark
	'‏': true, // RTL mark
	'‪': true,
	'‫': true,
	'‬': true,
	'‭': true,
	'‮': true, // RTL override
	'⁦': true,
	'⁧': true,
	'⁨': true,
	'⁩': true,
}

func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		if invisibles[r] {
			return -1
		}
		return r
	}, s)
}

func stripConfusables(s string) string {
	return strings.Map(func(r rune) rune {
		if ascii, ok := confusables[r]; ok {
			return ascii
		}
		return r
	}, s)
}
