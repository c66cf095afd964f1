// Package shellsafe provides a shallow structural read of shell command
// strings plus a fixed table of known-dangerous injection signatures.
//
// It is deliberately not a shell parser. Matching is pattern-based and can
// be evaded; the allowlist remains the actual security boundary and this
// package is defense-in-depth ahead of it.
package shellsafe

import "strings"

// metachars are the shell metacharacters that end the directly-invoked
// command part of a line. Everything before the first one belongs to the
// base command and its arguments.
const metachars = "|;<>&$`"

// ParsedCommand is the structural read of one command line. The feature
// flags are raw substring tests over the whole line, so "&&" sets
// HasBackground and "||" sets HasPipes. That coarseness is intentional:
// chaining operators imply the same shell features the gates exist to
// control.
type ParsedCommand struct {
	BaseCommand            string
	Args                   []string
	HasPipes               bool
	HasRedirections        bool
	HasCommandSubstitution bool
	HasBackground          bool
}

// ParseCommand splits command at the first shell metacharacter and reads
// the base command and arguments out of what precedes it. The flags are
// computed over the entire line, including anything after that cut.
func ParseCommand(command string) ParsedCommand {
	head := command
	if i := strings.IndexAny(command, metachars); i >= 0 {
		head = command[:i]
	}

	fields := strings.Fields(head)
	parsed := ParsedCommand{
		HasPipes:               strings.Contains(command, "|"),
		HasRedirections:        strings.Contains(command, "<") || strings.Contains(command, ">"),
		HasCommandSubstitution: strings.Contains(command, "$(") || strings.Contains(command, "`"),
		HasBackground:          strings.Contains(command, "&"),
	}
	if len(fields) > 0 {
		parsed.BaseCommand = fields[0]
		parsed.Args = fields[1:]
	}
	return parsed
}
