package allowlist

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML shape of an allowlist entry file:
//
//	version: 1
//	entries:
//	  - pattern: npm
//	    description: Node package manager
//	  - pattern: docker
//	    description: read-only docker
//	    args:
//	      - "re:^(ps|images|version)( .*)?$"
//
// An absent args key leaves arguments unconstrained; an explicit empty
// list ("args: []") permits zero arguments.
type File struct {
	Version int         `yaml:"version"`
	Entries []EntrySpec `yaml:"entries"`
}

// EntrySpec is one entry in its uncompiled string form. Pattern and Args
// use the shared prefix convention: "re:" for regex, "glob:" for glob,
// plain text for a literal.
type EntrySpec struct {
	Pattern     string   `yaml:"pattern"`
	Description string   `yaml:"description,omitempty"`
	Args        []string `yaml:"args,omitempty"`
}

// Validate collects every structural problem in the file into one error.
func (f *File) Validate() error {
	var errs []string

	if f.Version != 0 && f.Version != 1 {
		errs = append(errs, fmt.Sprintf("version: unsupported value %d (want 1)", f.Version))
	}
	if len(f.Entries) == 0 {
		errs = append(errs, "entries: file defines no entries")
	}
	for i, spec := range f.Entries {
		if strings.TrimSpace(spec.Pattern) == "" {
			errs = append(errs, fmt.Sprintf("entries[%d]: pattern is empty", i))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("allowlist validation failed:\n")
	for i, e := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e)
	}
	return errors.New(sb.String())
}

// Compile turns the spec into a runnable Entry, compiling the pattern and
// every argument constraint.
func (s EntrySpec) Compile(source string) (Entry, error) {
	p, err := ParsePattern(s.Pattern)
	if err != nil {
		return Entry{}, fmt.Errorf("pattern %q: %w", s.Pattern, err)
	}

	e := Entry{
		Pattern:     p,
		Description: s.Description,
		Source:      source,
	}
	if s.Args != nil {
		e.AllowedArgs = make([]Pattern, 0, len(s.Args))
		for i, arg := range s.Args {
			ap, err := ParsePattern(arg)
			if err != nil {
				return Entry{}, fmt.Errorf("args[%d] %q: %w", i, arg, err)
			}
			e.AllowedArgs = append(e.AllowedArgs, ap)
		}
	}
	return e, nil
}

// isUnknownFieldError returns true if the error came from
// yaml.Decoder.KnownFields(true) detecting an unrecognized key.
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// parseFile decodes and compiles one allowlist file. Strict decoding warns
// about unknown keys (typos like "patern:") and re-parses relaxed so old
// binaries tolerate newer files. When strict is true a bad entry aborts
// the whole file, otherwise it is skipped with a warning.
func parseFile(data []byte, path, source string, strict bool) ([]Entry, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if isUnknownFieldError(err) {
			log.Warn("%s has unknown fields (ignored): %v", path, err)
			f = File{}
			if err2 := yaml.Unmarshal(data, &f); err2 != nil {
				return nil, fmt.Errorf("invalid YAML in %s: %w", path, err2)
			}
		} else {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(f.Entries))
	for i, spec := range f.Entries {
		e, err := spec.Compile(source)
		if err != nil {
			if strict {
				return nil, fmt.Errorf("%s entries[%d]: %w", path, i, err)
			}
			log.Warn("Skipping entry %d in %s: %v", i, path, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// EntryValidationResult holds per-entry lint results.
type EntryValidationResult struct {
	Pattern string `json:"pattern"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
}

// LintYAML validates allowlist YAML content including pattern compilation,
// reporting every entry so callers can show all problems at once.
func LintYAML(data []byte) ([]EntryValidationResult, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	results := make([]EntryValidationResult, 0, len(f.Entries))
	for _, spec := range f.Entries {
		r := EntryValidationResult{Pattern: spec.Pattern, Valid: true}
		if _, err := spec.Compile(SourceCLI); err != nil {
			r.Valid = false
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results, nil
}
