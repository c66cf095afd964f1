// Package workspace enforces the path security boundary: every file and
// command operation an agent performs must stay at or under a single
// workspace root directory.
//
// The validator survives the two classic escape routes: lexical traversal
// (`../../etc`) and symlinks whose target lies outside the root — including
// a symlinked parent directory of a file that does not exist yet.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Result reports the outcome of a path validation. Denials are data, not
// errors: ResolvedPath is set only when Valid is true and is then guaranteed
// to be absolute, symlink-resolved, and at or under the workspace root.
type Result struct {
	Valid        bool   `json:"valid"`
	ResolvedPath string `json:"resolvedPath,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func invalid(format string, args ...any) Result {
	return Result{Valid: false, Reason: fmt.Sprintf(format, args...)}
}

// Validator checks requested paths against one workspace root. The root is
// resolved through symlinks once, at construction, and never changes.
type Validator struct {
	root string
	// tmpRoot, when set, admits the OS temp tree as a second boundary.
	tmpRoot string
}

// NewValidator binds a validator to the given workspace root. The root must
// exist and be a directory; its real (symlink-resolved) path becomes the
// boundary all later checks compare against.
func NewValidator(root string) (*Validator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root %s: %w", abs, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root %s: %w", real, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", real)
	}
	return &Validator{root: real}, nil
}

// Root returns the resolved workspace root the validator is bound to.
func (v *Validator) Root() string {
	return v.root
}

// AllowTemp admits the OS temp directory as a second subtree. Build and
// test commands routinely write scratch output there; relative paths
// still resolve against the workspace root only.
func (v *Validator) AllowTemp() error {
	real, err := filepath.EvalSymlinks(os.TempDir())
	if err != nil {
		return fmt.Errorf("resolve temp dir: %w", err)
	}
	v.tmpRoot = real
	return nil
}

// Validate resolves requested against the workspace root, following
// symlinks, and reports whether the result stays inside the boundary.
//
// A requested path that does not exist yet is resolved through its nearest
// existing ancestor, so a symlinked parent directory cannot be used to
// escape once the file is later created there.
func (v *Validator) Validate(requested string) Result {
	candidate, res := v.screen(requested)
	if !res.Valid {
		return res
	}

	resolved, err := resolveNearest(candidate)
	if err != nil {
		return invalid("failed to resolve %s: %v", candidate, err)
	}
	return v.check(resolved)
}

// ValidateLexical is the weaker, filesystem-free variant of Validate: it
// normalizes the requested path and applies the boundary check without
// resolving symlinks. A symlink inside the workspace that targets a path
// outside it will pass this check — use it only for paths that have already
// been validated or where symlink escapes are not a concern.
func (v *Validator) ValidateLexical(requested string) Result {
	candidate, res := v.screen(requested)
	if !res.Valid {
		return res
	}
	return v.check(candidate)
}

// screen applies the cheap rejections shared by both variants and returns
// the absolute, cleaned candidate path.
func (v *Validator) screen(requested string) (string, Result) {
	if strings.TrimSpace(requested) == "" {
		return "", invalid("empty path")
	}
	if strings.ContainsRune(requested, 0) {
		return "", invalid("path contains a null byte")
	}
	// Home expansion never happens here, but a leading ~ means the caller
	// expected it to; reject instead of silently treating it as a literal
	// directory name.
	if strings.HasPrefix(requested, "~") {
		return "", invalid("path must not start with ~")
	}

	var candidate string
	if filepath.IsAbs(requested) {
		candidate = filepath.Clean(requested)
	} else {
		candidate = filepath.Join(v.root, requested)
	}
	return candidate, Result{Valid: true}
}

// check applies the boundary invariant: resolved must lie at or under the
// workspace root, or under the temp tree when that is admitted.
func (v *Validator) check(resolved string) Result {
	if within(resolved, v.root) {
		return Result{Valid: true, ResolvedPath: resolved}
	}
	if v.tmpRoot != "" && within(resolved, v.tmpRoot) {
		return Result{Valid: true, ResolvedPath: resolved}
	}
	return invalid("path %s is outside workspace root %s", resolved, v.root)
}

// within reports whether path is dir itself or below it. The separator
// requirement stops /work/project from matching a sibling like
// /work/projectile.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(os.PathSeparator))
}

// resolveNearest resolves path through symlinks. If path does not exist, it
// walks up to the nearest existing ancestor, resolves that, and re-appends
// the untraversed remainder.
func resolveNearest(path string) (string, error) {
	remainder := ""
	dir := path
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Nothing on the path exists (possible with a bad absolute
			// path); there is nothing to resolve.
			return path, nil
		}
		remainder = filepath.Join(filepath.Base(dir), remainder)
		dir = parent
	}
}

// ValidatePath is a one-shot convenience for callers that do not hold a
// Validator. Root resolution failures are reported as an invalid Result so
// the caller never has to distinguish error channels for a denial.
func ValidatePath(requested, root string) Result {
	v, err := NewValidator(root)
	if err != nil {
		return invalid("invalid workspace root: %v", err)
	}
	return v.Validate(requested)
}
