package workspace

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func newTestValidator(t *testing.T) (*Validator, string) {
	t.Helper()
	root := t.TempDir()
	v, err := NewValidator(root)
	if err != nil {
		t.Fatalf("NewValidator(%s) failed: %v", root, err)
	}
	return v, v.Root()
}

func TestNewValidator_Errors(t *testing.T) {
	if _, err := NewValidator(""); err == nil {
		t.Error("empty root should fail")
	}
	if _, err := NewValidator("   "); err == nil {
		t.Error("blank root should fail")
	}
	if _, err := NewValidator(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("nonexistent root should fail")
	}

	// Root must be a directory, not a file.
	file := filepath.Join(t.TempDir(), "afile")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewValidator(file); err == nil {
		t.Error("file root should fail")
	}
}

func TestNewValidator_ResolvesRootSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}
	base := t.TempDir()
	real := filepath.Join(base, "real")
	if err := os.Mkdir(real, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Fatal(err)
	}

	v, err := NewValidator(link)
	if err != nil {
		t.Fatalf("NewValidator via symlink failed: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(real)
	if v.Root() != resolved {
		t.Errorf("Root() = %q, want resolved %q", v.Root(), resolved)
	}
}

func TestValidate_RelativeInside(t *testing.T) {
	v, root := newTestValidator(t)

	res := v.Validate("src/main.go")
	if !res.Valid {
		t.Fatalf("relative path inside rejected: %s", res.Reason)
	}
	want := filepath.Join(root, "src", "main.go")
	if res.ResolvedPath != want {
		t.Errorf("ResolvedPath = %q, want %q", res.ResolvedPath, want)
	}
}

func TestValidate_AbsoluteInside(t *testing.T) {
	v, root := newTestValidator(t)

	res := v.Validate(filepath.Join(root, "notes.txt"))
	if !res.Valid {
		t.Fatalf("absolute path inside rejected: %s", res.Reason)
	}
	if res.ResolvedPath != filepath.Join(root, "notes.txt") {
		t.Errorf("ResolvedPath = %q", res.ResolvedPath)
	}
}

func TestValidate_RootItself(t *testing.T) {
	v, root := newTestValidator(t)

	for _, req := range []string{".", root} {
		res := v.Validate(req)
		if !res.Valid {
			t.Errorf("Validate(%q) rejected: %s", req, res.Reason)
			continue
		}
		if res.ResolvedPath != root {
			t.Errorf("Validate(%q).ResolvedPath = %q, want root %q", req, res.ResolvedPath, root)
		}
	}
}

func TestValidate_TraversalEscape(t *testing.T) {
	v, _ := newTestValidator(t)

	for _, req := range []string{
		"../outside.txt",
		"../../etc/passwd",
		"src/../../escape",
		"..",
	} {
		res := v.Validate(req)
		if res.Valid {
			t.Errorf("Validate(%q) should be rejected, resolved to %q", req, res.ResolvedPath)
		}
		if res.Valid == false && res.ResolvedPath != "" {
			t.Errorf("Validate(%q): denial must not carry a resolved path", req)
		}
	}
}

func TestValidate_TraversalNetInside(t *testing.T) {
	v, root := newTestValidator(t)

	// Dotted segments that never leave the root are fine once cleaned.
	res := v.Validate("sub/../file.txt")
	if !res.Valid {
		t.Fatalf("net-inside traversal rejected: %s", res.Reason)
	}
	if res.ResolvedPath != filepath.Join(root, "file.txt") {
		t.Errorf("ResolvedPath = %q, want %q", res.ResolvedPath, filepath.Join(root, "file.txt"))
	}
}

func TestValidate_AbsoluteOutside(t *testing.T) {
	v, _ := newTestValidator(t)

	outside := t.TempDir()
	res := v.Validate(filepath.Join(outside, "f"))
	if res.Valid {
		t.Errorf("absolute path outside root accepted: %q", res.ResolvedPath)
	}
	if !strings.Contains(res.Reason, "outside") {
		t.Errorf("Reason = %q, want mention of outside", res.Reason)
	}
}

func TestValidate_SiblingPrefixNotInside(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "project")
	sibling := filepath.Join(base, "projectile")
	for _, d := range []string{root, sibling} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	v, err := NewValidator(root)
	if err != nil {
		t.Fatal(err)
	}

	// /base/projectile shares the string prefix /base/project but is a sibling.
	res := v.Validate(filepath.Join(sibling, "f.txt"))
	if res.Valid {
		t.Errorf("sibling with shared prefix accepted: %q", res.ResolvedPath)
	}
}

func TestValidate_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}
	v, root := newTestValidator(t)

	outside := t.TempDir()
	target := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(target, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "innocent.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	res := v.Validate("innocent.txt")
	if res.Valid {
		t.Errorf("symlink to outside accepted, resolved to %q", res.ResolvedPath)
	}

	// The lexical variant does not follow links and cannot catch this.
	res = v.ValidateLexical("innocent.txt")
	if !res.Valid {
		t.Errorf("ValidateLexical should pass a lexically-inside path: %s", res.Reason)
	}
}

func TestValidate_SymlinkedParentOfMissingFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}
	v, root := newTestValidator(t)

	outside := t.TempDir()
	linkDir := filepath.Join(root, "data")
	if err := os.Symlink(outside, linkDir); err != nil {
		t.Fatal(err)
	}

	// data/new.txt does not exist yet; creating it would land outside.
	res := v.Validate("data/new.txt")
	if res.Valid {
		t.Errorf("file under symlinked dir accepted, resolved to %q", res.ResolvedPath)
	}
}

func TestValidate_SymlinkInsideStaysInside(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs privileges on windows")
	}
	v, root := newTestValidator(t)

	target := filepath.Join(root, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(root, "alias.txt")); err != nil {
		t.Fatal(err)
	}

	res := v.Validate("alias.txt")
	if !res.Valid {
		t.Fatalf("internal symlink rejected: %s", res.Reason)
	}
	if res.ResolvedPath != target {
		t.Errorf("ResolvedPath = %q, want link target %q", res.ResolvedPath, target)
	}
}

func TestValidate_NonexistentInside(t *testing.T) {
	v, root := newTestValidator(t)

	// Files that do not exist yet resolve through the nearest real ancestor.
	res := v.Validate("brand/new/dir/file.txt")
	if !res.Valid {
		t.Fatalf("nonexistent path inside rejected: %s", res.Reason)
	}
	want := filepath.Join(root, "brand", "new", "dir", "file.txt")
	if res.ResolvedPath != want {
		t.Errorf("ResolvedPath = %q, want %q", res.ResolvedPath, want)
	}
}

func TestValidate_Rejections(t *testing.T) {
	v, _ := newTestValidator(t)

	cases := []struct {
		name string
		req  string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"null byte", "file\x00.txt"},
		{"tilde", "~/secrets"},
		{"bare tilde", "~"},
	}
	for _, tc := range cases {
		res := v.Validate(tc.req)
		if res.Valid {
			t.Errorf("%s: Validate(%q) should be rejected", tc.name, tc.req)
		}
		if res.Reason == "" {
			t.Errorf("%s: denial must carry a reason", tc.name)
		}
	}
}

func TestValidateLexical_Traversal(t *testing.T) {
	v, root := newTestValidator(t)

	if res := v.ValidateLexical("../escape"); res.Valid {
		t.Error("lexical traversal escape accepted")
	}
	res := v.ValidateLexical("a/b/c.txt")
	if !res.Valid {
		t.Fatalf("lexical inside path rejected: %s", res.Reason)
	}
	if res.ResolvedPath != filepath.Join(root, "a", "b", "c.txt") {
		t.Errorf("ResolvedPath = %q", res.ResolvedPath)
	}
}

func TestValidatePath_OneShot(t *testing.T) {
	root := t.TempDir()

	res := ValidatePath("ok.txt", root)
	if !res.Valid {
		t.Errorf("ValidatePath inside rejected: %s", res.Reason)
	}

	res = ValidatePath("../escape", root)
	if res.Valid {
		t.Error("ValidatePath traversal accepted")
	}

	// A bad root is reported as a denial, not an error.
	res = ValidatePath("ok.txt", filepath.Join(root, "missing"))
	if res.Valid {
		t.Error("ValidatePath with missing root accepted")
	}
	if !strings.Contains(res.Reason, "workspace root") {
		t.Errorf("Reason = %q, want mention of workspace root", res.Reason)
	}
}

func TestValidate_AllowTemp(t *testing.T) {
	v, _ := newTestValidator(t)

	outside := filepath.Join(os.TempDir(), "galley-scratch", "out.log")
	if res := v.Validate(outside); res.Valid {
		t.Fatalf("temp path admitted before AllowTemp: %+v", res)
	}

	if err := v.AllowTemp(); err != nil {
		t.Fatalf("AllowTemp failed: %v", err)
	}
	res := v.Validate(outside)
	if !res.Valid {
		t.Fatalf("temp path rejected after AllowTemp: %s", res.Reason)
	}

	// The temp tree widens the boundary, it does not replace it.
	if res := v.Validate(filepath.Join(v.Root(), "in.txt")); !res.Valid {
		t.Errorf("workspace path rejected: %s", res.Reason)
	}
	if res := v.Validate(filepath.Join(string(os.PathSeparator), "etc", "passwd")); res.Valid {
		t.Error("system path admitted")
	}
}
