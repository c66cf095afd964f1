package allowlist

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BakeLens/galley/internal/fileutil"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Loader reads allowlist entry files from the embedded builtin set and
// from the user directory.
type Loader struct {
	userDir string
}

// NewLoader creates a loader for the given user directory. An empty
// directory disables user entries.
func NewLoader(userDir string) *Loader {
	return &Loader{userDir: userDir}
}

// DefaultUserDir returns the default user allowlist directory.
func DefaultUserDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".galley", "allowlist.d")
	}
	return filepath.Join(home, ".galley", "allowlist.d")
}

// UserDir returns the configured user directory.
func (l *Loader) UserDir() string {
	return l.userDir
}

// LoadBuiltin loads the embedded builtin entry files. Builtin entries are
// compiled strictly: a bad builtin pattern is a packaging bug and aborts.
func (l *Loader) LoadBuiltin() ([]Entry, error) {
	var all []Entry

	err := fs.WalkDir(builtinFS, "builtin", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}

		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		entries, err := parseFile(data, path, SourceBuiltin, true)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		log.Trace("Loaded %d builtin entries from %s", len(entries), path)
		all = append(all, entries...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// LoadUser loads entry files from the user directory, creating it on
// first use. Unreadable or invalid files are skipped with a warning so
// one bad file cannot disable the rest.
func (l *Loader) LoadUser() ([]Entry, error) {
	if l.userDir == "" {
		log.Trace("User allowlist directory not configured, skipping")
		return nil, nil
	}

	if err := fileutil.SecureMkdirAll(l.userDir); err != nil {
		return nil, fmt.Errorf("failed to create allowlist directory: %w", err)
	}

	entries, err := os.ReadDir(l.userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read allowlist directory: %w", err)
	}

	var all []Entry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(l.userDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Failed to read allowlist file %s: %v", path, err)
			continue
		}
		parsed, err := parseFile(data, path, SourceUser, false)
		if err != nil {
			log.Warn("Failed to parse allowlist file %s: %v", path, err)
			continue
		}

		log.Trace("Loaded %d entries from %s", len(parsed), entry.Name())
		all = append(all, parsed...)
	}
	return all, nil
}

// validateFile parses a file without installing it.
func (l *Loader) validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	_, err = parseFile(data, path, SourceCLI, true)
	return err
}

// AddFile validates srcPath and copies it into the user directory,
// timestamping the name rather than overwriting an existing file.
func (l *Loader) AddFile(srcPath string) (string, error) {
	if l.userDir == "" {
		return "", fmt.Errorf("no user allowlist directory configured")
	}
	if err := l.validateFile(srcPath); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if err := fileutil.SecureMkdirAll(l.userDir); err != nil {
		return "", fmt.Errorf("failed to create allowlist directory: %w", err)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}

	filename, err := ValidateSafeFilename(filepath.Base(srcPath))
	if err != nil {
		return "", err
	}
	destPath := filepath.Join(l.userDir, filename)
	if _, err := os.Stat(destPath); err == nil {
		ext := filepath.Ext(filename)
		name := strings.TrimSuffix(filename, ext)
		filename = fmt.Sprintf("%s_%d%s", name, time.Now().Unix(), ext)
		destPath = filepath.Join(l.userDir, filename)
	}

	if err := fileutil.WriteFileAtomic(destPath, data); err != nil {
		return "", fmt.Errorf("failed to write allowlist file: %w", err)
	}
	return destPath, nil
}

// RemoveFile removes an entry file from the user directory.
func (l *Loader) RemoveFile(filename string) error {
	path, err := l.ValidatePathInDirectory(filename)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// ListFiles returns the entry file names present in the user directory.
func (l *Loader) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(l.userDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yaml") {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// ValidateSafeFilename checks that filename carries no path components and
// only safe characters, returning the cleaned name.
func ValidateSafeFilename(filename string) (string, error) {
	base := filepath.Base(filename)
	if base == "" || base == "." || base == ".." {
		return "", fmt.Errorf("invalid filename: %s", filename)
	}
	if base != filename {
		return "", fmt.Errorf("path traversal detected in filename: %s", filename)
	}
	for _, r := range base {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return "", fmt.Errorf("invalid character in filename: %c", r)
		}
	}
	return base, nil
}

// ValidatePathInDirectory resolves filename inside the user directory and
// rejects anything that lands outside it, symlinks included.
func (l *Loader) ValidatePathInDirectory(filename string) (string, error) {
	safe, err := ValidateSafeFilename(filename)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(l.userDir, safe)
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	absUserDir, err := filepath.Abs(l.userDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve allowlist dir: %w", err)
	}

	if !strings.HasPrefix(absPath, absUserDir+string(os.PathSeparator)) && absPath != absUserDir {
		return "", fmt.Errorf("path traversal detected: %s is outside %s", absPath, absUserDir)
	}

	// An existing file may itself be a link pointing elsewhere.
	if _, err := os.Lstat(fullPath); err == nil {
		realPath, err := filepath.EvalSymlinks(fullPath)
		if err == nil {
			absReal, err := filepath.Abs(realPath)
			if err != nil {
				return "", fmt.Errorf("failed to resolve symlink: %w", err)
			}
			if !strings.HasPrefix(absReal, absUserDir+string(os.PathSeparator)) && absReal != absUserDir {
				return "", fmt.Errorf("symlink points outside allowlist directory")
			}
		}
	}
	return fullPath, nil
}
