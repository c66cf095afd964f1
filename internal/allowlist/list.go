package allowlist

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BakeLens/galley/internal/logger"
)

var log = logger.New("allowlist")

// Entry is one permitted command pattern. AllowedArgs constrains the text
// after the base command: nil leaves arguments unconstrained, a non-nil
// empty list permits zero arguments, anything else must match one of the
// listed patterns.
type Entry struct {
	Pattern     Pattern   `json:"pattern"`
	Description string    `json:"description,omitempty"`
	// No omitempty: nil (any args) and [] (no args) must survive the
	// trip through the control API.
	AllowedArgs []Pattern `json:"allowedArgs"`

	// Source tracks where the entry came from; HitCount is filled on
	// snapshot reads, not live.
	Source   string `json:"source,omitempty"`
	HitCount int64  `json:"hitCount,omitempty"`
}

// Entry sources.
const (
	SourceBuiltin = "builtin"
	SourceUser    = "user"
	SourceConfig  = "config"
	SourceCLI     = "cli"
)

// Result is the outcome of an allowlist check. Denials are data: Reason is
// set when Allowed is false, Entry when a pattern matched.
type Result struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Entry   *Entry `json:"matchedEntry,omitempty"`
}

func deny(format string, args ...any) Result {
	return Result{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// List is the default-deny ordered registry of permitted commands. User
// entries come first, builtin entries after; the first matching entry
// wins. User entries hot-reload; the merged set swaps atomically under
// the lock.
type List struct {
	mu      sync.RWMutex
	builtin []Entry
	user    []Entry
	merged  []Entry

	loader *Loader
	hits   map[string]*int64
}

// Config configures list construction.
type Config struct {
	UserDir        string
	DisableBuiltin bool
}

// NewList builds a list from the embedded builtin table plus whatever user
// files the configured directory holds. Builtin entries failing to compile
// abort construction; bad user entries are skipped with a warning.
func NewList(cfg Config) (*List, error) {
	l := &List{
		loader: NewLoader(cfg.UserDir),
		hits:   make(map[string]*int64),
	}

	if !cfg.DisableBuiltin {
		entries, err := l.loader.LoadBuiltin()
		if err != nil {
			return nil, err
		}
		l.builtin = entries
		log.Info("Loaded %d builtin allowlist entries", len(entries))
	} else {
		log.Warn("Builtin allowlist disabled")
	}

	if err := l.ReloadUser(); err != nil {
		log.Warn("Failed to load user allowlist: %v", err)
	}
	return l, nil
}

// NewTestList builds a list from explicit entries, bypassing files.
func NewTestList(entries []Entry) *List {
	l := &List{
		loader: NewLoader(""),
		hits:   make(map[string]*int64),
	}
	l.builtin = entries
	l.rebuildMergedLocked()
	return l
}

// ReloadUser re-reads user entry files and swaps them in atomically.
func (l *List) ReloadUser() error {
	entries, err := l.loader.LoadUser()
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.user = entries
	l.rebuildMergedLocked()
	total := len(l.merged)
	l.mu.Unlock()

	log.Info("Loaded %d user allowlist entries, %d total", len(entries), total)
	return nil
}

// LoadFromConfig atomically replaces the entire entry set, builtin
// included. Meant for embedding callers that manage policy themselves; a
// later ReloadUser restores the file-based layering.
func (l *List) LoadFromConfig(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builtin = nil
	l.user = entries
	l.rebuildMergedLocked()
}

// AddEntriesFromFile validates a YAML entry file, copies it into the user
// directory and reloads. Returns the destination path.
func (l *List) AddEntriesFromFile(path string) (string, error) {
	dest, err := l.loader.AddFile(path)
	if err != nil {
		return "", err
	}
	if err := l.ReloadUser(); err != nil {
		return dest, err
	}
	return dest, nil
}

// Validate checks command against the registered entries in order. The
// first matching entry decides: without argument constraints the command
// is allowed outright, otherwise the text after the base command must
// match one of the entry's argument patterns.
func (l *List) Validate(command string) Result {
	if strings.TrimSpace(command) == "" {
		return deny("empty command")
	}

	l.mu.RLock()
	entries := l.merged
	l.mu.RUnlock()

	for i := range entries {
		e := &entries[i]
		if !e.Pattern.Matches(command) {
			continue
		}

		if e.AllowedArgs == nil {
			l.countHit(e)
			return Result{Allowed: true, Entry: snapshotEntry(e)}
		}

		args := argsAfter(command, e.Pattern)
		if len(e.AllowedArgs) == 0 {
			if args != "" {
				return deny("command %q permits no arguments, got %q", e.Pattern.String(), args)
			}
			l.countHit(e)
			return Result{Allowed: true, Entry: snapshotEntry(e)}
		}

		for _, ap := range e.AllowedArgs {
			if ap.Matches(args) {
				l.countHit(e)
				return Result{Allowed: true, Entry: snapshotEntry(e)}
			}
		}
		return deny("arguments %q not permitted for command %q", args, e.Pattern.String())
	}

	base := command
	if fields := strings.Fields(command); len(fields) > 0 {
		base = fields[0]
	}
	return deny("command not in allowlist: %s", base)
}

// argsAfter extracts the argument text an entry's constraints apply to:
// for a literal pattern everything past the matched prefix, otherwise
// everything past the first whitespace-delimited token.
func argsAfter(command string, p Pattern) string {
	if p.Kind() == KindLiteral {
		return strings.TrimSpace(strings.TrimPrefix(command, p.String()))
	}
	if i := strings.IndexByte(command, ' '); i >= 0 {
		return strings.TrimSpace(command[i+1:])
	}
	return ""
}

// Entries returns a snapshot of the merged entry set with hit counts
// filled in.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.merged))
	for i := range l.merged {
		out[i] = l.merged[i]
		if c := l.hits[l.merged[i].Pattern.String()]; c != nil {
			out[i].HitCount = atomic.LoadInt64(c)
		}
	}
	return out
}

// Len returns the number of active entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.merged)
}

// UserDir returns the user entry directory the list loads from.
func (l *List) UserDir() string {
	return l.loader.UserDir()
}

// ListUserFiles returns the names of the user entry files present.
func (l *List) ListUserFiles() ([]string, error) {
	return l.loader.ListFiles()
}

func snapshotEntry(e *Entry) *Entry {
	cp := *e
	return &cp
}

// rebuildMergedLocked rebuilds the merged entry list; the caller must hold
// the write lock (or own the list exclusively during construction). User
// entries come first so a workspace can override a builtin entry's
// argument constraints for the same base command.
func (l *List) rebuildMergedLocked() {
	merged := make([]Entry, 0, len(l.builtin)+len(l.user))
	merged = append(merged, l.user...)
	merged = append(merged, l.builtin...)
	l.merged = merged

	for i := range merged {
		key := merged[i].Pattern.String()
		if _, ok := l.hits[key]; !ok {
			var c int64
			l.hits[key] = &c
		}
	}
}

func (l *List) countHit(e *Entry) {
	l.mu.RLock()
	c := l.hits[e.Pattern.String()]
	l.mu.RUnlock()
	if c != nil {
		atomic.AddInt64(c, 1)
	}
}
