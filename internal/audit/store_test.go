package audit

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BakeLens/galley/internal/tools"
	"github.com/BakeLens/galley/internal/types"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := NewStore(":memory:", "", cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, command, status string) tools.ExecutionRecord {
	return tools.ExecutionRecord{
		SessionID: id,
		Command:   command,
		Cwd:       "/work",
		Status:    status,
		StartedAt: time.Now().UTC(),
	}
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t, Config{})

	var fk int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t, Config{})

	if err := s.Create(record("s1", "echo hello", "running")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	e, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Command != "echo hello" || e.Status != "running" || e.Cwd != "/work" {
		t.Errorf("execution = %+v", e)
	}
	if e.StartedAt.IsZero() {
		t.Error("started_at not recorded")
	}
	if e.EndedAt != nil || e.ExitCode != nil {
		t.Errorf("admission record already has outcome fields: %+v", e)
	}
}

func TestCreate_DeniedKeepsReason(t *testing.T) {
	s := newTestStore(t, Config{})

	rec := record("s1", "rm -rf /", "denied")
	rec.Reason = "dangerous pattern detected: recursive force remove"
	if err := s.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	e, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(e.Reason, "dangerous pattern") {
		t.Errorf("reason = %q", e.Reason)
	}
}

func TestUpdateStatus_RecordsOutcome(t *testing.T) {
	s := newTestStore(t, Config{})

	if err := s.Create(record("s1", "echo hello", "running")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	code := 0
	if err := s.UpdateStatus("s1", types.StatusCompleted, &code, "hello\n"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	e, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Status != string(types.StatusCompleted) {
		t.Errorf("status = %q, want completed", e.Status)
	}
	if e.ExitCode == nil || *e.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", e.ExitCode)
	}
	if e.Output != "hello\n" {
		t.Errorf("output = %q", e.Output)
	}
	if e.EndedAt == nil {
		t.Error("ended_at not recorded")
	}
}

func TestUpdateStatus_UnknownSession(t *testing.T) {
	s := newTestStore(t, Config{})

	err := s.UpdateStatus("ghost", types.StatusCompleted, nil, "")
	if err == nil || !strings.Contains(err.Error(), "no execution recorded") {
		t.Errorf("err = %v, want missing-session error", err)
	}
}

func TestCompression_RoundTrip(t *testing.T) {
	s := newTestStore(t, Config{CompressOutput: true})

	if err := s.Create(record("s1", "cat big", "running")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	output := strings.Repeat("all work and no play makes a dull sandbox\n", 200)
	code := 0
	if err := s.UpdateStatus("s1", types.StatusCompleted, &code, output); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	var stored []byte
	var compressed bool
	err := s.DB().QueryRow(
		"SELECT output, output_compressed FROM executions WHERE session_id = ?", "s1",
	).Scan(&stored, &compressed)
	if err != nil {
		t.Fatalf("raw query: %v", err)
	}
	if !compressed {
		t.Fatal("large output stored uncompressed")
	}
	if len(stored) >= len(output) {
		t.Errorf("compressed size %d >= raw size %d", len(stored), len(output))
	}

	e, err := s.Get("s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Output != output {
		t.Errorf("round trip lost data: got %d bytes, want %d", len(e.Output), len(output))
	}
}

func TestCompression_SmallOutputLeftAlone(t *testing.T) {
	s := newTestStore(t, Config{CompressOutput: true})

	if err := s.Create(record("s1", "echo hi", "running")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	code := 0
	if err := s.UpdateStatus("s1", types.StatusCompleted, &code, "hi\n"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	var compressed bool
	if err := s.DB().QueryRow(
		"SELECT output_compressed FROM executions WHERE session_id = ?", "s1",
	).Scan(&compressed); err != nil {
		t.Fatalf("raw query: %v", err)
	}
	if compressed {
		t.Error("small output was compressed")
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	s := newTestStore(t, Config{})

	for i, id := range []string{"a", "b", "c"} {
		rec := record(id, "echo "+id, "running")
		rec.StartedAt = time.Now().UTC().Add(time.Duration(i-3) * time.Minute)
		if err := s.Create(rec); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	got, err := s.Recent(60, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	if got[0].SessionID != "c" || got[2].SessionID != "a" {
		t.Errorf("order = %s,%s,%s, want c,b,a", got[0].SessionID, got[1].SessionID, got[2].SessionID)
	}
}

func TestRecent_WindowExcludesOld(t *testing.T) {
	s := newTestStore(t, Config{})

	if err := s.Create(record("new", "echo new", "running")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := s.DB().Exec(`
		INSERT INTO executions (session_id, command, status, started_at)
		VALUES ('old', 'echo old', 'completed', datetime('now', '-2 hours'))
	`)
	if err != nil {
		t.Fatalf("insert old row: %v", err)
	}

	got, err := s.Recent(60, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "new" {
		t.Errorf("recent rows = %+v, want only the new one", got)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t, Config{})

	if err := s.Create(record("s1", "echo a", "running")); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(record("s2", "terraform apply", "denied")); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(record("s3", "echo b", "running")); err != nil {
		t.Fatal(err)
	}
	code := 0
	if err := s.UpdateStatus("s1", types.StatusCompleted, &code, "a\n"); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByStatus["denied"] != 1 {
		t.Errorf("denied = %d, want 1", stats.ByStatus["denied"])
	}
	if stats.ByStatus["completed"] != 1 {
		t.Errorf("completed = %d, want 1", stats.ByStatus["completed"])
	}
	if len(stats.Days) == 0 {
		t.Fatal("no day stats")
	}
	if stats.Days[0].Total != 3 || stats.Days[0].Denied != 1 {
		t.Errorf("today = %+v, want total 3 denied 1", stats.Days[0])
	}
}

func TestPurge(t *testing.T) {
	s := newTestStore(t, Config{RetentionDays: 7})

	if err := s.Create(record("keep", "echo keep", "running")); err != nil {
		t.Fatal(err)
	}
	_, err := s.DB().Exec(`
		INSERT INTO executions (session_id, command, status, started_at)
		VALUES ('stale', 'echo stale', 'completed', datetime('now', '-30 days'))
	`)
	if err != nil {
		t.Fatalf("insert stale row: %v", err)
	}

	deleted, err := s.PurgeConfigured()
	if err != nil {
		t.Fatalf("PurgeConfigured: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := s.Get("keep"); err != nil {
		t.Errorf("recent row purged: %v", err)
	}
	if _, err := s.Get("stale"); err == nil {
		t.Error("stale row survived purge")
	}
}

func TestPurge_ZeroDaysIsNoop(t *testing.T) {
	s := newTestStore(t, Config{})

	if err := s.Create(record("s1", "echo a", "running")); err != nil {
		t.Fatal(err)
	}
	deleted, err := s.Purge(0)
	if err != nil || deleted != 0 {
		t.Errorf("Purge(0) = %d, %v, want 0, nil", deleted, err)
	}
}

func TestEncryption_WrongKeyRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	s, err := NewStore(dbPath, "correct-horse-battery-staple", Config{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if !s.IsEncrypted() {
		t.Error("store with key reports unencrypted")
	}
	if err := s.Create(record("s1", "echo secret", "running")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := NewStore(dbPath, "not-the-right-key-at-all", Config{}); err == nil {
		t.Fatal("wrong key accepted")
	}

	reopened, err := NewStore(dbPath, "correct-horse-battery-staple", Config{})
	if err != nil {
		t.Fatalf("reopen with right key: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get("s1"); err != nil {
		t.Errorf("row unreadable after reopen: %v", err)
	}
}

func TestEncryption_ShortKeyRejected(t *testing.T) {
	_, err := NewStore(":memory:", "tooshort", Config{})
	if err == nil || !strings.Contains(err.Error(), "at least") {
		t.Errorf("err = %v, want minimum-length error", err)
	}
}

func TestDeriveKey_StableAndDistinct(t *testing.T) {
	a := DeriveKey("correct-horse-battery-staple")
	if a != DeriveKey("correct-horse-battery-staple") {
		t.Error("derivation not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
	if a == DeriveKey("another-passphrase-entirely") {
		t.Error("distinct passphrases derived the same key")
	}
}
