package mingledb

import (
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnsureIdempotent(t *testing.T) {
	db := openTestDB(t)
	c, err := db.acquire("c", LockExclusive)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer db.release(c)

	if err := db.ensure(c); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := db.append(c, D("n", 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	before, _ := os.ReadFile(db.path("c"))

	if err := db.ensure(c); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	after, _ := os.ReadFile(db.path("c"))
	if !cmp.Equal(before, after) {
		t.Error("ensure modified an existing file")
	}
}

func TestAppendMany(t *testing.T) {
	db := openTestDB(t)
	c, _ := db.acquire("c", LockExclusive)
	db.ensure(c)
	err := db.append(c, D("n", 1), D("n", 2), D("n", 3))
	db.release(c)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	docs, _ := db.FindAll("c")
	want := []Document{D("n", 1), D("n", 2), D("n", 3)}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteLeavesNoTempFiles(t *testing.T) {
	db := openTestDB(t)
	for i := range 5 {
		mustInsert(t, db, "c", D("n", i))
	}
	for i := range 5 {
		db.UpdateOne("c", Filter{"n": Equals(i)}, D("done", true))
	}
	db.DeleteOne("c", nil)

	entries, _ := os.ReadDir(db.Dir())
	for _, e := range entries {
		name := e.Name()
		if name != "c.mgdb" && name != "c.mgdb.lock" {
			t.Errorf("unexpected file %q", name)
		}
	}
}

func TestRewriteFreshMetadata(t *testing.T) {
	db := openTestDB(t)
	c, _ := db.acquire("fresh", LockExclusive)
	err := db.rewrite(c, nil, []Document{D("n", 1)})
	db.release(c)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	data, _ := os.ReadFile(db.path("fresh"))
	if !strings.Contains(string(data), `{"collection":"fresh"}`) {
		t.Errorf("fresh metadata missing from %q", data[:40])
	}
	info, _ := os.Stat(db.path("fresh"))
	if perm := info.Mode().Perm(); perm != filePerms {
		t.Errorf("permissions = %o, want %o", perm, filePerms)
	}
}

func TestSyncWrites(t *testing.T) {
	db, err := Open(t.TempDir(), Config{SyncWrites: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	mustInsert(t, db, "c", D("n", 1))
	if n, _ := db.Count("c", nil); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
