package db

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertProject(t *testing.T) {
	db := testDB(t)

	p, err := db.UpsertProject("https://docs.example.com/a/", 12)
	if err != nil {
		t.Fatal(err)
	}
	if p.Root != "https://docs.example.com/a/" || p.EntryCount != 12 {
		t.Errorf("got %+v", p)
	}
	if p.LoadedAt == nil {
		t.Error("expected loaded_at to be set")
	}

	again, err := db.UpsertProject("https://docs.example.com/a/", 20)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != p.ID {
		t.Errorf("upsert created a new row: %d vs %d", again.ID, p.ID)
	}
	if again.EntryCount != 20 {
		t.Errorf("entry count not updated: %d", again.EntryCount)
	}
}

func TestGetProject_Missing(t *testing.T) {
	db := testDB(t)

	p, err := db.GetProject("https://missing/")
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("expected nil, got %+v", p)
	}
}

func TestLatestProject(t *testing.T) {
	db := testDB(t)

	if p, err := db.LatestProject(); err != nil || p != nil {
		t.Fatalf("empty db: got %+v, %v", p, err)
	}

	if _, err := db.UpsertProject("https://a/", 3); err != nil {
		t.Fatal(err)
	}
	// Make sure the second project has a later last_used_at.
	time.Sleep(10 * time.Millisecond)
	if _, err := db.UpsertProject("https://b/", 5); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := db.UpsertProject("https://empty/", 0); err != nil {
		t.Fatal(err)
	}

	p, err := db.LatestProject()
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Root != "https://b/" {
		t.Fatalf("got %+v, want https://b/", p)
	}

	time.Sleep(10 * time.Millisecond)
	if err := db.TouchProject("https://a/"); err != nil {
		t.Fatal(err)
	}
	p, err = db.LatestProject()
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Root != "https://a/" {
		t.Fatalf("after touch: got %+v, want https://a/", p)
	}
}

func TestListAndDeleteProjects(t *testing.T) {
	db := testDB(t)

	for _, root := range []string{"https://a/", "https://b/"} {
		if _, err := db.UpsertProject(root, 1); err != nil {
			t.Fatal(err)
		}
	}

	projects, err := db.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}

	deleted, err := db.DeleteProject("https://a/")
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Error("expected https://a/ to be deleted")
	}
	deleted, err = db.DeleteProject("https://missing/")
	if err != nil {
		t.Fatal(err)
	}
	if deleted {
		t.Error("deleting an unknown root reported a row")
	}
	projects, err = db.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Root != "https://b/" {
		t.Errorf("got %+v", projects)
	}
}
