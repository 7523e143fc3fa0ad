package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matsen/citegraph/internal/graph"
)

// setupTestDB opens a fresh database in a temp dir with a fixed clock.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "cache", "citegraph.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var tick int64 = 1_700_000_000_000
	db.now = func() int64 {
		tick += 1000
		return tick
	}
	db.SetSource("http://localhost:5000")
	return db
}

func testGraph() *graph.Data {
	nodes := []*graph.Node{
		{ID: "p1", Type: graph.NodeTypePaper, Title: "Deep Learning", Year: "2015", Journal: "Nature",
			Authors: graph.StringList{"LeCun", "Bengio", "Hinton"}, X: 12.5, Y: -3},
		{ID: "p2", Type: graph.NodeTypePaper, Title: "Backprop"},
		{ID: "a1", Type: graph.NodeTypeAuthor, Name: "Hinton", X: 1, Y: 2},
	}
	links := []*graph.Link{
		{Source: graph.NodeRef{ID: "p1"}, Target: graph.NodeRef{ID: "p2"}, Type: graph.LinkCites},
		{Source: graph.NodeRef{ID: "a1"}, Target: graph.NodeRef{ID: "p1"}, Type: graph.LinkWrote},
	}
	return &graph.Data{Nodes: nodes, Links: links}
}

func TestOpenDB_CreatesDirectory(t *testing.T) {
	db := setupTestDB(t)
	infos, err := db.ListSnapshots(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("new database has %d snapshots", len(infos))
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.SaveSnapshot(ctx, testGraph())
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	snap, err := db.GetSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if snap.ID != id || snap.Source != "http://localhost:5000" || snap.Nodes != 3 || snap.Links != 2 {
		t.Errorf("info = %+v", snap.SnapshotInfo)
	}

	p1 := snap.Data.Nodes[0]
	if p1.Title != "Deep Learning" || p1.Year != "2015" || p1.Journal != "Nature" {
		t.Errorf("p1 = %+v", p1)
	}
	if len(p1.Authors) != 3 || p1.Authors[2] != "Hinton" {
		t.Errorf("authors = %v", p1.Authors)
	}
	if p1.X != 12.5 || p1.Y != -3 {
		t.Errorf("position = (%v, %v)", p1.X, p1.Y)
	}
	if snap.Data.Nodes[1].Authors != nil {
		t.Errorf("empty authors = %#v, want nil", snap.Data.Nodes[1].Authors)
	}

	l := snap.Data.Links[1]
	if l.Type != graph.LinkWrote || l.Source.Node != snap.Data.Nodes[2] || l.Target.Node != p1 {
		t.Error("links not bound to loaded nodes")
	}
}

func TestLatestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.LatestSnapshot(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("LatestSnapshot() on empty db error = %v", err)
	}

	if _, err := db.SaveSnapshot(ctx, testGraph()); err != nil {
		t.Fatal(err)
	}
	small := &graph.Data{Nodes: []*graph.Node{{ID: "only", Type: graph.NodeTypeJournal}}}
	id2, err := db.SaveSnapshot(ctx, small)
	if err != nil {
		t.Fatal(err)
	}

	latest, err := db.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != id2 || len(latest.Data.Nodes) != 1 || len(latest.Data.Links) != 0 {
		t.Errorf("latest = %+v", latest.SnapshotInfo)
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetSnapshot(context.Background(), "missing")
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("GetSnapshot(missing) error = %v", err)
	}
}

func TestListAndPrune(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var ids []string
	for range 4 {
		id, err := db.SaveSnapshot(ctx, testGraph())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	infos, err := db.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].ID != ids[3] || infos[1].ID != ids[2] {
		t.Errorf("ListSnapshots(2) = %+v", infos)
	}
	if !infos[0].CreatedAt.After(infos[1].CreatedAt) {
		t.Error("snapshots not newest first")
	}

	n, err := db.Prune(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Prune(1) deleted %d, want 3", n)
	}
	infos, _ = db.ListSnapshots(ctx, 0)
	if len(infos) != 1 || infos[0].ID != ids[3] {
		t.Errorf("after prune = %+v", infos)
	}
	if _, err := db.GetSnapshot(ctx, ids[0]); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("pruned snapshot still readable: %v", err)
	}

	var orphans int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM snapshot_nodes WHERE snapshot_id != ?`, ids[3]).Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("%d orphaned node rows", orphans)
	}
}
