package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fabtrack/sheetstock/internal/docstore"
)

func newTestService(store docstore.Store, at time.Time) *Service {
	svc := NewService(store)
	svc.now = func() time.Time { return at }
	return svc
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestService(store, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	store.Put(ctx, "inventory", "u1", docstore.Fields{"materialType": "16GA-CRS", "length": 96})
	store.Put(ctx, "inventory", "u2", docstore.Fields{"materialType": "16GA-CRS", "length": 120})

	info, err := svc.Backup(ctx, []string{"inventory", "usage_logs"})
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if info.ID != "2024-03-01T12-00-00" {
		t.Errorf("snapshot id = %s", info.ID)
	}
	if info.TotalDocs != 2 {
		t.Errorf("TotalDocs = %d, want 2", info.TotalDocs)
	}

	// Drift the live data: one mutation, one deletion, one addition.
	store.Put(ctx, "inventory", "u1", docstore.Fields{"materialType": "16GA-CRS", "length": 144})
	store.Delete(ctx, "inventory", "u2")
	store.Put(ctx, "inventory", "u3", docstore.Fields{"materialType": "11GA-HRS", "length": 96})
	store.Put(ctx, "usage_logs", "l1", docstore.Fields{"qty": -1})

	var phases []Phase
	err = svc.Restore(ctx, info.ID, []string{"inventory", "usage_logs"}, func(p Progress) {
		phases = append(phases, p.Phase)
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// Live inventory equals the snapshot copy exactly.
	doc, err := store.Get(ctx, "inventory", "u1")
	if err != nil {
		t.Fatalf("u1 missing after restore: %v", err)
	}
	if doc.Fields["length"] != float64(96) {
		t.Errorf("u1 length = %v, want restored 96", doc.Fields["length"])
	}
	if _, err := store.Get(ctx, "inventory", "u2"); err != nil {
		t.Error("u2 not restored")
	}
	if _, err := store.Get(ctx, "inventory", "u3"); !errors.Is(err, docstore.ErrNotFound) {
		t.Error("u3 survived the restore despite being absent from the snapshot")
	}

	// usage_logs was empty at backup time, so the restore wipes it.
	if n, _ := store.Count(ctx, "usage_logs"); n != 0 {
		t.Errorf("usage_logs count = %d, want 0", n)
	}

	completes := 0
	for _, phase := range phases {
		if phase == PhaseCollectionComplete {
			completes++
		}
	}
	if completes != 2 {
		t.Errorf("got %d collection-complete markers, want 2", completes)
	}
}

func TestRestoreProgressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestService(store, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	// Small chunks so every phase reports several times.
	svc.chunkSize = 2

	for i := 0; i < 5; i++ {
		store.Put(ctx, "inventory", fmt.Sprintf("u%d", i), docstore.Fields{"length": 96})
	}
	for i := 0; i < 3; i++ {
		store.Put(ctx, "usage_logs", fmt.Sprintf("l%d", i), docstore.Fields{"qty": -1})
	}

	info, err := svc.Backup(ctx, []string{"inventory", "usage_logs"})
	if err != nil {
		t.Fatal(err)
	}
	store.Put(ctx, "inventory", "u5", docstore.Fields{"length": 120})

	var updates []Progress
	err = svc.Restore(ctx, info.ID, []string{"inventory", "usage_logs"}, func(p Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// Collections are visited in the order given: once usage_logs reports,
	// inventory never reports again.
	lastCollection := ""
	for _, p := range updates {
		if p.Collection == "inventory" && lastCollection == "usage_logs" {
			t.Fatal("inventory progress reported after usage_logs started")
		}
		lastCollection = p.Collection
	}

	// Done never decreases within a phase of a collection, and every chunked
	// phase ends at its total.
	type phaseKey struct {
		collection string
		phase      Phase
	}
	lastDone := make(map[phaseKey]int)
	for _, p := range updates {
		key := phaseKey{p.Collection, p.Phase}
		if p.Done < lastDone[key] {
			t.Errorf("%s/%s: done went from %d to %d", p.Collection, p.Phase, lastDone[key], p.Done)
		}
		if p.Done > p.Total {
			t.Errorf("%s/%s: done %d exceeds total %d", p.Collection, p.Phase, p.Done, p.Total)
		}
		lastDone[key] = p.Done
	}
	if got := lastDone[phaseKey{"inventory", PhaseDelete}]; got != 6 {
		t.Errorf("inventory delete phase ended at %d, want 6", got)
	}
	if got := lastDone[phaseKey{"inventory", PhaseWrite}]; got != 5 {
		t.Errorf("inventory write phase ended at %d, want 5", got)
	}
	if got := lastDone[phaseKey{"usage_logs", PhaseWrite}]; got != 3 {
		t.Errorf("usage_logs write phase ended at %d, want 3", got)
	}
}

func TestBackupRequiresCollections(t *testing.T) {
	svc := NewService(docstore.NewMemoryStore())
	if _, err := svc.Backup(context.Background(), nil); err == nil {
		t.Fatal("Backup accepted an empty collection list")
	}
}

func TestClaimIDWaitsOutCollision(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	store.Put(ctx, "inventory", "u1", docstore.Fields{"length": 96})

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, base)
	first, err := svc.Backup(ctx, []string{"inventory"})
	if err != nil {
		t.Fatalf("first Backup: %v", err)
	}

	// Same wall clock on the first attempt; the service waits a tick and the
	// clock has moved on.
	calls := 0
	svc.now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(time.Second)
	}
	second, err := svc.Backup(ctx, []string{"inventory"})
	if err != nil {
		t.Fatalf("second Backup: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("both backups claimed id %s", first.ID)
	}
	if second.ID != "2024-03-01T12-00-01" {
		t.Errorf("second id = %s", second.ID)
	}
}

func TestListSnapshotsIndexAndFallback(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()

	store.Put(ctx, "inventory", "u1", docstore.Fields{"length": 96})

	svc := newTestService(store, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if _, err := svc.Backup(ctx, []string{"inventory"}); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) }
	if _, err := svc.Backup(ctx, []string{"inventory"}); err != nil {
		t.Fatal(err)
	}

	infos, err := svc.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(infos))
	}
	// Newest first.
	if infos[0].ID != "2024-03-02T12-00-00" {
		t.Errorf("infos[0].ID = %s", infos[0].ID)
	}
	if infos[0].TotalDocs != 1 {
		t.Errorf("TotalDocs = %d, want 1", infos[0].TotalDocs)
	}

	// Index gone: listing falls back to scanning the namespace.
	for _, id := range []string{"2024-03-01T12-00-00", "2024-03-02T12-00-00"} {
		if err := store.Delete(ctx, "backups", id); err != nil {
			t.Fatal(err)
		}
	}
	infos, err = svc.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots fallback: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("fallback found %d snapshots, want 2", len(infos))
	}
	if infos[0].ID != "2024-03-02T12-00-00" {
		t.Errorf("fallback infos[0].ID = %s", infos[0].ID)
	}
	if infos[0].CreatedAt.IsZero() {
		t.Error("fallback entry missing creation time parsed from id")
	}
}

func TestBackfillIndexFillsGapsOnly(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestService(store, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	// One indexed snapshot, one orphaned namespace.
	store.Put(ctx, "inventory", "u1", docstore.Fields{"length": 96})
	indexed, err := svc.Backup(ctx, []string{"inventory"})
	if err != nil {
		t.Fatal(err)
	}
	store.Put(ctx, "snapshots/2024-02-01T00-00-00/inventory", "u1", docstore.Fields{"length": 96})
	store.Put(ctx, "snapshots/2024-02-01T00-00-00/inventory", "u2", docstore.Fields{"length": 120})

	filled, err := svc.BackfillIndex(ctx)
	if err != nil {
		t.Fatalf("BackfillIndex: %v", err)
	}
	if filled != 1 {
		t.Fatalf("filled = %d, want 1", filled)
	}

	doc, err := store.Get(ctx, "backups", "2024-02-01T00-00-00")
	if err != nil {
		t.Fatalf("backfilled entry missing: %v", err)
	}
	if doc.Fields["totalDocs"] != float64(2) {
		t.Errorf("totalDocs = %v, want 2", doc.Fields["totalDocs"])
	}

	// The existing entry is untouched and a second run converges.
	if _, err := store.Get(ctx, "backups", indexed.ID); err != nil {
		t.Errorf("existing index entry lost: %v", err)
	}
	filled, err = svc.BackfillIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if filled != 0 {
		t.Errorf("second run filled %d entries, want 0", filled)
	}
}

func TestRestoreRejectsEmptyID(t *testing.T) {
	svc := NewService(docstore.NewMemoryStore())
	if err := svc.Restore(context.Background(), "", []string{"inventory"}, nil); err == nil {
		t.Fatal("Restore accepted an empty snapshot id")
	}
}
