package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Put(ctx, "units", "", Fields{"materialType": "16GA-CRS", "length": 96})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id == "" {
		t.Fatal("Put returned empty id")
	}

	doc, err := store.Get(ctx, "units", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := doc.Fields["materialType"]; got != "16GA-CRS" {
		t.Errorf("materialType = %v, want 16GA-CRS", got)
	}
	// Numbers normalize to float64 regardless of the Go type written.
	if got := doc.Fields["length"]; got != float64(96) {
		t.Errorf("length = %v (%T), want float64 96", got, got)
	}

	if _, err := store.Get(ctx, "units", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, _ := store.Put(ctx, "units", "", Fields{"length": 96})
	doc, _ := store.Get(ctx, "units", id)
	doc.Fields["length"] = float64(120)

	again, _ := store.Get(ctx, "units", id)
	if got := again.Fields["length"]; got != float64(96) {
		t.Errorf("stored length mutated through returned document: %v", got)
	}
}

func TestMemoryStoreQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seed := []Fields{
		{"materialType": "16GA-CRS", "length": 96, "createdAt": "2024-03-01T00:00:02Z"},
		{"materialType": "16GA-CRS", "length": 96, "createdAt": "2024-03-01T00:00:01Z"},
		{"materialType": "16GA-CRS", "length": 120, "createdAt": "2024-03-01T00:00:03Z"},
		{"materialType": "11GA-HRS", "length": 96, "createdAt": "2024-03-01T00:00:04Z"},
	}
	for i, fields := range seed {
		if _, err := store.Put(ctx, "units", fmt.Sprintf("u%d", i), fields); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	docs, err := store.Query(ctx, "units", Query{
		Filters: []Filter{
			{Field: "materialType", Value: "16GA-CRS"},
			{Field: "length", Value: 96},
		},
		OrderBy:   "createdAt",
		Ascending: true,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	// Oldest first.
	if docs[0].ID != "u1" || docs[1].ID != "u0" {
		t.Errorf("order = %s, %s; want u1, u0", docs[0].ID, docs[1].ID)
	}

	docs, err = store.Query(ctx, "units", Query{OrderBy: "createdAt", Ascending: false, Limit: 2})
	if err != nil {
		t.Fatalf("Query desc: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "u3" {
		t.Errorf("desc limit query = %v, want u3 first of 2", docs)
	}
}

func TestMemoryStoreQueryOrdersTimestampsChronologically(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// RFC3339Nano trims trailing fractional zeros, so as plain text the
	// whole-second timestamp would sort after the fractional one.
	seed := map[string]string{
		"a": "2024-03-01T12:00:00Z",
		"b": "2024-03-01T12:00:00.5Z",
		"c": "2024-03-01T11:59:59.999999999Z",
	}
	for id, createdAt := range seed {
		if _, err := store.Put(ctx, "units", id, Fields{"createdAt": createdAt}); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := store.Query(ctx, "units", Query{OrderBy: "createdAt", Ascending: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if docs[i].ID != id {
			t.Errorf("position %d = %s (createdAt %v), want %s", i, docs[i].ID, docs[i].Fields["createdAt"], id)
		}
	}

	docs, err = store.Query(ctx, "units", Query{OrderBy: "createdAt", Ascending: false})
	if err != nil {
		t.Fatalf("Query desc: %v", err)
	}
	if docs[0].ID != "b" {
		t.Errorf("descending head = %s, want b", docs[0].ID)
	}
}

func TestMemoryStoreApplyBatchAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Put(ctx, "units", "keep", Fields{"length": 96}); err != nil {
		t.Fatal(err)
	}

	// A batch with a delete of a missing document must not apply any of its
	// writes.
	err := store.ApplyBatch(ctx, []Write{
		{Kind: WritePut, Collection: "units", ID: "new", Fields: Fields{"length": 120}},
		{Kind: WriteDelete, Collection: "units", ID: "missing"},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ApplyBatch = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, "units", "new"); !errors.Is(err, ErrNotFound) {
		t.Error("failed batch left a partial write behind")
	}

	err = store.ApplyBatch(ctx, []Write{
		{Kind: WritePut, Collection: "units", ID: "new", Fields: Fields{"length": 120}},
		{Kind: WriteDelete, Collection: "units", ID: "keep"},
	})
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if _, err := store.Get(ctx, "units", "new"); err != nil {
		t.Errorf("put not applied: %v", err)
	}
	if _, err := store.Get(ctx, "units", "keep"); !errors.Is(err, ErrNotFound) {
		t.Error("delete not applied")
	}
}

func TestMemoryStoreApplyBatchCeiling(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	writes := make([]Write, MaxBatchOps+1)
	for i := range writes {
		writes[i] = Write{Kind: WritePut, Collection: "units", ID: fmt.Sprintf("u%d", i), Fields: Fields{}}
	}
	if err := store.ApplyBatch(ctx, writes); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("ApplyBatch over ceiling = %v, want ErrBatchTooLarge", err)
	}
	if n, _ := store.Count(ctx, "units"); n != 0 {
		t.Errorf("rejected batch wrote %d docs", n)
	}

	if err := store.ApplyBatch(ctx, writes[:MaxBatchOps]); err != nil {
		t.Fatalf("ApplyBatch at ceiling: %v", err)
	}
	if n, _ := store.Count(ctx, "units"); n != MaxBatchOps {
		t.Errorf("Count = %d, want %d", n, MaxBatchOps)
	}
}

func TestMemoryStoreListCollections(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Put(ctx, "inventory", "a", Fields{})
	store.Put(ctx, "snapshots/2024-03-01T00-00-00/inventory", "a", Fields{})
	store.Put(ctx, "snapshots/2024-03-01T00-00-00/usage_logs", "b", Fields{})

	names, err := store.ListCollections(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("got %d collections, want 2: %v", len(names), names)
	}

	// Deleting the last document drops the collection entirely.
	if err := store.Delete(ctx, "inventory", "a"); err != nil {
		t.Fatal(err)
	}
	names, _ = store.ListCollections(ctx, "")
	if len(names) != 2 {
		t.Errorf("empty collection still listed: %v", names)
	}
}
