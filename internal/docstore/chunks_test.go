package docstore

import (
	"context"
	"fmt"
	"testing"
)

// batchSizeRecorder wraps a store and records the size of every batch it
// receives.
type batchSizeRecorder struct {
	Store
	sizes []int
}

func (r *batchSizeRecorder) ApplyBatch(ctx context.Context, writes []Write) error {
	r.sizes = append(r.sizes, len(writes))
	return r.Store.ApplyBatch(ctx, writes)
}

func TestApplyChunked(t *testing.T) {
	ctx := context.Background()
	recorder := &batchSizeRecorder{Store: NewMemoryStore()}

	writes := make([]Write, 1000)
	for i := range writes {
		writes[i] = Write{Kind: WritePut, Collection: "units", ID: fmt.Sprintf("u%d", i), Fields: Fields{}}
	}

	var progress []int
	err := ApplyChunked(ctx, recorder, writes, BatchChunkSize, func(done, total int) {
		if total != 1000 {
			t.Errorf("total = %d, want 1000", total)
		}
		progress = append(progress, done)
	})
	if err != nil {
		t.Fatalf("ApplyChunked: %v", err)
	}

	wantSizes := []int{450, 450, 100}
	if len(recorder.sizes) != len(wantSizes) {
		t.Fatalf("batch sizes = %v, want %v", recorder.sizes, wantSizes)
	}
	for i, size := range wantSizes {
		if recorder.sizes[i] != size {
			t.Errorf("batch %d size = %d, want %d", i, recorder.sizes[i], size)
		}
	}

	wantProgress := []int{450, 900, 1000}
	for i, done := range wantProgress {
		if progress[i] != done {
			t.Errorf("progress %d = %d, want %d", i, progress[i], done)
		}
	}

	if n, _ := recorder.Count(ctx, "units"); n != 1000 {
		t.Errorf("Count = %d, want 1000", n)
	}
}

func TestApplyChunkedDefaultsChunkSize(t *testing.T) {
	ctx := context.Background()
	recorder := &batchSizeRecorder{Store: NewMemoryStore()}

	writes := make([]Write, MaxBatchOps+1)
	for i := range writes {
		writes[i] = Write{Kind: WritePut, Collection: "units", ID: fmt.Sprintf("u%d", i), Fields: Fields{}}
	}

	// A chunk size over the ceiling falls back to the default instead of
	// producing a rejected batch.
	if err := ApplyChunked(ctx, recorder, writes, MaxBatchOps*2, nil); err != nil {
		t.Fatalf("ApplyChunked: %v", err)
	}
	for i, size := range recorder.sizes {
		if size > MaxBatchOps {
			t.Errorf("batch %d size %d exceeds ceiling", i, size)
		}
	}
}

func TestApplyChunkedHonorsCancellation(t *testing.T) {
	store := NewMemoryStore()
	writes := make([]Write, 10)
	for i := range writes {
		writes[i] = Write{Kind: WritePut, Collection: "units", ID: fmt.Sprintf("u%d", i), Fields: Fields{}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := ApplyChunked(ctx, store, writes, 4, func(done, total int) {
		if done == 4 {
			cancel()
		}
	})
	if err == nil {
		t.Fatal("ApplyChunked did not observe cancellation")
	}

	// The first chunk committed, later chunks did not.
	n, _ := store.Count(context.Background(), "units")
	if n != 4 {
		t.Errorf("Count = %d, want 4", n)
	}
}
