package docstore

import "context"

// BatchChunkSize is the chunk size bulk operations use: the store ceiling
// minus a ~10% safety margin.
const BatchChunkSize = MaxBatchOps - MaxBatchOps/10

// ApplyChunked commits writes in chunks of at most chunkSize operations.
// Each chunk is all-or-nothing; the sequence of chunks is not. The context
// is checked between chunks, so cancellation takes effect at chunk
// granularity. onChunk, when non-nil, is invoked after every committed chunk
// with the running operation count.
func ApplyChunked(ctx context.Context, store Store, writes []Write, chunkSize int, onChunk func(done, total int)) error {
	if chunkSize <= 0 || chunkSize > MaxBatchOps {
		chunkSize = BatchChunkSize
	}
	total := len(writes)
	for start := 0; start < total; start += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + chunkSize
		if end > total {
			end = total
		}
		if err := store.ApplyBatch(ctx, writes[start:end]); err != nil {
			return err
		}
		if onChunk != nil {
			onChunk(end, total)
		}
	}
	return nil
}
