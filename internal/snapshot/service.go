package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/pkg/logger"
)

const (
	// IDLayout is the lexicographically sortable snapshot identifier format.
	IDLayout = "2006-01-02T15-04-05"

	namespacePrefix = "snapshots/"
	indexCollection = "backups"
	metaCollection  = "backups_meta"
	metaLatestDoc   = "latest"
)

// Phase names a stage of a backup or restore, both for progress reporting
// and for naming where a partial migration stopped.
type Phase string

const (
	PhaseRead               Phase = "read"
	PhaseDelete             Phase = "delete-progress"
	PhaseWrite              Phase = "write-progress"
	PhaseCollectionComplete Phase = "collection-complete"
)

// Progress is one progress callback payload. Done never decreases within a
// collection and collections are visited in the order the caller gave.
type Progress struct {
	Collection string `json:"collection"`
	Phase      Phase  `json:"phase"`
	Done       int    `json:"done"`
	Total      int    `json:"total"`
}

// ProgressFunc receives coarse progress markers during Restore.
type ProgressFunc func(Progress)

// PartialMigrationError reports a backup or restore interrupted mid-chunk.
// The core does not auto-heal; the caller re-runs the operation.
type PartialMigrationError struct {
	Collection string
	Phase      Phase
	Err        error
}

func (e *PartialMigrationError) Error() string {
	return fmt.Sprintf("partial migration in collection %q during %s: %v", e.Collection, e.Phase, e.Err)
}

func (e *PartialMigrationError) Unwrap() error { return e.Err }

// Info is one snapshot index entry: enough to list snapshots without
// re-scanning the whole namespace.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	TotalDocs int       `json:"totalDocs"`
}

// Service copies whole collections into a timestamped snapshot namespace
// and back, in chunks bounded by the store's batch ceiling.
type Service struct {
	store     docstore.Store
	chunkSize int
	now       func() time.Time
}

// NewService creates a new snapshot service.
func NewService(store docstore.Store) *Service {
	return &Service{
		store:     store,
		chunkSize: docstore.BatchChunkSize,
		now:       time.Now,
	}
}

func snapshotCollection(id, collection string) string {
	return namespacePrefix + id + "/" + collection
}

// Backup copies the given collections into a new snapshot and records it in
// the index. The collection list is explicit; nothing discovers collections
// automatically.
func (s *Service) Backup(ctx context.Context, collections []string) (Info, error) {
	if len(collections) == 0 {
		return Info{}, errors.New("snapshot: no collections given")
	}

	id, createdAt, err := s.claimID(ctx)
	if err != nil {
		return Info{}, err
	}

	totalDocs := 0
	for _, collection := range collections {
		docs, err := s.store.List(ctx, collection)
		if err != nil {
			return Info{}, &PartialMigrationError{Collection: collection, Phase: PhaseRead, Err: err}
		}
		writes := make([]docstore.Write, 0, len(docs))
		for _, doc := range docs {
			writes = append(writes, docstore.Write{
				Kind:       docstore.WritePut,
				Collection: snapshotCollection(id, collection),
				ID:         doc.ID,
				Fields:     doc.Fields,
			})
		}
		if err := docstore.ApplyChunked(ctx, s.store, writes, s.chunkSize, nil); err != nil {
			return Info{}, &PartialMigrationError{Collection: collection, Phase: PhaseWrite, Err: err}
		}
		totalDocs += len(docs)

		logger.Debug(ctx).
			Str("snapshot_id", id).
			Str("collection", collection).
			Int("docs", len(docs)).
			Msg("Collection backed up")
	}

	info := Info{ID: id, CreatedAt: createdAt, TotalDocs: totalDocs}
	if err := s.writeIndexEntry(ctx, info); err != nil {
		return Info{}, err
	}

	logger.Info(ctx).
		Str("snapshot_id", id).
		Int("total_docs", totalDocs).
		Msg("Backup complete")
	return info, nil
}

// claimID generates a second-precision snapshot id, waiting out a tick when
// an index entry with the same id already exists.
func (s *Service) claimID(ctx context.Context) (string, time.Time, error) {
	for {
		createdAt := s.now().UTC().Truncate(time.Second)
		id := createdAt.Format(IDLayout)
		_, err := s.store.Get(ctx, indexCollection, id)
		if errors.Is(err, docstore.ErrNotFound) {
			return id, createdAt, nil
		}
		if err != nil {
			return "", time.Time{}, fmt.Errorf("snapshot: check index: %w", err)
		}
		select {
		case <-ctx.Done():
			return "", time.Time{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (s *Service) writeIndexEntry(ctx context.Context, info Info) error {
	fields := docstore.Fields{
		"id":        info.ID,
		"createdAt": info.CreatedAt.UTC().Format(time.RFC3339Nano),
		"totalDocs": info.TotalDocs,
	}
	if _, err := s.store.Put(ctx, indexCollection, info.ID, fields); err != nil {
		return fmt.Errorf("snapshot: write index entry: %w", err)
	}
	if _, err := s.store.Put(ctx, metaCollection, metaLatestDoc, fields); err != nil {
		return fmt.Errorf("snapshot: write latest marker: %w", err)
	}
	return nil
}

// Restore makes each live collection exactly equal to its snapshot copy:
// read the copy, delete every live document in chunks, write the copy back
// in chunks. Destructive overwrite, not a merge; a failure mid-way is
// resumable only by re-running Restore.
func (s *Service) Restore(ctx context.Context, snapshotID string, collections []string, onProgress ProgressFunc) error {
	if snapshotID == "" {
		return errors.New("snapshot: empty snapshot id")
	}
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	for _, collection := range collections {
		snapDocs, err := s.store.List(ctx, snapshotCollection(snapshotID, collection))
		if err != nil {
			return &PartialMigrationError{Collection: collection, Phase: PhaseRead, Err: err}
		}
		onProgress(Progress{Collection: collection, Phase: PhaseRead, Done: 0, Total: len(snapDocs)})

		liveDocs, err := s.store.List(ctx, collection)
		if err != nil {
			return &PartialMigrationError{Collection: collection, Phase: PhaseRead, Err: err}
		}

		deletes := make([]docstore.Write, 0, len(liveDocs))
		for _, doc := range liveDocs {
			deletes = append(deletes, docstore.Write{
				Kind:       docstore.WriteDelete,
				Collection: collection,
				ID:         doc.ID,
			})
		}
		err = docstore.ApplyChunked(ctx, s.store, deletes, s.chunkSize, func(done, total int) {
			onProgress(Progress{Collection: collection, Phase: PhaseDelete, Done: done, Total: total})
		})
		if err != nil {
			return &PartialMigrationError{Collection: collection, Phase: PhaseDelete, Err: err}
		}

		writes := make([]docstore.Write, 0, len(snapDocs))
		for _, doc := range snapDocs {
			writes = append(writes, docstore.Write{
				Kind:       docstore.WritePut,
				Collection: collection,
				ID:         doc.ID,
				Fields:     doc.Fields,
			})
		}
		err = docstore.ApplyChunked(ctx, s.store, writes, s.chunkSize, func(done, total int) {
			onProgress(Progress{Collection: collection, Phase: PhaseWrite, Done: done, Total: total})
		})
		if err != nil {
			return &PartialMigrationError{Collection: collection, Phase: PhaseWrite, Err: err}
		}

		onProgress(Progress{Collection: collection, Phase: PhaseCollectionComplete, Done: len(snapDocs), Total: len(snapDocs)})
		logger.Info(ctx).
			Str("snapshot_id", snapshotID).
			Str("collection", collection).
			Int("docs", len(snapDocs)).
			Msg("Collection restored")
	}
	return nil
}

// ListSnapshots returns known snapshots, newest first. The index is the
// common path; an empty index falls back to scanning the snapshot namespace
// and extracting identifier segments, which is O(total snapshot documents).
func (s *Service) ListSnapshots(ctx context.Context) ([]Info, error) {
	docs, err := s.store.List(ctx, indexCollection)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read index: %w", err)
	}

	var infos []Info
	if len(docs) > 0 {
		for _, doc := range docs {
			infos = append(infos, decodeInfo(doc))
		}
	} else {
		ids, err := s.scanNamespace(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			info := Info{ID: id}
			if t, err := time.Parse(IDLayout, id); err == nil {
				info.CreatedAt = t.UTC()
			}
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID > infos[j].ID })
	return infos, nil
}

// BackfillIndex ensures an index entry exists for every discoverable
// snapshot. It only fills gaps; existing entries are never touched, which
// makes repeated runs converge to the same state.
func (s *Service) BackfillIndex(ctx context.Context) (int, error) {
	ids, err := s.scanNamespace(ctx)
	if err != nil {
		return 0, err
	}

	filled := 0
	for _, id := range ids {
		_, err := s.store.Get(ctx, indexCollection, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return filled, fmt.Errorf("snapshot: check index entry %s: %w", id, err)
		}

		total := 0
		collections, err := s.store.ListCollections(ctx, namespacePrefix+id+"/")
		if err != nil {
			return filled, fmt.Errorf("snapshot: scan snapshot %s: %w", id, err)
		}
		for _, collection := range collections {
			n, err := s.store.Count(ctx, collection)
			if err != nil {
				return filled, fmt.Errorf("snapshot: count %s: %w", collection, err)
			}
			total += n
		}

		info := Info{ID: id, TotalDocs: total}
		if t, err := time.Parse(IDLayout, id); err == nil {
			info.CreatedAt = t.UTC()
		}
		fields := docstore.Fields{
			"id":        info.ID,
			"createdAt": info.CreatedAt.Format(time.RFC3339Nano),
			"totalDocs": info.TotalDocs,
		}
		if _, err := s.store.Put(ctx, indexCollection, id, fields); err != nil {
			return filled, fmt.Errorf("snapshot: backfill entry %s: %w", id, err)
		}
		filled++
		logger.Info(ctx).Str("snapshot_id", id).Int("total_docs", total).Msg("Index entry backfilled")
	}
	return filled, nil
}

// scanNamespace lists distinct snapshot ids by walking collection paths
// under snapshots/.
func (s *Service) scanNamespace(ctx context.Context) ([]string, error) {
	names, err := s.store.ListCollections(ctx, namespacePrefix)
	if err != nil {
		return nil, fmt.Errorf("snapshot: scan namespace: %w", err)
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, name := range names {
		rest := strings.TrimPrefix(name, namespacePrefix)
		id, _, ok := strings.Cut(rest, "/")
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func decodeInfo(doc docstore.Document) Info {
	info := Info{ID: doc.ID}
	if v, ok := doc.Fields["id"].(string); ok && v != "" {
		info.ID = v
	}
	if v, ok := doc.Fields["createdAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			info.CreatedAt = t
		}
	}
	if v, ok := doc.Fields["totalDocs"].(float64); ok {
		info.TotalDocs = int(v)
	}
	return info
}
