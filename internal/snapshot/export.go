package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fabtrack/sheetstock/internal/docstore"
)

// AppNamespace identifies export files produced by this application.
const AppNamespace = "sheetstock"

// ExportFile is the JSON shape of a snapshot moved outside the store
// entirely.
type ExportFile struct {
	AppNamespace string                         `json:"appNamespace"`
	CreatedAt    time.Time                      `json:"createdAt"`
	Data         map[string][]docstore.Document `json:"data"`
}

// Export writes one snapshot as a JSON document suitable for a local file
// round-trip.
func (s *Service) Export(ctx context.Context, snapshotID string, w io.Writer) error {
	if snapshotID == "" {
		return errors.New("snapshot: empty snapshot id")
	}
	collections, err := s.store.ListCollections(ctx, namespacePrefix+snapshotID+"/")
	if err != nil {
		return fmt.Errorf("snapshot: scan snapshot %s: %w", snapshotID, err)
	}
	if len(collections) == 0 {
		return fmt.Errorf("snapshot: %s: %w", snapshotID, docstore.ErrNotFound)
	}

	createdAt := s.now().UTC()
	if t, err := time.Parse(IDLayout, snapshotID); err == nil {
		createdAt = t.UTC()
	}
	file := ExportFile{
		AppNamespace: AppNamespace,
		CreatedAt:    createdAt,
		Data:         make(map[string][]docstore.Document, len(collections)),
	}
	for _, collection := range collections {
		docs, err := s.store.List(ctx, collection)
		if err != nil {
			return &PartialMigrationError{Collection: collection, Phase: PhaseRead, Err: err}
		}
		inner := strings.TrimPrefix(collection, namespacePrefix+snapshotID+"/")
		file.Data[inner] = docs
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(file)
}

// Import reads an export file and recreates its snapshot namespace, with an
// index entry, under the id derived from the file's creation time.
func (s *Service) Import(ctx context.Context, r io.Reader) (Info, error) {
	var file ExportFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return Info{}, fmt.Errorf("snapshot: decode export file: %w", err)
	}
	if file.AppNamespace != AppNamespace {
		return Info{}, fmt.Errorf("snapshot: export file namespace %q does not match %q", file.AppNamespace, AppNamespace)
	}
	if file.CreatedAt.IsZero() {
		return Info{}, errors.New("snapshot: export file has no creation time")
	}

	id := file.CreatedAt.UTC().Format(IDLayout)
	totalDocs := 0
	for collection, docs := range file.Data {
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
	}

	info := Info{ID: id, CreatedAt: file.CreatedAt.UTC().Truncate(time.Second), TotalDocs: totalDocs}
	if err := s.writeIndexEntry(ctx, info); err != nil {
		return Info{}, err
	}
	return info, nil
}
