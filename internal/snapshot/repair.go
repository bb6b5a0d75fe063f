package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/fabtrack/sheetstock/internal/docstore"
	"github.com/fabtrack/sheetstock/internal/inventory/domain"
	"github.com/fabtrack/sheetstock/internal/inventory/repository"
	"github.com/fabtrack/sheetstock/pkg/logger"
)

// RepairReport summarizes one best-effort repair run.
type RepairReport struct {
	Scanned   int `json:"scanned"`
	Repaired  int `json:"repaired"`
	Ambiguous int `json:"ambiguous"`
	Failed    int `json:"failed"`
}

// RepairReferentialKeys normalizes unit materialType values that drifted
// from the catalog's canonical keys. A fix is applied only when exactly one
// normalization variant matches a known catalog key; ambiguous matches are
// left untouched. Errors on single documents are logged and skipped so one
// bad document cannot abort the run.
func (s *Service) RepairReferentialKeys(ctx context.Context) (RepairReport, error) {
	catalog, err := s.catalogKeys(ctx)
	if err != nil {
		return RepairReport{}, err
	}
	units, err := s.store.List(ctx, repository.CollectionInventory)
	if err != nil {
		return RepairReport{}, fmt.Errorf("snapshot: list units: %w", err)
	}

	var report RepairReport
	for _, doc := range units {
		report.Scanned++
		key, _ := doc.Fields["materialType"].(string)
		if key == "" {
			continue
		}
		if _, ok := catalog[key]; ok {
			continue
		}

		matches := matchVariants(key, catalog)
		switch len(matches) {
		case 1:
			doc.Fields["materialType"] = matches[0]
			if _, err := s.store.Put(ctx, repository.CollectionInventory, doc.ID, doc.Fields); err != nil {
				report.Failed++
				logger.Warn(ctx).Err(err).Str("unit_id", doc.ID).Msg("Failed to repair material key")
				continue
			}
			report.Repaired++
			logger.Info(ctx).
				Str("unit_id", doc.ID).
				Str("from", key).
				Str("to", matches[0]).
				Msg("Material key repaired")
		case 0:
			// No candidate; RebuildMissingCatalogEntries covers these.
		default:
			report.Ambiguous++
			logger.Warn(ctx).
				Str("unit_id", doc.ID).
				Str("material", key).
				Strs("candidates", matches).
				Msg("Ambiguous material key left untouched")
		}
	}
	return report, nil
}

// matchVariants returns the distinct catalog keys reachable from key via a
// small set of string normalizations.
func matchVariants(key string, catalog map[string]struct{}) []string {
	variants := []string{
		strings.TrimSpace(key),
		strings.ToUpper(key),
		strings.ReplaceAll(key, "_", "-"),
		strings.ReplaceAll(key, "-", "_"),
		strings.ReplaceAll(key, " ", "-"),
		strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), "_", "-")),
	}
	seen := make(map[string]struct{})
	var matches []string
	for _, v := range variants {
		if v == key {
			continue
		}
		if _, ok := catalog[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		matches = append(matches, v)
	}
	return matches
}

// RebuildMissingCatalogEntries synthesizes a best-guess catalog entry for
// every materialType that appears on a unit but not in the catalog, so the
// reconciler and cost calculations do not crash on orphaned references.
// Recovery heuristic, not a correctness guarantee.
func (s *Service) RebuildMissingCatalogEntries(ctx context.Context) (RepairReport, error) {
	catalog, err := s.catalogKeys(ctx)
	if err != nil {
		return RepairReport{}, err
	}
	units, err := s.store.List(ctx, repository.CollectionInventory)
	if err != nil {
		return RepairReport{}, fmt.Errorf("snapshot: list units: %w", err)
	}

	var report RepairReport
	missing := make(map[string]struct{})
	for _, doc := range units {
		report.Scanned++
		key, _ := doc.Fields["materialType"].(string)
		if key == "" {
			continue
		}
		if _, ok := catalog[key]; ok {
			continue
		}
		missing[key] = struct{}{}
	}

	for key := range missing {
		category := domain.GuessCategory(key)
		fields := docstore.Fields{
			"key":             key,
			"category":        category,
			"thicknessIn":     0,
			"densityLbPerIn3": domain.DefaultDensity(category),
			"synthesized":     true,
		}
		if _, err := s.store.Put(ctx, repository.CollectionMaterials, key, fields); err != nil {
			report.Failed++
			logger.Warn(ctx).Err(err).Str("material", key).Msg("Failed to rebuild catalog entry")
			continue
		}
		report.Repaired++
		logger.Info(ctx).
			Str("material", key).
			Str("category", category).
			Msg("Catalog entry rebuilt")
	}
	return report, nil
}

func (s *Service) catalogKeys(ctx context.Context) (map[string]struct{}, error) {
	docs, err := s.store.List(ctx, repository.CollectionMaterials)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list materials: %w", err)
	}
	keys := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		keys[doc.ID] = struct{}{}
	}
	return keys, nil
}
