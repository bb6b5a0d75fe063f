package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*PostgresStore)(nil)

// documentRow is the single JSONB-backed table every collection shares.
type documentRow struct {
	Collection string `gorm:"column:collection;primaryKey;size:512"`
	DocID      string `gorm:"column:doc_id;primaryKey;size:128"`
	Data       []byte `gorm:"column:data;type:jsonb;not null"`
}

// TableName specifies the table name
func (documentRow) TableName() string {
	return "documents"
}

// fieldNamePattern restricts order/filter field names to plain identifiers
// before they are interpolated into jsonb path expressions.
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresStore is the GORM/JSONB Store implementation. One row per
// document; equality filters use jsonb containment so numbers and strings
// compare by value, not by text.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore creates a new PostgreSQL-backed document store.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AutoMigrate creates the documents table.
func (s *PostgresStore) AutoMigrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

func (s *PostgresStore) Put(ctx context.Context, collection, id string, fields Fields) (string, error) {
	normalized, err := normalizeFields(fields)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("docstore: encode document: %w", err)
	}
	row := documentRow{Collection: collection, DocID: id, Data: data}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data"}),
		}).
		Create(&row).Error
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return decodeRow(row)
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&documentRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	tx := s.db.WithContext(ctx).Model(&documentRow{}).Where("collection = ?", collection)

	if len(q.Filters) > 0 {
		contain := Fields{}
		for _, f := range q.Filters {
			value, err := normalizeValue(f.Value)
			if err != nil {
				return nil, err
			}
			contain[f.Field] = value
		}
		probe, err := json.Marshal(contain)
		if err != nil {
			return nil, fmt.Errorf("docstore: encode filter: %w", err)
		}
		tx = tx.Where("data @> ?::jsonb", string(probe))
	}

	if q.OrderBy != "" {
		if !fieldNamePattern.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("docstore: invalid order field %q", q.OrderBy)
		}
		dir := "DESC"
		if q.Ascending {
			dir = "ASC"
		}
		// Timestamp values must order chronologically, not as text:
		// RFC3339Nano trims trailing fractional zeros, so "12:00:00Z"
		// would sort as text after "12:00:00.5Z". Non-timestamp values
		// fall through to plain text order.
		tx = tx.Order(fmt.Sprintf(
			"CASE WHEN data->>'%[1]s' ~ '^[0-9]{4}-[0-9]{2}-[0-9]{2}T' THEN (data->>'%[1]s')::timestamptz END %[2]s, data->>'%[1]s' %[2]s, doc_id %[2]s",
			q.OrderBy, dir,
		))
	} else {
		tx = tx.Order("doc_id ASC")
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []documentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("doc_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

func (s *PostgresStore) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&documentRow{}).
		Distinct("collection").
		Where("collection LIKE ?", prefix+"%").
		Order("collection ASC").
		Pluck("collection", &names).Error
	return names, err
}

func (s *PostgresStore) Count(ctx context.Context, collection string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&documentRow{}).
		Where("collection = ?", collection).
		Count(&n).Error
	return int(n), err
}

func (s *PostgresStore) ApplyBatch(ctx context.Context, writes []Write) error {
	if len(writes) > MaxBatchOps {
		return ErrBatchTooLarge
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range writes {
			switch w.Kind {
			case WritePut:
				normalized, err := normalizeFields(w.Fields)
				if err != nil {
					return err
				}
				id := w.ID
				if id == "" {
					id = uuid.NewString()
				}
				data, err := json.Marshal(normalized)
				if err != nil {
					return fmt.Errorf("docstore: encode document: %w", err)
				}
				row := documentRow{Collection: w.Collection, DocID: id, Data: data}
				err = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"data"}),
				}).Create(&row).Error
				if err != nil {
					return err
				}
			case WriteDelete:
				res := tx.Where("collection = ? AND doc_id = ?", w.Collection, w.ID).
					Delete(&documentRow{})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return ErrNotFound
				}
			default:
				return fmt.Errorf("docstore: unknown write kind %q", w.Kind)
			}
		}
		return nil
	})
}

func decodeRow(row documentRow) (Document, error) {
	fields := Fields{}
	if err := json.Unmarshal(row.Data, &fields); err != nil {
		return Document{}, fmt.Errorf("docstore: decode document %s/%s: %w", row.Collection, row.DocID, err)
	}
	return Document{ID: row.DocID, Fields: fields}, nil
}

func decodeRows(rows []documentRow) ([]Document, error) {
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
