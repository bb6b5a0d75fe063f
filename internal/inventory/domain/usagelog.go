package domain

import (
	"strings"
	"time"
)

// LogKind tags the provenance of a usage log entry. Older documents encoded
// this as a job prefix; EffectiveKind still understands those.
type LogKind string

const (
	KindUsage         LogKind = "usage"
	KindCorrection    LogKind = "correction"
	KindGroupDeletion LogKind = "group-deletion"
)

// Legacy job-prefix markers written by the pre-migration correction and
// group-deletion flows.
const (
	LegacyModificationPrefix = "MODIFICATION"
	LegacyDeletionPrefix     = "DELETION"
)

// LogStatus marks whether a usage entry is already executed or scheduled.
type LogStatus string

const (
	LogCompleted LogStatus = "Completed"
	LogScheduled LogStatus = "Scheduled"
)

// UsageDetail is the structural snapshot of one consumed unit. Once the unit
// is deleted this is the only remaining record of its former existence.
type UsageDetail struct {
	OriginalID   string  `json:"originalId"`
	MaterialType string  `json:"materialType"`
	Gauge        string  `json:"gauge,omitempty"`
	Supplier     string  `json:"supplier,omitempty"`
	CostPerPound float64 `json:"costPerPound"`
	Width        float64 `json:"width"`
	Length       int     `json:"length"`
	Job          string  `json:"job,omitempty"`
	Qty          int     `json:"qty"`
}

// UsageLogEntry is one usage transaction, immutable once created.
type UsageLogEntry struct {
	ID        string        `json:"id,omitempty"`
	Kind      LogKind       `json:"kind,omitempty"`
	Job       string        `json:"job,omitempty"`
	Customer  string        `json:"customer,omitempty"`
	UsedAt    *time.Time    `json:"usedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	Status    LogStatus     `json:"status,omitempty"`
	Qty       int           `json:"qty"`
	Details   []UsageDetail `json:"details,omitempty"`
}

// EffectiveKind resolves the entry's provenance. Entries written before the
// kind field existed carry it as a job prefix instead.
func (e UsageLogEntry) EffectiveKind() LogKind {
	if e.Kind != "" {
		return e.Kind
	}
	switch {
	case strings.HasPrefix(e.Job, LegacyModificationPrefix):
		return KindCorrection
	case strings.HasPrefix(e.Job, LegacyDeletionPrefix):
		return KindGroupDeletion
	}
	return KindUsage
}

// DetailFromUnit snapshots a unit into a usage detail, dropping the
// store-internal id into originalId.
func DetailFromUnit(u InventoryUnit) UsageDetail {
	return UsageDetail{
		OriginalID:   u.ID,
		MaterialType: u.MaterialType,
		Gauge:        u.Gauge,
		Supplier:     u.Supplier,
		CostPerPound: u.CostPerPound,
		Width:        u.Width,
		Length:       u.Length,
		Job:          u.Job,
		Qty:          1,
	}
}

// TouchesMaterial reports whether any detail consumed the given material.
func (e UsageLogEntry) TouchesMaterial(materialType string) bool {
	for _, d := range e.Details {
		if d.MaterialType == materialType {
			return true
		}
	}
	return false
}
