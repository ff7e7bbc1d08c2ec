package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot is one bucket of a computed view, stored for slicing outside the
// engine.
type Snapshot struct {
	ID         string            `gorm:"primaryKey;column:id"`
	DatasetID  string            `gorm:"column:dataset_id;index"`
	FilterKey  string            `gorm:"column:filter_key;index"`
	Dimension  string            `gorm:"column:dimension"`
	BucketKey  string            `gorm:"column:bucket_key"`
	Value      datatypes.JSONMap `gorm:"column:value"`
	ComputedAt time.Time         `gorm:"column:computed_at"`
	CreatedAt  time.Time         `gorm:"column:created_at"`
}

func (Snapshot) TableName() string {
	return "view_snapshots"
}

type SnapshotWriter struct {
	db *gorm.DB
}

func NewSnapshotWriter(db *gorm.DB) *SnapshotWriter {
	return &SnapshotWriter{db: db}
}

func (w *SnapshotWriter) AutoMigrate() error {
	return w.db.AutoMigrate(&Snapshot{})
}

// Write replaces the stored buckets for the view's dataset and filter key.
func (w *SnapshotWriter) Write(ctx context.Context, view models.DashboardView) error {
	rows := SnapshotRows(view, time.Now().UTC())
	filterKey := view.Filters.Key()
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ? AND filter_key = ?", view.DatasetID, filterKey).Delete(&Snapshot{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

// Query returns stored buckets, newest first, optionally narrowed by dataset
// and dimension.
func (w *SnapshotWriter) Query(ctx context.Context, datasetID string, dim models.Dimension) ([]Snapshot, error) {
	var out []Snapshot
	tx := w.db.WithContext(ctx)
	if datasetID != "" {
		tx = tx.Where("dataset_id = ?", datasetID)
	}
	if dim != "" {
		tx = tx.Where("dimension = ?", string(dim))
	}
	if err := tx.Order("computed_at desc").Limit(500).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SnapshotRows flattens every bucket of view into one row per dimension and key.
func SnapshotRows(view models.DashboardView, at time.Time) []Snapshot {
	filterKey := view.Filters.Key()
	var rows []Snapshot
	add := func(dim models.Dimension, buckets []models.Bucket) {
		for _, b := range buckets {
			rows = append(rows, Snapshot{
				ID:        uuid.New().String(),
				DatasetID: view.DatasetID,
				FilterKey: filterKey,
				Dimension: string(dim),
				BucketKey: b.Key,
				Value: datatypes.JSONMap{
					"show":    b.Show,
					"no_show": b.NoShow,
					"total":   b.Total,
					"rate":    b.Rate,
				},
				ComputedAt: at,
				CreatedAt:  at,
			})
		}
	}
	add(models.DimensionAgeGroup, view.AgeGroups)
	add(models.DimensionReminder, view.Reminders)
	add(models.DimensionWeek, view.Weeks)
	add(models.DimensionWaiting, view.Waiting.Bins)
	return rows
}
