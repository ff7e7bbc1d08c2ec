package normalizer

import (
	"context"
	"errors"
	"time"

	"github.com/synaptica-ai/noshow/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("dataset load not found")

// LoadModel is the audit row written for every dataset installed in the engine.
type LoadModel struct {
	ID          string            `gorm:"primaryKey;column:id"`
	Source      string            `gorm:"column:source"`
	RowsRead    int               `gorm:"column:rows_read"`
	RowsKept    int               `gorm:"column:rows_kept"`
	InvalidRows int               `gorm:"column:invalid_rows"`
	Columns     datatypes.JSONMap `gorm:"column:columns"`
	LoadedAt    time.Time         `gorm:"column:loaded_at;index"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
}

func (LoadModel) TableName() string {
	return "dataset_loads"
}

func newLoadModel(summary models.DatasetSummary) *LoadModel {
	columns := make(datatypes.JSONMap, len(summary.Report.Columns))
	for field, header := range summary.Report.Columns {
		columns[field] = header
	}
	return &LoadModel{
		ID:          summary.ID,
		Source:      summary.Source,
		RowsRead:    summary.Report.RowsRead,
		RowsKept:    summary.Report.RowsKept,
		InvalidRows: summary.Report.InvalidRows,
		Columns:     columns,
		LoadedAt:    summary.LoadedAt,
	}
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&LoadModel{})
}

func (r *Repository) Create(ctx context.Context, rec *LoadModel) error {
	rec.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*LoadModel, error) {
	var rec LoadModel
	result := r.db.WithContext(ctx).First(&rec, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, result.Error
}

// List returns the most recent loads first.
func (r *Repository) List(ctx context.Context, limit int) ([]LoadModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []LoadModel
	err := r.db.WithContext(ctx).Order("loaded_at desc").Limit(limit).Find(&out).Error
	return out, err
}

func (r *Repository) CleanupExpired(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-ttl)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&LoadModel{}).Error
}
