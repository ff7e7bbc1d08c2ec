package cohort

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrViewNotFound = errors.New("saved view not found")

type savedViewModel struct {
	ID          string         `gorm:"primaryKey;column:id"`
	Name        string         `gorm:"column:name;uniqueIndex"`
	Description string         `gorm:"column:description"`
	DSL         string         `gorm:"column:dsl"`
	Tags        datatypes.JSON `gorm:"column:tags"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
}

func (savedViewModel) TableName() string {
	return "saved_views"
}

func (m savedViewModel) toModel() models.SavedView {
	view := models.SavedView{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		DSL:         m.DSL,
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &view.Tags)
	}
	return view
}

// ViewRepository persists saved queries.
type ViewRepository struct {
	db *gorm.DB
}

func NewViewRepository(db *gorm.DB) *ViewRepository {
	return &ViewRepository{db: db}
}

func (r *ViewRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&savedViewModel{})
}

func (r *ViewRepository) List(ctx context.Context, limit int) ([]models.SavedView, error) {
	if limit <= 0 {
		limit = 25
	}
	var rows []savedViewModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]models.SavedView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.toModel())
	}
	return views, nil
}

func (r *ViewRepository) Create(ctx context.Context, view models.SavedView) (models.SavedView, error) {
	if view.ID == "" {
		view.ID = uuid.New().String()
	}
	row := savedViewModel{
		ID:          view.ID,
		Name:        view.Name,
		Description: view.Description,
		DSL:         view.DSL,
		CreatedAt:   time.Now().UTC(),
	}
	if len(view.Tags) > 0 {
		tags, err := json.Marshal(view.Tags)
		if err != nil {
			return models.SavedView{}, err
		}
		row.Tags = datatypes.JSON(tags)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.SavedView{}, err
	}
	return row.toModel(), nil
}

func (r *ViewRepository) Get(ctx context.Context, id string) (models.SavedView, error) {
	var row savedViewModel
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.SavedView{}, ErrViewNotFound
	}
	if result.Error != nil {
		return models.SavedView{}, result.Error
	}
	return row.toModel(), nil
}
