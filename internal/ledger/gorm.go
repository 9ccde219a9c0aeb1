package ledger

import (
	"context"
	"fmt"

	"github.com/costbook/reconciler/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClient is the gorm-backed ledger store.
type GormClient struct {
	db *gorm.DB
}

var _ Client = &GormClient{}

// NewGormClient returns a Client backed by the given database.
func NewGormClient(db *gorm.DB) *GormClient {
	return &GormClient{db: db}
}

func (c *GormClient) Entries(ctx context.Context, filter Filter) ([]models.Entry, error) {
	query := c.db.WithContext(ctx).Model(&models.Entry{})

	where := models.Entry{
		Kind:         filter.Kind,
		CostCenterID: filter.CostCenterID,
		Description:  filter.Description,
	}
	query = query.Where(&where)

	if filter.IsTemplate != nil {
		query = query.Where("is_template = ?", *filter.IsTemplate)
	}

	if filter.HasInstallmentNumber != nil {
		if *filter.HasInstallmentNumber {
			query = query.Where("installment_number IS NOT NULL")
		} else {
			query = query.Where("installment_number IS NULL")
		}
	}

	if filter.OrderBy != "" {
		query = query.Order(clause.OrderByColumn{
			Column: clause.Column{Name: filter.OrderBy},
			Desc:   filter.Descending,
		})
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.Entry
	err := query.Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}

	return entries, nil
}

func (c *GormClient) Entry(ctx context.Context, id uuid.UUID) (models.Entry, error) {
	var entry models.Entry
	err := c.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if err != nil {
		return models.Entry{}, err
	}

	return entry, nil
}

func (c *GormClient) Create(ctx context.Context, entry *models.Entry) error {
	err := c.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		return fmt.Errorf("creating entry: %w", err)
	}

	return nil
}

func (c *GormClient) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	err := c.db.WithContext(ctx).Model(&models.Entry{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("updating entry %s: %w", id, err)
	}

	return nil
}

func (c *GormClient) Delete(ctx context.Context, id uuid.UUID) error {
	err := c.db.WithContext(ctx).Delete(&models.Entry{}, "id = ?", id).Error
	if err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}

	return nil
}

func (c *GormClient) UpsertBatch(ctx context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&entries).Error
	if err != nil {
		return fmt.Errorf("upserting %d entries: %w", len(entries), err)
	}

	return nil
}
