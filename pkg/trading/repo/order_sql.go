package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

type OrderSQLRepo struct {
	db *gorm.DB
}

func NewOrderSQLRepo(db *gorm.DB) *OrderSQLRepo {
	return &OrderSQLRepo{
		db: db,
	}
}

func (r *OrderSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Save inserts the order as pending. An id that was ever stored, whatever its
// status, is not written again.
func (r *OrderSQLRepo) Save(ctx context.Context, id string, order *model.Order) error {
	record, err := NewOrderRecord(id, order, OrderStatusPending)
	if err != nil {
		return err
	}
	result := r.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderExists
	}
	return nil
}

func (r *OrderSQLRepo) Get(ctx context.Context, id string) (*model.Order, error) {
	var record OrderRecord
	err := r.dbWithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.ToOrder()
}

// ListPending returns pending orders keyed by id. An empty instrument lists all.
func (r *OrderSQLRepo) ListPending(ctx context.Context, instrument string) (map[string]*model.Order, error) {
	query := r.dbWithContext(ctx).Where("status = ?", OrderStatusPending)
	if instrument != "" {
		query = query.Where("instrument = ?", instrument)
	}

	var records []*OrderRecord
	if err := query.Order("created_at").Find(&records).Error; err != nil {
		return nil, err
	}

	orders := make(map[string]*model.Order, len(records))
	for _, record := range records {
		order, err := record.ToOrder()
		if err != nil {
			return nil, err
		}
		orders[record.ID] = order
	}
	return orders, nil
}

func (r *OrderSQLRepo) UpdateStatus(ctx context.Context, id string, status OrderStatus) error {
	result := r.dbWithContext(ctx).Model(&OrderRecord{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Delete removes a pending record. Triggered and cancelled records are kept.
func (r *OrderSQLRepo) Delete(ctx context.Context, id string) error {
	result := r.dbWithContext(ctx).Where("id = ? AND status = ?", id, OrderStatusPending).Delete(&OrderRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
