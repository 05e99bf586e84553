package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TriggerEventSQLRepo struct {
	db *gorm.DB
}

func NewTriggerEventSQLRepo(db *gorm.DB) *TriggerEventSQLRepo {
	return &TriggerEventSQLRepo{
		db: db,
	}
}

func (r *TriggerEventSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *TriggerEventSQLRepo) Create(ctx context.Context, record *TriggerEventRecord) (*TriggerEventRecord, error) {
	return record, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
}

func (r *TriggerEventSQLRepo) BulkCreate(ctx context.Context, records []*TriggerEventRecord) ([]*TriggerEventRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(records).Error
}
