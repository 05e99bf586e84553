package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	Order() IOrder
	TriggerEvent() ITriggerEvent
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) IRepo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Order() IOrder {
	return NewOrderSQLRepo(r.db)
}

func (r *Repo) TriggerEvent() ITriggerEvent {
	return NewTriggerEventSQLRepo(r.db)
}
