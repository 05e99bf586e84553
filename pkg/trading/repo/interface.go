package repo

import (
	"context"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

type IOrder interface {
	Save(ctx context.Context, id string, order *model.Order) error
	Get(ctx context.Context, id string) (*model.Order, error)
	ListPending(ctx context.Context, instrument string) (map[string]*model.Order, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
	Delete(ctx context.Context, id string) error
}

type ITriggerEvent interface {
	Create(ctx context.Context, record *TriggerEventRecord) (*TriggerEventRecord, error)
	BulkCreate(ctx context.Context, records []*TriggerEventRecord) ([]*TriggerEventRecord, error)
}
