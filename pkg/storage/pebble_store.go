package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

// PebbleStore keeps a local snapshot of pending orders so the book can be
// rebuilt after a restart without the database.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// keys: o:<order id>
var orderPrefix = []byte("o:")

func orderKey(id string) []byte { return append(append([]byte{}, orderPrefix...), id...) }

// keyUpperBound returns the smallest key greater than every key with prefix.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *PebbleStore) SaveOrder(id string, order *model.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(id), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (s *PebbleStore) DeleteOrder(id string) error {
	if err := s.db.Delete(orderKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

func (s *PebbleStore) GetOrder(id string) (*model.Order, bool, error) {
	val, closer, err := s.db.Get(orderKey(id))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	order := &model.Order{}
	if err := json.Unmarshal(val, order); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return order, true, nil
}

// LoadOrders returns every stored order keyed by id. Entries that no longer
// decode are logged and skipped.
func (s *PebbleStore) LoadOrders() (map[string]*model.Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: orderPrefix,
		UpperBound: keyUpperBound(orderPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	orders := make(map[string]*model.Order)
	for iter.First(); iter.Valid(); iter.Next() {
		id := string(iter.Key()[len(orderPrefix):])
		order := &model.Order{}
		if err := json.Unmarshal(iter.Value(), order); err != nil {
			zap.S().Warnw("skip undecodable order snapshot", "order_id", id, "err", err)
			continue
		}
		orders[id] = order
	}
	return orders, iter.Error()
}
