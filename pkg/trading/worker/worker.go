package worker

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	kafkawrapper "github.com/ToyotakaTanaka/jiji2/pkg/kafka_wrapper"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/event"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/repo"
)

// TriggerRecorder projects published trigger events into the database.
// Replays are harmless: events are keyed by event id.
type TriggerRecorder struct {
	order        repo.IOrder
	triggerEvent repo.ITriggerEvent
}

func NewTriggerRecorder(repo repo.IRepo) *TriggerRecorder {
	return &TriggerRecorder{
		order:        repo.Order(),
		triggerEvent: repo.TriggerEvent(),
	}
}

// Handle stores one batch. Undecodable messages are logged and skipped;
// database errors fail the batch so the consumer retries it.
func (w *TriggerRecorder) Handle(ctx context.Context, msgs []kafkawrapper.Message) error {
	records := make([]*repo.TriggerEventRecord, 0, len(msgs))
	orderIDs := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		var ev event.TriggerMessage
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			zap.S().Warnw("unmarshal trigger event fail", "offset", msg.Offset, "err", err)
			continue
		}
		record, err := ev.Record()
		if err != nil {
			zap.S().Warnw("convert trigger event fail", "event_id", ev.EventID, "err", err)
			continue
		}
		records = append(records, record)
		orderIDs = append(orderIDs, ev.OrderID)
	}

	if _, err := w.triggerEvent.BulkCreate(ctx, records); err != nil {
		return err
	}
	for _, id := range orderIDs {
		err := w.order.UpdateStatus(ctx, id, repo.OrderStatusTriggered)
		if err != nil && !errors.Is(err, repo.ErrOrderNotFound) {
			return err
		}
	}
	return nil
}
