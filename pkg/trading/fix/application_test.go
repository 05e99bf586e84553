package fixcodec

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

type fakeIntake struct {
	mu     sync.Mutex
	orders map[string]*model.Order
	err    error
}

func (f *fakeIntake) AddOrder(id string, order *model.Order) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.orders == nil {
		f.orders = map[string]*model.Order{}
	}
	f.orders[id] = order
	return id, nil
}

var testSession = quickfix.SessionID{BeginString: quickfix.BeginStringFIX44, SenderCompID: "CLIENT", TargetCompID: "JIJI2"}

func newOrderMessage(t *testing.T, clOrdID string, order *model.Order) *quickfix.Message {
	t.Helper()
	msg, err := ToNewOrderSingle(clOrdID, order, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return msg.ToMessage()
}

func stopOrder() *model.Order {
	return model.NewOrder("USDJPY", decimal.RequireFromString("2.5"), model.OrderSideBuy, model.OrderTypeStop,
		decimal.NewNullDecimal(decimal.RequireFromString("110.035")))
}

func TestRouteNewOrderSingle(t *testing.T) {
	intake := &fakeIntake{}
	app := NewApplication(intake, false)
	defer app.Stop()

	if rejectErr := app.FromApp(newOrderMessage(t, "C1", stopOrder()), testSession); rejectErr != nil {
		t.Fatalf("unexpected reject: %v", rejectErr)
	}
	got, ok := intake.orders["C1"]
	if !ok {
		t.Fatalf("order C1 not received")
	}
	if !got.Equal(stopOrder()) {
		t.Errorf("expected %+v, got %+v", stopOrder(), got)
	}
}

func TestRouteNewOrderSingleRejects(t *testing.T) {
	t.Run("intake error", func(t *testing.T) {
		app := NewApplication(&fakeIntake{err: errors.New("duplicate order")}, false)
		defer app.Stop()

		rejectErr := app.Route(newOrderMessage(t, "C1", stopOrder()), testSession)
		if rejectErr == nil || !rejectErr.IsBusinessReject() {
			t.Fatalf("expected business reject, got %v", rejectErr)
		}
	})

	tests := []struct {
		name  string
		patch func(msg *quickfix.Message)
		tag   quickfix.Tag
	}{
		{"side", func(msg *quickfix.Message) { msg.Body.SetString(tag.Side, "9") }, tag.Side},
		{"ord type", func(msg *quickfix.Message) { msg.Body.SetString(tag.OrdType, "P") }, tag.OrdType},
		{"time in force", func(msg *quickfix.Message) {
			msg.Body.SetString(tag.TimeInForce, string(enum.TimeInForce_AT_THE_OPENING))
		}, tag.TimeInForce},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intake := &fakeIntake{}
			app := NewApplication(intake, false)
			defer app.Stop()

			msg := newOrderMessage(t, "C1", stopOrder())
			tt.patch(msg)

			rejectErr := app.Route(msg, testSession)
			if rejectErr == nil || rejectErr.RefTagID() == nil || *rejectErr.RefTagID() != tt.tag {
				t.Fatalf("expected reject on tag %d, got %v", tt.tag, rejectErr)
			}
			if len(intake.orders) != 0 {
				t.Errorf("rejected order reached the intake")
			}
		})
	}
}

func TestDispatcherRoutesQueuedMessages(t *testing.T) {
	intake := &fakeIntake{}
	app := NewApplication(intake, true)

	for _, id := range []string{"C1", "C2", "C3"} {
		if rejectErr := app.FromApp(newOrderMessage(t, id, stopOrder()), testSession); rejectErr != nil {
			t.Fatalf("unexpected reject: %v", rejectErr)
		}
	}
	app.Stop()
	app.Stop()

	intake.mu.Lock()
	defer intake.mu.Unlock()
	if len(intake.orders) != 3 {
		t.Errorf("expected 3 routed orders, got %d", len(intake.orders))
	}
}
