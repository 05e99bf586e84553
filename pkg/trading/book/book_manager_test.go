package book

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

var baseTime = time.Date(2015, 5, 1, 0, 0, 0, 0, time.UTC)

func quoteAt(offset time.Duration, prices map[string]string) *model.Quote {
	values := map[string]model.PriceValue{}
	for instrument, p := range prices {
		bid := decimal.RequireFromString(p)
		values[instrument] = model.NewPriceValue(bid, bid.Add(decimal.RequireFromString("0.03")))
	}
	return model.NewQuote(values, baseTime.Add(offset))
}

func limitOrder(instrument string, side model.OrderSide, price string) *model.Order {
	return model.NewOrder(instrument, decimal.NewFromInt(1), side, model.OrderTypeLimit,
		decimal.NewNullDecimal(decimal.RequireFromString(price)))
}

func TestAddOrderGeneratesID(t *testing.T) {
	bm := NewBookManager(nil)
	id, err := bm.AddOrder("", limitOrder("EURJPY", model.OrderSideSell, "100"))
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
	if bm.Len() != 1 {
		t.Errorf("expected 1 pending order, got %d", bm.Len())
	}
}

func TestAddOrderRejects(t *testing.T) {
	bm := NewBookManager(nil)
	if _, err := bm.AddOrder("O1", limitOrder("EURJPY", model.OrderSideSell, "100")); err != nil {
		t.Fatal(err)
	}
	if _, err := bm.AddOrder("O1", limitOrder("EURJPY", model.OrderSideSell, "100")); !IsDuplicateOrder(err) {
		t.Errorf("expected duplicate order error, got %v", err)
	}

	noPrice := model.NewOrder("EURJPY", decimal.NewFromInt(1), model.OrderSideBuy, model.OrderTypeStop, decimal.NullDecimal{})
	if _, err := bm.AddOrder("O2", noPrice); err == nil {
		t.Errorf("expected stop order without price to be rejected")
	}
	if _, err := bm.AddOrder("O3", nil); err == nil {
		t.Errorf("expected nil order to be rejected")
	}
}

func TestAddOrderStoresCopy(t *testing.T) {
	bm := NewBookManager(nil)
	order := limitOrder("EURJPY", model.OrderSideSell, "100")
	if _, err := bm.AddOrder("O1", order); err != nil {
		t.Fatal(err)
	}
	order.SetPrice(decimal.NewFromInt(200))

	stored, err := bm.GetOrder("O1")
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Price.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("pending order changed with the caller's order, price=%s", stored.Price.Decimal)
	}
}

func TestOnQuoteTriggersOnce(t *testing.T) {
	bm := NewBookManager(&BookManagerConfig{RejectStaleQuotes: true})
	var called [][]*Trigger
	bm.RegisterTriggerCallback(func(triggers []*Trigger) {
		called = append(called, triggers)
	})

	bm.AddOrder("S1", limitOrder("EURJPY", model.OrderSideSell, "100"))
	bm.AddOrder("B1", limitOrder("EURJPY", model.OrderSideBuy, "99.03"))
	bm.AddOrder("U1", limitOrder("USDJPY", model.OrderSideSell, "120"))

	results, err := bm.OnQuote(quoteAt(0, map[string]string{"EURJPY": "99.5"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no trigger, got %+v", results)
	}

	results, err = bm.OnQuote(quoteAt(time.Second, map[string]string{"EURJPY": "100", "USDJPY": "119"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].OrderID != "S1" {
		t.Fatalf("expected S1 to trigger, got %+v", results)
	}
	if !results[0].TriggeredAt.Equal(baseTime.Add(time.Second)) {
		t.Errorf("expected trigger time from quote, got %v", results[0].TriggeredAt)
	}

	results, err = bm.OnQuote(quoteAt(2*time.Second, map[string]string{"EURJPY": "101"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected triggered order to leave the book, got %+v", results)
	}

	if len(called) != 1 {
		t.Errorf("expected 1 callback, got %d", len(called))
	}
	if bm.Len() != 2 {
		t.Errorf("expected 2 pending orders, got %d", bm.Len())
	}
	if _, err := bm.GetOrder("S1"); !IsOrderNotFound(err) {
		t.Errorf("expected S1 not found, got %v", err)
	}
}

func TestOnQuoteKeepsFIFO(t *testing.T) {
	bm := NewBookManager(nil)
	for i := 0; i < 5; i++ {
		price := "100"
		if i%2 == 0 {
			price = "50"
		}
		bm.AddOrder(fmt.Sprintf("O%d", i), limitOrder("EURJPY", model.OrderSideSell, price))
	}

	results, err := bm.OnQuote(quoteAt(0, map[string]string{"EURJPY": "99"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[0].OrderID != "O0" || results[1].OrderID != "O2" || results[2].OrderID != "O4" {
		t.Fatalf("expected O0, O2, O4 in order, got %+v", results)
	}

	pending := bm.PendingOrders("EURJPY")
	if len(pending) != 2 || pending[0].ID != "O1" || pending[1].ID != "O3" {
		t.Errorf("expected O1, O3 pending, got %+v", pending)
	}
}

func TestOnQuoteStale(t *testing.T) {
	bm := NewBookManager(&BookManagerConfig{RejectStaleQuotes: true})
	bm.AddOrder("S1", limitOrder("EURJPY", model.OrderSideSell, "100"))

	if _, err := bm.OnQuote(quoteAt(time.Minute, map[string]string{"EURJPY": "99"})); err != nil {
		t.Fatal(err)
	}
	_, err := bm.OnQuote(quoteAt(0, map[string]string{"EURJPY": "101"}))
	if !IsStaleQuote(err) {
		t.Fatalf("expected stale quote error, got %v", err)
	}
	if bm.Len() != 1 {
		t.Errorf("stale quote changed the book")
	}

	lenient := NewBookManager(nil)
	lenient.AddOrder("S1", limitOrder("EURJPY", model.OrderSideSell, "100"))
	lenient.OnQuote(quoteAt(time.Minute, map[string]string{"EURJPY": "99"}))
	results, err := lenient.OnQuote(quoteAt(0, map[string]string{"EURJPY": "101"}))
	if err != nil || len(results) != 1 {
		t.Errorf("expected lenient book to evaluate an old quote, got %+v %v", results, err)
	}
}

func TestCancelOrder(t *testing.T) {
	bm := NewBookManager(nil)
	bm.AddOrder("S1", limitOrder("EURJPY", model.OrderSideSell, "100"))

	if err := bm.CancelOrder("S1"); err != nil {
		t.Fatal(err)
	}
	if err := bm.CancelOrder("S1"); !IsOrderNotFound(err) {
		t.Errorf("expected order not found, got %v", err)
	}

	results, _ := bm.OnQuote(quoteAt(0, map[string]string{"EURJPY": "101"}))
	if len(results) != 0 {
		t.Errorf("cancelled order triggered: %+v", results)
	}
}

func TestConcurrentQuotes(t *testing.T) {
	bm := NewBookManager(nil)
	num := 1000
	for i := 0; i < num; i++ {
		bm.AddOrder(fmt.Sprintf("O%d", i), limitOrder("EURJPY", model.OrderSideSell, "100"))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := bm.OnQuote(quoteAt(0, map[string]string{"EURJPY": "100"}))
			if err != nil {
				t.Error(err)
			}
			mu.Lock()
			total += len(results)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != num {
		t.Errorf("expected %d triggers, got %d", num, total)
	}
	if bm.Len() != 0 {
		t.Errorf("expected empty book, got %d", bm.Len())
	}
}
