package main

import (
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/logging"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/feed"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

// walker moves mid prices by random steps of up to one tick.
type walker struct {
	mids   map[string]decimal.Decimal
	spread decimal.Decimal
	tick   decimal.Decimal
	rnd    *rand.Rand
}

func (w *walker) next(now time.Time) *model.Quote {
	values := make(map[string]model.PriceValue, len(w.mids))
	for instrument, mid := range w.mids {
		step := decimal.NewFromInt(int64(w.rnd.Intn(3) - 1)).Mul(w.tick)
		mid = mid.Add(step)
		w.mids[instrument] = mid
		half := w.spread.Div(decimal.NewFromInt(2))
		values[instrument] = model.NewPriceValue(mid.Sub(half), mid.Add(half))
	}
	return model.NewQuote(values, now)
}

func main() {
	var url, instruments, start, spread, tick string
	var interval time.Duration
	var total int
	flag.StringVar(&url, "nats-url", nats.DefaultURL, "nats url")
	flag.StringVar(&instruments, "instruments", "EURJPY,USDJPY", "comma separated instruments")
	flag.StringVar(&start, "start", "100", "starting mid price")
	flag.StringVar(&spread, "spread", "0.03", "bid/ask spread")
	flag.StringVar(&tick, "tick", "0.01", "price step")
	flag.DurationVar(&interval, "interval", 100*time.Millisecond, "publish interval")
	flag.IntVar(&total, "count", 0, "quotes to publish, 0 for no limit")
	flag.Parse()

	logging.Init(logging.INFO)
	defer zap.L().Sync() // nolint

	nc, err := nats.Connect(url)
	if err != nil {
		zap.S().Fatalw("connect nats fail", "err", err)
	}
	defer nc.Drain() // nolint
	js, err := nc.JetStream()
	if err != nil {
		zap.S().Fatalw("jetstream fail", "err", err)
	}
	if err := feed.EnsureStream(js); err != nil {
		zap.S().Fatalw("ensure stream fail", "err", err)
	}

	w := &walker{
		mids:   map[string]decimal.Decimal{},
		spread: decimal.RequireFromString(spread),
		tick:   decimal.RequireFromString(tick),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, instrument := range strings.Split(instruments, ",") {
		w.mids[strings.TrimSpace(instrument)] = decimal.RequireFromString(start)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	begin := time.Now()
	sent := 0
loop:
	for total == 0 || sent < total {
		select {
		case <-sigs:
			break loop
		case now := <-ticker.C:
			if err := feed.PublishQuote(js, w.next(now.UTC())); err != nil {
				zap.S().Errorw("publish quote fail", "err", err)
				continue
			}
			sent++
		}
	}

	elapsed := time.Since(begin)
	zap.S().Infow("quotes published", "count", sent, "elapsed", elapsed)
}
