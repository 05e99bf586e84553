package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/logging"
	fixcodec "github.com/ToyotakaTanaka/jiji2/pkg/trading/fix"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

// InitiatorApp sends one NewOrderSingle per logon.
type InitiatorApp struct {
	order *model.Order
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	zap.S().Infow("logon", "session", sessionID.String())
	if err := a.send(sessionID); err != nil {
		zap.S().Errorw("send order fail", "err", err)
	}
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID)                       {}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}
func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	msgType, _ := msg.MsgType()
	zap.S().Infow("received", "msg_type", msgType)
	return nil
}

func (a *InitiatorApp) send(sessionID quickfix.SessionID) error {
	clOrdID := uuid.NewString()
	msg, err := fixcodec.ToNewOrderSingle(clOrdID, a.order, time.Now())
	if err != nil {
		return err
	}
	msg.SetSenderCompID(sessionID.SenderCompID)
	msg.SetTargetCompID(sessionID.TargetCompID)
	if err := quickfix.Send(msg); err != nil {
		return err
	}
	zap.S().Infow("order sent", "cl_ord_id", clOrdID, "instrument", a.order.Instrument,
		"side", a.order.Side, "type", a.order.Type)
	return nil
}

func main() {
	var cfgPath, instrument, side, orderType, price, units string
	flag.StringVar(&cfgPath, "cfg", "config/fixclient.cfg", "quickfix initiator settings")
	flag.StringVar(&instrument, "instrument", "EURJPY", "instrument")
	flag.StringVar(&side, "side", string(model.OrderSideBuy), "buy or sell")
	flag.StringVar(&orderType, "type", string(model.OrderTypeLimit), "market, limit, stop or marketIfTouched")
	flag.StringVar(&price, "price", "", "trigger price")
	flag.StringVar(&units, "units", "10000", "units")
	flag.Parse()

	logging.Init(logging.INFO)
	defer zap.L().Sync() // nolint

	order := model.NewOrder(instrument, decimal.RequireFromString(units),
		model.OrderSide(side), model.OrderType(orderType), decimal.NullDecimal{})
	if price != "" {
		p, err := decimal.NewFromString(price)
		if err != nil {
			zap.S().Fatalw("bad price", "price", price, "err", err)
		}
		order.SetPrice(p)
	}
	if err := order.Validate(); err != nil {
		zap.S().Fatalw("invalid order", "err", err)
	}

	cfg, err := os.Open(cfgPath)
	if err != nil {
		zap.S().Fatal(err)
	}
	defer cfg.Close() // nolint

	settings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		zap.S().Fatal(err)
	}

	logFactory, err := quickfix.NewFileLogFactory(settings)
	if err != nil {
		zap.S().Fatal(err)
	}
	initiator, err := quickfix.NewInitiator(&InitiatorApp{order: order}, quickfix.NewMemoryStoreFactory(), settings, logFactory)
	if err != nil {
		zap.S().Fatal(err)
	}
	if err := initiator.Start(); err != nil {
		zap.S().Fatal(err)
	}
	defer initiator.Stop()
	zap.S().Info("initiator started")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}
