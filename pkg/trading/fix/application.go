package fixcodec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
)

// OrderIntake receives orders decoded from FIX sessions.
type OrderIntake interface {
	AddOrder(id string, order *model.Order) (string, error)
}

// Application implements the quickfix.Application interface
type Application struct {
	*quickfix.MessageRouter
	intake     OrderIntake
	dispatcher chan *inboundMsg
	drained    chan struct{}

	mu       sync.Mutex
	acceptor *quickfix.Acceptor
	stopOnce sync.Once
}

type inboundMsg struct {
	msg       *quickfix.Message
	sessionID quickfix.SessionID
}

const queueSize = 100_000

func NewApplication(intake OrderIntake, enableQueue bool) *Application {
	app := &Application{
		MessageRouter: quickfix.NewMessageRouter(),
		intake:        intake,
	}
	app.AddRoute(newordersingle.Route(app.onNewOrderSingle))

	if enableQueue {
		app.dispatcher = make(chan *inboundMsg, queueSize)
		app.drained = make(chan struct{})
		go app.runDispatcher()
	}
	return app
}

// Start runs a FIX acceptor configured by the quickfix settings file until Stop.
func Start(configFilepath string, app *Application) error {
	cfg, err := os.Open(configFilepath)
	if err != nil {
		return fmt.Errorf("error opening %v, %v", configFilepath, err)
	}
	defer cfg.Close() // nolint

	stringData, readErr := io.ReadAll(cfg)
	if readErr != nil {
		return fmt.Errorf("error reading cfg: %s,", readErr)
	}

	appSettings, err := quickfix.ParseSettings(bytes.NewReader(stringData))
	if err != nil {
		return fmt.Errorf("error reading cfg: %s,", err)
	}

	logFactory, err := quickfix.NewFileLogFactory(appSettings)
	if err != nil {
		return fmt.Errorf("unable to create log factory: %s", err)
	}
	acceptor, err := quickfix.NewAcceptor(app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return fmt.Errorf("unable to create acceptor: %s", err)
	}

	if err = acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %s", err)
	}

	app.mu.Lock()
	app.acceptor = acceptor
	app.mu.Unlock()
	return nil
}

// Stop shuts the acceptor down and waits for queued messages to be routed.
func (a *Application) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		acceptor := a.acceptor
		a.mu.Unlock()
		if acceptor != nil {
			acceptor.Stop()
		}

		if a.dispatcher != nil {
			close(a.dispatcher)
			<-a.drained
		}
	})
}

// OnCreate implemented as part of Application interface
func (a *Application) OnCreate(sessionID quickfix.SessionID) {}

// OnLogon implemented as part of Application interface
func (a *Application) OnLogon(sessionID quickfix.SessionID) {
	zap.S().Infow("fix logon", "session", sessionID.String())
}

// OnLogout implemented as part of Application interface
func (a *Application) OnLogout(sessionID quickfix.SessionID) {
	zap.S().Infow("fix logout", "session", sessionID.String())
}

// ToAdmin implemented as part of Application interface
func (a *Application) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}

// ToApp implemented as part of Application interface
func (a *Application) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}

// FromAdmin implemented as part of Application interface
func (a *Application) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

// FromApp implemented as part of Application interface, uses Router on incoming application messages
func (a *Application) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	if a.dispatcher != nil {
		a.dispatcher <- &inboundMsg{msg, sessionID}
		return nil
	}
	return a.Route(msg, sessionID)
}

func (a *Application) runDispatcher() {
	defer close(a.drained)
	for m := range a.dispatcher {
		if err := a.Route(m.msg, m.sessionID); err != nil {
			zap.S().Errorw("route fix message fail", "session", m.sessionID.String(), "err", err)
		}
	}
}

func (a *Application) onNewOrderSingle(msg newordersingle.NewOrderSingle, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, rejectErr := msg.GetClOrdID()
	if rejectErr != nil {
		return rejectErr
	}

	order, err := FromNewOrderSingle(msg)
	if err != nil {
		if rejectErr, ok := err.(quickfix.MessageRejectError); ok {
			return rejectErr
		}
		var valueErr *valueError
		if errors.As(err, &valueErr) {
			return quickfix.ValueIsIncorrect(valueErr.tag)
		}
		return quickfix.NewBusinessMessageRejectError(err.Error(), 0, nil)
	}

	if _, err := a.intake.AddOrder(clOrdID, order); err != nil {
		zap.S().Warnw("reject fix order", "cl_ord_id", clOrdID, "err", err)
		return quickfix.NewBusinessMessageRejectError(err.Error(), 0, nil)
	}
	return nil
}
