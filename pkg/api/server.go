package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ToyotakaTanaka/jiji2/pkg/engine"
	"github.com/ToyotakaTanaka/jiji2/pkg/logging"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/book"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/event"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/feed"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/model"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/repo"
	"github.com/ToyotakaTanaka/jiji2/pkg/trading/riskrule"
)

const maxBodyBytes = 1 << 20

// Service is the part of the engine exposed over HTTP.
type Service interface {
	SubmitOrder(ctx context.Context, id string, order *model.Order) (string, error)
	CancelOrder(ctx context.Context, id string) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	Evaluate(ctx context.Context, q *model.Quote) ([]*book.Trigger, error)
	PendingCount() int
}

type SubmitOrderRequest struct {
	ID    string       `json:"id"`
	Order *model.Order `json:"order"`
}

type OrderResponse struct {
	ID    string       `json:"id"`
	Order *model.Order `json:"order,omitempty"`
}

type QuoteResponse struct {
	Triggers []*event.TriggerMessage `json:"triggers"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Server struct {
	svc            Service
	router         *mux.Router
	allowedOrigins []string
}

func NewServer(svc Service, allowedOrigins []string) *Server {
	s := &Server{
		svc:            svc,
		router:         mux.NewRouter(),
		allowedOrigins: allowedOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods(http.MethodDelete)
	api.HandleFunc("/quotes", s.handleQuote).Methods(http.MethodPost)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
	})
	return c.Handler(s.router)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("api server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Order == nil {
		respondError(w, http.StatusBadRequest, "order is required", "")
		return
	}

	id, err := s.svc.SubmitOrder(r.Context(), req.ID, req.Order)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondStatus(w, http.StatusCreated, OrderResponse{ID: id, Order: req.Order})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	order, err := s.svc.GetOrder(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, OrderResponse{ID: id, Order: order})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.svc.CancelOrder(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, OrderResponse{ID: id})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	q, err := feed.DecodeQuote(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid quote", err.Error())
		return
	}

	triggers, err := s.svc.Evaluate(r.Context(), q)
	if err != nil && len(triggers) == 0 {
		respondServiceError(w, err)
		return
	}
	if err != nil {
		logger, ctx := logging.GetLogger(r.Context())
		logger.Warn(ctx, "quote evaluated with errors", zap.Error(err))
	}

	resp := QuoteResponse{Triggers: make([]*event.TriggerMessage, 0, len(triggers))}
	for _, t := range triggers {
		resp.Triggers = append(resp.Triggers, event.NewTriggerMessage(t))
	}
	respondJSON(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"status":  "ok",
		"pending": s.svc.PendingCount(),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}

func statusFor(err error) int {
	switch {
	case book.IsOrderNotFound(err), errors.Is(err, engine.ErrOrderNotFound):
		return http.StatusNotFound
	case book.IsDuplicateOrder(err),
		errors.Is(err, engine.ErrDuplicateOrder),
		errors.Is(err, repo.ErrOrderExists):
		return http.StatusConflict
	case book.IsStaleQuote(err):
		return http.StatusConflict
	case errors.Is(err, riskrule.ErrPriceBand), errors.Is(err, riskrule.ErrTickSize):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidField),
		errors.Is(err, model.ErrMissingField),
		errors.Is(err, model.ErrPriceNotSet),
		errors.Is(err, model.ErrGtdTimeNotSet),
		errors.Is(err, model.ErrNilQuote):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.S().Errorw("request failed", "err", err)
		respondError(w, status, "internal error", "")
		return
	}
	respondError(w, status, http.StatusText(status), err.Error())
}

func respondJSON(w http.ResponseWriter, v interface{}) {
	respondStatus(w, http.StatusOK, v)
}

func respondStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("write response fail", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg, details string) {
	respondStatus(w, status, ErrorResponse{Error: msg, Details: details})
}
