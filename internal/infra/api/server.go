package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-prediction-backend/internal/config"
	"telegram-prediction-backend/internal/domain/ports/repository"
	"telegram-prediction-backend/internal/infra/telegram"
	"telegram-prediction-backend/internal/infra/ws"
	"telegram-prediction-backend/internal/usecase"
)

// maxWebhookBody bounds a webhook update; real updates are a few KB.
const maxWebhookBody = 1 << 20

// Server is the public HTTP surface: the mini-app store endpoints, the
// payment-provider webhook and the realtime socket.
type Server struct {
	cfg     *config.Config
	store   usecase.StoreUseCase
	users   repository.UserRepository
	updates *telegram.UpdateHandler
	hub     *ws.Hub
	log     *zerolog.Logger
	server  *http.Server
}

func NewServer(
	cfg *config.Config,
	store usecase.StoreUseCase,
	users repository.UserRepository,
	updates *telegram.UpdateHandler,
	hub *ws.Hub,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "APIServer").Logger()
	return &Server{cfg: cfg, store: store, users: users, updates: updates, hub: hub, log: &l}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(requireWebhookSecret(s.cfg.Bot.WebhookSecret))
		r.Post("/bot/webhook", s.handleWebhook)
	})

	r.Route("/store", func(r chi.Router) {
		r.Use(withIdentity(s.users))

		// The socket route carries no timeout; the hub's ping/pong
		// deadlines own that connection's lifecycle.
		r.Get("/ws", s.handleWS)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))
			r.Get("/", s.handleGetStore)
			r.Post("/get-invoice/{productID}", s.handleGetInvoice)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.HTTP.Port).Msg("public API listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	view, err := s.store.GetStore(r.Context(), u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	productID := chi.URLParam(r, "productID")

	url, err := s.store.GetInvoice(r.Context(), u, productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"invoiceUrl": url})
}

// handleWebhook always answers 200 once the body is read: Telegram retries
// non-2xx responses and the settlement path is idempotent, so redelivering
// a failed update buys nothing.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.updates.HandleUpdate(r.Context(), raw)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	s.hub.ServeUser(w, r, u.ID)
}
