package server

import (
	"context"
	"net/http"
	"time"

	"dietitian-bot/internal/bot"
	"dietitian-bot/pkg/logger"
)

// Server exposes the payment webhook and a health probe. All chat
// traffic arrives over long polling, not HTTP.
type Server struct {
	server *http.Server
	logger *logger.Logger
}

func NewServer(port string, webhooks *bot.WebhookHandler, l *logger.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/webhook/stripe", webhooks.HandleStripeWebhook)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: l,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
