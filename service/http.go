package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"repocard/fetcher"
	"repocard/logger"
	"repocard/reference"
	"repocard/render"
)

// Handler serves cards over HTTP:
//
//	GET /card?repo=<url>[&format=text]
//	GET /healthz
//
// Every request drives its own controller, so nothing is shared or cached
// between requests.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/card", s.handleCard)

	return r
}

func (s *Service) handleCard(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("repo")

	ctrl := s.NewController()
	defer ctrl.Close()

	ctrl.SetReference(raw)
	st, err := ctrl.Wait(r.Context())
	if err != nil {
		// client went away
		return
	}

	status := statusFor(st)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, render.Card(st, render.Options{Plain: true}))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(render.NewView(st)); err != nil {
		logger.Warn("Failed to encode card", zap.Error(err))
	}
}

func statusFor(st fetcher.State) int {
	switch {
	case st.Phase == fetcher.Success:
		return http.StatusOK
	case errors.Is(st.Err, reference.ErrInvalidReference):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("Handled request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Service) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ServerAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: %v", ErrServiceShutdown, err)
	}
	return nil
}
