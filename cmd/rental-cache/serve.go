package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/rental-cache/pkg/cache"
	"github.com/Sternrassler/rental-cache/pkg/metrics"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the health, metrics and admin invalidation HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, redisClient, err := a.connect()
			if err != nil {
				return err
			}
			defer redisClient.Close()

			if err := svc.Ping(ctx); err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			a.logger.Info().
				Str("redis_addr", redisClient.Options().Addr).
				Str("codec", a.cfg.Cache.Codec).
				Msg("Connected to Redis")

			server := &http.Server{
				Addr:              ":" + a.cfg.HTTPPort,
				Handler:           newMux(svc, a.logger),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", server.Addr).Msg("Starting admin server")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info().Msg("Shutting down admin server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func newMux(svc *cache.Service, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(svc))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /admin/invalidate", invalidateHandler(svc, logger))
	mux.HandleFunc("DELETE /admin/keys", deleteKeysHandler(svc, logger))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(svc *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := svc.Ping(ctx); err != nil {
			http.Error(w, "Redis not reachable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

type invalidateResponse struct {
	Pattern string `json:"pattern"`
	Deleted int64  `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

func invalidateHandler(svc *cache.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pattern := r.URL.Query().Get("pattern")

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		deleted, err := svc.InvalidatePattern(ctx, pattern)
		resp := invalidateResponse{Pattern: pattern, Deleted: deleted}
		if err != nil {
			resp.Error = err.Error()
		}

		status := statusFor(err)
		if status != http.StatusOK {
			logger.Warn().
				Err(err).
				Str("pattern", pattern).
				Int64("deleted", deleted).
				Msg("Admin invalidation failed")
		}

		writeJSON(w, status, resp)
	}
}

type deleteResponse struct {
	Keys  []string `json:"keys"`
	Error string   `json:"error,omitempty"`
}

func deleteKeysHandler(svc *cache.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := r.URL.Query()["key"]
		if len(keys) == 0 {
			writeJSON(w, http.StatusBadRequest, deleteResponse{Error: "missing key parameter"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		err := svc.Delete(ctx, keys...)
		resp := deleteResponse{Keys: keys}
		if err != nil {
			resp.Error = err.Error()
			logger.Warn().Err(err).Strs("keys", keys).Msg("Admin delete failed")
		}

		writeJSON(w, statusFor(err), resp)
	}
}

// statusFor maps cache errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, cache.ErrInvalidKey):
		return http.StatusBadRequest
	case cache.IsBackendUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
