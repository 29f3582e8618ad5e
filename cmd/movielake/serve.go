package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/movielake/movielake/engine/evidence"
	"github.com/movielake/movielake/engine/query"
	"github.com/movielake/movielake/pkg/mid"
)

func newServeCmd(logger *slog.Logger) *cobra.Command {
	var (
		port       string
		corsOrigin string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(logger)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a, port, corsOrigin)
		},
	}

	cmd.Flags().StringVar(&port, "port", "8080", "listen port")
	cmd.Flags().StringVar(&corsOrigin, "cors-origin", "*", "Access-Control-Allow-Origin value")
	return cmd
}

func serve(ctx context.Context, a *app, port, corsOrigin string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", a.reg.Handler())
	mux.HandleFunc("POST /api/query", handleQuery(a))

	handler := mid.Chain(mux,
		mid.Recover(a.logger),
		mid.Logger(a.logger),
		mid.Metrics(a.reg),
		mid.CORS(corsOrigin),
		mid.OTel("movielake"),
	)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api server starting", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// QueryRequest is the JSON body for POST /api/query.
type QueryRequest struct {
	Question  string `json:"question"`
	K         int    `json:"k,omitempty"`
	Route     string `json:"route,omitempty"`
	PreferLLM bool   `json:"prefer_llm,omitempty"`
}

func handleQuery(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Question == "" {
			http.Error(w, `{"error":"question is required"}`, http.StatusBadRequest)
			return
		}

		res, err := a.svc.Query(r.Context(), req.Question, query.Opts{
			K:         req.K,
			Route:     evidence.Route(req.Route),
			PreferLLM: req.PreferLLM,
		})
		if err != nil {
			a.logger.Error("query failed", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		publishAudit(r.Context(), a, res)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}
