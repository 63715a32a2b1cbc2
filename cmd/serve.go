package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/queue"
	"github.com/sells-group/leadscout/internal/store"
)

var (
	servePort    int
	serveWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and worker pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		workers := serveWorkers
		if workers == 0 {
			workers = cfg.Worker.Size
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		g, gCtx := errgroup.WithContext(ctx)

		pool := queue.NewPool(env.Store, env.Pipeline, queue.PoolOptions{
			Size:         workers,
			PollInterval: cfg.Worker.PollInterval(),
		})
		g.Go(func() error {
			if err := pool.Run(gCtx); gCtx.Err() == nil {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("workers", workers))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			_ = g.Wait()
			return eris.Wrap(err, "server listen")
		}
		return g.Wait()
	},
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		snap, err := env.Collector.Collect(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "metrics collection failed")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/leads/analyze", func(w http.ResponseWriter, req *http.Request) {
			var subject model.Subject
			if err := json.NewDecoder(req.Body).Decode(&subject); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			job, err := env.Queue.Enqueue(req.Context(), subject)
			if err != nil {
				var ve *model.ValidationError
				if errors.As(err, &ve) {
					writeError(w, http.StatusBadRequest, ve.Error())
					return
				}
				zap.L().Error("api: enqueue failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "could not create job")
				return
			}
			writeJSON(w, http.StatusAccepted, map[string]string{
				"job_id": job.ID,
				"status": string(job.Status),
			})
		})

		r.Get("/jobs", func(w http.ResponseWriter, req *http.Request) {
			filter := store.JobFilter{
				Status: model.JobStatus(strings.ToUpper(req.URL.Query().Get("status"))),
			}
			jobs, err := env.Queue.List(req.Context(), filter)
			if err != nil {
				zap.L().Error("api: list jobs failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "could not list jobs")
				return
			}
			writeJSON(w, http.StatusOK, jobs)
		})

		r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			job, err := env.Queue.Get(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeJSON(w, http.StatusOK, jobStatusResponse(job))
		})

		r.Get("/leads", func(w http.ResponseWriter, req *http.Request) {
			leads, err := env.Store.ListLeads(req.Context(), store.LeadFilter{
				Priority: req.URL.Query().Get("priority"),
			})
			if err != nil {
				zap.L().Error("api: list leads failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "could not list leads")
				return
			}
			writeJSON(w, http.StatusOK, leads)
		})

		r.Post("/leads/score", func(w http.ResponseWriter, req *http.Request) {
			var profile model.LeadProfile
			if err := json.NewDecoder(req.Body).Decode(&profile); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			writeJSON(w, http.StatusOK, env.Engine.Score(&profile))
		})

		r.Post("/leads/categorize", func(w http.ResponseWriter, req *http.Request) {
			var profiles []*model.LeadProfile
			if err := json.NewDecoder(req.Body).Decode(&profiles); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			writeJSON(w, http.StatusOK, env.Engine.Categorize(profiles))
		})
	})

	return r
}

// jobStatusResponse is the wire shape of a job status read: result and
// error are explicit nulls until set.
func jobStatusResponse(job *model.Job) map[string]any {
	resp := map[string]any{
		"id":       job.ID,
		"status":   job.Status,
		"progress": job.Progress,
		"result":   nil,
		"error":    nil,
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "embedded worker pool size (default from config)")
	rootCmd.AddCommand(serveCmd)
}
