package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/monitoring"
	"github.com/sells-group/indicator-cli/internal/store"
	"github.com/sells-group/indicator-cli/internal/workbook"
)

const banner = "indicator-cli API"

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.Enabled && env.store != nil {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.store),
				monitoring.NewAlerter(cfg.Monitoring, env.log),
				cfg.Monitoring,
				env.log,
			)
			go checker.Run(ctx)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the API routes.
func buildRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(env.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: env.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &apiHandler{env: env}
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(banner))
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/load-excel", h.loadExcel)
		r.Post("/analyze", h.analyze)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/stats", h.runStats)
		r.Get("/runs/{id}", h.getRun)
	})
	return r
}

type apiHandler struct {
	env *pipelineEnv
}

func (h *apiHandler) health(w http.ResponseWriter, _ *http.Request) {
	llm := h.env.client != nil
	_, statErr := os.Stat(h.env.cfg.Workbook.Path)

	body := map[string]string{
		"status":    "ok",
		"llm":       "configured",
		"workbook":  "found",
		"version":   version,
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	}
	if !llm {
		body["status"] = "warning"
		body["llm"] = "not configured: set INDICATOR_ANTHROPIC_KEY"
	}
	if statErr != nil {
		body["workbook"] = "not found"
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *apiHandler) loadExcel(w http.ResponseWriter, _ *http.Request) {
	path := h.env.cfg.Workbook.Path
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("workbook not found: %s", path))
		return
	}

	rows, err := workbook.LoadIndicators(path)
	if err != nil {
		h.env.log.Error("load workbook failed", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.env.log.Info("workbook loaded", zap.Int("indicators", len(rows)))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    rows,
		"total":   len(rows),
	})
}

func (h *apiHandler) analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Indicators []model.IndicatorRow `json:"indicators"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Indicators) == 0 {
		writeError(w, http.StatusBadRequest, "no indicators received")
		return
	}

	results, err := h.env.analyze(r.Context(), store.OriginAPI, specsFromRows(req.Indicators))
	if err != nil {
		h.env.log.Error("analyze failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

func (h *apiHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.env.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run log disabled")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Origin: q.Get("origin"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	runs, err := h.env.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"runs":    runs,
	})
}

func (h *apiHandler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.env.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run log disabled")
		return
	}

	run, err := h.env.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *apiHandler) runStats(w http.ResponseWriter, r *http.Request) {
	if h.env.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run log disabled")
		return
	}

	hours := h.env.cfg.Monitoring.LookbackWindowHours
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
		hours = n
	}

	snap, err := monitoring.NewCollector(h.env.store).Collect(r.Context(), hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}
