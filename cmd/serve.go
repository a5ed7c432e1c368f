package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarly-group/paper-pipeline/internal/paper"
	"github.com/scholarly-group/paper-pipeline/internal/pipeline"
	"github.com/scholarly-group/paper-pipeline/internal/progress"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pipeline HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		papers := paper.NewMemoryStore()
		env, err := initPipeline(ctx, papers, paper.FixedCredits{Balance: 1_000_000}, true)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/status", statusHandler(env))
		r.Post("/papers", uploadHandler(papers))
		r.Post("/papers/{paperID}/analyze", analyzeHandler(env))
		r.Get("/papers/{paperID}/events", eventsHandler(env.Broadcaster))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(cmd.Context())
			env.Launcher.Wait()
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// uploadHandler seeds the in-process paper store. Production deployments
// replace the store with the owning document service.
func uploadHandler(papers *paper.MemoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OwnerID     string `json:"ownerId"`
			Title       string `json:"title"`
			TextContent string `json:"textContent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		ownerID, err := uuid.Parse(req.OwnerID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ownerId must be a uuid"})
			return
		}
		if req.TextContent == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "textContent is required"})
			return
		}

		doc := &paper.Document{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			Title:       req.Title,
			TextContent: req.TextContent,
			Status:      paper.StatusUploaded,
			UploadedAt:  time.Now().UTC(),
		}
		papers.Put(doc)
		writeJSON(w, http.StatusCreated, map[string]string{"paperId": doc.ID.String()})
	}
}

func analyzeHandler(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"userId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		decision, err := env.Launcher.Launch(r.Context(), pipeline.RunParams{
			"paperId": chi.URLParam(r, "paperID"),
			"userId":  req.UserID,
		})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if !decision.Accepted {
			writeJSON(w, http.StatusTooManyRequests, decision)
			return
		}
		writeJSON(w, http.StatusAccepted, decision)
	}
}

// eventsHandler adapts the progress broadcaster to an SSE stream. The
// subscription is removed when the client disconnects.
func eventsHandler(broadcaster *progress.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, err := uuid.Parse(chi.URLParam(r, "paperID"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "paperID must be a uuid"})
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		events := make(chan progress.Update, 16)
		handle := uuid.NewString()
		broadcaster.Subscribe(docID, handle, uuid.Nil, func(u progress.Update) error {
			select {
			case events <- u:
				return nil
			default:
				return eris.New("subscriber channel full")
			}
		})
		defer broadcaster.Unsubscribe(docID, handle)

		for {
			select {
			case <-r.Context().Done():
				return
			case u := <-events:
				payload, err := json.Marshal(u)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}

func statusHandler(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		exec := env.Orchestrator.Executor()
		states := make(map[string]string)
		for stage, state := range exec.Breakers().States() {
			states[stage] = state.String()
		}
		pool := env.Launcher.Pool()
		writeJSON(w, http.StatusOK, map[string]any{
			"circuit_breakers": states,
			"rate_limiters":    exec.Limiters().Snapshot(),
			"retry_stats":      exec.Stats().Snapshot(),
			"load": map[string]any{
				"level":  pool.Load(),
				"active": pool.Active(),
				"max":    pool.Max(),
			},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
