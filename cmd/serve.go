package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
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

	"github.com/TextQLLabs/market-cap-tracker/internal/dataset"
	"github.com/TextQLLabs/market-cap-tracker/internal/model"
	"github.com/TextQLLabs/market-cap-tracker/internal/report"
	"github.com/TextQLLabs/market-cap-tracker/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset and run history over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a := &api{data: initDataset(), runs: st}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           a.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// api serves the dataset file and the run log. The dataset is re-read on
// every request so merges made by a concurrent collect are visible.
type api struct {
	data *dataset.Store
	runs store.Store
	now  func() time.Time
}

func (a *api) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", a.listCompanies)
		r.Get("/{ticker}", a.getCompany)
	})
	r.Get("/stats", a.stats)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", a.listRuns)
		r.Get("/{id}", a.getRun)
	})
	return r
}

type apiResponse struct {
	Data  any       `json:"data"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: err.Error()}})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := a.runs.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type companySummary struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	FirstPublicYear int    `json:"first_public_year"`
	Points          int    `json:"points"`
}

func (a *api) listCompanies(w http.ResponseWriter, r *http.Request) {
	ds, err := a.data.Load(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", err)
		return
	}
	out := make([]companySummary, 0, len(ds.Companies))
	for _, t := range ds.Tickers() {
		c, _ := ds.Company(t)
		out = append(out, companySummary{
			Ticker:          t,
			Name:            c.Name,
			FirstPublicYear: c.FirstPublicYear,
			Points:          len(c.History),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getCompany(w http.ResponseWriter, r *http.Request) {
	ds, err := a.data.Load(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", err)
		return
	}
	ticker := chi.URLParam(r, "ticker")
	c, ok := ds.Company(ticker)
	if !ok {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", eris.Errorf("unknown company %q", ticker))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	through := a.clock().Year()
	if v := r.URL.Query().Get("through"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", eris.Errorf("invalid through %q", v))
			return
		}
		through = n
	}
	ds, err := a.data.Load(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", err)
		return
	}
	writeJSON(w, http.StatusOK, report.Compute(ds, through))
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Ticker: q.Get("ticker"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", eris.Errorf("invalid limit %q", v))
			return
		}
		filter.Limit = n
	}
	runs, err := a.runs.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *api) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}
