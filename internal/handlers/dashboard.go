// Package handlers serves the web dashboard.
//
// Deprecated: the dashboard predates the CLI and is kept for users who
// still have it bookmarked. New surface area goes into the CLI commands;
// this package must stay a thin JSON veneer over the same analysis calls
// the CLI makes, with no formatting or calculation of its own.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/jwaldner/folio/internal/analysis"
	"github.com/jwaldner/folio/internal/loader"
	"github.com/jwaldner/folio/internal/models"
	"github.com/jwaldner/folio/internal/providers"
)

// Dashboard wires the portfolio file and analytics into HTTP handlers.
type Dashboard struct {
	portfolioPath string
	analyzer      *analysis.Analyzer
	provider      providers.MarketDataProvider
	log           zerolog.Logger
}

// NewDashboard creates the dashboard handler set.
func NewDashboard(portfolioPath string, analyzer *analysis.Analyzer,
	provider providers.MarketDataProvider, log zerolog.Logger) *Dashboard {
	return &Dashboard{
		portfolioPath: portfolioPath,
		analyzer:      analyzer,
		provider:      provider,
		log:           log.With().Str("component", "dashboard").Logger(),
	}
}

// Routes returns the dashboard router.
func (d *Dashboard) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", d.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", d.SummaryHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/positions/{ticker}", d.PositionsHandler).Methods(http.MethodGet)
	return r
}

// HealthHandler reports liveness.
func (d *Dashboard) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	d.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SummaryHandler recomputes and returns the portfolio summary. Every
// request is a fresh market data snapshot; nothing portfolio-shaped is
// cached between requests.
func (d *Dashboard) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	pf, err := loader.LoadCSV(d.portfolioPath, d.log)
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, err)
		return
	}

	md := providers.NewManager(d.provider, d.log)
	summary, err := d.analyzer.Summarize(r.Context(), pf, md, time.Now())
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, err)
		return
	}
	d.writeJSON(w, http.StatusOK, summary)
}

// PositionsHandler analyzes every position matching the ticker in the
// path, options included.
func (d *Dashboard) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	pf, err := loader.LoadCSV(d.portfolioPath, d.log)
	if err != nil {
		d.writeError(w, http.StatusInternalServerError, err)
		return
	}

	md := providers.NewManager(d.provider, d.log)
	asOf := time.Now()

	var results []models.PositionAnalysis
	for _, pos := range pf.Positions {
		if pos.PositionTicker() != ticker {
			continue
		}
		res, err := d.analyzer.Analyze(r.Context(), pos, md, pf, asOf)
		if err != nil {
			d.writeError(w, http.StatusBadGateway, err)
			return
		}
		results = append(results, res)
	}

	if len(results) == 0 {
		d.writeError(w, http.StatusNotFound, fmt.Errorf("no positions for ticker %s", ticker))
		return
	}
	d.writeJSON(w, http.StatusOK, results)
}

func (d *Dashboard) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		d.log.Error().Err(err).Msg("encoding response")
	}
}

func (d *Dashboard) writeError(w http.ResponseWriter, status int, err error) {
	d.log.Error().Err(err).Int("status", status).Msg("request failed")
	d.writeJSON(w, status, map[string]string{"error": err.Error()})
}
