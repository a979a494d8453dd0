package stats

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mperic/liftlog/internal/auth"
	"github.com/mperic/liftlog/internal/telemetry/tracing"
	"github.com/mperic/liftlog/pkg"

	log "github.com/sirupsen/logrus"
)

const defaultStatsMonths = 3

type Handler struct {
	service  *Service
	analyzer *Analyzer
}

func NewHandler(service *Service, analyzer *Analyzer) *Handler {
	return &Handler{
		service:  service,
		analyzer: analyzer,
	}
}

func (handler *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.catalog")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	catalog, err := handler.service.Catalog(ctx, accountID)
	if err != nil {
		log.Errorf("failed to get exercise catalog: %s", err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	catalogJson, err := json.Marshal(catalog)
	if err != nil {
		log.Errorf("failed to marshal exercise catalog: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, catalogJson, http.StatusOK)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.history")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	exerciseName := r.URL.Query().Get("name")
	if exerciseName == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	history, err := handler.analyzer.ExerciseHistory(ctx, accountID, exerciseName)
	if err != nil {
		log.Errorf("failed to get exercise history [%s]: %s", exerciseName, err)
		http.Error(w, "failed to get exercise history", http.StatusInternalServerError)
		return
	}

	historyJson, err := json.Marshal(history)
	if err != nil {
		log.Errorf("failed to marshal exercise history: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, historyJson, http.StatusOK)
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.stats")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	months := defaultStatsMonths
	if monthsStr := r.URL.Query().Get("months"); monthsStr != "" {
		var err error
		months, err = strconv.Atoi(monthsStr)
		if err != nil {
			http.Error(w, "error, months NaN", http.StatusBadRequest)
			return
		}
		if months < 1 {
			http.Error(w, "error, months must be positive", http.StatusBadRequest)
			return
		}
	}

	workoutStats, err := handler.analyzer.WorkoutStats(ctx, accountID, months)
	if err != nil {
		log.Errorf("failed to get workout stats: %s", err)
		http.Error(w, "failed to get workout stats", http.StatusInternalServerError)
		return
	}

	statsJson, err := json.Marshal(workoutStats)
	if err != nil {
		log.Errorf("failed to marshal workout stats: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, statsJson, http.StatusOK)
}
