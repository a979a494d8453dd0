package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mperic/liftlog/internal/auth"
	"github.com/mperic/liftlog/internal/telemetry/metrics"
	"github.com/mperic/liftlog/internal/telemetry/tracing"
	"github.com/mperic/liftlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	List(ctx context.Context, accountID string) ([]Workout, error)
	Get(ctx context.Context, accountID, workoutID string) (*WorkoutDetails, error)
	Create(ctx context.Context, accountID string, workout NewWorkout) (string, error)
	Update(ctx context.Context, accountID, workoutID string, update WorkoutUpdate) error
	Delete(ctx context.Context, accountID, workoutID string) error
}

type CreateWorkoutResponse struct {
	ID string `json:"id"`
}

type UpdateWorkoutResponse struct {
	UpdatedID string `json:"updatedId"`
}

type DeleteWorkoutResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo           workoutsRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo workoutsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workouts, err := handler.repo.List(ctx, accountID)
	if err != nil {
		log.Errorf("list workouts error: %s", err)
		http.Error(w, "failed to get workouts", http.StatusInternalServerError)
		return
	}

	workoutsJson, err := json.Marshal(workouts)
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutsJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	workout, err := handler.repo.Get(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			log.Debugf("workout %s not found", id)
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get workout %s: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	workoutJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("failed to marshal workout: %s", err)
		http.Error(w, "failed to marshal workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutJson, http.StatusOK)
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.create")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var workout NewWorkout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if err := validateNewWorkout(workout); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	workoutID, err := handler.repo.Create(ctx, accountID, workout)
	if err != nil {
		// the session can outlive the account
		if pkg.IsForeignKeyViolationError(err) {
			log.Warnf("new workout for removed account %s", accountID)
			http.Error(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("failed to add new workout [%s]: %s", workout.Name, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterWorkoutsCreated.Inc()

	createRespJson, err := json.Marshal(CreateWorkoutResponse{
		ID: workoutID,
	})
	if err != nil {
		log.Errorf("failed to marshal create response: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %s", workoutID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, createRespJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	var update WorkoutUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Errorf("update workout, unmarshal json params: %s", err)
		http.Error(w, "update workout failed", http.StatusBadRequest)
		return
	}

	if update.Name != nil && *update.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}
	if update.Date != nil && update.Date.IsZero() {
		http.Error(w, "error, date empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, accountID, id, update); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			log.Debugf("workout %s not found", id)
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update workout [%s]: %s", id, err)
		http.Error(w, "error, failed to update workout", http.StatusInternalServerError)
		return
	}

	updateRespJson, err := json.Marshal(UpdateWorkoutResponse{
		UpdatedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	log.Debugf("workout updated: %s", id)
	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	accountID, ok := auth.AccountIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, accountID, id); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			log.Debugf("workout %s not found", id)
			http.Error(w, "workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete workout %s: %s", id, err)
		http.Error(w, "workout not deleted", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterWorkoutsDeleted.Inc()

	deleteRespJson, err := json.Marshal(DeleteWorkoutResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func validateNewWorkout(workout NewWorkout) error {
	if workout.Name == "" {
		return errors.New("error, name empty")
	}
	if workout.Date.IsZero() {
		return errors.New("error, date empty")
	}
	if len(workout.Exercises) == 0 {
		return errors.New("exercises required")
	}
	for _, exercise := range workout.Exercises {
		if exercise.Name == "" {
			return errors.New("error, exercise name empty")
		}
		for _, set := range exercise.Sets {
			if set.Weight < 0 {
				return fmt.Errorf("error, negative weight for exercise %s", exercise.Name)
			}
			if set.Reps < 0 {
				return fmt.Errorf("error, negative reps for exercise %s", exercise.Name)
			}
		}
	}
	return nil
}
