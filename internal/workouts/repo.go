package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mperic/liftlog/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrWorkoutNotFound = errors.New("workout not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) List(ctx context.Context, accountID string) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, date, notes, created_at
			FROM workout
			WHERE account_id = $1
			ORDER BY date DESC;`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return rows2workouts(rows)
}

func (r *Repo) Get(ctx context.Context, accountID, workoutID string) (_ *WorkoutDetails, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workoutID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, date, notes, created_at
			FROM workout
			WHERE id = $1 AND account_id = $2;`,
		workoutID, accountID,
	)
	if err != nil {
		return nil, err
	}

	workouts, err := rows2workouts(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(workouts) != 1 {
		return nil, ErrWorkoutNotFound
	}

	details := &WorkoutDetails{
		Workout:   workouts[0],
		Exercises: []Exercise{},
	}

	exRows, err := r.db.Query(
		ctx,
		`SELECT id, name FROM exercise WHERE workout_id = $1 ORDER BY position;`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}

	exerciseIndex := map[string]int{}
	for exRows.Next() {
		var e Exercise
		if err := exRows.Scan(&e.ID, &e.Name); err != nil {
			exRows.Close()
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		e.Sets = []Set{}
		exerciseIndex[e.ID] = len(details.Exercises)
		details.Exercises = append(details.Exercises, e)
	}
	exRows.Close()
	if err := exRows.Err(); err != nil {
		return nil, fmt.Errorf("exercise rows: %w", err)
	}

	setRows, err := r.db.Query(
		ctx,
		`SELECT s.id, s.exercise_id, s.weight, s.reps
			FROM exercise_set s
			JOIN exercise e ON s.exercise_id = e.id
			WHERE e.workout_id = $1
			ORDER BY e.position, s.position;`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var s Set
		var exerciseID string
		if err := setRows.Scan(&s.ID, &exerciseID, &s.Weight, &s.Reps); err != nil {
			return nil, fmt.Errorf("scan set: %w", err)
		}
		if i, ok := exerciseIndex[exerciseID]; ok {
			details.Exercises[i].Sets = append(details.Exercises[i].Sets, s)
		}
	}
	if err := setRows.Err(); err != nil {
		return nil, fmt.Errorf("set rows: %w", err)
	}

	return details, nil
}

// Create inserts the workout with all its exercises and sets in a single
// transaction. The returned error tells which stage failed.
func (r *Repo) Create(ctx context.Context, accountID string, workout NewWorkout) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	workoutID := uuid.NewString()
	if _, err = tx.Exec(
		ctx,
		`INSERT INTO workout (id, account_id, name, date, notes) VALUES ($1, $2, $3, $4, $5);`,
		workoutID, accountID, workout.Name, workout.Date, workout.Notes,
	); err != nil {
		return "", &StageError{Stage: StageWorkout, Err: err}
	}

	exerciseIDs := make([]string, len(workout.Exercises))
	exerciseBatch := &pgx.Batch{}
	for i, exercise := range workout.Exercises {
		exerciseIDs[i] = uuid.NewString()
		exerciseBatch.Queue(
			`INSERT INTO exercise (id, workout_id, name, position) VALUES ($1, $2, $3, $4);`,
			exerciseIDs[i], workoutID, exercise.Name, i,
		)
	}
	if err = tx.SendBatch(ctx, exerciseBatch).Close(); err != nil {
		return "", &StageError{Stage: StageExercises, Err: err}
	}

	setBatch := &pgx.Batch{}
	for i, exercise := range workout.Exercises {
		for j, set := range exercise.Sets {
			setBatch.Queue(
				`INSERT INTO exercise_set (id, exercise_id, weight, reps, position) VALUES ($1, $2, $3, $4, $5);`,
				uuid.NewString(), exerciseIDs[i], set.Weight, set.Reps, j,
			)
		}
	}
	if setBatch.Len() > 0 {
		if err = tx.SendBatch(ctx, setBatch).Close(); err != nil {
			return "", &StageError{Stage: StageSets, Err: err}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.String("workout.id", workoutID))
	return workoutID, nil
}

// Update changes only the supplied (non-nil) fields.
func (r *Repo) Update(ctx context.Context, accountID, workoutID string, update WorkoutUpdate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workoutID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET
				name = COALESCE($1::text, name),
				date = COALESCE($2::date, date),
				notes = COALESCE($3::text, notes)
			WHERE id = $4 AND account_id = $5;`,
		update.Name, update.Date, update.Notes,
		workoutID, accountID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

// Delete removes the workout with all its exercises and sets. Delete order:
// sets, exercises, workout; the first failing stage aborts the rest.
func (r *Repo) Delete(ctx context.Context, accountID, workoutID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", workoutID))

	if _, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise_set WHERE exercise_id IN (
				SELECT e.id FROM exercise e
				JOIN workout w ON e.workout_id = w.id
				WHERE w.id = $1 AND w.account_id = $2
			);`,
		workoutID, accountID,
	); err != nil {
		return &StageError{Stage: StageSets, Err: err}
	}

	if _, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise WHERE workout_id IN (
				SELECT id FROM workout WHERE id = $1 AND account_id = $2
			);`,
		workoutID, accountID,
	); err != nil {
		return &StageError{Stage: StageExercises, Err: err}
	}

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1 AND account_id = $2;`,
		workoutID, accountID,
	)
	if err != nil {
		return &StageError{Stage: StageWorkout, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

func (r *Repo) WorkoutIDs(ctx context.Context, accountID string) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.workoutIDs")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id FROM workout WHERE account_id = $1;`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

// ExerciseRow is one logged exercise, as used by the catalog build.
type ExerciseRow struct {
	ID   string
	Name string
}

// ExercisesForWorkouts returns every exercise row of the given workouts,
// oldest workout first, input order within a workout.
func (r *Repo) ExercisesForWorkouts(ctx context.Context, workoutIDs []string) (_ []ExerciseRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.exercisesForWorkouts")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workouts", len(workoutIDs)))

	rows, err := r.db.Query(
		ctx,
		`SELECT e.id, e.name
			FROM exercise e
			JOIN workout w ON e.workout_id = w.id
			WHERE e.workout_id = ANY($1)
			ORDER BY w.date, e.position;`,
		workoutIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := []ExerciseRow{}
	for rows.Next() {
		var e ExerciseRow
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return exercises, nil
}

// HistoryRow is one set of an exercise with its workout, as used by the
// exercise history build.
type HistoryRow struct {
	WorkoutID string
	Date      time.Time
	Weight    float64
	Reps      int
}

// HistoryRows returns every set logged under the exact exercise name,
// ordered by workout date ascending.
func (r *Repo) HistoryRows(ctx context.Context, accountID, exerciseName string) (_ []HistoryRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.historyRows")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.name", exerciseName))

	rows, err := r.db.Query(
		ctx,
		`SELECT w.id, w.date, s.weight, s.reps
			FROM workout w
			JOIN exercise e ON e.workout_id = w.id
			JOIN exercise_set s ON s.exercise_id = e.id
			WHERE w.account_id = $1 AND e.name = $2
			ORDER BY w.date, e.position, s.position;`,
		accountID, exerciseName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []HistoryRow{}
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.WorkoutID, &h.Date, &h.Weight, &h.Reps); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

// AggregateRow holds the SQL-side workout aggregates for a date window.
type AggregateRow struct {
	TotalVolume   float64
	WorkoutCount  int
	ExerciseCount int
}

func (r *Repo) Aggregate(ctx context.Context, accountID string, from time.Time) (_ *AggregateRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.aggregate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("from", from.Format("2006-01-02")))

	rows, err := r.db.Query(
		ctx,
		`SELECT
				COALESCE(SUM(s.weight * s.reps), 0),
				COUNT(DISTINCT w.id),
				COUNT(DISTINCT LOWER(e.name))
			FROM workout w
			LEFT JOIN exercise e ON e.workout_id = w.id
			LEFT JOIN exercise_set s ON s.exercise_id = e.id
			WHERE w.account_id = $1 AND w.date >= $2;`,
		accountID, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error, failed to get workout aggregates")
	}

	var agg AggregateRow
	if err := rows.Scan(&agg.TotalVolume, &agg.WorkoutCount, &agg.ExerciseCount); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &agg, nil
}

// Dates returns all workout dates of the account, newest first,
// duplicates included.
func (r *Repo) Dates(ctx context.Context, accountID string) (_ []time.Time, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.dates")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT date FROM workout WHERE account_id = $1 ORDER BY date DESC;`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dates, nil
}

func rows2workouts(rows pgx.Rows) ([]Workout, error) {
	workouts := []Workout{}
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.Name, &w.Date, &w.Notes, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}
