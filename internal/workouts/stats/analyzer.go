package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mperic/liftlog/internal/telemetry/tracing"
	"github.com/mperic/liftlog/internal/workouts"

	"go.opentelemetry.io/otel/attribute"
)

// CatalogEntry is one distinct exercise of an account: the first logged
// row id and casing of the name, plus how many times it was logged.
type CatalogEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// HistoryPoint is the heaviest set of one workout for a given exercise.
type HistoryPoint struct {
	Date      time.Time `json:"date"`
	Weight    float64   `json:"weight"`
	Reps      int       `json:"reps"`
	Sets      int       `json:"sets"`
	WorkoutID string    `json:"workoutId"`
}

type WorkoutStats struct {
	TotalVolume   float64 `json:"totalVolume"`
	WorkoutCount  int     `json:"workoutCount"`
	ExerciseCount int     `json:"exerciseCount"`
	Streak        int     `json:"streak"`
}

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=stats_test

type statsRepo interface {
	WorkoutIDs(ctx context.Context, accountID string) ([]string, error)
	ExercisesForWorkouts(ctx context.Context, workoutIDs []string) ([]workouts.ExerciseRow, error)
	HistoryRows(ctx context.Context, accountID, exerciseName string) ([]workouts.HistoryRow, error)
	Aggregate(ctx context.Context, accountID string, from time.Time) (*workouts.AggregateRow, error)
	Dates(ctx context.Context, accountID string) ([]time.Time, error)
}

type Analyzer struct {
	repo statsRepo
	// ability to inject the clock (for unit testing streaks and windows)
	NowFunc func() time.Time
}

func NewAnalyzer(repo statsRepo) *Analyzer {
	return &Analyzer{
		repo:    repo,
		NowFunc: time.Now,
	}
}

// BuildCatalog groups the account's exercise rows case-insensitively by
// name. Each entry keeps the id and casing of the first logged row.
// Entries come back sorted by name. No workouts means an empty catalog,
// without ever querying exercises.
func (a *Analyzer) BuildCatalog(ctx context.Context, accountID string) (_ []CatalogEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.stats.buildCatalog")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workoutIDs, err := a.repo.WorkoutIDs(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get workout ids: %w", err)
	}
	if len(workoutIDs) == 0 {
		return []CatalogEntry{}, nil
	}

	exerciseRows, err := a.repo.ExercisesForWorkouts(ctx, workoutIDs)
	if err != nil {
		return nil, fmt.Errorf("get exercises: %w", err)
	}

	grouped := map[string]*CatalogEntry{}
	for _, row := range exerciseRows {
		key := strings.ToLower(row.Name)
		if entry, ok := grouped[key]; ok {
			entry.Count++
		} else {
			grouped[key] = &CatalogEntry{
				ID:    row.ID,
				Name:  row.Name,
				Count: 1,
			}
		}
	}

	entries := make([]CatalogEntry, 0, len(grouped))
	for _, entry := range grouped {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	span.SetAttributes(attribute.Int("catalog.size", len(entries)))
	return entries, nil
}

// ExerciseHistory reduces each workout containing the exact exercise name
// to its heaviest set. A heavier set always wins; on equal weight the set
// with more reps wins, then the earlier logged one. Points come back
// ordered by workout date ascending. An unknown name yields an empty
// history, not an error.
func (a *Analyzer) ExerciseHistory(ctx context.Context, accountID, exerciseName string) (_ []HistoryPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.stats.exerciseHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.name", exerciseName))

	rows, err := a.repo.HistoryRows(ctx, accountID, exerciseName)
	if err != nil {
		return nil, fmt.Errorf("get history rows: %w", err)
	}

	history := []HistoryPoint{}
	pointIndex := map[string]int{}
	for _, row := range rows {
		i, ok := pointIndex[row.WorkoutID]
		if !ok {
			pointIndex[row.WorkoutID] = len(history)
			history = append(history, HistoryPoint{
				Date:      row.Date,
				Weight:    row.Weight,
				Reps:      row.Reps,
				Sets:      1,
				WorkoutID: row.WorkoutID,
			})
			continue
		}

		point := &history[i]
		point.Sets++
		if row.Weight > point.Weight ||
			(row.Weight == point.Weight && row.Reps > point.Reps) {
			point.Weight = row.Weight
			point.Reps = row.Reps
		}
	}

	return history, nil
}

// WorkoutStats aggregates the last `months` calendar months of workouts.
// The streak is computed over ALL workout dates, not just the window:
// consecutive days with at least one workout, counting back from
// yesterday. Today's workout never counts towards the streak.
func (a *Analyzer) WorkoutStats(ctx context.Context, accountID string, months int) (_ *WorkoutStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.stats.workoutStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("months", months))

	now := a.NowFunc()
	from := now.AddDate(0, -months, 0)

	agg, err := a.repo.Aggregate(ctx, accountID, from)
	if err != nil {
		return nil, fmt.Errorf("stats aggregate: %w", err)
	}

	dates, err := a.repo.Dates(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("workout dates: %w", err)
	}

	return &WorkoutStats{
		TotalVolume:   agg.TotalVolume,
		WorkoutCount:  agg.WorkoutCount,
		ExerciseCount: agg.ExerciseCount,
		Streak:        streak(now, dates),
	}, nil
}

func streak(now time.Time, dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	workoutDays := map[string]bool{}
	for _, d := range dates {
		workoutDays[d.Format("2006-01-02")] = true
	}

	count := 0
	for day := now.AddDate(0, 0, -1); workoutDays[day.Format("2006-01-02")]; day = day.AddDate(0, 0, -1) {
		count++
	}
	return count
}
