package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/mperic/liftlog/internal/workouts"
	"github.com/mperic/liftlog/internal/workouts/stats"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) deleteAllWorkouts() {
	_, err := s.DB.Exec("DELETE FROM exercise_set")
	require.NoError(s.T(), err)
	_, err = s.DB.Exec("DELETE FROM exercise")
	require.NoError(s.T(), err)
	_, err = s.DB.Exec("DELETE FROM workout")
	require.NoError(s.T(), err)
}

func (s *IntegrationTestSuite) newWorkoutRequest(
	ctx context.Context,
	token string,
	workout workouts.NewWorkout,
) workouts.CreateWorkoutResponse {
	workoutJson, err := json.Marshal(workout)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/workouts", serverEndpoint),
		bytes.NewReader(workoutJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-LIFTLOG-TOKEN", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var createResp workouts.CreateWorkoutResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &createResp))
	require.NotEmpty(s.T(), createResp.ID)

	return createResp
}

func (s *IntegrationTestSuite) getWorkoutRequest(
	ctx context.Context,
	token, workoutID string,
) (*workouts.WorkoutDetails, int) {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/workouts/%s", serverEndpoint, workoutID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-LIFTLOG-TOKEN", token)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode
	}

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var details workouts.WorkoutDetails
	require.NoError(s.T(), json.Unmarshal(respBytes, &details))
	return &details, resp.StatusCode
}

func (s *IntegrationTestSuite) getCatalogRequest(ctx context.Context, token string) []stats.CatalogEntry {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/exercises", serverEndpoint),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-LIFTLOG-TOKEN", token)

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var catalog []stats.CatalogEntry
	require.NoError(s.T(), json.Unmarshal(respBytes, &catalog))
	return catalog
}

func (s *IntegrationTestSuite) TestWorkoutCRUD() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllWorkouts()
	token := s.doLogin(ctx, t)

	notes := gofakeit.Sentence(5)
	created := s.newWorkoutRequest(ctx, token, workouts.NewWorkout{
		Name:  "Push Day",
		Date:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Notes: &notes,
		Exercises: []workouts.NewExercise{
			{
				Name: "Bench Press",
				Sets: []workouts.NewSet{
					{Weight: 80, Reps: 8},
					{Weight: 85, Reps: 5},
				},
			},
			{
				Name: "Squat",
				Sets: []workouts.NewSet{
					{Weight: 100, Reps: 5},
				},
			},
		},
	})

	details, statusCode := s.getWorkoutRequest(ctx, token, created.ID)
	require.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, "Push Day", details.Name)
	require.NotNil(t, details.Notes)
	assert.Equal(t, notes, *details.Notes)
	require.Len(t, details.Exercises, 2)
	assert.Equal(t, "Bench Press", details.Exercises[0].Name)
	require.Len(t, details.Exercises[0].Sets, 2)
	assert.Equal(t, float64(80), details.Exercises[0].Sets[0].Weight)
	assert.Equal(t, 8, details.Exercises[0].Sets[0].Reps)
	assert.Equal(t, float64(85), details.Exercises[0].Sets[1].Weight)
	assert.Equal(t, "Squat", details.Exercises[1].Name)
	require.Len(t, details.Exercises[1].Sets, 1)

	t.Run("list", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/workouts", serverEndpoint), nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-LIFTLOG-TOKEN", token)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		defer resp.Body.Close()

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var list []workouts.Workout
		require.NoError(t, json.Unmarshal(respBytes, &list))
		require.Len(t, list, 1)
		assert.Equal(t, created.ID, list[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		newName := "Push Day - heavy"
		updateJson, err := json.Marshal(workouts.WorkoutUpdate{Name: &newName})
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"PUT", fmt.Sprintf("%s/workouts/%s", serverEndpoint, created.ID),
			bytes.NewReader(updateJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-LIFTLOG-TOKEN", token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		defer resp.Body.Close()

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var updateResp workouts.UpdateWorkoutResponse
		require.NoError(t, json.Unmarshal(respBytes, &updateResp))
		assert.Equal(t, created.ID, updateResp.UpdatedID)

		// name changed, other fields untouched
		updatedDetails, statusCode := s.getWorkoutRequest(ctx, token, created.ID)
		require.Equal(t, http.StatusOK, statusCode)
		assert.Equal(t, newName, updatedDetails.Name)
		require.NotNil(t, updatedDetails.Notes)
		assert.Equal(t, notes, *updatedDetails.Notes)
	})

	t.Run("delete", func(t *testing.T) {
		req, err := http.NewRequestWithContext(
			ctx,
			"DELETE", fmt.Sprintf("%s/workouts/%s", serverEndpoint, created.ID),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-LIFTLOG-TOKEN", token)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		defer resp.Body.Close()

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var deleteResp workouts.DeleteWorkoutResponse
		require.NoError(t, json.Unmarshal(respBytes, &deleteResp))
		assert.Equal(t, created.ID, deleteResp.DeletedID)

		_, statusCode := s.getWorkoutRequest(ctx, token, created.ID)
		assert.Equal(t, http.StatusNotFound, statusCode)
	})

	t.Run("get unknown workout", func(t *testing.T) {
		_, statusCode := s.getWorkoutRequest(ctx, token, "no-such-workout")
		assert.Equal(t, http.StatusNotFound, statusCode)
	})

	t.Run("no token", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/workouts", serverEndpoint), nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func (s *IntegrationTestSuite) TestStatsAndHistory() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllWorkouts()
	require.NoError(t, s.redisDataCleanup(ctx))
	token := s.doLogin(ctx, t)

	now := time.Now().UTC()
	yesterday := now.AddDate(0, 0, -1).Truncate(24 * time.Hour)
	twoDaysAgo := now.AddDate(0, 0, -2).Truncate(24 * time.Hour)

	s.newWorkoutRequest(ctx, token, workouts.NewWorkout{
		Name: "Push Day",
		Date: twoDaysAgo,
		Exercises: []workouts.NewExercise{
			{
				Name: "Bench Press",
				Sets: []workouts.NewSet{
					{Weight: 80, Reps: 8},
					{Weight: 85, Reps: 5},
				},
			},
			{
				Name: "Squat",
				Sets: []workouts.NewSet{
					{Weight: 100, Reps: 5},
				},
			},
		},
	})
	s.newWorkoutRequest(ctx, token, workouts.NewWorkout{
		Name: "Quick Bench",
		Date: yesterday,
		Exercises: []workouts.NewExercise{
			{
				Name: "Bench Press",
				Sets: []workouts.NewSet{
					{Weight: 90, Reps: 3},
				},
			},
		},
	})

	t.Run("exercise history", func(t *testing.T) {
		historyURL := fmt.Sprintf(
			"%s/exercises/history?name=%s",
			serverEndpoint, url.QueryEscape("Bench Press"),
		)
		req, err := http.NewRequestWithContext(ctx, "GET", historyURL, nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-LIFTLOG-TOKEN", token)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		defer resp.Body.Close()

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var history []stats.HistoryPoint
		require.NoError(t, json.Unmarshal(respBytes, &history))
		require.Len(t, history, 2)

		// heaviest set of each workout, oldest workout first
		assert.Equal(t, float64(85), history[0].Weight)
		assert.Equal(t, 5, history[0].Reps)
		assert.Equal(t, 2, history[0].Sets)
		assert.Equal(t, float64(90), history[1].Weight)
		assert.Equal(t, 3, history[1].Reps)
		assert.Equal(t, 1, history[1].Sets)
	})

	t.Run("workout stats", func(t *testing.T) {
		req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/stats", serverEndpoint), nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-LIFTLOG-TOKEN", token)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		defer resp.Body.Close()

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var workoutStats stats.WorkoutStats
		require.NoError(t, json.Unmarshal(respBytes, &workoutStats))

		// 80*8 + 85*5 + 100*5 + 90*3 = 2105
		assert.Equal(t, float64(2105), workoutStats.TotalVolume)
		assert.Equal(t, 2, workoutStats.WorkoutCount)
		assert.Equal(t, 2, workoutStats.ExerciseCount)
		assert.Equal(t, 2, workoutStats.Streak)
	})
}

func (s *IntegrationTestSuite) TestCatalogCaching() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllWorkouts()
	require.NoError(t, s.redisDataCleanup(ctx))
	token := s.doLogin(ctx, t)

	s.newWorkoutRequest(ctx, token, workouts.NewWorkout{
		Name: "Push Day",
		Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Exercises: []workouts.NewExercise{
			{
				Name: "Bench Press",
				Sets: []workouts.NewSet{{Weight: 80, Reps: 8}},
			},
		},
	})

	catalog := s.getCatalogRequest(ctx, token)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Bench Press", catalog[0].Name)
	assert.Equal(t, 1, catalog[0].Count)

	s.newWorkoutRequest(ctx, token, workouts.NewWorkout{
		Name: "Leg Day",
		Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Exercises: []workouts.NewExercise{
			{
				Name: "Squat",
				Sets: []workouts.NewSet{{Weight: 100, Reps: 5}},
			},
		},
	})

	// writes do not invalidate the catalog cache, the new
	// exercise shows up only after the cached entry expires
	cachedCatalog := s.getCatalogRequest(ctx, token)
	require.Len(t, cachedCatalog, 1)
	assert.Equal(t, "Bench Press", cachedCatalog[0].Name)

	require.NoError(t, s.redisDataCleanup(ctx))
	// the cache flush logged out the account as well
	token = s.doLogin(ctx, t)

	freshCatalog := s.getCatalogRequest(ctx, token)
	require.Len(t, freshCatalog, 2)
	assert.Equal(t, "Bench Press", freshCatalog[0].Name)
	assert.Equal(t, "Squat", freshCatalog[1].Name)
}
