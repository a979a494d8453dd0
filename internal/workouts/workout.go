package workouts

import (
	"fmt"
	"time"
)

type Workout struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Exercise struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

type Set struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// WorkoutDetails is a workout with its exercises and their sets,
// exercises and sets in the order they were logged.
type WorkoutDetails struct {
	Workout
	Exercises []Exercise `json:"exercises"`
}

type NewWorkout struct {
	Name      string        `json:"name"`
	Date      time.Time     `json:"date"`
	Notes     *string       `json:"notes,omitempty"`
	Exercises []NewExercise `json:"exercises"`
}

type NewExercise struct {
	Name string   `json:"name"`
	Sets []NewSet `json:"sets"`
}

type NewSet struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

// WorkoutUpdate carries a partial update, nil fields stay unchanged.
type WorkoutUpdate struct {
	Name  *string    `json:"name,omitempty"`
	Date  *time.Time `json:"date,omitempty"`
	Notes *string    `json:"notes,omitempty"`
}

const (
	StageWorkout   = "workout"
	StageExercises = "exercises"
	StageSets      = "sets"
)

// StageError tells which stage of a multi-step write failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
