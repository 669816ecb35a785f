// Package models holds the workout-domain records persisted by the backend.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ameet2r/workout/internal/parser"
)

// SetData is one performed set within a session exercise.
type SetData struct {
	Reps        int        `json:"reps"`
	Weight      *float64   `json:"weight,omitempty"`
	CompletedAt time.Time  `json:"completed_at"`
	RPE         *int       `json:"rpe,omitempty"` // rate of perceived exertion, 1-10
	Notes       *string    `json:"notes,omitempty"`
}

// SessionExercise ties a planned exercise version to the sets performed.
type SessionExercise struct {
	ExerciseVersionID string    `json:"exercise_version_id"`
	Sets              []SetData `json:"sets"`
}

// WorkoutSession is one logged training session. ActivitySummary and
// ActivityStart are set once a wearable activity file has been ingested for
// the session; the per-sample series live in the batch store, not here.
type WorkoutSession struct {
	ID              uuid.UUID                `json:"id"`
	PlanID          *string                  `json:"workout_plan_id,omitempty"`
	Exercises       []SessionExercise        `json:"exercises"`
	Notes           *string                  `json:"notes,omitempty"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         *time.Time               `json:"end_time,omitempty"`
	ActivitySummary *parser.ActivitySummary  `json:"activity_summary,omitempty"`
	ActivityStart   *time.Time               `json:"activity_start,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// NewWorkoutSession starts a session now.
func NewWorkoutSession() *WorkoutSession {
	now := time.Now().UTC()
	return &WorkoutSession{
		ID:        uuid.New(),
		Exercises: []SessionExercise{},
		StartTime: now,
		CreatedAt: now,
	}
}

// WithPlan links the session to a workout plan.
func (s *WorkoutSession) WithPlan(planID string) *WorkoutSession {
	s.PlanID = &planID
	return s
}

// WithNotes sets freeform notes.
func (s *WorkoutSession) WithNotes(notes string) *WorkoutSession {
	s.Notes = &notes
	return s
}

// Complete marks the session finished.
func (s *WorkoutSession) Complete(at time.Time) {
	s.EndTime = &at
}

// Exercise is a user-defined movement. Versions capture variations (grip,
// tempo, equipment) without losing history logged against older forms.
type Exercise struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	Versions    []ExerciseVersion `json:"versions"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ExerciseVersion is one concrete form of an exercise.
type ExerciseVersion struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewExercise creates an exercise with an initial default version.
func NewExercise(name string) *Exercise {
	now := time.Now().UTC()
	return &Exercise{
		ID:        uuid.New(),
		Name:      name,
		Versions:  []ExerciseVersion{{ID: uuid.New(), Label: "default", CreatedAt: now}},
		CreatedAt: now,
	}
}

// AddVersion appends a new version and returns it.
func (e *Exercise) AddVersion(label string) ExerciseVersion {
	v := ExerciseVersion{ID: uuid.New(), Label: label, CreatedAt: time.Now().UTC()}
	e.Versions = append(e.Versions, v)
	return v
}

// PlanExercise is one slot in a workout plan.
type PlanExercise struct {
	ExerciseVersionID string `json:"exercise_version_id"`
	TargetSets        int    `json:"target_sets"`
	TargetReps        int    `json:"target_reps"`
}

// WorkoutPlan is an ordered list of planned exercises.
type WorkoutPlan struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Exercises []PlanExercise `json:"exercises"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewWorkoutPlan creates an empty plan.
func NewWorkoutPlan(name string) *WorkoutPlan {
	return &WorkoutPlan{
		ID:        uuid.New(),
		Name:      name,
		Exercises: []PlanExercise{},
		CreatedAt: time.Now().UTC(),
	}
}
