package trainings

import "time"

type ExerciseCategory struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Exercise struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	CategoryID  *int      `json:"categoryId"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WorkoutSession is the root of the ownership chain. The user that
// created it stays its owner, UserID is never updated afterwards.
type WorkoutSession struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExerciseLog records one exercise done within a session. It carries no
// owner of its own, the owner is the owner of its session.
type ExerciseLog struct {
	ID         int       `json:"id"`
	SessionID  int       `json:"sessionId"`
	ExerciseID int       `json:"exerciseId"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ExerciseLogSet is a single measured set within an exercise log.
// SetOrder is caller-supplied display order, duplicates and gaps are allowed.
type ExerciseLogSet struct {
	ID        int       `json:"id"`
	LogID     int       `json:"logId"`
	SetOrder  int       `json:"setOrder"`
	Reps      int       `json:"reps"`
	WeightKg  float64   `json:"weightKg"`
	CreatedAt time.Time `json:"createdAt"`
}
