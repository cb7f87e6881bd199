//go:build integration_test || all_tests

package trainings

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/becomepro/backend/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trainingsTestEnv struct {
	pool     *pgxpool.Pool
	taxonomy *TaxonomyRepo
	sessions *SessionsRepo
	logs     *LogsRepo
	sets     *SetsRepo
	analyzer *Analyzer
}

func testEnvSetup(t *testing.T) (*trainingsTestEnv, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "becomepro",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	for _, table := range []string{
		"exercise_log_set", "exercise_log", "workout_session",
		"exercise", "exercise_category", "app_user",
	} {
		_, err := dbPool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}

	return &trainingsTestEnv{
			pool:     dbPool,
			taxonomy: NewTaxonomyRepo(dbPool),
			sessions: NewSessionsRepo(dbPool),
			logs:     NewLogsRepo(dbPool),
			sets:     NewSetsRepo(dbPool),
			analyzer: NewAnalyzer(dbPool),
		}, func() {
			dbPool.Close()
		}
}

func (env *trainingsTestEnv) addUser(t *testing.T) int {
	t.Helper()
	var id int
	err := env.pool.QueryRow(
		context.Background(),
		`INSERT INTO app_user (username, email, password_hash, first_name, last_name, capabilities)
			VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;`,
		gofakeit.Username(), gofakeit.Email(), "x",
		gofakeit.FirstName(), gofakeit.LastName(), []string{},
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func (env *trainingsTestEnv) addExercise(t *testing.T, name string) int {
	t.Helper()
	exercise, err := env.taxonomy.AddExercise(context.Background(), Exercise{Name: name})
	require.NoError(t, err)
	return exercise.ID
}

func TestSessionsRepo_CrossUserIsolation(t *testing.T) {
	env, shutdown := testEnvSetup(t)
	defer shutdown()

	ctx := context.Background()
	userA := env.addUser(t)
	userB := env.addUser(t)

	session, err := env.sessions.Add(ctx, WorkoutSession{
		UserID:    userA,
		StartedAt: time.Now(),
		Note:      gofakeit.Sentence(3),
	})
	require.NoError(t, err)
	require.NotZero(t, session.ID)

	// user B cannot see, update or delete user A's session
	_, err = env.sessions.Get(ctx, userB, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = env.sessions.Update(ctx, userB, WorkoutSession{
		ID:        session.ID,
		StartedAt: time.Now(),
		Note:      "overwritten",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = env.sessions.Delete(ctx, userB, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// and the owner still gets the original back
	got, err := env.sessions.Get(ctx, userA, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Note, got.Note)
	assert.Equal(t, userA, got.UserID)

	// a nonexistent id fails identically
	_, err = env.sessions.Get(ctx, userA, session.ID+12345)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLogsRepo_ConditionalInsert(t *testing.T) {
	env, shutdown := testEnvSetup(t)
	defer shutdown()

	ctx := context.Background()
	userA := env.addUser(t)
	userB := env.addUser(t)
	exerciseID := env.addExercise(t, "Squat")

	session, err := env.sessions.Add(ctx, WorkoutSession{UserID: userA, StartedAt: time.Now()})
	require.NoError(t, err)

	// creating a log under somebody else's session never produces a row
	_, err = env.logs.Add(ctx, userB, ExerciseLog{
		SessionID:  session.ID,
		ExerciseID: exerciseID,
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	logs, err := env.logs.ListBySession(ctx, userA, session.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	// the owner can
	added, err := env.logs.Add(ctx, userA, ExerciseLog{
		SessionID:  session.ID,
		ExerciseID: exerciseID,
		Note:       "working weight",
	})
	require.NoError(t, err)
	require.NotZero(t, added.ID)
	assert.False(t, added.CreatedAt.IsZero())

	logs, err = env.logs.ListBySession(ctx, userA, session.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "working weight", logs[0].Note)

	// unowned session listing is just as empty as an owned empty one
	logs, err = env.logs.ListBySession(ctx, userB, session.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSetsRepo_RoundTripAndChain(t *testing.T) {
	env, shutdown := testEnvSetup(t)
	defer shutdown()

	ctx := context.Background()
	userA := env.addUser(t)
	userB := env.addUser(t)
	exerciseID := env.addExercise(t, "Deadlift")

	session, err := env.sessions.Add(ctx, WorkoutSession{UserID: userA, StartedAt: time.Now()})
	require.NoError(t, err)
	log, err := env.logs.Add(ctx, userA, ExerciseLog{SessionID: session.ID, ExerciseID: exerciseID})
	require.NoError(t, err)

	// chain blocks user B one level deeper too
	_, err = env.sets.Add(ctx, userB, ExerciseLogSet{LogID: log.ID, SetOrder: 1, Reps: 5, WeightKg: 100})
	assert.ErrorIs(t, err, ErrLogNotFound)

	set, err := env.sets.Add(ctx, userA, ExerciseLogSet{LogID: log.ID, SetOrder: 1, Reps: 10, WeightKg: 50})
	require.NoError(t, err)
	require.NotZero(t, set.ID)
	require.False(t, set.CreatedAt.IsZero())

	got, err := env.sets.Get(ctx, userA, set.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SetOrder)
	assert.Equal(t, 10, got.Reps)
	assert.Equal(t, float64(50), got.WeightKg)

	_, err = env.sets.Get(ctx, userB, set.ID)
	assert.ErrorIs(t, err, ErrSetNotFound)

	err = env.sets.Update(ctx, userB, ExerciseLogSet{ID: set.ID, SetOrder: 1, Reps: 1, WeightKg: 1})
	assert.ErrorIs(t, err, ErrSetNotFound)
	err = env.sets.Delete(ctx, userB, set.ID)
	assert.ErrorIs(t, err, ErrSetNotFound)

	// duplicated set order is allowed
	_, err = env.sets.Add(ctx, userA, ExerciseLogSet{LogID: log.ID, SetOrder: 1, Reps: 8, WeightKg: 55})
	require.NoError(t, err)

	sets, err := env.sets.ListByLog(ctx, userA, log.ID)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
}

func TestAnalyzer_HistoryVolumeMax(t *testing.T) {
	env, shutdown := testEnvSetup(t)
	defer shutdown()

	ctx := context.Background()
	userA := env.addUser(t)
	userB := env.addUser(t)
	squatID := env.addExercise(t, "Squat")
	benchID := env.addExercise(t, "Bench Press")

	startedAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	session, err := env.sessions.Add(ctx, WorkoutSession{UserID: userA, StartedAt: startedAt})
	require.NoError(t, err)

	squatLog, err := env.logs.Add(ctx, userA, ExerciseLog{SessionID: session.ID, ExerciseID: squatID})
	require.NoError(t, err)
	benchLog, err := env.logs.Add(ctx, userA, ExerciseLog{SessionID: session.ID, ExerciseID: benchID})
	require.NoError(t, err)

	// insertion order differs from set order on purpose
	_, err = env.sets.Add(ctx, userA, ExerciseLogSet{LogID: squatLog.ID, SetOrder: 2, Reps: 8, WeightKg: 55})
	require.NoError(t, err)
	_, err = env.sets.Add(ctx, userA, ExerciseLogSet{LogID: squatLog.ID, SetOrder: 1, Reps: 10, WeightKg: 50})
	require.NoError(t, err)
	_, err = env.sets.Add(ctx, userA, ExerciseLogSet{LogID: benchLog.ID, SetOrder: 1, Reps: 10, WeightKg: 40})
	require.NoError(t, err)

	// another user's data on the same exercise must never leak in
	sessionB, err := env.sessions.Add(ctx, WorkoutSession{UserID: userB, StartedAt: startedAt})
	require.NoError(t, err)
	logB, err := env.logs.Add(ctx, userB, ExerciseLog{SessionID: sessionB.ID, ExerciseID: squatID})
	require.NoError(t, err)
	_, err = env.sets.Add(ctx, userB, ExerciseLogSet{LogID: logB.ID, SetOrder: 1, Reps: 1, WeightKg: 200})
	require.NoError(t, err)

	history, err := env.analyzer.History(ctx, userA, squatID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].SetOrder)
	assert.Equal(t, 2, history[1].SetOrder)

	maxResult, err := env.analyzer.MaxWeight(ctx, userA, squatID)
	require.NoError(t, err)
	require.NotNil(t, maxResult.MaxWeight)
	assert.Equal(t, float64(55), *maxResult.MaxWeight)

	// filtered volume: squat only, 10*50 + 8*55 = 940
	volume, err := env.analyzer.Volume(ctx, userA, &squatID)
	require.NoError(t, err)
	require.Len(t, volume, 1)
	require.NotNil(t, volume[0].ExerciseID)
	assert.Equal(t, squatID, *volume[0].ExerciseID)
	assert.Equal(t, float64(940), volume[0].Volume)

	// unfiltered volume collapses both exercises into one day bucket: 940 + 400
	volume, err = env.analyzer.Volume(ctx, userA, nil)
	require.NoError(t, err)
	require.Len(t, volume, 1)
	assert.Nil(t, volume[0].ExerciseID)
	assert.Equal(t, float64(1340), volume[0].Volume)

	// no sets for this exercise and user: null max, not an error
	userC := env.addUser(t)
	maxResult, err = env.analyzer.MaxWeight(ctx, userC, squatID)
	require.NoError(t, err)
	assert.Nil(t, maxResult.MaxWeight)

	history, err = env.analyzer.History(ctx, userC, squatID)
	require.NoError(t, err)
	assert.Empty(t, history)
}
