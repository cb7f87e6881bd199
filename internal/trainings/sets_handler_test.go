package trainings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/becomepro/backend/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setsTestSetup(t *testing.T) (*setsStoreMock, *SetsHandler, *metrics.Manager) {
	t.Helper()
	sessions := newSessionsStoreMock()
	logs := newLogsStoreMock(sessions)
	sets := newSetsStoreMock(logs)

	ctx := context.Background()
	_, err := sessions.Add(ctx, WorkoutSession{UserID: 1, StartedAt: time.Now()})
	require.NoError(t, err)
	_, err = logs.Add(ctx, 1, ExerciseLog{SessionID: 1, ExerciseID: 3})
	require.NoError(t, err)

	metricsManager := metrics.NewTestManager()
	return sets, NewSetsHandler(sets, metricsManager), metricsManager
}

func TestSetsHandler_AddAndReadBack(t *testing.T) {
	_, handler, metricsManager := setsTestSetup(t)

	req := requestWithSession(t, "POST", "/api/trainings/logs/1/sets",
		`{"setOrder":1,"reps":10,"weightKg":50}`, 1)
	req = mux.SetURLVars(req, map[string]string{"logId": "1"})
	rr := httptest.NewRecorder()
	handler.HandleAdd(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		Success bool            `json:"success"`
		Set     *ExerciseLogSet `json:"set"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Set)
	assert.NotZero(t, resp.Set.ID)
	assert.False(t, resp.Set.CreatedAt.IsZero())
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterExerciseSets))

	// read back yields the same three fields
	req = requestWithSession(t, "GET", "/api/trainings/sets/1", "", 1)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr = httptest.NewRecorder()
	handler.HandleGet(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Set)
	assert.Equal(t, 1, resp.Set.SetOrder)
	assert.Equal(t, 10, resp.Set.Reps)
	assert.Equal(t, float64(50), resp.Set.WeightKg)
}

func TestSetsHandler_Add_Validation(t *testing.T) {
	sets, handler, _ := setsTestSetup(t)

	for _, body := range []string{
		`{"setOrder":1,"reps":-1,"weightKg":50}`,
		`{"setOrder":1,"reps":10,"weightKg":-0.5}`,
	} {
		req := requestWithSession(t, "POST", "/api/trainings/logs/1/sets", body, 1)
		req = mux.SetURLVars(req, map[string]string{"logId": "1"})
		rr := httptest.NewRecorder()
		handler.HandleAdd(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	}
	assert.Empty(t, sets.sets)
}

func TestSetsHandler_Add_UnownedLogProducesNoRow(t *testing.T) {
	sets, handler, _ := setsTestSetup(t)

	req := requestWithSession(t, "POST", "/api/trainings/logs/1/sets",
		`{"setOrder":1,"reps":10,"weightKg":50}`, 2)
	req = mux.SetURLVars(req, map[string]string{"logId": "1"})
	rr := httptest.NewRecorder()
	handler.HandleAdd(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, sets.sets)
}

func TestSetsHandler_List_SetOrderAscending(t *testing.T) {
	sets, handler, _ := setsTestSetup(t)

	ctx := context.Background()
	// insertion order deliberately differs from set order
	_, err := sets.Add(ctx, 1, ExerciseLogSet{LogID: 1, SetOrder: 2, Reps: 8, WeightKg: 55})
	require.NoError(t, err)
	_, err = sets.Add(ctx, 1, ExerciseLogSet{LogID: 1, SetOrder: 1, Reps: 10, WeightKg: 50})
	require.NoError(t, err)

	req := requestWithSession(t, "GET", "/api/trainings/logs/1/sets", "", 1)
	req = mux.SetURLVars(req, map[string]string{"logId": "1"})
	rr := httptest.NewRecorder()
	handler.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success bool             `json:"success"`
		Sets    []ExerciseLogSet `json:"sets"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Sets, 2)
	assert.Equal(t, 1, resp.Sets[0].SetOrder)
	assert.Equal(t, 2, resp.Sets[1].SetOrder)
}

func TestSetsHandler_UpdateDelete_OtherUser(t *testing.T) {
	sets, handler, _ := setsTestSetup(t)

	ctx := context.Background()
	_, err := sets.Add(ctx, 1, ExerciseLogSet{LogID: 1, SetOrder: 1, Reps: 10, WeightKg: 50})
	require.NoError(t, err)

	req := requestWithSession(t, "PUT", "/api/trainings/sets/1",
		`{"setOrder":1,"reps":1,"weightKg":1}`, 2)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.HandleUpdate(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = requestWithSession(t, "DELETE", "/api/trainings/sets/1", "", 2)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr = httptest.NewRecorder()
	handler.HandleDelete(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	set, err := sets.Get(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, set.Reps)
	assert.Equal(t, float64(50), set.WeightKg)
}
