package trainings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/becomepro/backend/internal/auth"
	"github.com/becomepro/backend/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithSession(t *testing.T, method, target, body string, userID int) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.ContextWithSession(
		context.Background(),
		&auth.Session{Token: "t", UserID: userID},
	))
}

func TestSessionsHandler_Add(t *testing.T) {
	repo := newSessionsStoreMock()
	metricsManager := metrics.NewTestManager()
	handler := NewSessionsHandler(repo, metricsManager)

	req := requestWithSession(t, "POST", "/api/trainings/sessions",
		`{"startedAt":"2024-01-01T10:00:00Z","note":"legs"}`, 1)
	rr := httptest.NewRecorder()
	handler.HandleAdd(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp struct {
		Success bool            `json:"success"`
		Session *WorkoutSession `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Session)
	assert.Equal(t, 1, resp.Session.UserID)
	assert.Equal(t, "legs", resp.Session.Note)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterWorkoutSessions))
}

func TestSessionsHandler_Add_MissingStartedAt(t *testing.T) {
	handler := NewSessionsHandler(newSessionsStoreMock(), metrics.NewTestManager())

	req := requestWithSession(t, "POST", "/api/trainings/sessions", `{"note":"legs"}`, 1)
	rr := httptest.NewRecorder()
	handler.HandleAdd(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionsHandler_Add_NoIdentity(t *testing.T) {
	handler := NewSessionsHandler(newSessionsStoreMock(), metrics.NewTestManager())

	req := httptest.NewRequest("POST", "/api/trainings/sessions",
		strings.NewReader(`{"startedAt":"2024-01-01T10:00:00Z"}`))
	rr := httptest.NewRecorder()
	handler.HandleAdd(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionsHandler_Get_OtherUserLooksMissing(t *testing.T) {
	repo := newSessionsStoreMock()
	handler := NewSessionsHandler(repo, metrics.NewTestManager())

	added, err := repo.Add(context.Background(), WorkoutSession{
		UserID:    1,
		StartedAt: time.Now(),
	})
	require.NoError(t, err)

	// owner sees it
	req := requestWithSession(t, "GET", "/api/trainings/sessions/1", "", 1)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.HandleGet(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// another user gets the exact same 404 as for a nonexistent id
	req = requestWithSession(t, "GET", "/api/trainings/sessions/1", "", 2)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr = httptest.NewRecorder()
	handler.HandleGet(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	otherUserBody := rr.Body.String()

	req = requestWithSession(t, "GET", "/api/trainings/sessions/999", "", 1)
	req = mux.SetURLVars(req, map[string]string{"id": "999"})
	rr = httptest.NewRecorder()
	handler.HandleGet(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, otherUserBody, rr.Body.String())

	_ = added
}

func TestSessionsHandler_List_OnlyOwn(t *testing.T) {
	repo := newSessionsStoreMock()
	handler := NewSessionsHandler(repo, metrics.NewTestManager())

	now := time.Now()
	_, err := repo.Add(context.Background(), WorkoutSession{UserID: 1, StartedAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), WorkoutSession{UserID: 1, StartedAt: now})
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), WorkoutSession{UserID: 2, StartedAt: now})
	require.NoError(t, err)

	req := requestWithSession(t, "GET", "/api/trainings/sessions", "", 1)
	rr := httptest.NewRecorder()
	handler.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success  bool             `json:"success"`
		Sessions []WorkoutSession `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 2)
	// most recently started first
	assert.True(t, resp.Sessions[0].StartedAt.After(resp.Sessions[1].StartedAt))
	for _, s := range resp.Sessions {
		assert.Equal(t, 1, s.UserID)
	}
}

func TestSessionsHandler_UpdateDelete_OtherUser(t *testing.T) {
	repo := newSessionsStoreMock()
	handler := NewSessionsHandler(repo, metrics.NewTestManager())

	_, err := repo.Add(context.Background(), WorkoutSession{UserID: 1, StartedAt: time.Now()})
	require.NoError(t, err)

	req := requestWithSession(t, "PUT", "/api/trainings/sessions/1",
		`{"startedAt":"2024-01-01T10:00:00Z"}`, 2)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.HandleUpdate(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = requestWithSession(t, "DELETE", "/api/trainings/sessions/1", "", 2)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr = httptest.NewRecorder()
	handler.HandleDelete(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// still there for the owner
	session, err := repo.Get(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, session.UserID)
}
