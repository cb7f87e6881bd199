package trainings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/becomepro/backend/internal/telemetry/metrics"
	"github.com/becomepro/backend/internal/telemetry/tracing"
	"github.com/becomepro/backend/pkg"

	log "github.com/sirupsen/logrus"
)

type sessionsStore interface {
	Add(ctx context.Context, session WorkoutSession) (*WorkoutSession, error)
	List(ctx context.Context, userID int) ([]WorkoutSession, error)
	Get(ctx context.Context, userID, id int) (*WorkoutSession, error)
	Update(ctx context.Context, userID int, session WorkoutSession) error
	Delete(ctx context.Context, userID, id int) error
}

type SessionsHandler struct {
	repo    sessionsStore
	metrics *metrics.Manager
}

func NewSessionsHandler(repo sessionsStore, metrics *metrics.Manager) *SessionsHandler {
	return &SessionsHandler{
		repo:    repo,
		metrics: metrics,
	}
}

type sessionRequest struct {
	StartedAt time.Time `json:"startedAt"`
	Note      string    `json:"note"`
}

func (handler *SessionsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sessions.add")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new workout session, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.StartedAt.IsZero() {
		pkg.WriteAPIError(w, "error, startedAt empty", http.StatusBadRequest)
		return
	}

	session, err := handler.repo.Add(ctx, WorkoutSession{
		UserID:    userID,
		StartedAt: req.StartedAt,
		Note:      req.Note,
	})
	if err != nil {
		log.Errorf("failed to add workout session for user %d: %s", userID, err)
		pkg.WriteAPIError(w, "error, failed to add workout session", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWorkoutSessions.Inc()
	log.Debugf("new workout session added: %d", session.ID)

	pkg.WriteAPIJSON(w, struct {
		Success bool            `json:"success"`
		Session *WorkoutSession `json:"session"`
	}{
		Success: true,
		Session: session,
	}, http.StatusCreated)
}

func (handler *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sessions.list")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	sessions, err := handler.repo.List(ctx, userID)
	if err != nil {
		log.Errorf("list workout sessions for user %d: %s", userID, err)
		pkg.WriteAPIError(w, "failed to get workout sessions", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success  bool             `json:"success"`
		Sessions []WorkoutSession `json:"sessions"`
	}{
		Success:  true,
		Sessions: sessions,
	}, http.StatusOK)
}

func (handler *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sessions.get")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	session, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteAPIError(w, "workout session not found", http.StatusNotFound)
			return
		}
		log.Errorf("get workout session %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to get workout session", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool            `json:"success"`
		Session *WorkoutSession `json:"session"`
	}{
		Success: true,
		Session: session,
	}, http.StatusOK)
}

func (handler *SessionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sessions.update")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update workout session, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.StartedAt.IsZero() {
		pkg.WriteAPIError(w, "error, startedAt empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, userID, WorkoutSession{
		ID:        id,
		StartedAt: req.StartedAt,
		Note:      req.Note,
	}); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteAPIError(w, "workout session not found", http.StatusNotFound)
			return
		}
		log.Errorf("update workout session %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to update workout session", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success   bool `json:"success"`
		UpdatedID int  `json:"updatedId"`
	}{
		Success:   true,
		UpdatedID: id,
	}, http.StatusOK)
}

func (handler *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sessions.delete")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteAPIError(w, "workout session not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete workout session %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to delete workout session", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success   bool `json:"success"`
		DeletedID int  `json:"deletedId"`
	}{
		Success:   true,
		DeletedID: id,
	}, http.StatusOK)
}
