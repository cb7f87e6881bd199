package trainings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/becomepro/backend/internal/telemetry/tracing"
	"github.com/becomepro/backend/pkg"

	log "github.com/sirupsen/logrus"
)

type logsStore interface {
	Add(ctx context.Context, userID int, log ExerciseLog) (*ExerciseLog, error)
	ListBySession(ctx context.Context, userID, sessionID int) ([]ExerciseLog, error)
	Get(ctx context.Context, userID, id int) (*ExerciseLog, error)
	Update(ctx context.Context, userID int, log ExerciseLog) error
	Delete(ctx context.Context, userID, id int) error
}

type LogsHandler struct {
	repo logsStore
}

func NewLogsHandler(repo logsStore) *LogsHandler {
	return &LogsHandler{
		repo: repo,
	}
}

type logRequest struct {
	ExerciseID int    `json:"exerciseId"`
	Note       string `json:"note"`
}

func (handler *LogsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.logs.add")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r, "sessionId")
	if !ok {
		return
	}

	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new exercise log, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ExerciseID == 0 {
		pkg.WriteAPIError(w, "error, exerciseId empty", http.StatusBadRequest)
		return
	}

	exerciseLog, err := handler.repo.Add(ctx, userID, ExerciseLog{
		SessionID:  sessionID,
		ExerciseID: req.ExerciseID,
		Note:       req.Note,
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteAPIError(w, "workout session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to add exercise log to session %d: %s", sessionID, err)
		pkg.WriteAPIError(w, "error, failed to add exercise log", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise log added: %d", exerciseLog.ID)

	pkg.WriteAPIJSON(w, struct {
		Success bool         `json:"success"`
		Log     *ExerciseLog `json:"log"`
	}{
		Success: true,
		Log:     exerciseLog,
	}, http.StatusCreated)
}

func (handler *LogsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.logs.list")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r, "sessionId")
	if !ok {
		return
	}

	logs, err := handler.repo.ListBySession(ctx, userID, sessionID)
	if err != nil {
		log.Errorf("list exercise logs for session %d: %s", sessionID, err)
		pkg.WriteAPIError(w, "failed to get exercise logs", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool          `json:"success"`
		Logs    []ExerciseLog `json:"logs"`
	}{
		Success: true,
		Logs:    logs,
	}, http.StatusOK)
}

func (handler *LogsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.logs.get")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	exerciseLog, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrLogNotFound) {
			pkg.WriteAPIError(w, "exercise log not found", http.StatusNotFound)
			return
		}
		log.Errorf("get exercise log %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to get exercise log", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool         `json:"success"`
		Log     *ExerciseLog `json:"log"`
	}{
		Success: true,
		Log:     exerciseLog,
	}, http.StatusOK)
}

func (handler *LogsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.logs.update")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update exercise log, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, userID, ExerciseLog{
		ID:   id,
		Note: req.Note,
	}); err != nil {
		if errors.Is(err, ErrLogNotFound) {
			pkg.WriteAPIError(w, "exercise log not found", http.StatusNotFound)
			return
		}
		log.Errorf("update exercise log %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to update exercise log", http.StatusInternalServerError)
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

func (handler *LogsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.logs.delete")
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
		if errors.Is(err, ErrLogNotFound) {
			pkg.WriteAPIError(w, "exercise log not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete exercise log %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to delete exercise log", http.StatusInternalServerError)
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
