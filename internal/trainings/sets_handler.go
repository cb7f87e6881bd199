package trainings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/becomepro/backend/internal/telemetry/metrics"
	"github.com/becomepro/backend/internal/telemetry/tracing"
	"github.com/becomepro/backend/pkg"

	log "github.com/sirupsen/logrus"
)

type setsStore interface {
	Add(ctx context.Context, userID int, set ExerciseLogSet) (*ExerciseLogSet, error)
	ListByLog(ctx context.Context, userID, logID int) ([]ExerciseLogSet, error)
	Get(ctx context.Context, userID, id int) (*ExerciseLogSet, error)
	Update(ctx context.Context, userID int, set ExerciseLogSet) error
	Delete(ctx context.Context, userID, id int) error
}

type SetsHandler struct {
	repo    setsStore
	metrics *metrics.Manager
}

func NewSetsHandler(repo setsStore, metrics *metrics.Manager) *SetsHandler {
	return &SetsHandler{
		repo:    repo,
		metrics: metrics,
	}
}

type setRequest struct {
	SetOrder int     `json:"setOrder"`
	Reps     int     `json:"reps"`
	WeightKg float64 `json:"weightKg"`
}

func (req setRequest) validate() error {
	if req.Reps < 0 {
		return errors.New("reps must not be negative")
	}
	if req.WeightKg < 0 {
		return errors.New("weightKg must not be negative")
	}
	return nil
}

func (handler *SetsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sets.add")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	logID, ok := pathID(w, r, "logId")
	if !ok {
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new exercise set, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		pkg.WriteAPIError(w, err.Error(), http.StatusBadRequest)
		return
	}

	set, err := handler.repo.Add(ctx, userID, ExerciseLogSet{
		LogID:    logID,
		SetOrder: req.SetOrder,
		Reps:     req.Reps,
		WeightKg: req.WeightKg,
	})
	if err != nil {
		if errors.Is(err, ErrLogNotFound) {
			pkg.WriteAPIError(w, "exercise log not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to add exercise set to log %d: %s", logID, err)
		pkg.WriteAPIError(w, "error, failed to add exercise set", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterExerciseSets.Inc()
	log.Debugf("new exercise set added: %d", set.ID)

	pkg.WriteAPIJSON(w, struct {
		Success bool            `json:"success"`
		Set     *ExerciseLogSet `json:"set"`
	}{
		Success: true,
		Set:     set,
	}, http.StatusCreated)
}

func (handler *SetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sets.list")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	logID, ok := pathID(w, r, "logId")
	if !ok {
		return
	}

	sets, err := handler.repo.ListByLog(ctx, userID, logID)
	if err != nil {
		log.Errorf("list exercise sets for log %d: %s", logID, err)
		pkg.WriteAPIError(w, "failed to get exercise sets", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool             `json:"success"`
		Sets    []ExerciseLogSet `json:"sets"`
	}{
		Success: true,
		Sets:    sets,
	}, http.StatusOK)
}

func (handler *SetsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sets.get")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	set, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrSetNotFound) {
			pkg.WriteAPIError(w, "exercise set not found", http.StatusNotFound)
			return
		}
		log.Errorf("get exercise set %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to get exercise set", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool            `json:"success"`
		Set     *ExerciseLogSet `json:"set"`
	}{
		Success: true,
		Set:     set,
	}, http.StatusOK)
}

func (handler *SetsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sets.update")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update exercise set, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		pkg.WriteAPIError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, userID, ExerciseLogSet{
		ID:       id,
		SetOrder: req.SetOrder,
		Reps:     req.Reps,
		WeightKg: req.WeightKg,
	}); err != nil {
		if errors.Is(err, ErrSetNotFound) {
			pkg.WriteAPIError(w, "exercise set not found", http.StatusNotFound)
			return
		}
		log.Errorf("update exercise set %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to update exercise set", http.StatusInternalServerError)
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

func (handler *SetsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.sets.delete")
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
		if errors.Is(err, ErrSetNotFound) {
			pkg.WriteAPIError(w, "exercise set not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete exercise set %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to delete exercise set", http.StatusInternalServerError)
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
