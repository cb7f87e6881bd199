package trainings

import (
	"context"
	"net/http"
	"strconv"

	"github.com/becomepro/backend/internal/telemetry/tracing"
	"github.com/becomepro/backend/pkg"

	log "github.com/sirupsen/logrus"
)

type progressAnalyzer interface {
	History(ctx context.Context, userID, exerciseID int) ([]HistoryEntry, error)
	Volume(ctx context.Context, userID int, exerciseID *int) ([]VolumeEntry, error)
	MaxWeight(ctx context.Context, userID, exerciseID int) (*MaxWeightResult, error)
}

type ProgressHandler struct {
	analyzer progressAnalyzer
}

func NewProgressHandler(analyzer progressAnalyzer) *ProgressHandler {
	return &ProgressHandler{
		analyzer: analyzer,
	}
}

// requiredExerciseID parses the mandatory exerciseId query parameter.
func requiredExerciseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	exerciseIDStr := r.URL.Query().Get("exerciseId")
	if exerciseIDStr == "" {
		pkg.WriteAPIError(w, "error, exerciseId required", http.StatusBadRequest)
		return 0, false
	}
	exerciseID, err := strconv.Atoi(exerciseIDStr)
	if err != nil {
		pkg.WriteAPIError(w, "error, exerciseId invalid", http.StatusBadRequest)
		return 0, false
	}
	return exerciseID, true
}

func (handler *ProgressHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.progress.history")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	exerciseID, ok := requiredExerciseID(w, r)
	if !ok {
		return
	}

	history, err := handler.analyzer.History(ctx, userID, exerciseID)
	if err != nil {
		log.Errorf("exercise history for user %d, exercise %d: %s", userID, exerciseID, err)
		pkg.WriteAPIError(w, "failed to get exercise history", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool           `json:"success"`
		History []HistoryEntry `json:"history"`
	}{
		Success: true,
		History: history,
	}, http.StatusOK)
}

func (handler *ProgressHandler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.progress.volume")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	var exerciseID *int
	if exerciseIDStr := r.URL.Query().Get("exerciseId"); exerciseIDStr != "" {
		id, err := strconv.Atoi(exerciseIDStr)
		if err != nil {
			pkg.WriteAPIError(w, "error, exerciseId invalid", http.StatusBadRequest)
			return
		}
		exerciseID = &id
	}

	volume, err := handler.analyzer.Volume(ctx, userID, exerciseID)
	if err != nil {
		log.Errorf("volume for user %d: %s", userID, err)
		pkg.WriteAPIError(w, "failed to get volume", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool          `json:"success"`
		Volume  []VolumeEntry `json:"volume"`
	}{
		Success: true,
		Volume:  volume,
	}, http.StatusOK)
}

func (handler *ProgressHandler) HandleMax(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.progress.max")
	defer span.End()

	userID, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	exerciseID, ok := requiredExerciseID(w, r)
	if !ok {
		return
	}

	result, err := handler.analyzer.MaxWeight(ctx, userID, exerciseID)
	if err != nil {
		log.Errorf("max weight for user %d, exercise %d: %s", userID, exerciseID, err)
		pkg.WriteAPIError(w, "failed to get max weight", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success   bool     `json:"success"`
		MaxWeight *float64 `json:"maxWeight"`
	}{
		Success:   true,
		MaxWeight: result.MaxWeight,
	}, http.StatusOK)
}
