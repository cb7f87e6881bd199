package trainings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/becomepro/backend/internal/auth"
	"github.com/becomepro/backend/internal/telemetry/tracing"
	"github.com/becomepro/backend/pkg"

	log "github.com/sirupsen/logrus"
)

type taxonomyStore interface {
	ListCategories(ctx context.Context) ([]ExerciseCategory, error)
	AddCategory(ctx context.Context, category ExerciseCategory) (*ExerciseCategory, error)
	UpdateCategory(ctx context.Context, category ExerciseCategory) error
	DeleteCategory(ctx context.Context, id int) error
	ListExercises(ctx context.Context, categoryID *int) ([]Exercise, error)
	GetExercise(ctx context.Context, id int) (*Exercise, error)
	AddExercise(ctx context.Context, exercise Exercise) (*Exercise, error)
	UpdateExercise(ctx context.Context, exercise Exercise) error
	DeleteExercise(ctx context.Context, id int) error
}

// TaxonomyHandler serves the shared exercise taxonomy. Reads are open to
// every logged in user, mutations need the taxonomy capability.
type TaxonomyHandler struct {
	repo taxonomyStore
}

func NewTaxonomyHandler(repo taxonomyStore) *TaxonomyHandler {
	return &TaxonomyHandler{
		repo: repo,
	}
}

// canManage gates mutations on the taxonomy capability, responding 403
// for callers without it.
func (handler *TaxonomyHandler) canManage(w http.ResponseWriter, r *http.Request) bool {
	session, ok := callerSession(w, r)
	if !ok {
		return false
	}
	if !session.Can(auth.CapManageTaxonomy) {
		pkg.WriteAPIError(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func (handler *TaxonomyHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.listCategories")
	defer span.End()

	categories, err := handler.repo.ListCategories(ctx)
	if err != nil {
		log.Errorf("list exercise categories: %s", err)
		pkg.WriteAPIError(w, "failed to get categories", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success    bool               `json:"success"`
		Categories []ExerciseCategory `json:"categories"`
	}{
		Success:    true,
		Categories: categories,
	}, http.StatusOK)
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (handler *TaxonomyHandler) HandleAddCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.addCategory")
	defer span.End()

	if !handler.canManage(w, r) {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new category, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		pkg.WriteAPIError(w, "error, name empty", http.StatusBadRequest)
		return
	}

	category, err := handler.repo.AddCategory(ctx, ExerciseCategory{Name: req.Name})
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteAPIError(w, "category name already taken", http.StatusBadRequest)
			return
		}
		log.Errorf("add exercise category [%s]: %s", req.Name, err)
		pkg.WriteAPIError(w, "error, failed to add category", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success  bool              `json:"success"`
		Category *ExerciseCategory `json:"category"`
	}{
		Success:  true,
		Category: category,
	}, http.StatusCreated)
}

func (handler *TaxonomyHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.updateCategory")
	defer span.End()

	if !handler.canManage(w, r) {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update category, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		pkg.WriteAPIError(w, "error, name empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.UpdateCategory(ctx, ExerciseCategory{ID: id, Name: req.Name}); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			pkg.WriteAPIError(w, "category not found", http.StatusNotFound)
			return
		}
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteAPIError(w, "category name already taken", http.StatusBadRequest)
			return
		}
		log.Errorf("update exercise category %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to update category", http.StatusInternalServerError)
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

func (handler *TaxonomyHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.deleteCategory")
	defer span.End()

	if !handler.canManage(w, r) {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := handler.repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			pkg.WriteAPIError(w, "category not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete exercise category %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to delete category", http.StatusInternalServerError)
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

func (handler *TaxonomyHandler) HandleListExercises(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.listExercises")
	defer span.End()

	var categoryID *int
	if categoryIDStr := r.URL.Query().Get("categoryId"); categoryIDStr != "" {
		id, err := strconv.Atoi(categoryIDStr)
		if err != nil {
			pkg.WriteAPIError(w, "error, categoryId invalid", http.StatusBadRequest)
			return
		}
		categoryID = &id
	}

	exercises, err := handler.repo.ListExercises(ctx, categoryID)
	if err != nil {
		log.Errorf("list exercises: %s", err)
		pkg.WriteAPIError(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success   bool       `json:"success"`
		Exercises []Exercise `json:"exercises"`
	}{
		Success:   true,
		Exercises: exercises,
	}, http.StatusOK)
}

func (handler *TaxonomyHandler) HandleGetExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.getExercise")
	defer span.End()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	exercise, err := handler.repo.GetExercise(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteAPIError(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("get exercise %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to get exercise", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success  bool      `json:"success"`
		Exercise *Exercise `json:"exercise"`
	}{
		Success:  true,
		Exercise: exercise,
	}, http.StatusOK)
}

type exerciseRequest struct {
	Name        string `json:"name"`
	CategoryID  *int   `json:"categoryId"`
	ImageURL    string `json:"imageUrl"`
	Description string `json:"description"`
}

func (handler *TaxonomyHandler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.addExercise")
	defer span.End()

	if !handler.canManage(w, r) {
		return
	}

	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		pkg.WriteAPIError(w, "error, name empty", http.StatusBadRequest)
		return
	}

	exercise, err := handler.repo.AddExercise(ctx, Exercise{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		Description: req.Description,
	})
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteAPIError(w, "error, categoryId unknown", http.StatusBadRequest)
			return
		}
		log.Errorf("add exercise [%s]: %s", req.Name, err)
		pkg.WriteAPIError(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success  bool      `json:"success"`
		Exercise *Exercise `json:"exercise"`
	}{
		Success:  true,
		Exercise: exercise,
	}, http.StatusCreated)
}

func (handler *TaxonomyHandler) HandleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.updateExercise")
	defer span.End()

	if !handler.canManage(w, r) {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("update exercise, unmarshal json params: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		pkg.WriteAPIError(w, "error, name empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.UpdateExercise(ctx, Exercise{
		ID:          id,
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		Description: req.Description,
	}); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteAPIError(w, "exercise not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			pkg.WriteAPIError(w, "error, categoryId unknown", http.StatusBadRequest)
			return
		}
		log.Errorf("update exercise %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to update exercise", http.StatusInternalServerError)
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

func (handler *TaxonomyHandler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.taxonomy.deleteExercise")
	defer span.End()

	if !handler.canManage(w, r) {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := handler.repo.DeleteExercise(ctx, id); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteAPIError(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete exercise %d: %s", id, err)
		pkg.WriteAPIError(w, "failed to delete exercise", http.StatusInternalServerError)
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
