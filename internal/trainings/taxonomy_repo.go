package trainings

import (
	"context"
	"errors"
	"fmt"

	"github.com/becomepro/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrCategoryNotFound = errors.New("exercise category not found")
	ErrExerciseNotFound = errors.New("exercise not found")
)

// TaxonomyRepo manages the two flat taxonomy tables, categories and
// exercises. No ownership chain here, taxonomy is shared by all users.
type TaxonomyRepo struct {
	db *pgxpool.Pool
}

func NewTaxonomyRepo(db *pgxpool.Pool) *TaxonomyRepo {
	return &TaxonomyRepo{
		db: db,
	}
}

func (r *TaxonomyRepo) ListCategories(ctx context.Context) (_ []ExerciseCategory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.listCategories")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, created_at FROM exercise_category ORDER BY name;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var categories []ExerciseCategory
	for rows.Next() {
		var c ExerciseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	if categories == nil {
		categories = make([]ExerciseCategory, 0)
	}

	return categories, nil
}

func (r *TaxonomyRepo) AddCategory(ctx context.Context, category ExerciseCategory) (_ *ExerciseCategory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.addCategory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO exercise_category (name) VALUES ($1) RETURNING id, created_at;`,
		category.Name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&category.ID, &category.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("category.id", category.ID))

	return &category, nil
}

func (r *TaxonomyRepo) UpdateCategory(ctx context.Context, category ExerciseCategory) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.updateCategory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", category.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise_category SET name = $1 WHERE id = $2;`,
		category.Name, category.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

func (r *TaxonomyRepo) DeleteCategory(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.deleteCategory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise_category WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// ListExercises returns all exercises, or only those of one category
// when the filter is set, ordered by name.
func (r *TaxonomyRepo) ListExercises(ctx context.Context, categoryID *int) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.listExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	if categoryID != nil {
		span.SetAttributes(attribute.Int("category.id", *categoryID))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, category_id, image_url, description, created_at
			FROM exercise
			WHERE ($1::int IS NULL OR category_id = $1)
			ORDER BY name;`,
		categoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2exercises(rows)
}

func (r *TaxonomyRepo) GetExercise(ctx context.Context, id int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.getExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, name, category_id, image_url, description, created_at
			FROM exercise
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	exercises, err := r.rows2exercises(rows)
	if err != nil {
		return nil, err
	}

	if len(exercises) != 1 {
		return nil, ErrExerciseNotFound
	}

	return &exercises[0], nil
}

func (r *TaxonomyRepo) AddExercise(ctx context.Context, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO exercise (name, category_id, image_url, description)
				VALUES ($1, $2, $3, $4)
			RETURNING id, created_at;`,
		exercise.Name, exercise.CategoryID, exercise.ImageURL, exercise.Description,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&exercise.ID, &exercise.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("exercise.id", exercise.ID))

	return &exercise, nil
}

func (r *TaxonomyRepo) UpdateExercise(ctx context.Context, exercise Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.updateExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", exercise.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercise SET name = $1, category_id = $2, image_url = $3, description = $4 WHERE id = $5;`,
		exercise.Name, exercise.CategoryID, exercise.ImageURL, exercise.Description, exercise.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	return nil
}

func (r *TaxonomyRepo) DeleteExercise(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.taxonomy.deleteExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercise WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	return nil
}

func (r *TaxonomyRepo) rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	var exercises []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.CategoryID, &e.ImageURL, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}

	if exercises == nil {
		exercises = make([]Exercise, 0)
	}

	return exercises, nil
}
