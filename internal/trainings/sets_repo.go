package trainings

import (
	"context"
	"errors"
	"fmt"

	"github.com/becomepro/backend/internal/telemetry/tracing"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrSetNotFound = errors.New("exercise set not found")

type SetsRepo struct {
	db *pgxpool.Pool
}

func NewSetsRepo(db *pgxpool.Pool) *SetsRepo {
	return &SetsRepo{
		db: db,
	}
}

// Add inserts the set only if its log resolves to the user through the
// full log -> session chain, atomically with the insert itself.
func (r *SetsRepo) Add(ctx context.Context, userID int, set ExerciseLogSet) (_ *ExerciseLogSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sets.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("log.id", set.LogID))

	logExists, err := ownedLogExists(set.LogID, userID)
	if err != nil {
		return nil, fmt.Errorf("build exists fragment: %w", err)
	}

	query, args, err := psql.
		Insert("exercise_log_set").
		Columns("log_id", "set_order", "reps", "weight_kg").
		Select(
			squirrel.Select().
				Column(squirrel.Expr("?, ?, ?, ?", set.LogID, set.SetOrder, set.Reps, set.WeightKg)).
				Where(logExists),
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		// the gating predicate did not hold
		return nil, ErrLogNotFound
	}

	if err := rows.Scan(&set.ID, &set.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("set.id", set.ID))

	return &set, nil
}

// ListByLog returns the sets of one log in set order. Like log listing,
// an unowned log and an owned log without sets are indistinguishable.
func (r *SetsRepo) ListByLog(ctx context.Context, userID, logID int) (_ []ExerciseLogSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sets.listByLog")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("log.id", logID))

	builder := psql.
		Select("st.id", "st.log_id", "st.set_order", "st.reps", "st.weight_kg", "st.created_at").
		From("exercise_log_set st").
		Where(squirrel.Eq{"st.log_id": logID})
	query, args, err := joinChainFromSets(builder, userID).
		OrderBy("st.set_order ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2sets(rows)
}

func (r *SetsRepo) Get(ctx context.Context, userID, id int) (_ *ExerciseLogSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sets.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	builder := psql.
		Select("st.id", "st.log_id", "st.set_order", "st.reps", "st.weight_kg", "st.created_at").
		From("exercise_log_set st").
		Where(squirrel.Eq{"st.id": id})
	query, args, err := joinChainFromSets(builder, userID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sets, err := r.rows2sets(rows)
	if err != nil {
		return nil, err
	}

	if len(sets) != 1 {
		return nil, ErrSetNotFound
	}

	return &sets[0], nil
}

// Update re-derives the whole chain instead of trusting any previously
// fetched log or session.
func (r *SetsRepo) Update(ctx context.Context, userID int, set ExerciseLogSet) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sets.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", set.ID))

	logExists, err := ownedLogExistsFor("st.log_id", userID)
	if err != nil {
		return fmt.Errorf("build exists fragment: %w", err)
	}

	query, args, err := psql.
		Update("exercise_log_set st").
		Set("set_order", set.SetOrder).
		Set("reps", set.Reps).
		Set("weight_kg", set.WeightKg).
		Where(squirrel.Eq{"st.id": set.ID}).
		Where(logExists).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}

	return nil
}

func (r *SetsRepo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sets.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	logExists, err := ownedLogExistsFor("st.log_id", userID)
	if err != nil {
		return fmt.Errorf("build exists fragment: %w", err)
	}

	query, args, err := psql.
		Delete("exercise_log_set st").
		Where(squirrel.Eq{"st.id": id}).
		Where(logExists).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}

	return nil
}

func (r *SetsRepo) rows2sets(rows pgx.Rows) ([]ExerciseLogSet, error) {
	var sets []ExerciseLogSet
	for rows.Next() {
		var s ExerciseLogSet
		if err := rows.Scan(&s.ID, &s.LogID, &s.SetOrder, &s.Reps, &s.WeightKg, &s.CreatedAt); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}

	if sets == nil {
		sets = make([]ExerciseLogSet, 0)
	}

	return sets, nil
}
