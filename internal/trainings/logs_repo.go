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

var ErrLogNotFound = errors.New("exercise log not found")

type LogsRepo struct {
	db *pgxpool.Pool
}

func NewLogsRepo(db *pgxpool.Pool) *LogsRepo {
	return &LogsRepo{
		db: db,
	}
}

// Add inserts the log only if its session belongs to the user. The
// existence check is part of the insert statement itself, there is no
// separate check that the session could vanish behind.
func (r *LogsRepo) Add(ctx context.Context, userID int, log ExerciseLog) (_ *ExerciseLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.logs.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", log.SessionID))

	sessionExists, err := ownedSessionExists(log.SessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("build exists fragment: %w", err)
	}

	query, args, err := psql.
		Insert("exercise_log").
		Columns("session_id", "exercise_id", "note").
		Select(
			squirrel.Select().
				Column(squirrel.Expr("?, ?, ?", log.SessionID, log.ExerciseID, log.Note)).
				Where(sessionExists),
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
		return nil, ErrSessionNotFound
	}

	if err := rows.Scan(&log.ID, &log.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("log.id", log.ID))

	return &log, nil
}

// ListBySession returns the logs of one session, oldest first. A session
// owned by somebody else yields the same empty list as an owned session
// without logs.
func (r *LogsRepo) ListBySession(ctx context.Context, userID, sessionID int) (_ []ExerciseLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.logs.listBySession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID))

	builder := psql.
		Select("l.id", "l.session_id", "l.exercise_id", "l.note", "l.created_at").
		From("exercise_log l").
		Where(squirrel.Eq{"l.session_id": sessionID})
	query, args, err := joinChainFromLogs(builder, userID).
		OrderBy("l.created_at ASC").
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

	return r.rows2logs(rows)
}

func (r *LogsRepo) Get(ctx context.Context, userID, id int) (_ *ExerciseLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.logs.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	builder := psql.
		Select("l.id", "l.session_id", "l.exercise_id", "l.note", "l.created_at").
		From("exercise_log l").
		Where(squirrel.Eq{"l.id": id})
	query, args, err := joinChainFromLogs(builder, userID).ToSql()
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

	logs, err := r.rows2logs(rows)
	if err != nil {
		return nil, err
	}

	if len(logs) != 1 {
		return nil, ErrLogNotFound
	}

	return &logs[0], nil
}

// Update changes the note only. The chain is walked again on every call,
// ownership is never cached between operations.
func (r *LogsRepo) Update(ctx context.Context, userID int, log ExerciseLog) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.logs.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", log.ID))

	sessionExists, err := ownedSessionExistsFor("l.session_id", userID)
	if err != nil {
		return fmt.Errorf("build exists fragment: %w", err)
	}

	query, args, err := psql.
		Update("exercise_log l").
		Set("note", log.Note).
		Where(squirrel.Eq{"l.id": log.ID}).
		Where(sessionExists).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrLogNotFound
	}

	return nil
}

func (r *LogsRepo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.logs.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	sessionExists, err := ownedSessionExistsFor("l.session_id", userID)
	if err != nil {
		return fmt.Errorf("build exists fragment: %w", err)
	}

	query, args, err := psql.
		Delete("exercise_log l").
		Where(squirrel.Eq{"l.id": id}).
		Where(sessionExists).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrLogNotFound
	}

	return nil
}

func (r *LogsRepo) rows2logs(rows pgx.Rows) ([]ExerciseLog, error) {
	var logs []ExerciseLog
	for rows.Next() {
		var l ExerciseLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.ExerciseID, &l.Note, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	if logs == nil {
		logs = make([]ExerciseLog, 0)
	}

	return logs, nil
}
