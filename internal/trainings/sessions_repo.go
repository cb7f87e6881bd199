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

var ErrSessionNotFound = errors.New("workout session not found")

type SessionsRepo struct {
	db *pgxpool.Pool
}

func NewSessionsRepo(db *pgxpool.Pool) *SessionsRepo {
	return &SessionsRepo{
		db: db,
	}
}

func (r *SessionsRepo) Add(ctx context.Context, session WorkoutSession) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query, args, err := psql.
		Insert("workout_session").
		Columns("user_id", "started_at", "note").
		Values(session.UserID, session.StartedAt, session.Note).
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
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&session.ID, &session.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("session.id", session.ID))

	return &session, nil
}

// List returns the sessions of the given user, most recently started first.
func (r *SessionsRepo) List(ctx context.Context, userID int) (_ []WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sessions.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	query, args, err := psql.
		Select("s.id", "s.user_id", "s.started_at", "s.note", "s.created_at").
		From("workout_session s").
		Where(sessionOwnedBy(userID)).
		OrderBy("s.started_at DESC").
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

	return r.rows2sessions(rows)
}

func (r *SessionsRepo) Get(ctx context.Context, userID, id int) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	query, args, err := psql.
		Select("s.id", "s.user_id", "s.started_at", "s.note", "s.created_at").
		From("workout_session s").
		Where(squirrel.Eq{"s.id": id}).
		Where(sessionOwnedBy(userID)).
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

	sessions, err := r.rows2sessions(rows)
	if err != nil {
		return nil, err
	}

	if len(sessions) != 1 {
		return nil, ErrSessionNotFound
	}

	return &sessions[0], nil
}

// Update changes started_at and note. The owner is part of the predicate,
// never of the SET list, so user_id stays immutable.
func (r *SessionsRepo) Update(ctx context.Context, userID int, session WorkoutSession) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sessions.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", session.ID))

	query, args, err := psql.
		Update("workout_session s").
		Set("started_at", session.StartedAt).
		Set("note", session.Note).
		Where(squirrel.Eq{"s.id": session.ID}).
		Where(sessionOwnedBy(userID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *SessionsRepo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.sessions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	query, args, err := psql.
		Delete("workout_session s").
		Where(squirrel.Eq{"s.id": id}).
		Where(sessionOwnedBy(userID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *SessionsRepo) rows2sessions(rows pgx.Rows) ([]WorkoutSession, error) {
	var sessions []WorkoutSession
	for rows.Next() {
		var s WorkoutSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.StartedAt, &s.Note, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if sessions == nil {
		sessions = make([]WorkoutSession, 0)
	}

	return sessions, nil
}
