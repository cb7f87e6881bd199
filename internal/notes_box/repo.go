package notes_box

import (
	"context"
	"errors"
	"time"

	"github.com/becomepro/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrNoteNotFound = errors.New("note not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Upsert writes the note for the given user and date. A note already
// present for that date gets its content replaced, otherwise a new
// one is inserted. Either way the stored note is returned.
func (r *Repo) Upsert(ctx context.Context, note Note) (_ *Note, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.notes.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	now := time.Now()
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO note (user_id, note_date, content, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, note_date)
			DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at;`,
		note.UserID, note.NoteDate, note.Content, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error, failed to upsert note")
	}
	if err := rows.Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return nil, err
	}

	return &note, nil
}

func (r *Repo) List(ctx context.Context, userID int) (_ []Note, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.notes.list")
	span.SetAttributes(attribute.Int("userID", userID))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, user_id, note_date, content, created_at, updated_at
			FROM note
			WHERE user_id = $1
			ORDER BY note_date DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2notes(rows)
}

func (r *Repo) GetByDate(ctx context.Context, userID int, noteDate time.Time) (*Note, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, user_id, note_date, content, created_at, updated_at
			FROM note
			WHERE user_id = $1 AND note_date = $2;`,
		userID, noteDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	notes, err := r.rows2notes(rows)
	if err != nil {
		return nil, err
	}
	if len(notes) != 1 {
		return nil, ErrNoteNotFound
	}

	return &notes[0], nil
}

// Delete removes the note only when it belongs to the given user.
// Somebody else's note id behaves like a missing one.
func (r *Repo) Delete(ctx context.Context, userID, id int) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM note WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (r *Repo) rows2notes(rows pgx.Rows) ([]Note, error) {
	notes := make([]Note, 0)
	for rows.Next() {
		var note Note
		if err := rows.Scan(
			&note.ID, &note.UserID, &note.NoteDate,
			&note.Content, &note.CreatedAt, &note.UpdatedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}
