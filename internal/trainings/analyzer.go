package trainings

import (
	"context"
	"fmt"
	"time"

	"github.com/becomepro/backend/internal/telemetry/tracing"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// HistoryEntry is one logged set of an exercise, together with the
// session and log it came from.
type HistoryEntry struct {
	SessionID        int       `json:"sessionId"`
	SessionStartedAt time.Time `json:"sessionStartedAt"`
	LogID            int       `json:"logId"`
	SetID            int       `json:"setId"`
	SetOrder         int       `json:"setOrder"`
	Reps             int       `json:"reps"`
	WeightKg         float64   `json:"weightKg"`
}

// VolumeEntry is the total lifted volume (reps x weight) of one calendar
// day. ExerciseID is nil when the volume was aggregated across all
// exercises of that day.
type VolumeEntry struct {
	Day        time.Time `json:"day"`
	ExerciseID *int      `json:"exerciseId"`
	Volume     float64   `json:"volume"`
}

// MaxWeightResult holds the heaviest weight ever logged for an exercise.
// MaxWeight is nil when no sets exist for it.
type MaxWeightResult struct {
	MaxWeight *float64 `json:"maxWeight"`
}

// Analyzer answers read-only aggregation queries over the ownership
// chain. It composes the same chain fragments as the repos, so its
// results are scoped to the caller exactly like row-level reads.
type Analyzer struct {
	db *pgxpool.Pool
}

func NewAnalyzer(db *pgxpool.Pool) *Analyzer {
	return &Analyzer{
		db: db,
	}
}

// History returns every set of the given exercise across all of the
// user's sessions, newest session first, sets in set order within it.
func (a *Analyzer) History(ctx context.Context, userID, exerciseID int) (_ []HistoryEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.trainings.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	builder := psql.
		Select(
			"s.id", "s.started_at",
			"l.id", "st.id", "st.set_order", "st.reps", "st.weight_kg",
		).
		From("exercise_log_set st")
	query, args, err := joinChainFromSets(builder, userID).
		Where(squirrel.Eq{"l.exercise_id": exerciseID}).
		OrderBy("s.started_at DESC", "st.set_order ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.SessionID, &e.SessionStartedAt,
			&e.LogID, &e.SetID, &e.SetOrder, &e.Reps, &e.WeightKg,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if entries == nil {
		entries = make([]HistoryEntry, 0)
	}

	return entries, nil
}

// Volume sums reps x weight per calendar day of the session start time,
// newest day first. With an exercise filter the rows are per exercise
// and day; without one each day collapses to a single bucket summed
// across all exercises.
func (a *Analyzer) Volume(ctx context.Context, userID int, exerciseID *int) (_ []VolumeEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.trainings.volume")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	if exerciseID != nil {
		span.SetAttributes(attribute.Int("exercise.id", *exerciseID))
	}

	builder := psql.
		Select("date_trunc('day', s.started_at) AS day").
		From("exercise_log_set st")
	if exerciseID != nil {
		builder = builder.Column("l.exercise_id")
	} else {
		builder = builder.Column("NULL::int AS exercise_id")
	}
	builder = builder.Column("SUM(st.reps * st.weight_kg) AS volume")

	builder = joinChainFromSets(builder, userID)
	if exerciseID != nil {
		builder = builder.
			Where(squirrel.Eq{"l.exercise_id": *exerciseID}).
			GroupBy("date_trunc('day', s.started_at)", "l.exercise_id")
	} else {
		builder = builder.GroupBy("date_trunc('day', s.started_at)")
	}

	query, args, err := builder.OrderBy("day DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var entries []VolumeEntry
	for rows.Next() {
		var e VolumeEntry
		if err := rows.Scan(&e.Day, &e.ExerciseID, &e.Volume); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if entries == nil {
		entries = make([]VolumeEntry, 0)
	}

	return entries, nil
}

// MaxWeight returns the heaviest set ever logged by the user for the
// given exercise, or a nil result when none exist.
func (a *Analyzer) MaxWeight(ctx context.Context, userID, exerciseID int) (_ *MaxWeightResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.trainings.maxWeight")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("exercise.id", exerciseID))

	builder := psql.
		Select("MAX(st.weight_kg)").
		From("exercise_log_set st")
	query, args, err := joinChainFromSets(builder, userID).
		Where(squirrel.Eq{"l.exercise_id": exerciseID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var maxWeight *float64
	if err := a.db.QueryRow(ctx, query, args...).Scan(&maxWeight); err != nil {
		return nil, err
	}

	return &MaxWeightResult{MaxWeight: maxWeight}, nil
}
