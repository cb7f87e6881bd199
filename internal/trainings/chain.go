package trainings

import (
	"github.com/Masterminds/squirrel"
)

// psql builds top level statements with postgres positional placeholders.
// Subquery fragments are built with the default question placeholders and
// get rewritten together with the enclosing statement.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Table aliases used by every chain-scoped statement:
// workout_session s, exercise_log l, exercise_log_set st.

// sessionOwnedBy is the single ownership predicate of the whole chain.
// All session, log and set operations funnel through it, so the
// create/read/update/delete checks cannot drift apart.
func sessionOwnedBy(userID int) squirrel.Eq {
	return squirrel.Eq{"s.user_id": userID}
}

// joinChainFromLogs extends a statement over exercise_log with the
// log -> session hop and scopes it to the given user.
func joinChainFromLogs(b squirrel.SelectBuilder, userID int) squirrel.SelectBuilder {
	return b.
		Join("workout_session s ON s.id = l.session_id").
		Where(sessionOwnedBy(userID))
}

// joinChainFromSets extends a statement over exercise_log_set with the
// full set -> log -> session chain and scopes it to the given user.
func joinChainFromSets(b squirrel.SelectBuilder, userID int) squirrel.SelectBuilder {
	return joinChainFromLogs(
		b.Join("exercise_log l ON l.id = st.log_id"),
		userID,
	)
}

// ownedSessionExists gates conditional inserts of logs: the insert only
// happens if this session id resolves to the user.
func ownedSessionExists(sessionID, userID int) (squirrel.Sqlizer, error) {
	return existsFragment(
		squirrel.Select("1").
			From("workout_session s").
			Where(squirrel.Eq{"s.id": sessionID}).
			Where(sessionOwnedBy(userID)),
	)
}

// ownedSessionExistsFor is the correlated variant of ownedSessionExists,
// matching the session referenced by a column of the outer statement.
func ownedSessionExistsFor(sessionIDColumn string, userID int) (squirrel.Sqlizer, error) {
	return existsFragment(
		squirrel.Select("1").
			From("workout_session s").
			Where("s.id = " + sessionIDColumn).
			Where(sessionOwnedBy(userID)),
	)
}

// ownedLogExists gates conditional inserts of sets, walking the full
// log -> session chain for the given log id.
func ownedLogExists(logID, userID int) (squirrel.Sqlizer, error) {
	return existsFragment(
		joinChainFromLogs(
			squirrel.Select("1").
				From("exercise_log l").
				Where(squirrel.Eq{"l.id": logID}),
			userID,
		),
	)
}

// ownedLogExistsFor is the correlated variant of ownedLogExists, matching
// the log referenced by a column of the outer statement.
func ownedLogExistsFor(logIDColumn string, userID int) (squirrel.Sqlizer, error) {
	return existsFragment(
		joinChainFromLogs(
			squirrel.Select("1").
				From("exercise_log l").
				Where("l.id = "+logIDColumn),
			userID,
		),
	)
}

func existsFragment(sub squirrel.SelectBuilder) (squirrel.Sqlizer, error) {
	sql, args, err := sub.ToSql()
	if err != nil {
		return nil, err
	}
	return squirrel.Expr("EXISTS ("+sql+")", args...), nil
}
