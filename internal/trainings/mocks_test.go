package trainings

import (
	"context"
	"sort"
	"time"
)

// In-memory stores mirroring the repos' merged ownership+existence
// behavior, used by the handler tests.

type sessionsStoreMock struct {
	sessions map[int]WorkoutSession
	nextID   int
}

func newSessionsStoreMock() *sessionsStoreMock {
	return &sessionsStoreMock{
		sessions: map[int]WorkoutSession{},
		nextID:   1,
	}
}

func (m *sessionsStoreMock) Add(_ context.Context, session WorkoutSession) (*WorkoutSession, error) {
	session.ID = m.nextID
	m.nextID++
	session.CreatedAt = time.Now()
	m.sessions[session.ID] = session
	return &session, nil
}

func (m *sessionsStoreMock) List(_ context.Context, userID int) ([]WorkoutSession, error) {
	sessions := make([]WorkoutSession, 0)
	for _, s := range m.sessions {
		if s.UserID == userID {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

func (m *sessionsStoreMock) Get(_ context.Context, userID, id int) (*WorkoutSession, error) {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *sessionsStoreMock) Update(_ context.Context, userID int, session WorkoutSession) error {
	existing, ok := m.sessions[session.ID]
	if !ok || existing.UserID != userID {
		return ErrSessionNotFound
	}
	existing.StartedAt = session.StartedAt
	existing.Note = session.Note
	m.sessions[session.ID] = existing
	return nil
}

func (m *sessionsStoreMock) Delete(_ context.Context, userID, id int) error {
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *sessionsStoreMock) ownsSession(userID, sessionID int) bool {
	s, ok := m.sessions[sessionID]
	return ok && s.UserID == userID
}

type logsStoreMock struct {
	sessions *sessionsStoreMock
	logs     map[int]ExerciseLog
	nextID   int
}

func newLogsStoreMock(sessions *sessionsStoreMock) *logsStoreMock {
	return &logsStoreMock{
		sessions: sessions,
		logs:     map[int]ExerciseLog{},
		nextID:   1,
	}
}

func (m *logsStoreMock) Add(_ context.Context, userID int, log ExerciseLog) (*ExerciseLog, error) {
	if !m.sessions.ownsSession(userID, log.SessionID) {
		return nil, ErrSessionNotFound
	}
	log.ID = m.nextID
	m.nextID++
	log.CreatedAt = time.Now()
	m.logs[log.ID] = log
	return &log, nil
}

func (m *logsStoreMock) ListBySession(_ context.Context, userID, sessionID int) ([]ExerciseLog, error) {
	logs := make([]ExerciseLog, 0)
	if !m.sessions.ownsSession(userID, sessionID) {
		return logs, nil
	}
	for _, l := range m.logs {
		if l.SessionID == sessionID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return logs, nil
}

func (m *logsStoreMock) Get(_ context.Context, userID, id int) (*ExerciseLog, error) {
	l, ok := m.logs[id]
	if !ok || !m.sessions.ownsSession(userID, l.SessionID) {
		return nil, ErrLogNotFound
	}
	return &l, nil
}

func (m *logsStoreMock) Update(_ context.Context, userID int, log ExerciseLog) error {
	existing, ok := m.logs[log.ID]
	if !ok || !m.sessions.ownsSession(userID, existing.SessionID) {
		return ErrLogNotFound
	}
	existing.Note = log.Note
	m.logs[log.ID] = existing
	return nil
}

func (m *logsStoreMock) Delete(_ context.Context, userID, id int) error {
	l, ok := m.logs[id]
	if !ok || !m.sessions.ownsSession(userID, l.SessionID) {
		return ErrLogNotFound
	}
	delete(m.logs, id)
	return nil
}

func (m *logsStoreMock) ownsLog(userID, logID int) bool {
	l, ok := m.logs[logID]
	return ok && m.sessions.ownsSession(userID, l.SessionID)
}

type setsStoreMock struct {
	logs   *logsStoreMock
	sets   map[int]ExerciseLogSet
	nextID int
}

func newSetsStoreMock(logs *logsStoreMock) *setsStoreMock {
	return &setsStoreMock{
		logs:   logs,
		sets:   map[int]ExerciseLogSet{},
		nextID: 1,
	}
}

func (m *setsStoreMock) Add(_ context.Context, userID int, set ExerciseLogSet) (*ExerciseLogSet, error) {
	if !m.logs.ownsLog(userID, set.LogID) {
		return nil, ErrLogNotFound
	}
	set.ID = m.nextID
	m.nextID++
	set.CreatedAt = time.Now()
	m.sets[set.ID] = set
	return &set, nil
}

func (m *setsStoreMock) ListByLog(_ context.Context, userID, logID int) ([]ExerciseLogSet, error) {
	sets := make([]ExerciseLogSet, 0)
	if !m.logs.ownsLog(userID, logID) {
		return sets, nil
	}
	for _, s := range m.sets {
		if s.LogID == logID {
			sets = append(sets, s)
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].SetOrder < sets[j].SetOrder })
	return sets, nil
}

func (m *setsStoreMock) Get(_ context.Context, userID, id int) (*ExerciseLogSet, error) {
	s, ok := m.sets[id]
	if !ok || !m.logs.ownsLog(userID, s.LogID) {
		return nil, ErrSetNotFound
	}
	return &s, nil
}

func (m *setsStoreMock) Update(_ context.Context, userID int, set ExerciseLogSet) error {
	existing, ok := m.sets[set.ID]
	if !ok || !m.logs.ownsLog(userID, existing.LogID) {
		return ErrSetNotFound
	}
	existing.SetOrder = set.SetOrder
	existing.Reps = set.Reps
	existing.WeightKg = set.WeightKg
	m.sets[set.ID] = existing
	return nil
}

func (m *setsStoreMock) Delete(_ context.Context, userID, id int) error {
	s, ok := m.sets[id]
	if !ok || !m.logs.ownsLog(userID, s.LogID) {
		return ErrSetNotFound
	}
	delete(m.sets, id)
	return nil
}
