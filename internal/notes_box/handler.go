package notes_box

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/becomepro/backend/internal/auth"
	"github.com/becomepro/backend/internal/telemetry/metrics"
	"github.com/becomepro/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type notesRepo interface {
	Upsert(ctx context.Context, note Note) (*Note, error)
	List(ctx context.Context, userID int) ([]Note, error)
	GetByDate(ctx context.Context, userID int, noteDate time.Time) (*Note, error)
	Delete(ctx context.Context, userID, id int) error
}

type noteRequest struct {
	NoteDate string `json:"noteDate"`
	Content  string `json:"content"`
}

type Handler struct {
	repo    notesRepo
	metrics *metrics.Manager
}

func NewHandler(repo notesRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (handler *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("upsert note, decode json params: %s", err)
		pkg.WriteAPIError(w, "upsert note failed", http.StatusBadRequest)
		return
	}

	if req.Content == "" {
		pkg.WriteAPIError(w, "error, content empty", http.StatusBadRequest)
		return
	}
	noteDate, err := time.Parse(NoteDateLayout, req.NoteDate)
	if err != nil {
		pkg.WriteAPIError(w, "error, noteDate invalid, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	note, err := handler.repo.Upsert(r.Context(), Note{
		UserID:   session.UserID,
		NoteDate: noteDate,
		Content:  req.Content,
	})
	if err != nil {
		log.Errorf("upsert note for user %d failed: %s", session.UserID, err)
		pkg.WriteAPIError(w, "upsert note failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterNotes.Inc()

	pkg.WriteAPIJSON(w, struct {
		Success bool  `json:"success"`
		Note    *Note `json:"note"`
	}{
		Success: true,
		Note:    note,
	}, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return
	}

	notes, err := handler.repo.List(r.Context(), session.UserID)
	if err != nil {
		log.Errorf("list notes for user %d failed: %s", session.UserID, err)
		pkg.WriteAPIError(w, "get notes failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool   `json:"success"`
		Notes   []Note `json:"notes"`
		Total   int    `json:"total"`
	}{
		Success: true,
		Notes:   notes,
		Total:   len(notes),
	}, http.StatusOK)
}

func (handler *Handler) HandleGetByDate(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return
	}

	noteDate, err := time.Parse(NoteDateLayout, mux.Vars(r)["date"])
	if err != nil {
		pkg.WriteAPIError(w, "error, noteDate invalid, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	note, err := handler.repo.GetByDate(r.Context(), session.UserID, noteDate)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			pkg.WriteAPIError(w, "note not found", http.StatusNotFound)
			return
		}
		log.Errorf("get note for user %d failed: %s", session.UserID, err)
		pkg.WriteAPIError(w, "get note failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool  `json:"success"`
		Note    *Note `json:"note"`
	}{
		Success: true,
		Note:    note,
	}, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteAPIError(w, "error, id invalid", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(r.Context(), session.UserID, id); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			pkg.WriteAPIError(w, "note not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete note %d for user %d failed: %s", id, session.UserID, err)
		pkg.WriteAPIError(w, "delete note failed", http.StatusInternalServerError)
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
