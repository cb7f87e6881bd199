package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/becomepro/backend/internal/auth"
	"github.com/becomepro/backend/pkg"

	log "github.com/sirupsen/logrus"
)

type usersStore interface {
	GetByID(ctx context.Context, id int) (*auth.User, error)
	UpdateProfile(ctx context.Context, userID int, update auth.ProfileUpdate) error
}

type updateProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type Handler struct {
	usersRepo usersStore
}

func NewHandler(usersRepo usersStore) *Handler {
	return &Handler{
		usersRepo: usersRepo,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := handler.usersRepo.GetByID(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			pkg.WriteAPIError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("get profile for user %d failed: %s", session.UserID, err)
		pkg.WriteAPIError(w, "get profile failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool       `json:"success"`
		User    *auth.User `json:"user"`
	}{
		Success: true,
		User:    user,
	}, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update profile, decode json params: %s", err)
		pkg.WriteAPIError(w, "update profile failed", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		pkg.WriteAPIError(w, "error, email empty", http.StatusBadRequest)
		return
	}

	err := handler.usersRepo.UpdateProfile(r.Context(), session.UserID, auth.ProfileUpdate{
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			pkg.WriteAPIError(w, "user not found", http.StatusNotFound)
			return
		}
		if pkg.IsUniqueViolationError(err) {
			pkg.WriteAPIError(w, "error, email already taken", http.StatusBadRequest)
			return
		}
		log.Errorf("update profile for user %d failed: %s", session.UserID, err)
		pkg.WriteAPIError(w, "update profile failed", http.StatusInternalServerError)
		return
	}

	user, err := handler.usersRepo.GetByID(r.Context(), session.UserID)
	if err != nil {
		log.Errorf("get profile after update for user %d failed: %s", session.UserID, err)
		pkg.WriteAPIError(w, "update profile failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool       `json:"success"`
		User    *auth.User `json:"user"`
	}{
		Success: true,
		User:    user,
	}, http.StatusOK)
}
