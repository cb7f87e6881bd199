package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/becomepro/backend/internal/telemetry/metrics"
	"github.com/becomepro/backend/pkg"

	log "github.com/sirupsen/logrus"
)

type loginService interface {
	Register(ctx context.Context, params RegisterParams) (*User, error)
	Login(ctx context.Context, credentials Credentials, createdAt time.Time) (string, *User, error)
	Logout(ctx context.Context, token string) error
}

type Handler struct {
	service loginService
	metrics *metrics.Manager
}

func NewHandler(service loginService, metrics *metrics.Manager) *Handler {
	return &Handler{
		service: service,
		metrics: metrics,
	}
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var params RegisterParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Errorf("register failed, decode request: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	if params.Username == "" || params.Email == "" || params.Password == "" {
		pkg.WriteAPIError(w, "username, email and password are required", http.StatusBadRequest)
		return
	}

	user, err := handler.service.Register(r.Context(), params)
	if err != nil {
		if errors.Is(err, ErrUsernameOrEmailTaken) {
			pkg.WriteAPIError(w, "username or email already taken", http.StatusBadRequest)
			return
		}
		log.Errorf("register user [%s]: %s", params.Username, err)
		pkg.WriteAPIError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterUsersRegistered.Inc()
	log.Printf("new user registered: [%s] id %d", user.Username, user.ID)

	pkg.WriteAPIJSON(w, struct {
		Success bool  `json:"success"`
		User    *User `json:"user"`
	}{
		Success: true,
		User:    user,
	}, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		log.Errorf("login failed, decode request: %s", err)
		pkg.WriteAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if credentials.Username == "" || credentials.Password == "" {
		pkg.WriteAPIError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	token, user, err := handler.service.Login(r.Context(), credentials, time.Now())
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			pkg.WriteAPIError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login user [%s]: %s", credentials.Username, err)
		pkg.WriteAPIError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    *User  `json:"user"`
	}{
		Success: true,
		Token:   token,
		User:    user,
	}, http.StatusOK)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(AuthTokenHeader)
	if token == "" {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return
	}

	if err := handler.service.Logout(r.Context(), token); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
			return
		}
		log.Errorf("logout: %s", err)
		pkg.WriteAPIError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool `json:"success"`
	}{Success: true}, http.StatusOK)
}
