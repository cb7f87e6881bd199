package trainings

import (
	"net/http"
	"strconv"

	"github.com/becomepro/backend/internal/auth"
	"github.com/becomepro/backend/pkg"

	"github.com/gorilla/mux"
)

// sessionUserID pulls the caller identity set by the auth middleware.
// Handlers behind the middleware should always find it, a missing one
// means the route was wired outside the auth chain.
func sessionUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return 0, false
	}
	return session.UserID, true
}

func callerSession(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return nil, false
	}
	return session, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	idStr := mux.Vars(r)[name]
	if idStr == "" {
		pkg.WriteAPIError(w, "error, "+name+" empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		pkg.WriteAPIError(w, "error, "+name+" invalid", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
