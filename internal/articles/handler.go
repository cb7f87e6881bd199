package articles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/becomepro/backend/internal/auth"
	"github.com/becomepro/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type articlesRepo interface {
	Add(ctx context.Context, article *Article) error
	Update(ctx context.Context, id int, title, content string) error
	Delete(ctx context.Context, id int) error
	All(ctx context.Context) ([]*Article, error)
	Count(ctx context.Context) (int, error)
	GetPage(ctx context.Context, page, size int) ([]*Article, error)
	Get(ctx context.Context, id int) (*Article, error)
}

type articleRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Handler struct {
	repo articlesRepo
}

func NewHandler(repo articlesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

// canManage requires an authenticated session carrying the articles
// management capability. Reads stay open to everyone.
func (handler *Handler) canManage(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		pkg.WriteAPIError(w, "no can do", http.StatusUnauthorized)
		return nil, false
	}
	if !session.Can(auth.CapManageArticles) {
		pkg.WriteAPIError(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return session, true
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	session, ok := handler.canManage(w, r)
	if !ok {
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("add article, decode json params: %s", err)
		pkg.WriteAPIError(w, "add article failed", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		pkg.WriteAPIError(w, "error, title empty", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		pkg.WriteAPIError(w, "error, content empty", http.StatusBadRequest)
		return
	}

	article := &Article{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: session.UserID,
	}
	if err := handler.repo.Add(r.Context(), article); err != nil {
		log.Errorf("add article failed: %s", err)
		pkg.WriteAPIError(w, "add article failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new article %d: [%s] added", article.ID, article.Title)

	pkg.WriteAPIJSON(w, struct {
		Success bool     `json:"success"`
		Article *Article `json:"article"`
	}{
		Success: true,
		Article: article,
	}, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := handler.canManage(w, r); !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteAPIError(w, "error, id invalid", http.StatusBadRequest)
		return
	}

	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("update article, decode json params: %s", err)
		pkg.WriteAPIError(w, "update article failed", http.StatusBadRequest)
		return
	}

	if req.Title == "" || req.Content == "" {
		pkg.WriteAPIError(w, "error, title or content empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(r.Context(), id, req.Title, req.Content); err != nil {
		if errors.Is(err, ErrArticleNotFound) {
			pkg.WriteAPIError(w, "article not found", http.StatusNotFound)
			return
		}
		log.Errorf("update article %d failed: %s", id, err)
		pkg.WriteAPIError(w, "update article failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success   bool `json:"success"`
		UpdatedID int  `json:"updatedId"`
	}{
		Success:   true,
		UpdatedID: id,
	}, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := handler.canManage(w, r); !ok {
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteAPIError(w, "error, id invalid", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrArticleNotFound) {
			pkg.WriteAPIError(w, "article not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete article %d failed: %s", id, err)
		pkg.WriteAPIError(w, "delete article failed", http.StatusInternalServerError)
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

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	pageParam := r.URL.Query().Get("page")
	sizeParam := r.URL.Query().Get("size")

	var (
		articles []*Article
		err      error
	)
	if pageParam == "" && sizeParam == "" {
		articles, err = handler.repo.All(r.Context())
	} else {
		var page, size int
		if page, err = strconv.Atoi(pageParam); err != nil || page < 1 {
			pkg.WriteAPIError(w, "error, page invalid", http.StatusBadRequest)
			return
		}
		if size, err = strconv.Atoi(sizeParam); err != nil || size < 1 {
			pkg.WriteAPIError(w, "error, size invalid", http.StatusBadRequest)
			return
		}
		articles, err = handler.repo.GetPage(r.Context(), page, size)
	}
	if err != nil {
		log.Errorf("get articles failed: %s", err)
		pkg.WriteAPIError(w, "get articles failed", http.StatusInternalServerError)
		return
	}

	total, err := handler.repo.Count(r.Context())
	if err != nil {
		log.Errorf("get articles count failed: %s", err)
		pkg.WriteAPIError(w, "get articles failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success  bool       `json:"success"`
		Articles []*Article `json:"articles"`
		Total    int        `json:"total"`
	}{
		Success:  true,
		Articles: articles,
		Total:    total,
	}, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		pkg.WriteAPIError(w, "error, id invalid", http.StatusBadRequest)
		return
	}

	article, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrArticleNotFound) {
			pkg.WriteAPIError(w, "article not found", http.StatusNotFound)
			return
		}
		log.Errorf("get article %d failed: %s", id, err)
		pkg.WriteAPIError(w, "get article failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteAPIJSON(w, struct {
		Success bool     `json:"success"`
		Article *Article `json:"article"`
	}{
		Success: true,
		Article: article,
	}, http.StatusOK)
}
