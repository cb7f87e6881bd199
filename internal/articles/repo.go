package articles

import (
	"context"
	"errors"
	"time"

	"github.com/becomepro/backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrArticleNotFound            = errors.New("article not found")
	ErrArticleTitleOrContentEmpty = errors.New("article title or content empty")
)

type Article struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  int       `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var _ articlesRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, article *Article) error {
	if article.Title == "" || article.Content == "" {
		return ErrArticleTitleOrContentEmpty
	}

	now := time.Now()
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO article (title, content, author_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		RETURNING id;`,
		article.Title, article.Content, article.AuthorID, now,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return err
	}

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			article.ID = id
			article.CreatedAt = now
			article.UpdatedAt = now
			return nil
		}
	}

	return errors.New("unexpected error, failed to insert article")
}

// Update changes the title and content of an article.
// The author and createdAt never change after insertion.
func (r *Repo) Update(ctx context.Context, id int, title, content string) error {
	if title == "" || content == "" {
		return ErrArticleTitleOrContentEmpty
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE article SET title = $1, content = $2, updated_at = $3 WHERE id = $4`,
		title, content, time.Now(), id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrArticleNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM article WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (r *Repo) All(ctx context.Context) (_ []*Article, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.articles.all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, content, author_id, created_at, updated_at FROM article ORDER BY id DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2articles(rows)
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM article`)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get articles count")
}

func (r *Repo) GetPage(ctx context.Context, page, size int) (_ []*Article, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.articles.getPage")
	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	limit := size
	offset := (page - 1) * size
	articlesCount, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	if articlesCount <= limit {
		return r.All(ctx)
	}

	if articlesCount-offset < limit {
		offset = articlesCount - limit
	}

	log.Tracef("getting articles, count %d, limit %d, offset %d", articlesCount, limit, offset)

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, title, content, author_id, created_at, updated_at FROM article
			ORDER BY id DESC
			LIMIT $1
			OFFSET $2;
		`,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2articles(rows)
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Article, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.articles.get")
	span.SetAttributes(attribute.Int("id", id))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, content, author_id, created_at, updated_at FROM article WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	articles, err := r.rows2articles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) != 1 {
		return nil, ErrArticleNotFound
	}

	return articles[0], nil
}

func (r *Repo) rows2articles(rows pgx.Rows) ([]*Article, error) {
	articles := make([]*Article, 0)
	for rows.Next() {
		var article Article
		if err := rows.Scan(
			&article.ID, &article.Title, &article.Content,
			&article.AuthorID, &article.CreatedAt, &article.UpdatedAt,
		); err != nil {
			return nil, err
		}
		articles = append(articles, &article)
	}
	return articles, nil
}
