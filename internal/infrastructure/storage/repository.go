package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ArticleShelf/internal/domain"
	"ArticleShelf/internal/ports"
)

var articleColumns = []string{"id", "user_id", "title", "body", "link", "publish_date", "classification", "created_at"}

// Repository persists articles and feeds through database/sql.
type Repository struct {
	db      *sql.DB
	dialect string
	sb      sq.StatementBuilderType
	owned   bool
	now     func() time.Time
}

var (
	_ ports.ArticleRepository = (*Repository)(nil)
	_ ports.ArticleReader     = (*Repository)(nil)
	_ ports.FeedRepository    = (*Repository)(nil)
)

// NewRepository wires an open sql.DB. The schema is not touched; call Migrate for that.
func NewRepository(db *sql.DB, dialect string) *Repository {
	if dialect == "" {
		dialect = DialectSQLite
	}
	return &Repository{db: db, dialect: dialect, sb: builderFor(dialect), now: time.Now}
}

// FindArticle returns the user's article for link, or nil when there is none.
func (r *Repository) FindArticle(ctx context.Context, userID int64, link string) (*domain.Article, error) {
	query, args, err := r.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"user_id": userID, "link": link}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find article: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find article: %w", err)
	}
	return &article, nil
}

// InsertArticle stores a new article. A row for the same user and link yields domain.ErrDuplicateArticle.
func (r *Repository) InsertArticle(ctx context.Context, article domain.Article) (domain.Article, error) {
	if article.CreatedAt.IsZero() {
		article.CreatedAt = r.now().UTC()
	}
	if article.Classification == "" {
		article.Classification = domain.UncategorizedLabel
	}

	query, args, err := r.sb.Insert("articles").
		Columns("user_id", "title", "body", "link", "publish_date", "classification", "created_at").
		Values(
			article.UserID,
			article.Title,
			article.Body,
			article.Link,
			article.PublishDate.UnixMilli(),
			article.Classification,
			article.CreatedAt.UnixMilli(),
		).
		Suffix("ON CONFLICT (user_id, link) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build insert article: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&article.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrDuplicateArticle
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("insert article: %w", err)
	}
	return article, nil
}

// GetArticle returns the article only when userID owns it.
func (r *Repository) GetArticle(ctx context.Context, userID, id int64) (domain.Article, error) {
	query, args, err := r.sb.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build get article: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// DeleteArticle removes the article only when userID owns it.
func (r *Repository) DeleteArticle(ctx context.Context, userID, id int64) error {
	query, args, err := r.sb.Delete("articles").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete article: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// ListArticles pages through a user's articles, newest publish date first.
func (r *Repository) ListArticles(ctx context.Context, filter domain.ArticleFilter) (domain.ArticlePage, error) {
	where := sq.Eq{"user_id": filter.UserID}
	if filter.Classification != "" {
		where["classification"] = filter.Classification
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("articles").Where(where).ToSql()
	if err != nil {
		return domain.ArticlePage{}, fmt.Errorf("build count articles: %w", err)
	}

	var page domain.ArticlePage
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&page.Total); err != nil {
		return domain.ArticlePage{}, fmt.Errorf("count articles: %w", err)
	}

	builder := r.sb.Select(articleColumns...).
		From("articles").
		Where(where).
		OrderBy("publish_date DESC", "id DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return domain.ArticlePage{}, fmt.Errorf("build list articles: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ArticlePage{}, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	page.Articles = make([]domain.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return domain.ArticlePage{}, fmt.Errorf("scan article: %w", err)
		}
		page.Articles = append(page.Articles, article)
	}
	if err := rows.Err(); err != nil {
		return domain.ArticlePage{}, fmt.Errorf("rows iteration: %w", err)
	}
	return page, nil
}

// ListCategories returns the distinct classifications of a user's articles, sorted.
func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]string, error) {
	query, args, err := r.sb.Select("DISTINCT classification").
		From("articles").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("classification").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return categories, nil
}

// InsertFeed stores a feed subscription.
func (r *Repository) InsertFeed(ctx context.Context, feed domain.Feed) (domain.Feed, error) {
	query, args, err := r.sb.Insert("feeds").
		Columns("user_id", "name", "link").
		Values(feed.UserID, feed.Name, feed.Link).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build insert feed: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&feed.ID); err != nil {
		return domain.Feed{}, fmt.Errorf("insert feed: %w", err)
	}
	return feed, nil
}

// FindFeed looks a feed up by id regardless of owner.
func (r *Repository) FindFeed(ctx context.Context, id int64) (domain.Feed, error) {
	query, args, err := r.sb.Select("id", "user_id", "name", "link").
		From("feeds").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build find feed: %w", err)
	}

	var feed domain.Feed
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&feed.ID, &feed.UserID, &feed.Name, &feed.Link)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feed{}, domain.ErrFeedNotFound
	}
	if err != nil {
		return domain.Feed{}, fmt.Errorf("find feed: %w", err)
	}
	return feed, nil
}

// ListFeeds returns a user's feeds in creation order.
func (r *Repository) ListFeeds(ctx context.Context, userID int64) ([]domain.Feed, error) {
	query, args, err := r.sb.Select("id", "user_id", "name", "link").
		From("feeds").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list feeds: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	feeds := make([]domain.Feed, 0)
	for rows.Next() {
		var feed domain.Feed
		if err := rows.Scan(&feed.ID, &feed.UserID, &feed.Name, &feed.Link); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return feeds, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a                    domain.Article
		published, createdAt int64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Body, &a.Link, &published, &a.Classification, &createdAt); err != nil {
		return domain.Article{}, err
	}
	a.PublishDate = time.UnixMilli(published).UTC()
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	return a, nil
}
