package storage

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/zeebo/errs"

	// registers the postgres and sqlite3 drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/ports"
)

// Error is the class of archive failures.
var Error = errs.Class("archive")

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	articlesTable = "archived_articles"
)

const schema = `CREATE TABLE IF NOT EXISTS archived_articles (
    id TEXT PRIMARY KEY,
    domain TEXT NOT NULL,
    source TEXT NOT NULL,
    tier TEXT NOT NULL,
    category TEXT NOT NULL,
    title TEXT NOT NULL,
    link TEXT NOT NULL,
    published_at TIMESTAMP NOT NULL,
    breaking BOOLEAN NOT NULL,
    quality_score DOUBLE PRECISION NOT NULL,
    archived_at TIMESTAMP NOT NULL,
    notified_at TIMESTAMP NULL
)`

// ArchiveRepository keeps every published article and the notification state.
type ArchiveRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ArticleArchive = (*ArchiveRepository)(nil)

// NewArchiveRepository wires a sql.DB opened with the given driver.
func NewArchiveRepository(db *sql.DB, driver string) *ArchiveRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &ArchiveRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*ArchiveRepository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errs.Combine(Error.New("ping %s: %v", driver, err), db.Close())
	}

	repo := NewArchiveRepository(db, driver)
	if err := repo.Ensure(ctx); err != nil {
		return nil, errs.Combine(err, db.Close())
	}
	return repo, nil
}

// Ensure creates the archive table if missing.
func (r *ArchiveRepository) Ensure(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return Error.New("ensure schema: %v", err)
	}
	return nil
}

// Close releases the database handle.
func (r *ArchiveRepository) Close() error {
	return Error.Wrap(r.db.Close())
}

// SaveArticles upserts the given articles in a single transaction.
func (r *ArchiveRepository) SaveArticles(ctx context.Context, articles []domain.Article) (err error) {
	if r.db == nil || len(articles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Error.New("begin: %v", err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, tx.Rollback())
			return
		}
		err = Error.Wrap(tx.Commit())
	}()

	archivedAt := r.now().UTC()
	for _, a := range articles {
		query, args, buildErr := r.builder.
			Insert(articlesTable).
			Columns("id", "domain", "source", "tier", "category", "title", "link",
				"published_at", "breaking", "quality_score", "archived_at").
			Values(a.ID, string(a.Domain), a.Source, string(a.Tier), string(a.Category), a.Title, a.Link,
				a.PublishedAt.UTC(), a.Breaking, a.QualityScore, archivedAt).
			Suffix(`ON CONFLICT (id) DO UPDATE
              SET category = EXCLUDED.category,
                  title = EXCLUDED.title,
                  breaking = EXCLUDED.breaking,
                  quality_score = EXCLUDED.quality_score,
                  archived_at = EXCLUDED.archived_at`).
			ToSql()
		if buildErr != nil {
			return Error.New("build upsert: %v", buildErr)
		}
		if _, execErr := tx.ExecContext(ctx, query, args...); execErr != nil {
			return Error.New("upsert %s: %v", a.ID, execErr)
		}
	}
	return nil
}

// Notified returns the subset of ids whose breaking notification was already sent.
func (r *ArchiveRepository) Notified(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if r.db == nil || len(ids) == 0 {
		return result, nil
	}

	query, args, err := r.builder.
		Select("id").
		From(articlesTable).
		Where(sq.Eq{"id": ids}).
		Where(sq.NotEq{"notified_at": nil}).
		ToSql()
	if err != nil {
		return nil, Error.New("build query: %v", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Error.New("query notified: %v", err)
	}

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, Error.New("scan id: %v", err)
		}
		result[id] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, Error.New("rows iteration: %v", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, Error.New("close rows: %v", closeErr)
	}

	return result, nil
}

// MarkNotified records the notification time for archived ids.
func (r *ArchiveRepository) MarkNotified(ctx context.Context, ids []string, at time.Time) error {
	if r.db == nil || len(ids) == 0 {
		return nil
	}

	query, args, err := r.builder.
		Update(articlesTable).
		Set("notified_at", at.UTC()).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return Error.New("build update: %v", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return Error.New("mark notified: %v", err)
	}
	return nil
}
