package tags

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pictor-board/pictor/internal/platform/db"
	"github.com/pictor-board/pictor/internal/shared"
)

// Repository defines persistence operations for tags. Methods run against
// the transaction carried by ctx when there is one.
type Repository interface {
	// FindByName resolves a tag by its primary name. Aliases do not resolve
	// here: a merged-away tag is gone, not merely renamed.
	FindByName(ctx context.Context, name string) (*Tag, error)
	// RemoveUnused deletes every tag with zero post associations, returning
	// how many were removed.
	RemoveUnused(ctx context.Context) (int64, error)
	// ReassignPosts moves all post associations from source to target.
	// Posts carrying both collapse to a single association.
	ReassignPosts(ctx context.Context, sourceID, targetID int64) error
	// AddAliases attaches aliases to a tag, ignoring ones it already has.
	AddAliases(ctx context.Context, tagID int64, aliases []string) error
	// Delete removes a tag and its remaining alias rows.
	Delete(ctx context.Context, tagID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) FindByName(ctx context.Context, name string) (*Tag, error) {
	q := db.QuerierFrom(ctx, r.pool)
	row := q.QueryRow(ctx, `
		SELECT id, name, category FROM tags WHERE lower(name) = lower($1)`, name)
	var tag Tag
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NewError(shared.KindNotFound, "Tag %q not found", name)
		}
		return nil, err
	}
	rows, err := q.Query(ctx, `SELECT alias FROM tag_aliases WHERE tag_id = $1 ORDER BY alias`, tag.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, err
		}
		tag.Aliases = append(tag.Aliases, alias)
	}
	return &tag, rows.Err()
}

func (r *PGRepository) RemoveUnused(ctx context.Context) (int64, error) {
	tag, err := db.QuerierFrom(ctx, r.pool).Exec(ctx, `
		DELETE FROM tags t
		WHERE NOT EXISTS (SELECT 1 FROM post_tags pt WHERE pt.tag_id = t.id)`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PGRepository) ReassignPosts(ctx context.Context, sourceID, targetID int64) error {
	q := db.QuerierFrom(ctx, r.pool)
	// drop source associations on posts that already carry the target
	if _, err := q.Exec(ctx, `
		DELETE FROM post_tags
		WHERE tag_id = $1
		  AND post_id IN (SELECT post_id FROM post_tags WHERE tag_id = $2)`,
		sourceID, targetID); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `UPDATE post_tags SET tag_id = $2 WHERE tag_id = $1`, sourceID, targetID)
	return err
}

func (r *PGRepository) AddAliases(ctx context.Context, tagID int64, aliases []string) error {
	q := db.QuerierFrom(ctx, r.pool)
	for _, alias := range aliases {
		if _, err := q.Exec(ctx, `
			INSERT INTO tag_aliases (tag_id, alias) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, tagID, alias); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, tagID int64) error {
	q := db.QuerierFrom(ctx, r.pool)
	if _, err := q.Exec(ctx, `DELETE FROM tag_aliases WHERE tag_id = $1`, tagID); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `DELETE FROM tags WHERE id = $1`, tagID)
	return err
}

var _ Repository = (*PGRepository)(nil)
