package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core/resource"
)

const resourceColumns = `id, course_id, title, kind, url, description, created_at`

type resourceRow struct {
	ID          int64     `db:"id"`
	CourseID    int64     `db:"course_id"`
	Title       string    `db:"title"`
	Kind        string    `db:"kind"`
	URL         string    `db:"url"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r resourceRow) toResource() resource.Resource {
	res := resource.Resource(r)
	res.CreatedAt = res.CreatedAt.UTC()
	return res
}

type resourceRepository struct {
	db *sqlx.DB
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *sqlx.DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo resourceRepository) CreateResource(ctx context.Context, res resource.Resource) (resource.Resource, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		INSERT INTO resources (course_id, title, kind, url, description, created_at)
		VALUES (:course_id, :title, :kind, :url, :description, :created_at)
		RETURNING `+resourceColumns, resourceRow(res))
	if err != nil {
		return resource.Resource{}, errors.Wrap(err, "binding resource")
	}

	var row resourceRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return resource.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return row.toResource(), nil
}

func (repo resourceRepository) ListResources(ctx context.Context, courseID int64) ([]resource.Resource, error) {
	var rows []resourceRow
	q := `SELECT ` + resourceColumns + ` FROM resources WHERE course_id = $1 ORDER BY created_at DESC, id DESC`
	if err := getExec(ctx, repo.db).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "listing resources")
	}
	resources := make([]resource.Resource, 0, len(rows))
	for _, r := range rows {
		resources = append(resources, r.toResource())
	}
	return resources, nil
}

func (repo resourceRepository) DeleteResource(ctx context.Context, id int64) error {
	res, err := getExec(ctx, repo.db).ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return checkAffected(res, resource.ErrNotFound)
}
