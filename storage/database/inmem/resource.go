package inmemdb

import (
	"context"
	"sort"

	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/resource"
)

type resourceRepository struct {
	db *DB
}

var _ resource.Repository = (*resourceRepository)(nil) // interface compliance check

func NewResourceRepository(db *DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (repo *resourceRepository) CreateResource(_ context.Context, res resource.Resource) (resource.Resource, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[res.CourseID]; !ok {
		return resource.Resource{}, course.ErrNotFound
	}
	res.ID = repo.db.nextID()
	repo.db.resources[res.ID] = res
	return res, nil
}

func (repo *resourceRepository) ListResources(_ context.Context, courseID int64) ([]resource.Resource, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	resources := make([]resource.Resource, 0)
	for _, res := range repo.db.resources {
		if res.CourseID == courseID {
			resources = append(resources, res)
		}
	}
	sort.Slice(resources, func(i, j int) bool {
		if !resources[i].CreatedAt.Equal(resources[j].CreatedAt) {
			return resources[i].CreatedAt.After(resources[j].CreatedAt)
		}
		return resources[i].ID > resources[j].ID
	})
	return resources, nil
}

func (repo *resourceRepository) DeleteResource(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.resources[id]; !ok {
		return resource.ErrNotFound
	}
	delete(repo.db.resources, id)
	return nil
}
