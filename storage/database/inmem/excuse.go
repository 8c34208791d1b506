package inmemdb

import (
	"context"
	"sort"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/excuse"
)

type excuseRepository struct {
	db *excuseTable
}

var _ excuse.Repository = (*excuseRepository)(nil) // interface compliance check

func NewExcuseRepository(db *DB) *excuseRepository {
	return &excuseRepository{db: db.excuse}
}

func (repo *excuseRepository) CreateRequest(_ context.Context, r excuse.Request) (excuse.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *excuseRepository) GetRequestByID(_ context.Context, id string) (excuse.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if r, ok := repo.db.table[id]; ok {
		return *r, nil
	}
	return excuse.Request{}, excuse.ErrNotFound
}

// QueryRequests returns the matching requests by creation time; newest first unless asked otherwise.
func (repo *excuseRepository) QueryRequests(_ context.Context, filter *excuse.QueryFilter, ordering []core.DBOrdering) ([]excuse.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	requests := make([]excuse.Request, 0)
	for _, r := range repo.db.table {
		if filter.Match(*r) {
			requests = append(requests, *r)
		}
	}
	asc := len(ordering) > 0 && ordering[0].Ascending
	sort.Slice(requests, func(i, j int) bool {
		if asc {
			return requests[i].CreatedAt.Before(requests[j].CreatedAt)
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (repo *excuseRepository) UpdateRequest(_ context.Context, r excuse.Request) (excuse.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[r.ID]; !ok {
		return excuse.Request{}, excuse.ErrNotFound
	}
	repo.db.table[r.ID] = &r
	return r, nil
}

func (repo *excuseRepository) DeleteRequest(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[id]; !ok {
		return excuse.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
