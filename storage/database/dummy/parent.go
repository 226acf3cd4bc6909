package dummydb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/parent"
)

type parentRepository struct {
	db *DB
}

var _ parent.Repository = (*parentRepository)(nil) // interface compliance check

func NewParentRepository(db *DB) parent.Repository {
	return &parentRepository{db: db}
}

var parentOrdering = map[string]comparator[parent.Parent]{
	"name":       func(a, b parent.Parent) int { return cmpString(a.Name, b.Name) },
	"email":      func(a, b parent.Parent) int { return cmpString(a.Email, b.Email) },
	"created_at": func(a, b parent.Parent) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func (repo *parentRepository) CreateParent(_ context.Context, p parent.Parent, _ ...core.DBExecutor) (parent.Parent, error) {
	repo.db.parent.Lock()
	defer repo.db.parent.Unlock()

	repo.db.parent.rows[p.ID] = p
	return p, nil
}

func (repo *parentRepository) GetParent(_ context.Context, filter parent.GetFilter, _ ...core.DBExecutor) (parent.Parent, error) {
	repo.db.parent.RLock()
	defer repo.db.parent.RUnlock()

	var match func(p parent.Parent) bool
	switch {
	case filter.ID != "":
		if p, ok := repo.db.parent.rows[filter.ID]; ok {
			return p, nil
		}
		return parent.Parent{}, parent.ErrNotFound
	case filter.UserID != "":
		match = func(p parent.Parent) bool { return p.UserID == filter.UserID }
	case filter.Email != "":
		match = func(p parent.Parent) bool { return p.Email == filter.Email }
	default:
		return parent.Parent{}, parent.ErrNotFound
	}
	if p, ok := repo.db.parent.find(match); ok {
		return p, nil
	}
	return parent.Parent{}, parent.ErrNotFound
}

func (repo *parentRepository) QueryParents(_ context.Context, filter *parent.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]parent.Parent, error) {
	repo.db.parent.RLock()
	defer repo.db.parent.RUnlock()

	parents := repo.db.parent.filter(func(p parent.Parent) bool {
		return filter == nil || filter.Search == "" || containsFold(filter.Search, p.Name, p.Email, p.Phone)
	})
	sortRows(parents, ordering, parentOrdering, parentOrdering["name"])
	return parents, nil
}

func (repo *parentRepository) UpdateParent(_ context.Context, p parent.Parent, _ ...core.DBExecutor) (parent.Parent, error) {
	repo.db.parent.Lock()
	defer repo.db.parent.Unlock()

	orig, ok := repo.db.parent.rows[p.ID]
	if !ok {
		return parent.Parent{}, parent.ErrNotFound
	}
	p.CreatedAt = orig.CreatedAt
	repo.db.parent.rows[p.ID] = p
	return p, nil
}

func (repo *parentRepository) DeleteParent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.parent.Lock()
	defer repo.db.parent.Unlock()

	if _, ok := repo.db.parent.rows[id]; !ok {
		return parent.ErrNotFound
	}
	delete(repo.db.parent.rows, id)
	return nil
}
