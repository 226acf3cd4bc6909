package dummydb

import (
	"context"
	"strings"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

var userOrdering = map[string]comparator[user.User]{
	"name":       func(a, b user.User) int { return cmpString(a.Name, b.Name) },
	"username":   func(a, b user.User) int { return cmpString(a.Username, b.Username) },
	"email":      func(a, b user.User) int { return cmpString(a.Email, b.Email) },
	"is_active":  func(a, b user.User) int { return cmpBool(a.Active(), b.Active()) },
	"created_at": func(a, b user.User) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b user.User) int { return cmpTime(a.UpdatedAt, b.UpdatedAt) },
	"last_login": func(a, b user.User) int { return cmpTime(a.LastLogin, b.LastLogin) },
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = struct{}{}
	}
	for _, usr := range repo.db.user.rows {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	repo.db.user.rows[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	var match func(u user.User) bool
	switch {
	case filter.ID != "":
		if usr, ok := repo.db.user.rows[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	case filter.Username != "":
		match = func(u user.User) bool { return u.Username == filter.Username }
	case filter.Email != "":
		match = func(u user.User) bool { return u.Email == filter.Email }
	case len(filter.UsernameOrEmail) == 2:
		match = func(u user.User) bool {
			return (u.Username != "" && u.Username == filter.UsernameOrEmail[0]) || u.Email == filter.UsernameOrEmail[1]
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	if usr, ok := repo.db.user.find(match); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	if filter == nil {
		filter = &user.QueryFilter{}
	}
	users := repo.db.user.filter(func(u user.User) bool {
		if filter.IDs != nil && !core.ContainsString(filter.IDs, u.ID) {
			return false
		}
		// users with search keyword matching any Name, Username or Email ?
		if filter.Search != "" && !containsFold(filter.Search, u.Name, u.Username, u.Email) {
			return false
		}
		// users with any of the specified roles
		if len(filter.Roles) > 0 && !hasAnyRole(u, filter.Roles) {
			return false
		}
		if filter.IsActive != nil && u.Active() != *filter.IsActive {
			return false
		}
		if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
			return false
		}
		if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
			return false
		}
		return true
	})

	sortRows(users, ordering, userOrdering, userOrdering["name"])
	return users, nil
}

func hasAnyRole(u user.User, roles []string) bool {
	for _, r := range roles {
		if u.RoleStartsWith(strings.ToLower(r)) {
			return true
		}
	}
	return false
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	orig, ok := repo.db.user.rows[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	// only save set fields
	if usr.Roles == nil {
		usr.Roles = orig.Roles
	}
	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	if usr.IsActive == nil {
		usr.IsActive = orig.IsActive
	}
	usr.CreatedAt = orig.CreatedAt
	repo.db.user.rows[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	repo.db.user.RLock()
	_, exists := repo.db.user.rows[usr.ID]
	repo.db.user.RUnlock()

	if exists {
		return repo.UpdateUser(ctx, usr, exec...)
	}
	return repo.CreateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsers(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.user.Lock()
	defer repo.db.user.Unlock()

	for _, id := range ids {
		delete(repo.db.user.rows, id)
	}
	return nil
}
