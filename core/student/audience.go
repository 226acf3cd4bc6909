package student

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/parent"
)

// ParentFinder finds parent profiles.
type ParentFinder interface {
	GetParent(ctx context.Context, filter parent.GetFilter, exec ...core.DBExecutor) (parent.Parent, error)
}

// UserIDs returns the login accounts of `students`.
func UserIDs(students ...Student) []string {
	ids := make([]string, 0, len(students))
	for _, s := range students {
		if s.UserID != "" {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

// ParentUserIDs returns the login accounts of the parents of `students`, once each.
// Parents that cannot be found are left out.
func ParentUserIDs(ctx context.Context, parents ParentFinder, students ...Student) []string {
	if parents == nil {
		return nil
	}
	var ids []string
	seen := make(map[string]bool)
	for _, s := range students {
		if s.ParentID == "" || seen[s.ParentID] {
			continue
		}
		seen[s.ParentID] = true
		if p, err := parents.GetParent(ctx, parent.GetFilter{ID: s.ParentID}); err == nil && p.UserID != "" {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// Audience returns the login accounts of the students of `studentIDs` and of their parents.
func Audience(ctx context.Context, repo Repository, parents ParentFinder, studentIDs ...string) []string {
	if len(studentIDs) == 0 {
		return nil
	}
	students, err := repo.QueryStudents(ctx, &QueryFilter{StudentIDs: studentIDs}, nil)
	if err != nil {
		return nil
	}
	return append(UserIDs(students...), ParentUserIDs(ctx, parents, students...)...)
}
