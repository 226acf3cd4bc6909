// Package testutil holds the fixtures shared by the tests of the API and the admin CLI.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/library"
	"github.com/trezcool/campus/core/parent"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/teacher"
	"github.com/trezcool/campus/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        core.NewID(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent creates a student profile for `usr`, who must hold the student role.
func CreateStudent(t *testing.T, repo student.Repository, usr user.User, class, rollNumber, parentID string) student.Student {
	now := time.Now().UTC()
	s, err := repo.CreateStudent(context.Background(), student.Student{
		ID:         core.NewID(),
		UserID:     usr.ID,
		Name:       usr.Name,
		Email:      usr.Email,
		Class:      class,
		RollNumber: rollNumber,
		ParentID:   parentID,
		Status:     student.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateParent(t *testing.T, repo parent.Repository, usr user.User) parent.Parent {
	now := time.Now().UTC()
	p, err := repo.CreateParent(context.Background(), parent.Parent{
		ID:        core.NewID(),
		UserID:    usr.ID,
		Name:      usr.Name,
		Email:     usr.Email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	return p
}

func CreateTeacher(t *testing.T, repo teacher.Repository, usr user.User, employeeID string) teacher.Teacher {
	now := time.Now().UTC()
	tchr, err := repo.CreateTeacher(context.Background(), teacher.Teacher{
		ID:         core.NewID(),
		UserID:     usr.ID,
		Name:       usr.Name,
		Email:      usr.Email,
		EmployeeID: employeeID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateBook(t *testing.T, repo library.Repository, title, category string, quantity int) library.Book {
	now := time.Now().UTC()
	b, err := repo.CreateBook(context.Background(), library.Book{
		ID:        core.NewID(),
		Title:     title,
		Author:    "Anonymous",
		Category:  category,
		Quantity:  quantity,
		Available: quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateBook() failed: %v", err)
	}
	return b
}
