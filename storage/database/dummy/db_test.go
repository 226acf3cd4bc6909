package dummydb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/core/user"
)

func TestTxRunner_RunInTx(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)

	ctx := context.Background()
	usrRepo := NewUserRepository(db)
	studentRepo := NewStudentRepository(db)
	tx := NewTxRunner(db)
	now := time.Now().UTC()

	createBoth := func(uname string) func(exec core.DBExecutor) error {
		return func(exec core.DBExecutor) error {
			usr, err := usrRepo.CreateUser(ctx, user.User{ID: core.NewID(), Username: uname, Email: uname + "@test.cd", CreatedAt: now}, exec)
			if err != nil {
				return err
			}
			_, err = studentRepo.CreateStudent(ctx, student.Student{ID: core.NewID(), UserID: usr.ID, Name: uname, Class: "10A", RollNumber: uname, CreatedAt: now}, exec)
			return err
		}
	}

	require.NoError(t, tx.RunInTx(ctx, createBoth("kept")))

	boom := errors.New("boom")
	err = tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := createBoth("dropped")(exec); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)

	usrs, err := usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, usrs, 1)
	assert.Equal(t, "kept", usrs[0].Username)

	students, err := studentRepo.QueryStudents(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "kept", students[0].Name)

	db.Flush()
	usrs, err = usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, usrs)
}
